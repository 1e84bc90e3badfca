package jobs

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func itoa(n int) string { return strconv.Itoa(n) }

func TestJobsEvictsVanishedProcesses(t *testing.T) {
	m := NewManager(4, nil)
	gone := map[int]bool{2: true}
	m.Probe = func(pid int) error {
		if gone[pid] {
			return unix.ESRCH
		}
		return nil
	}
	for _, pid := range []int{1, 2, 3} {
		_, err := m.Track("x", []int{pid})
		require.NoError(t, err)
	}

	jobs := m.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[0].PID)
	assert.Equal(t, 3, jobs[1].PID)
	assert.Equal(t, 2, jobs[1].Slot)
}

func TestJobsKeepsProcessesOnOtherErrors(t *testing.T) {
	m := NewManager(4, nil)
	m.Probe = func(int) error { return unix.EPERM }
	_, err := m.Track("x", []int{5})
	require.NoError(t, err)
	assert.Len(t, m.Jobs(), 1)
}

func TestJobsIgnoresCollectedMembers(t *testing.T) {
	m := NewManager(4, nil)
	probed := map[int]int{}
	m.Probe = func(pid int) error {
		probed[pid]++
		if pid == 11 {
			return unix.ESRCH
		}
		return nil
	}
	_, err := m.Track("a | b", []int{10, 11})
	require.NoError(t, err)
	_, done := m.Table().MarkReaped(11)
	require.False(t, done)

	jobs := m.Jobs()
	require.Len(t, jobs, 1, "job with a running upstream stage must stay listed")
	assert.Equal(t, 11, jobs[0].PID)
	assert.Zero(t, probed[11], "collected member must not be probed")
	assert.Equal(t, 1, probed[10])
}

func TestJobsEvictsWhenEveryOutstandingMemberVanished(t *testing.T) {
	m := NewManager(4, nil)
	m.Probe = func(pid int) error {
		if pid == 10 {
			return nil
		}
		return unix.ESRCH
	}
	_, err := m.Track("a | b", []int{10, 11})
	require.NoError(t, err)
	_, err = m.Track("c | d", []int{20, 21})
	require.NoError(t, err)

	jobs := m.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 11, jobs[0].PID)
}

func TestJobsKeepsPipelineUntilUpstreamExits(t *testing.T) {
	var notices syncBuffer
	m := NewManager(4, &notices)

	upstream := spawn(t, "sleep", "1")
	last := spawn(t, "true")
	_, err := m.Track("sleep 1 | true &", []int{upstream, last})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m.Reap()
		out := m.Table().Outstanding(last)
		return len(out) == 1 && out[0] == upstream
	}, 5*time.Second, 20*time.Millisecond)

	jobs := m.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, last, jobs[0].PID)
	assert.Empty(t, notices.String())

	require.Eventually(t, func() bool { return m.Reap() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "[Background process "+itoa(last)+" completed]\n", notices.String())
	assert.Empty(t, m.Jobs())
}

func TestKillSignalsEveryMember(t *testing.T) {
	m := NewManager(4, nil)
	var signalled []int
	m.Signal = func(pid int, sig unix.Signal) error {
		assert.Equal(t, unix.SIGKILL, sig)
		signalled = append(signalled, pid)
		return nil
	}
	_, err := m.Track("a | b", []int{10, 11})
	require.NoError(t, err)

	job, err := m.Kill(1, unix.SIGKILL)
	require.NoError(t, err)
	assert.Equal(t, 11, job.PID)
	assert.Equal(t, []int{10, 11}, signalled)
	assert.Equal(t, 0, m.Table().Len())
}

func TestKillRejectsBadSlotAndSignal(t *testing.T) {
	m := NewManager(4, nil)
	m.Signal = func(int, unix.Signal) error { return nil }

	_, err := m.Kill(1, unix.SIGKILL)
	assert.ErrorIs(t, err, ErrNoSuchJob)

	_, err = m.Track("x", []int{1})
	require.NoError(t, err)
	_, err = m.Kill(1, unix.SIGSTOP)
	assert.Error(t, err)
	assert.Equal(t, 1, m.Table().Len(), "rejected kill must not remove the job")
}

func TestKillRealProcess(t *testing.T) {
	m := NewManager(4, nil)
	m.Start()
	defer m.Stop()

	pid := spawn(t, "sleep", "30")
	_, err := m.Track("sleep 30 &", []int{pid})
	require.NoError(t, err)

	_, err = m.Kill(1, unix.SIGTERM)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Table().Len())
	require.Eventually(t, func() bool { return len(m.Table().Pending()) == 0 }, 5*time.Second, 20*time.Millisecond,
		"killed member must still be collected")
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in   string
		want unix.Signal
	}{
		{"KILL", unix.SIGKILL},
		{"SIGTERM", unix.SIGTERM},
		{"term", unix.SIGTERM},
		{"9", unix.SIGKILL},
	}
	for _, tt := range tests {
		got, err := ParseSignal(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseSignal("NOPE")
	assert.Error(t, err)
}

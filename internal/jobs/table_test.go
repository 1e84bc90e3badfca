package jobs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsCompactSlots(t *testing.T) {
	tbl := NewTable(4)
	for i, pid := range []int{100, 200, 300} {
		job, err := tbl.Register("cmd", []int{pid})
		require.NoError(t, err)
		assert.Equal(t, i+1, job.Slot)
		assert.Equal(t, pid, job.PID)
	}

	_, err := tbl.Remove(2)
	require.NoError(t, err)

	jobs := tbl.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[0].Slot)
	assert.Equal(t, 100, jobs[0].PID)
	assert.Equal(t, 2, jobs[1].Slot)
	assert.Equal(t, 300, jobs[1].PID)
}

func TestRegisterIdentityIsLastMember(t *testing.T) {
	tbl := NewTable(0)
	job, err := tbl.Register("a | b | c", []int{11, 12, 13})
	require.NoError(t, err)
	assert.Equal(t, 13, job.PID)
	assert.Equal(t, []int{11, 12, 13}, job.Members)
	assert.Equal(t, DefaultCapacity, tbl.Cap())
}

func TestRegisterRejectsWhenFull(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.Register("a", []int{1})
	require.NoError(t, err)
	assert.False(t, tbl.Full())
	_, err = tbl.Register("b", []int{2})
	require.NoError(t, err)
	assert.True(t, tbl.Full())

	_, err = tbl.Register("c", []int{3})
	assert.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 2, tbl.Len())
}

func TestRegisterRejectsEmpty(t *testing.T) {
	_, err := NewTable(1).Register("x", nil)
	assert.Error(t, err)
}

func TestRemoveUnknownSlot(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.Remove(1)
	assert.ErrorIs(t, err, ErrNoSuchJob)
	_, err = tbl.Remove(0)
	assert.ErrorIs(t, err, ErrNoSuchJob)
}

func TestMarkReapedCompletesAfterLastMember(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.Register("a | b", []int{10, 20})
	require.NoError(t, err)

	_, done := tbl.MarkReaped(20)
	assert.False(t, done, "job still has a running member")
	assert.Equal(t, []int{10}, tbl.Pending())

	job, done := tbl.MarkReaped(10)
	assert.True(t, done)
	assert.Equal(t, 20, job.PID)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Pending())

	_, done = tbl.MarkReaped(10)
	assert.False(t, done, "double reap must be ignored")
}

func TestOutstandingListsUncollectedMembers(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.Register("a | b | c", []int{10, 20, 30})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, tbl.Outstanding(30))

	_, done := tbl.MarkReaped(30)
	require.False(t, done)
	assert.Equal(t, []int{10, 20}, tbl.Outstanding(30))

	assert.Nil(t, tbl.Outstanding(10), "only the identity pid names a job")
	assert.Nil(t, tbl.Outstanding(99))
}

func TestRemoveMovesMembersToStrays(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.Register("a | b", []int{10, 20})
	require.NoError(t, err)
	_, done := tbl.MarkReaped(10)
	require.False(t, done)

	_, err = tbl.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []int{20}, tbl.Pending(), "unreaped member must still be collected")

	_, done = tbl.MarkReaped(20)
	assert.False(t, done, "strays complete silently")
	assert.Empty(t, tbl.Pending())
}

func TestRemovePID(t *testing.T) {
	tbl := NewTable(3)
	for _, pid := range []int{1, 2, 3} {
		_, err := tbl.Register("x", []int{pid})
		require.NoError(t, err)
	}
	job, ok := tbl.RemovePID(2)
	require.True(t, ok)
	assert.Equal(t, 2, job.Slot)

	_, ok = tbl.RemovePID(2)
	assert.False(t, ok)

	got, ok := tbl.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, 3, got.PID)
}

func TestTableConcurrentAccess(t *testing.T) {
	tbl := NewTable(1000)
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				pid := base*1000 + i + 1
				_, err := tbl.Register("x", []int{pid})
				assert.NoError(t, err)
				tbl.List()
				_, done := tbl.MarkReaped(pid)
				assert.True(t, done)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Pending())
}

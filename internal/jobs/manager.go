package jobs

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Manager ties the table and the reaper together and is what the launcher
// and the built-ins talk to.
type Manager struct {
	table  *Table
	reaper *Reaper

	// Probe checks whether pid still exists. Defaults to signal 0.
	Probe func(pid int) error
	// Signal delivers sig to pid. Defaults to unix.Kill.
	Signal func(pid int, sig unix.Signal) error
}

// NewManager returns a manager with a table of the given capacity. Notices
// from the reaper go to notices.
func NewManager(capacity int, notices io.Writer) *Manager {
	t := NewTable(capacity)
	return &Manager{
		table:  t,
		reaper: NewReaper(t, notices),
		Probe:  func(pid int) error { return unix.Kill(pid, 0) },
		Signal: unix.Kill,
	}
}

// Start begins asynchronous reaping.
func (m *Manager) Start() { m.reaper.Start() }

// Stop ends asynchronous reaping.
func (m *Manager) Stop() { m.reaper.Stop() }

// Table exposes the underlying job table.
func (m *Manager) Table() *Table { return m.table }

// Full reports whether a new background job would be rejected.
func (m *Manager) Full() bool { return m.table.Full() }

// Track registers a background pipeline and kicks the reaper, which covers
// members that exited before they were registered.
func (m *Manager) Track(command string, pids []int) (int, error) {
	job, err := m.table.Register(command, pids)
	if err != nil {
		return 0, err
	}
	m.reaper.Kick()
	return job.Slot, nil
}

// Reap runs one reaping pass synchronously.
func (m *Manager) Reap() int { return m.reaper.Reap() }

// Jobs returns the live jobs. A job is evicted first when every member the
// reaper has not collected has vanished anyway. Collected members are never
// probed; their pids may already belong to someone else.
func (m *Manager) Jobs() []Job {
	for _, job := range m.table.List() {
		if m.vanished(m.table.Outstanding(job.PID)) {
			m.table.RemovePID(job.PID)
		}
	}
	return m.table.List()
}

func (m *Manager) vanished(pids []int) bool {
	if len(pids) == 0 {
		return false
	}
	for _, pid := range pids {
		if err := m.Probe(pid); !errors.Is(err, unix.ESRCH) {
			return false
		}
	}
	return true
}

// Kill removes the job in slot and sends sig to every member. Only
// termination signals are accepted.
func (m *Manager) Kill(slot int, sig unix.Signal) (Job, error) {
	if !IsTermination(sig) {
		return Job{}, fmt.Errorf("signal %s does not terminate a job", unix.SignalName(sig))
	}
	job, err := m.table.Remove(slot)
	if err != nil {
		return Job{}, fmt.Errorf("job %d: %w", slot, err)
	}
	var firstErr error
	for _, pid := range job.Members {
		if err := m.Signal(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) && firstErr == nil {
			firstErr = fmt.Errorf("signal pid %d: %w", pid, err)
		}
	}
	m.reaper.Kick()
	return job, firstErr
}

// IsTermination reports whether sig is one kill accepts.
func IsTermination(sig unix.Signal) bool {
	switch sig {
	case unix.SIGKILL, unix.SIGTERM, unix.SIGINT, unix.SIGHUP, unix.SIGQUIT:
		return true
	}
	return false
}

// ParseSignal accepts a signal name with or without the SIG prefix, or a
// number.
func ParseSignal(s string) (unix.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return unix.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	if sig := unix.SignalNum(name); sig != 0 {
		return sig, nil
	}
	return 0, fmt.Errorf("unknown signal %q", s)
}

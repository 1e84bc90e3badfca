// Package jobs tracks background pipelines: a bounded table of running
// jobs and a reaper that collects them as they exit.
package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the table size used when none is configured.
const DefaultCapacity = 64

var (
	ErrTableFull = errors.New("job table is full")
	ErrNoSuchJob = errors.New("no such job")
)

// Job is one background pipeline. PID identifies it to the user and is the
// last stage's process; Members lists every stage that was started.
type Job struct {
	Slot    int
	PID     int
	Members []int
	Command string
	Started time.Time
}

type entry struct {
	job     Job
	pending map[int]bool // members not yet reaped
}

// Table is a bounded, slot-ordered set of jobs. Slots are 1-based and are
// compacted on removal, so listings always read [1] [2] ... [n].
//
// Members of removed jobs that have not exited yet stay in a stray set so
// the reaper still collects them.
type Table struct {
	mu      sync.Mutex
	cap     int
	entries []*entry
	strays  map[int]bool
	now     func() time.Time
}

// NewTable returns an empty table holding at most capacity jobs.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{cap: capacity, strays: make(map[int]bool), now: time.Now}
}

// Register adds a job for pids (in stage order). The last pid becomes the
// job's identity.
func (t *Table) Register(command string, pids []int) (Job, error) {
	if len(pids) == 0 {
		return Job{}, errors.New("job has no processes")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) >= t.cap {
		return Job{}, ErrTableFull
	}
	e := &entry{
		job: Job{
			Slot:    len(t.entries) + 1,
			PID:     pids[len(pids)-1],
			Members: append([]int(nil), pids...),
			Command: command,
			Started: t.now(),
		},
		pending: make(map[int]bool, len(pids)),
	}
	for _, pid := range pids {
		e.pending[pid] = true
	}
	t.entries = append(t.entries, e)
	return e.job, nil
}

// List returns a snapshot of the jobs in slot order.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Job, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.job
	}
	return out
}

// Lookup returns the job in slot.
func (t *Table) Lookup(slot int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 1 || slot > len(t.entries) {
		return Job{}, false
	}
	return t.entries[slot-1].job, true
}

// Remove deletes the job in slot and returns it. Its unreaped members move
// to the stray set. Removal is atomic: a concurrent reaper either sees the
// job or does not.
func (t *Table) Remove(slot int) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 1 || slot > len(t.entries) {
		return Job{}, ErrNoSuchJob
	}
	return t.removeLocked(slot - 1), nil
}

// RemovePID deletes the job identified by pid.
func (t *Table) RemovePID(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.job.PID == pid {
			return t.removeLocked(i), true
		}
	}
	return Job{}, false
}

func (t *Table) removeLocked(i int) Job {
	e := t.entries[i]
	for pid := range e.pending {
		t.strays[pid] = true
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	for j := i; j < len(t.entries); j++ {
		t.entries[j].job.Slot = j + 1
	}
	return e.job
}

// Outstanding returns the members of the job identified by pid that the
// reaper has not collected yet, in stage order.
func (t *Table) Outstanding(pid int) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.job.PID != pid {
			continue
		}
		var out []int
		for _, m := range e.job.Members {
			if e.pending[m] {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Pending returns every pid the reaper still has to collect: unreaped
// members of tracked jobs plus strays.
func (t *Table) Pending() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pids []int
	for _, e := range t.entries {
		for pid := range e.pending {
			pids = append(pids, pid)
		}
	}
	for pid := range t.strays {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// MarkReaped records that pid has been collected. When that was the last
// outstanding member of a job, the job is removed and returned.
func (t *Table) MarkReaped(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.strays[pid] {
		delete(t.strays, pid)
		return Job{}, false
	}
	for i, e := range t.entries {
		if !e.pending[pid] {
			continue
		}
		delete(e.pending, pid)
		if len(e.pending) > 0 {
			return Job{}, false
		}
		return t.removeLocked(i), true
	}
	return Job{}, false
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Cap returns the table's capacity.
func (t *Table) Cap() int { return t.cap }

// Full reports whether another job would be rejected.
func (t *Table) Full() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries) >= t.cap
}

package jobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// Reaper collects exited background processes. It runs on its own
// goroutine, woken by SIGCHLD or by an explicit Kick, and only ever waits on
// pids the table owns so it never steals a foreground child.
type Reaper struct {
	table   *Table
	notices io.Writer

	// wait is unix.Wait4 in production.
	wait func(pid int, ws *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)

	mu   sync.Mutex // serialises passes
	sigs chan os.Signal
	kick chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewReaper returns a reaper for t that writes completion notices to
// notices.
func NewReaper(t *Table, notices io.Writer) *Reaper {
	if notices == nil {
		notices = io.Discard
	}
	return &Reaper{
		table:   t,
		notices: notices,
		wait:    unix.Wait4,
		kick:    make(chan struct{}, 1),
	}
}

// Start subscribes to SIGCHLD and starts the reaping goroutine.
func (r *Reaper) Start() {
	r.sigs = make(chan os.Signal, 1)
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	signal.Notify(r.sigs, unix.SIGCHLD)
	go r.loop()
}

// Stop unsubscribes and waits for the goroutine to exit. Running jobs are
// left alone.
func (r *Reaper) Stop() {
	if r.stop == nil {
		return
	}
	r.once.Do(func() {
		signal.Stop(r.sigs)
		close(r.stop)
		<-r.done
	})
}

// Kick requests a pass without waiting for a signal. It never blocks.
func (r *Reaper) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Reaper) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case <-r.sigs:
		case <-r.kick:
		}
		r.Reap()
	}
}

// Reap collects every tracked process that has exited, without blocking,
// and prints a notice for each job whose last member is gone. It returns
// the number of jobs completed by this pass.
func (r *Reaper) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed := 0
	for _, pid := range r.table.Pending() {
		if !r.collect(pid) {
			continue
		}
		if job, done := r.table.MarkReaped(pid); done {
			completed++
			fmt.Fprintf(r.notices, "[Background process %d completed]\n", job.PID)
		}
	}
	return completed
}

// collect reports whether pid is gone.
func (r *Reaper) collect(pid int) bool {
	var ws unix.WaitStatus
	for {
		wpid, err := r.wait(pid, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			// Already collected elsewhere, or never our child.
			return true
		case err != nil:
			return false
		}
		return wpid == pid
	}
}

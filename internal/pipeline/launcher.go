package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"syscall"
)

// Tracker records background pipelines so they can be listed, killed and
// reaped later.
type Tracker interface {
	Full() bool
	Track(command string, pids []int) (slot int, err error)
}

// Launcher starts the processes of a pipeline.
type Launcher struct {
	Jobs    Tracker
	Notices io.Writer // "[Background PID n]" lines; defaults to the session stdout
}

// Result describes a launched pipeline.
type Result struct {
	PIDs       []int // started stages, in order
	Statuses   []int // per-stage exit status (foreground only)
	Status     int   // exit status of the last stage
	Background bool
	Slot       int // job slot for background pipelines
}

// Launch wires and starts every stage of p. A foreground pipeline blocks
// until every started stage exits. A background pipeline is registered with
// the tracker and Launch returns at once.
//
// Stages whose program cannot be executed are reported on std.Stderr and get
// status 127 or 126; the other stages still run. Any other start failure
// stops the remaining stages and is returned as a *LaunchError together with
// a Result for whatever did start.
func (l *Launcher) Launch(ctx context.Context, p *Pipeline, std Streams) (*Result, error) {
	if p.Background {
		if l.Jobs == nil {
			return nil, &LaunchError{Program: p.Stages[0].Program(), Err: errors.New("background jobs are not supported")}
		}
		// Only this goroutine registers jobs and the reaper only removes
		// them, so a free slot seen here is still free after the starts.
		if l.Jobs.Full() {
			return nil, &LaunchError{Program: p.Stages[0].Program(), Err: ErrJobTableFull}
		}
	}

	plan, err := Build(p, std)
	if err != nil {
		return nil, err
	}
	defer plan.Close()

	n := len(p.Stages)
	res := &Result{Background: p.Background, Statuses: make([]int, n)}
	cmds := make([]*exec.Cmd, n)
	var launchErr error

	for i, st := range p.Stages {
		if err := ctx.Err(); err != nil {
			launchErr = &LaunchError{Stage: i, Program: st.Program(), Err: err}
			break
		}
		cmd := exec.Command(st.Program(), st.Args[1:]...)
		cmd.Stdin = plan.Endpoints[i].Stdin
		cmd.Stdout = plan.Endpoints[i].Stdout
		cmd.Stderr = std.Stderr

		if err := cmd.Start(); err != nil {
			var execErr *ExecError
			if errors.As(classifyStart(i, st.Program(), err), &execErr) {
				fmt.Fprintf(stderrOf(std), "myshell: %v\n", execErr)
				res.Statuses[i] = execErr.Code
				plan.ReleaseStage(i)
				continue
			}
			launchErr = &LaunchError{Stage: i, Program: st.Program(), Err: err}
			for j := i; j < n; j++ {
				res.Statuses[j] = 1
			}
			break
		}
		cmds[i] = cmd
		res.PIDs = append(res.PIDs, cmd.Process.Pid)
	}

	// The children hold their own copies now. Dropping ours is what lets a
	// reader see EOF once its writer exits.
	plan.Close()

	if p.Background {
		if len(res.PIDs) > 0 {
			slot, err := l.Jobs.Track(p.String(), res.PIDs)
			if err != nil && launchErr == nil {
				launchErr = &LaunchError{Stage: n - 1, Program: p.Stages[n-1].Program(), Err: err}
			}
			res.Slot = slot
			for _, cmd := range cmds {
				if cmd != nil {
					cmd.Process.Release()
				}
			}
			fmt.Fprintf(l.notices(std), "[Background PID %d]\n", res.PIDs[len(res.PIDs)-1])
		}
		res.Status = res.Statuses[n-1]
		return res, launchErr
	}

	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		res.Statuses[i] = exitStatus(cmd.Wait())
	}
	res.Status = res.Statuses[n-1]
	return res, launchErr
}

func (l *Launcher) notices(std Streams) io.Writer {
	if l.Notices != nil {
		return l.Notices
	}
	if std.Stdout != nil {
		return std.Stdout
	}
	return io.Discard
}

func stderrOf(std Streams) io.Writer {
	if std.Stderr != nil {
		return std.Stderr
	}
	return io.Discard
}

// classifyStart separates "this program cannot run" from "no process could
// be created".
func classifyStart(stage int, prog string, err error) error {
	var lookErr *exec.Error
	if errors.As(err, &lookErr) {
		code := 127
		if errors.Is(lookErr.Err, fs.ErrPermission) {
			code = 126
		}
		return &ExecError{Program: prog, Err: lookErr.Err, Code: code}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		switch {
		case errors.Is(pathErr.Err, syscall.ENOENT), errors.Is(pathErr.Err, syscall.ENOTDIR):
			return &ExecError{Program: prog, Err: pathErr.Err, Code: 127}
		case errors.Is(pathErr.Err, syscall.EACCES), errors.Is(pathErr.Err, syscall.EPERM),
			errors.Is(pathErr.Err, syscall.ENOEXEC), errors.Is(pathErr.Err, syscall.EISDIR):
			return &ExecError{Program: prog, Err: pathErr.Err, Code: 126}
		}
	}
	return &LaunchError{Stage: stage, Program: prog, Err: err}
}

// exitStatus maps a Wait result to a shell status: the exit code, or 128+n
// for a child killed by signal n.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

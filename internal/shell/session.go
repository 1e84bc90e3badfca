// Package shell runs command lines: it resolves history references,
// parses each line into a pipeline, runs built-ins in-process and hands
// everything else to the launcher.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/readline"
	"github.com/spf13/afero"

	"github.com/marcelocantos/myshell/internal/audit"
	"github.com/marcelocantos/myshell/internal/config"
	"github.com/marcelocantos/myshell/internal/history"
	"github.com/marcelocantos/myshell/internal/jobs"
	"github.com/marcelocantos/myshell/internal/pipeline"
)

// Options carries the collaborators of a session. Zero values select the
// process's standard streams and the OS filesystem.
type Options struct {
	Streams pipeline.Streams
	Fs      afero.Fs      // history file storage
	Audit   *audit.Logger // nil disables auditing
	Getwd   func() (string, error)
}

// Session is one interactive shell: its history, its background jobs and
// the streams its children inherit.
type Session struct {
	cfg      *config.Config
	std      pipeline.Streams
	out      *lockedWriter
	errw     *lockedWriter
	notices  *lockedWriter // reaper notices; not redirected by Capture
	fs       afero.Fs
	audit    *audit.Logger
	getwd    func() (string, error)
	history  *history.Ring
	jobs     *jobs.Manager
	launcher *pipeline.Launcher
	rl       *readline.Instance

	state  State
	trail  []State
	status int
	exited bool
}

// New creates a session and starts its reaper. Call Close when done.
func New(cfg *config.Config, opts Options) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	std := opts.Streams
	if std.Stdin == nil && std.Stdout == nil && std.Stderr == nil {
		std = pipeline.StdStreams()
	}
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	getwd := opts.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}

	s := &Session{
		cfg:     cfg,
		std:     std,
		out:     newLockedWriter(fileWriter(std.Stdout)),
		errw:    newLockedWriter(fileWriter(std.Stderr)),
		fs:      fsys,
		audit:   opts.Audit,
		getwd:   getwd,
		history: history.NewRing(cfg.History.Capacity),
	}
	if cfg.History.File != "" {
		if err := history.Load(fsys, cfg.History.File, s.history); err != nil {
			s.errorf("%v", err)
		}
	}
	s.notices = s.out.sibling(fileWriter(std.Stdout))
	s.jobs = jobs.NewManager(cfg.Jobs.Capacity, s.notices)
	s.launcher = &pipeline.Launcher{Jobs: s.jobs, Notices: s.out}
	s.jobs.Start()
	return s, nil
}

// fileWriter avoids storing a typed nil *os.File in an io.Writer.
func fileWriter(f *os.File) io.Writer {
	if f == nil {
		return io.Discard
	}
	return f
}

// Close stops the reaper and saves history. Background jobs keep running.
func (s *Session) Close() error {
	s.jobs.Stop()
	if s.cfg.History.File == "" {
		return nil
	}
	return history.Save(s.fs, s.cfg.History.File, s.history)
}

// Execute runs one command line and returns its exit status.
func (s *Session) Execute(ctx context.Context, line string) int {
	s.trail = s.trail[:0]
	s.enter(AwaitingInput)

	start := time.Now()
	rec := audit.Record{Line: line}
	status := s.execute(ctx, line, &rec)
	s.enter(Idle)
	s.status = status

	if s.audit != nil && strings.TrimSpace(rec.Line) != "" {
		rec.ExitCode = status
		rec.Duration = time.Since(start)
		rec.Cwd, _ = s.getwd()
		if err := s.audit.Log(rec); err != nil {
			s.errorf("audit: %v", err)
		}
	}
	return status
}

func (s *Session) execute(ctx context.Context, line string, rec *audit.Record) int {
	if strings.TrimSpace(line) == "" {
		return s.status
	}

	if history.IsReference(line) {
		text, err := s.history.Resolve(line)
		if err != nil {
			rec.Err = err
			s.errorf("%v", err)
			return 1
		}
		s.enter(Recalled)
		fmt.Fprintf(s.out, "Repeating command: %s\n", text)
		line = text
		rec.Line = text
	}
	s.remember(line)

	tokens, err := Tokenize(line)
	if err != nil {
		return s.parseFailed(rec, err, 2)
	}
	p, err := pipeline.Parse(tokens, s.cfg.Pipeline.MaxStages)
	if err != nil {
		return s.parseFailed(rec, err, 2)
	}
	s.enter(Parsed)
	rec.Programs = p.Programs()
	rec.Background = p.Background

	if name, ok := p.Builtin(); ok {
		rec.Builtin = true
		return s.runBuiltin(name, p.Stages[0].Args)
	}

	res, err := s.launcher.Launch(ctx, p, s.std)
	if err != nil {
		var redirErr *pipeline.RedirectionError
		if errors.As(err, &redirErr) {
			return s.parseFailed(rec, err, 1)
		}
		rec.Err = err
		s.errorf("%v", err)
		if res == nil {
			return 1
		}
	}
	s.enter(Launched)
	rec.PIDs = res.PIDs
	if res.Background {
		s.enter(Backgrounded)
	} else {
		s.enter(Blocked)
	}
	if err != nil {
		return 1
	}
	return res.Status
}

func (s *Session) parseFailed(rec *audit.Record, err error, status int) int {
	rec.Err = err
	s.enter(ParseFailed)
	s.errorf("%v", err)
	return status
}

// remember records line in the history ring and mirrors it into readline's
// own history so the arrow keys see the same entries.
func (s *Session) remember(line string) {
	s.history.Record(line)
	if s.rl != nil {
		_ = s.rl.SaveHistory(line)
	}
}

func (s *Session) enter(st State) {
	s.state = st
	s.trail = append(s.trail, st)
}

func (s *Session) errorf(format string, args ...any) {
	fmt.Fprintf(s.errw, "myshell: "+format+"\n", args...)
}

// RunLines executes each line read from r until EOF or exit, returning the
// last status.
func (s *Session) RunLines(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	for !s.exited && sc.Scan() {
		if err := ctx.Err(); err != nil {
			return s.status, err
		}
		s.Execute(ctx, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return s.status, fmt.Errorf("read input: %w", err)
	}
	return s.status, nil
}

// Run is the interactive loop. It returns nil at end of input or exit and
// an error when the prompt cannot be rendered.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:                  readline.NewCancelableStdin(s.std.Stdin),
		Stdout:                 fileWriter(s.std.Stdout),
		Stderr:                 fileWriter(s.std.Stderr),
		HistoryLimit:           s.history.Cap(),
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	for _, e := range s.history.Entries() {
		_ = rl.SaveHistory(e.Text)
	}

	s.rl = rl
	prevOut, prevNotices := s.out.swap(rl.Stdout()), s.notices.swap(rl.Stdout())
	defer func() {
		s.out.swap(prevOut)
		s.notices.swap(prevNotices)
		s.rl = nil
	}()

	for !s.exited {
		if err := ctx.Err(); err != nil {
			return err
		}
		prompt, err := s.prompt()
		if err != nil {
			return err
		}
		rl.SetPrompt(prompt)
		line, err := rl.Readline()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			// Interrupt clears the line.
			continue
		case err != nil:
			return fmt.Errorf("readline: %w", err)
		}
		s.Execute(ctx, line)
	}
	return nil
}

// Capture runs line with the session's stdout and stderr redirected to a
// temporary file and returns what was written. Completion notices for
// background jobs keep going to the session's stdout. A background job
// started by line inherits the temporary file, which is removed on return,
// so whatever it writes afterwards is discarded.
func (s *Session) Capture(ctx context.Context, line string) (string, int, error) {
	f, err := os.CreateTemp("", "myshell-capture-*")
	if err != nil {
		return "", 0, fmt.Errorf("capture: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	std := s.std
	s.std.Stdout, s.std.Stderr = f, f
	prevOut, prevErr := s.out.swap(f), s.errw.swap(f)
	status := s.Execute(ctx, line)
	s.std = std
	s.out.swap(prevOut)
	s.errw.swap(prevErr)

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return "", status, fmt.Errorf("capture: %w", err)
	}
	return string(data), status, nil
}

// State returns the last state the session reached.
func (s *Session) State() State { return s.state }

// Trail returns the states the last line passed through.
func (s *Session) Trail() []State {
	return append([]State(nil), s.trail...)
}

// Status returns the exit status of the last line.
func (s *Session) Status() int { return s.status }

// Exited reports whether the exit built-in has run.
func (s *Session) Exited() bool { return s.exited }

// Jobs returns the live background jobs.
func (s *Session) Jobs() []jobs.Job { return s.jobs.Jobs() }

// JobManager exposes the job manager.
func (s *Session) JobManager() *jobs.Manager { return s.jobs }

// KillJob terminates the job in slot with SIGKILL.
func (s *Session) KillJob(slot int) (jobs.Job, error) {
	return s.jobs.Kill(slot, killSignal)
}

// History returns the retained history entries, oldest first.
func (s *Session) History() []history.Entry { return s.history.Entries() }

package pipeline

import (
	"errors"
	"fmt"
)

// ErrJobTableFull is returned (inside a LaunchError) when a background
// pipeline cannot be tracked.
var ErrJobTableFull = errors.New("job table is full")

// SyntaxError reports a malformed token stream. Nothing has been opened or
// started when it is returned.
type SyntaxError struct {
	Token int // index of the offending token, -1 if not tied to one
	Msg   string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

func syntaxErrorf(tok int, format string, args ...any) error {
	return &SyntaxError{Token: tok, Msg: fmt.Sprintf(format, args...)}
}

// RedirectionError reports a redirection target that could not be opened.
type RedirectionError struct {
	Op   string // OpRedirectIn or OpRedirectOut
	Path string
	Err  error
}

func (e *RedirectionError) Error() string {
	return fmt.Sprintf("redirect %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RedirectionError) Unwrap() error { return e.Err }

// LaunchError reports a failure to create a process (or the resources it
// needs). Stages after Stage were not started.
type LaunchError struct {
	Stage   int
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch stage %d (%s): %v", e.Stage, e.Program, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExecError reports a program that could not be executed. It is local to one
// stage: it is printed and becomes that stage's exit status, and it is never
// returned from Launch.
type ExecError struct {
	Program string
	Err     error
	Code    int // 127 not found, 126 not executable
}

func (e *ExecError) Error() string {
	if e.Code == 127 {
		return e.Program + ": command not found"
	}
	return fmt.Sprintf("%s: %v", e.Program, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

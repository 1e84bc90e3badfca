package shell

import (
	"fmt"
	"io"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"

	"github.com/marcelocantos/myshell/internal/jobs"
)

const killSignal = unix.SIGKILL

type builtinFunc func(s *Session, args []string) int

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"cd":      (*Session).cd,
		"exit":    (*Session).exit,
		"help":    (*Session).help,
		"history": (*Session).historyCmd,
		"jobs":    (*Session).jobsCmd,
		"kill":    (*Session).kill,
	}
}

func (s *Session) runBuiltin(name string, args []string) int {
	fn, ok := builtins[name]
	if !ok {
		s.errorf("%s: not a built-in", name)
		return 1
	}
	return fn(s, args)
}

// cd changes the session's working directory; children inherit it.
func (s *Session) cd(args []string) int {
	var dir string
	switch len(args) {
	case 1:
		home, err := os.UserHomeDir()
		if err != nil {
			s.errorf("cd: %v", err)
			return 1
		}
		dir = home
	case 2:
		dir = args[1]
	default:
		s.errorf("cd: too many arguments")
		return 1
	}
	if err := os.Chdir(dir); err != nil {
		s.errorf("cd: %v", err)
		return 1
	}
	return 0
}

func (s *Session) exit(args []string) int {
	s.exited = true
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			s.errorf("exit: %s: numeric argument required", args[1])
			return 2
		}
		return n & 0xff
	}
	return s.status
}

func (s *Session) help(args []string) int {
	io.WriteString(s.out, helpText)
	return 0
}

func (s *Session) jobsCmd(args []string) int {
	for _, j := range s.jobs.Jobs() {
		fmt.Fprintf(s.out, "[%d] %d\n", j.Slot, j.PID)
	}
	return 0
}

func (s *Session) kill(args []string) int {
	opts := getopt.New()
	opts.SetProgram("kill")
	opts.SetParameters("<job#>")
	sigName := opts.StringLong("signal", 's', "KILL", "termination signal to send", "SIGNAL")

	usage := func() int {
		fmt.Fprintln(s.out, "Usage: kill [-s SIGNAL] <job#>")
		return 1
	}
	if err := opts.Getopt(args, nil); err != nil {
		s.errorf("kill: %v", err)
		return usage()
	}
	if opts.NArgs() != 1 {
		return usage()
	}
	slot, err := strconv.Atoi(opts.Arg(0))
	if err != nil {
		return usage()
	}
	sig, err := jobs.ParseSignal(*sigName)
	if err != nil {
		s.errorf("kill: %v", err)
		return 1
	}

	job, err := s.jobs.Kill(slot, sig)
	if err != nil && job.PID == 0 {
		s.errorf("kill: %v", err)
		return 1
	}
	fmt.Fprintf(s.out, "Killed job [%d] %d\n", slot, job.PID)
	if err != nil {
		s.errorf("kill: %v", err)
		return 1
	}
	return 0
}

func (s *Session) historyCmd(args []string) int {
	opts := getopt.New()
	opts.SetProgram("history")
	clearAll := opts.BoolLong("clear", 'c', "clear the history")
	if err := opts.Getopt(args, nil); err != nil {
		s.errorf("history: %v", err)
		fmt.Fprintln(s.out, "Usage: history [-c]")
		return 1
	}
	if *clearAll {
		s.history.Clear()
		return 0
	}
	for _, e := range s.history.Entries() {
		fmt.Fprintf(s.out, "%5d  %s\n", e.Number, e.Text)
	}
	return 0
}

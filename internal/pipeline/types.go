package pipeline

import (
	"os"
	"strings"
)

// Control tokens recognized in argument position. The tokenizer must
// deliver each one as a separate token.
const (
	OpPipe        = "|" // stdout → stdin of the next stage
	OpRedirectIn  = "<" // stdin of the first stage from file
	OpRedirectOut = ">" // stdout of the last stage to file (truncating)
	OpBackground  = "&" // run detached; only legal as the final token
)

// DefaultMaxStages bounds pipeline depth when the caller passes no limit.
const DefaultMaxStages = 10

// reserved names are handled by the shell itself and never reach the launcher.
var reserved = map[string]bool{
	"cd":      true,
	"exit":    true,
	"help":    true,
	"history": true,
	"jobs":    true,
	"kill":    true,
}

// IsReserved reports whether name is a built-in directive.
func IsReserved(name string) bool {
	return reserved[name]
}

func isControl(tok string) bool {
	switch tok {
	case OpPipe, OpRedirectIn, OpRedirectOut, OpBackground:
		return true
	}
	return false
}

// Stage is a single program invocation in a pipeline.
type Stage struct {
	Args []string // Args[0] is the program name
}

// Program returns the program name of the stage.
func (s Stage) Program() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}

// Pipeline is a parsed command line.
type Pipeline struct {
	Stages      []Stage
	RedirectIn  string // file path for stdin redirect (<), empty if none
	RedirectOut string // file path for stdout redirect (>), empty if none
	Background  bool   // trailing &
}

// Builtin returns the built-in name if the pipeline is a plain single-stage
// invocation of a reserved word.
func (p *Pipeline) Builtin() (string, bool) {
	if len(p.Stages) != 1 {
		return "", false
	}
	name := p.Stages[0].Program()
	return name, IsReserved(name)
}

// Programs lists the program name of every stage in order.
func (p *Pipeline) Programs() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Program()
	}
	return names
}

// String renders the pipeline back into a command line.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for i, s := range p.Stages {
		if i > 0 {
			sb.WriteString(" " + OpPipe + " ")
		}
		sb.WriteString(strings.Join(s.Args, " "))
	}
	if p.RedirectIn != "" {
		sb.WriteString(" " + OpRedirectIn + " " + p.RedirectIn)
	}
	if p.RedirectOut != "" {
		sb.WriteString(" " + OpRedirectOut + " " + p.RedirectOut)
	}
	if p.Background {
		sb.WriteString(" " + OpBackground)
	}
	return sb.String()
}

// Streams are the session's own standard streams. Stages that are not
// redirected or piped inherit them.
type Streams struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

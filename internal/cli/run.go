package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/marcelocantos/myshell/internal/audit"
	"github.com/marcelocantos/myshell/internal/config"
	"github.com/marcelocantos/myshell/internal/pipeline"
	"github.com/marcelocantos/myshell/internal/rc"
	"github.com/marcelocantos/myshell/internal/shell"
)

// ShellOptions selects how the shell reads its input.
type ShellOptions struct {
	Command string // -c: run this one line and exit
	NoRC    bool   // skip the startup script
}

// RunShell runs the shell and returns its exit status. With a command it
// executes that line; on a terminal it runs the interactive loop; otherwise
// it executes stdin line by line.
func RunShell(ctx context.Context, cfg *config.Config, opts ShellOptions) int {
	sess, err := newSession(cfg, pipeline.StdStreams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
		return 1
	}
	defer func() {
		if err := sess.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
		}
	}()

	if opts.Command != "" {
		return sess.Execute(ctx, opts.Command)
	}

	if !opts.NoRC && cfg.RC.Path != "" {
		if err := rc.Run(ctx, afero.NewOsFs(), cfg.RC.Path, sess, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
		}
		if sess.Exited() {
			return sess.Status()
		}
	}

	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		if err := sess.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
			return 1
		}
		return sess.Status()
	}

	status, err := sess.RunLines(ctx, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
	}
	return status
}

func newSession(cfg *config.Config, std pipeline.Streams) (*shell.Session, error) {
	return shell.New(cfg, shell.Options{
		Streams: std,
		Audit:   openAudit(cfg, os.Stderr),
	})
}

// openAudit returns the audit logger, or nil when auditing is disabled or
// the log cannot be opened.
func openAudit(cfg *config.Config, stderr io.Writer) *audit.Logger {
	if !cfg.Audit.Enabled {
		return nil
	}
	logger, err := audit.NewLogger(cfg.Audit.Path)
	if err != nil {
		// Continue without audit logging.
		fmt.Fprintf(stderr, "myshell: audit: %v\n", err)
		return nil
	}
	return logger
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

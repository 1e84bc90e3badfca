// Package rc runs the shell's startup script. The script is Starlark and
// sees a small set of builtins bound to the running session.
package rc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/afero"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Executor runs one command line and returns its exit status.
type Executor interface {
	Execute(ctx context.Context, line string) int
}

// Run executes the script at path against sh. A missing script is not an
// error. print() output goes to out.
//
// Builtins:
//
//	run(line)  execute a command line, returning its exit status
//	getenv(name, default="")
func Run(ctx context.Context, fsys afero.Fs, path string, sh Executor, out io.Writer) error {
	src, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read rc: %w", err)
	}
	return Exec(ctx, path, src, sh, out)
}

// Exec executes src as a startup script named filename.
func Exec(ctx context.Context, filename string, src []byte, sh Executor, out io.Writer) error {
	thread := &starlark.Thread{
		Name: "rc",
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(out, msg)
		},
	}
	opts := &syntax.FileOptions{TopLevelControl: true, GlobalReassign: true, While: true}
	if _, err := starlark.ExecFileOptions(opts, thread, filename, src, builtins(ctx, sh)); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return fmt.Errorf("rc: %s", evalErr.Backtrace())
		}
		return fmt.Errorf("rc: %w", err)
	}
	return nil
}

func builtins(ctx context.Context, sh Executor) starlark.StringDict {
	return starlark.StringDict{
		"run": starlark.NewBuiltin("run", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var line string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "line", &line); err != nil {
				return nil, err
			}
			return starlark.MakeInt(sh.Execute(ctx, line)), nil
		}),
		"getenv": starlark.NewBuiltin("getenv", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name, def string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
				return nil, err
			}
			if v, ok := lookupEnv(name); ok {
				return starlark.String(v), nil
			}
			return starlark.String(def), nil
		}),
	}
}

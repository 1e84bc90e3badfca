package pipeline

import (
	"fmt"
	"os"
)

// Endpoints are the descriptors one stage's stdin and stdout are bound to.
type Endpoints struct {
	Stdin  *os.File
	Stdout *os.File
}

// Plan is the descriptor wiring for one pipeline. It owns the redirection
// files and both ends of every inter-stage pipe until Close; the session
// streams are borrowed and never closed.
type Plan struct {
	Endpoints []Endpoints
	Pipes     int // inter-stage pipes allocated

	owned []*os.File
}

// Build opens the redirections, then allocates one pipe per stage boundary
// and assigns every stage its endpoints. It never reads or writes payload.
// On failure everything opened so far is released.
func Build(p *Pipeline, std Streams) (*Plan, error) {
	n := len(p.Stages)
	if n == 0 {
		return nil, syntaxErrorf(-1, "empty pipeline")
	}

	pl := &Plan{Endpoints: make([]Endpoints, n)}
	in, out := std.Stdin, std.Stdout

	// Redirections first: a bad path must fail before any pipe exists.
	if p.RedirectIn != "" {
		f, err := os.Open(p.RedirectIn)
		if err != nil {
			return nil, &RedirectionError{Op: OpRedirectIn, Path: p.RedirectIn, Err: err}
		}
		pl.own(f)
		in = f
	}
	if p.RedirectOut != "" {
		f, err := os.OpenFile(p.RedirectOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			pl.Close()
			return nil, &RedirectionError{Op: OpRedirectOut, Path: p.RedirectOut, Err: err}
		}
		pl.own(f)
		out = f
	}

	pl.Endpoints[0].Stdin = in
	pl.Endpoints[n-1].Stdout = out

	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			pl.Close()
			return nil, &LaunchError{Stage: i, Program: p.Stages[i].Program(), Err: fmt.Errorf("pipe: %w", err)}
		}
		pl.own(r, w)
		pl.Pipes++
		pl.Endpoints[i].Stdout = w
		pl.Endpoints[i+1].Stdin = r
	}
	return pl, nil
}

func (pl *Plan) own(files ...*os.File) {
	pl.owned = append(pl.owned, files...)
}

func (pl *Plan) release(f *os.File) {
	for i, o := range pl.owned {
		if o != nil && o == f {
			o.Close()
			pl.owned[i] = nil
		}
	}
}

// ReleaseStage closes the plan-owned descriptors of stage i. Used when the
// stage could not be started, so its neighbours see EOF or EPIPE instead of
// waiting for the parent to drop the pipe.
func (pl *Plan) ReleaseStage(i int) {
	if i < 0 || i >= len(pl.Endpoints) {
		return
	}
	pl.release(pl.Endpoints[i].Stdin)
	pl.release(pl.Endpoints[i].Stdout)
}

// Open returns how many plan-owned descriptors are still open.
func (pl *Plan) Open() int {
	n := 0
	for _, f := range pl.owned {
		if f != nil {
			n++
		}
	}
	return n
}

// Close releases every descriptor the plan owns. It is safe to call more
// than once.
func (pl *Plan) Close() error {
	var firstErr error
	for i, f := range pl.owned {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		pl.owned[i] = nil
	}
	return firstErr
}

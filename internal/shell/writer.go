package shell

import (
	"io"
	"sync"
)

// lockedWriter serialises writes from the foreground loop and the reaper
// goroutine so notices never interleave mid-line. The target can be
// swapped, e.g. to readline's prompt-aware writer.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func newLockedWriter(w io.Writer) *lockedWriter {
	return (&lockedWriter{mu: new(sync.Mutex)}).sibling(w)
}

// sibling returns a writer to w that shares lw's lock, so the two can be
// redirected independently and still never interleave mid-line.
func (lw *lockedWriter) sibling(w io.Writer) *lockedWriter {
	if w == nil {
		w = io.Discard
	}
	return &lockedWriter{mu: lw.mu, w: w}
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// swap installs w and returns the previous target.
func (lw *lockedWriter) swap(w io.Writer) io.Writer {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	old := lw.w
	lw.w = w
	return old
}

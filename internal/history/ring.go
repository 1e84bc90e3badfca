// Package history keeps the bounded ring of previously entered command
// lines and resolves !N / !-N / !! references against it.
package history

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// DefaultCapacity is the number of lines retained when none is configured.
const DefaultCapacity = 10

// ErrNoSuchEntry is wrapped by every LookupError.
var ErrNoSuchEntry = errors.New("no such command in history")

// LookupError reports a reference that does not name a retained entry.
type LookupError struct {
	Ref string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Ref, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Entry is a retained line with the number !N recalls it by.
type Entry struct {
	Number int
	Text   string
}

// Ring is a fixed-capacity circular log. Once full, each Record overwrites
// the oldest entry.
type Ring struct {
	mu    sync.Mutex
	buf   []string
	next  int // write cursor
	count int // retained entries, <= len(buf)
}

// NewRing returns an empty ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]string, capacity)}
}

// Record appends text. Empty (or all-blank) text is ignored.
func (r *Ring) Record(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = text
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// IsReference reports whether line is a history recall rather than a
// command.
func IsReference(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "!")
}

// Resolve returns the text a reference names:
//
//	!N   the N-th retained entry, oldest first
//	!-N  the N-th most recent entry
//	!!   the most recent entry
//
// It never records anything.
func (r *Ring) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	notFound := &LookupError{Ref: ref, Err: ErrNoSuchEntry}
	if !strings.HasPrefix(ref, "!") {
		return "", notFound
	}

	body := ref[1:]
	relative := false
	switch {
	case body == "!":
		body, relative = "1", true
	case strings.HasPrefix(body, "-"):
		body, relative = body[1:], true
	}
	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return "", notFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.count {
		return "", notFound
	}
	if relative {
		return r.at(r.count - n), nil
	}
	return r.at(n - 1), nil
}

// at returns the i-th retained entry, oldest first. Caller holds mu.
func (r *Ring) at(i int) string {
	oldest := (r.next - r.count + len(r.buf)) % len(r.buf)
	return r.buf[(oldest+i)%len(r.buf)]
}

// Entries returns the retained entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, r.count)
	for i := range out {
		out[i] = Entry{Number: i + 1, Text: r.at(i)}
	}
	return out
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring's capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Clear drops every entry.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.buf {
		r.buf[i] = ""
	}
	r.next, r.count = 0, 0
}

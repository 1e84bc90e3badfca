package audit

import "time"

// Entry is a single audit log record: one executed command line.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	PrevHash   string    `json:"prev_hash"`
	Line       string    `json:"line"`                 // command line as executed (after history recall)
	Programs   []string  `json:"programs,omitempty"`   // program of each stage
	Builtin    bool      `json:"builtin,omitempty"`    // handled in-process
	Background bool      `json:"background,omitempty"` // launched with &
	PIDs       []int     `json:"pids,omitempty"`       // started stages
	ExitCode   int       `json:"exit_code"`            // status of the last stage
	Error      string    `json:"error,omitempty"`      // diagnostic if the line failed
	Duration   float64   `json:"duration_ms"`          // time until the prompt returned
	Cwd        string    `json:"cwd"`                  // working directory
	Hash       string    `json:"hash"`                 // SHA-256 of this entry (with hash field empty)
}

// Record is what the shell reports about one line.
type Record struct {
	Line       string
	Programs   []string
	Builtin    bool
	Background bool
	PIDs       []int
	ExitCode   int
	Err        error
	Duration   time.Duration
	Cwd        string
}

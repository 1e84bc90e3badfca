package shell

// State is where a line is in its trip through the session.
type State int

const (
	AwaitingInput State = iota
	Recalled            // a !N / !-N / !! reference was expanded
	Parsed
	ParseFailed // syntax or redirection error; nothing was started
	Launched
	Blocked      // waited for a foreground pipeline
	Backgrounded // registered a background job
	Idle
)

var stateNames = [...]string{
	AwaitingInput: "AwaitingInput",
	Recalled:      "Recalled",
	Parsed:        "Parsed",
	ParseFailed:   "ParseFailed",
	Launched:      "Launched",
	Blocked:       "Blocked",
	Backgrounded:  "Backgrounded",
	Idle:          "Idle",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

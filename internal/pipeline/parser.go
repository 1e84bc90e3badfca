package pipeline

// Parse takes the tokens of one command line and builds a Pipeline.
// It splits on | to get stages, pulls out < / > with their paths and accepts
// & only as the final token. When < or > appears more than once the last
// occurrence wins. maxStages <= 0 means DefaultMaxStages.
func Parse(tokens []string, maxStages int) (*Pipeline, error) {
	if len(tokens) == 0 {
		return nil, syntaxErrorf(-1, "empty pipeline")
	}
	if maxStages <= 0 {
		maxStages = DefaultMaxStages
	}

	p := &Pipeline{}
	var current []string

	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; tok {
		case OpPipe:
			if len(current) == 0 {
				return nil, syntaxErrorf(i, "empty stage before %s", OpPipe)
			}
			p.Stages = append(p.Stages, Stage{Args: current})
			current = nil
		case OpRedirectIn, OpRedirectOut:
			if i+1 >= len(tokens) || isControl(tokens[i+1]) {
				return nil, syntaxErrorf(i, "%s requires a file path", tok)
			}
			i++
			if tok == OpRedirectIn {
				p.RedirectIn = tokens[i]
			} else {
				p.RedirectOut = tokens[i]
			}
		case OpBackground:
			if i != len(tokens)-1 {
				return nil, syntaxErrorf(i, "%s is only allowed at the end of a line", OpBackground)
			}
			p.Background = true
		default:
			current = append(current, tok)
		}
	}

	if len(current) == 0 {
		if len(p.Stages) == 0 {
			return nil, syntaxErrorf(-1, "empty pipeline")
		}
		return nil, syntaxErrorf(len(tokens)-1, "empty stage after %s", OpPipe)
	}
	p.Stages = append(p.Stages, Stage{Args: current})

	if len(p.Stages) > maxStages {
		return nil, syntaxErrorf(-1, "pipeline has %d stages, limit is %d", len(p.Stages), maxStages)
	}
	if err := checkReserved(p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkReserved rejects built-ins anywhere the shell could not run them
// in-process: inside a pipe, behind a redirect or in the background.
func checkReserved(p *Pipeline) error {
	plain := len(p.Stages) == 1 && p.RedirectIn == "" && p.RedirectOut == "" && !p.Background
	if plain {
		return nil
	}
	for _, s := range p.Stages {
		if IsReserved(s.Program()) {
			return syntaxErrorf(-1, "built-in %q cannot be piped, redirected or backgrounded", s.Program())
		}
	}
	return nil
}

package shell

import (
	shlex "github.com/anmitsu/go-shlex"

	"github.com/marcelocantos/myshell/internal/pipeline"
)

// Tokenize splits a command line into words with POSIX quoting. Control
// tokens (| < > &) are only recognised when separated by whitespace. Quotes
// are removed before the parser sees the words, so quoting does not protect
// a control token: echo "|" is a pipe.
func Tokenize(line string) ([]string, error) {
	tokens, err := shlex.Split(line, true)
	if err != nil {
		return nil, &pipeline.SyntaxError{Token: -1, Msg: err.Error()}
	}
	return tokens, nil
}

package shell

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	colorBrand = color.New(color.FgRed, color.Bold)
	colorUser  = color.New(color.FgGreen, color.Bold)
	colorCwd   = color.New(color.FgCyan, color.Bold)
)

// prompt renders "MyShell (user@host)-[cwd] : ". Failing to read the
// working directory is returned as an error; the interactive loop treats
// it as fatal.
func (s *Session) prompt() (string, error) {
	cwd, err := s.getwd()
	if err != nil {
		return "", fmt.Errorf("getcwd: %w", err)
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	paint := func(c *color.Color, text string) string {
		if !s.cfg.Prompt.Color {
			return text
		}
		return c.Sprint(text)
	}
	return fmt.Sprintf("%s(%s@%s)-[%s] : ",
		paint(colorBrand, "MyShell "),
		paint(colorUser, user), paint(colorUser, host),
		paint(colorCwd, cwd)), nil
}

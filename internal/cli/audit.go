package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/marcelocantos/myshell/internal/audit"
)

// RunAudit handles the myshell audit subcommand.
func RunAudit(w io.Writer, logPath string, args []string, n int) int {
	if len(args) == 0 {
		fmt.Fprintln(w, "usage: myshell audit <verify|show>")
		return 1
	}

	switch args[0] {
	case "verify":
		count, err := audit.Verify(logPath)
		if err != nil {
			fmt.Fprintf(w, "audit verification FAILED after %d entries: %v\n", count, err)
			return 1
		}
		fmt.Fprintf(w, "audit log integrity verified (%d entries)\n", count)
		return 0

	case "show", "tail":
		entries, err := audit.Tail(logPath, n)
		if err != nil {
			fmt.Fprintf(w, "myshell audit: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no audit entries")
			return 0
		}
		for _, e := range entries {
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintf(w, "%s\n", data)
		}
		return 0

	default:
		fmt.Fprintf(w, "myshell audit: unknown subcommand %q\n", args[0])
		return 1
	}
}

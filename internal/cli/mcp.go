package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/marcelocantos/myshell/internal/config"
	"github.com/marcelocantos/myshell/internal/mcpserver"
	"github.com/marcelocantos/myshell/internal/pipeline"
)

// RunMCP serves a shell session as MCP tools on stdin/stdout. The session's
// own streams point at stderr so nothing but protocol frames reaches
// stdout.
func RunMCP(ctx context.Context, cfg *config.Config, version string) int {
	devnull, err := os.Open(os.DevNull)
	if err != nil {
		fmt.Fprintf(os.Stderr, "myshell mcp: %v\n", err)
		return 1
	}
	defer devnull.Close()

	sess, err := newSession(cfg, pipeline.Streams{Stdin: devnull, Stdout: os.Stderr, Stderr: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "myshell mcp: %v\n", err)
		return 1
	}
	defer sess.Close()

	if err := mcpserver.New(sess, version).Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "myshell mcp: %v\n", err)
		return 1
	}
	return 0
}

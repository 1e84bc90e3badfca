// Package mcpserver exposes a shell session as MCP tools over stdio, so an
// agent can run command lines and manage background jobs.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/myshell/internal/history"
	"github.com/marcelocantos/myshell/internal/jobs"
)

// Shell is the part of a session the tools drive.
type Shell interface {
	Capture(ctx context.Context, line string) (output string, status int, err error)
	Jobs() []jobs.Job
	KillJob(slot int) (jobs.Job, error)
	History() []history.Entry
}

// Server wraps a Shell in an MCP server. Tool calls are serialised: the
// session runs one line at a time.
type Server struct {
	mu  sync.Mutex
	sh  Shell
	mcp *server.MCPServer
}

// New builds the server and registers its tools.
func New(sh Shell, version string) *Server {
	s := &Server{
		sh: sh,
		mcp: server.NewMCPServer("myshell", version,
			server.WithToolCapabilities(false),
			server.WithInstructions("Run command lines in a persistent shell session. "+
				"Lines support pipes (|), redirection (< file, > file) and a trailing & for background jobs."),
		),
	}

	s.mcp.AddTool(mcp.NewTool("run_command",
		mcp.WithDescription("Run one command line and return its combined output and exit status. "+
			"Output a background job writes after the call returns is discarded."),
		mcp.WithString("line", mcp.Required(), mcp.Description("command line, e.g. `grep -r TODO . | wc -l`")),
	), s.runCommand)

	s.mcp.AddTool(mcp.NewTool("list_jobs",
		mcp.WithDescription("List running background jobs"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listJobs)

	s.mcp.AddTool(mcp.NewTool("kill_job",
		mcp.WithDescription("Kill a background job by its slot number"),
		mcp.WithNumber("slot", mcp.Required(), mcp.Min(1), mcp.Description("job slot as shown by list_jobs")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.killJob)

	s.mcp.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Show recent command lines, oldest first"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.history)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve speaks the protocol over in and out until EOF or ctx is done.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// RunResult is the structured result of run_command.
type RunResult struct {
	Output string `json:"output"`
	Status int    `json:"status"`
}

func (s *Server) runCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(line) == "" {
		return mcp.NewToolResultError("line is empty"), nil
	}

	s.mu.Lock()
	out, status, err := s.sh.Capture(ctx, line)
	s.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("run failed", err), nil
	}

	text := fmt.Sprintf("%s[exit status %d]", out, status)
	res := mcp.NewToolResultStructured(RunResult{Output: out, Status: status}, text)
	res.IsError = status != 0
	return res, nil
}

// JobInfo describes one background job.
type JobInfo struct {
	Slot    int    `json:"slot"`
	PID     int    `json:"pid"`
	Members []int  `json:"members"`
	Command string `json:"command"`
}

func (s *Server) listJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	list := s.sh.Jobs()
	s.mu.Unlock()

	infos := make([]JobInfo, len(list))
	var sb strings.Builder
	for i, j := range list {
		infos[i] = JobInfo{Slot: j.Slot, PID: j.PID, Members: j.Members, Command: j.Command}
		fmt.Fprintf(&sb, "[%d] %d %s\n", j.Slot, j.PID, j.Command)
	}
	if len(list) == 0 {
		sb.WriteString("no background jobs\n")
	}
	return mcp.NewToolResultStructured(map[string]any{"jobs": infos}, sb.String()), nil
}

func (s *Server) killJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slot, err := req.RequireInt("slot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	job, err := s.sh.KillJob(slot)
	s.mu.Unlock()
	if err != nil && job.PID == 0 {
		return mcp.NewToolResultErrorf("kill job %d: %v", slot, err), nil
	}
	text := fmt.Sprintf("Killed job [%d] %d", slot, job.PID)
	if err != nil {
		return mcp.NewToolResultErrorf("%s: %v", text, err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) history(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	entries := s.sh.History()
	s.mu.Unlock()

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%5d  %s\n", e.Number, e.Text)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// Package mcptools exposes the process control operations as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"procdeck/internal/models"
	"procdeck/internal/service"
)

type ListProcessesArgs struct{}

type RestartProcessArgs struct {
	Name string `json:"name" jsonschema:"the PM2 process name or numeric id to restart"`
}

type ReadLogArgs struct {
	Name  string `json:"name" jsonschema:"the PM2 process name whose log to read"`
	Type  string `json:"type,omitempty" jsonschema:"which stream to read: out or err (default err)"`
	Lines int    `json:"lines,omitempty" jsonschema:"number of trailing lines to return (default 100)"`
}

type ClearLogArgs struct {
	Name string `json:"name" jsonschema:"the PM2 process name whose log to truncate"`
	Type string `json:"type,omitempty" jsonschema:"which stream to truncate: out or err (default err)"`
}

// Tools holds the services the MCP tool handlers call into.
type Tools struct {
	procs *service.ProcessService
	logs  *service.LogService
}

func New(procs *service.ProcessService, logs *service.LogService) *Tools {
	return &Tools{procs: procs, logs: logs}
}

// NewServer returns an MCP server with every process tool registered.
func NewServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "procdeck",
		Version: version,
	}, nil)
	t.Register(server)
	return server
}

// Register adds list_processes, restart_process, read_log and clear_log to
// the given MCP server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "list_processes",
		Description: `List every process managed by PM2 with its id, pid, status, CPU and memory usage, restart count and log file paths.

The list is read from PM2 on every call.`,
	}, t.ListProcesses)

	mcp.AddTool(server, &mcp.Tool{
		Name: "restart_process",
		Description: `Restart a PM2 managed process by name or id and return its descriptor after the restart.

The returned process may still be launching; CPU and memory figures describe the new instance only after it settles.`,
	}, t.RestartProcess)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_log",
		Description: `Return the last lines of a PM2 process's stdout (out) or stderr (err) log file.`,
	}, t.ReadLog)

	mcp.AddTool(server, &mcp.Tool{
		Name: "clear_log",
		Description: `Truncate a PM2 process's stdout (out) or stderr (err) log file to zero length.

The file is truncated in place, so PM2 keeps writing to it.`,
	}, t.ClearLog)
}

func (t *Tools) ListProcesses(ctx context.Context, req *mcp.CallToolRequest, args ListProcessesArgs) (*mcp.CallToolResult, any, error) {
	procs, err := t.procs.ListProcesses(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing processes: %w", err)
	}
	return jsonResult(procs)
}

func (t *Tools) RestartProcess(ctx context.Context, req *mcp.CallToolRequest, args RestartProcessArgs) (*mcp.CallToolResult, any, error) {
	if args.Name == "" {
		return errorResult("name is required"), nil, nil
	}

	proc, err := t.procs.RestartProcess(ctx, args.Name)
	if err != nil {
		if isUserError(err) {
			return errorResult(err.Error()), nil, nil
		}
		return nil, nil, fmt.Errorf("restarting process: %w", err)
	}
	return jsonResult(proc)
}

func (t *Tools) ReadLog(ctx context.Context, req *mcp.CallToolRequest, args ReadLogArgs) (*mcp.CallToolResult, any, error) {
	if args.Name == "" {
		return errorResult("name is required"), nil, nil
	}
	kind, ok := models.ParseStreamKind(args.Type)
	if !ok {
		return errorResult(fmt.Sprintf("type must be out or err, got %q", args.Type)), nil, nil
	}

	content, err := t.logs.ReadLogTail(ctx, args.Name, kind, args.Lines)
	if err != nil {
		if isUserError(err) {
			return errorResult(err.Error()), nil, nil
		}
		return nil, nil, fmt.Errorf("reading log: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: content},
		},
	}, nil, nil
}

func (t *Tools) ClearLog(ctx context.Context, req *mcp.CallToolRequest, args ClearLogArgs) (*mcp.CallToolResult, any, error) {
	if args.Name == "" {
		return errorResult("name is required"), nil, nil
	}
	kind, ok := models.ParseStreamKind(args.Type)
	if !ok {
		return errorResult(fmt.Sprintf("type must be out or err, got %q", args.Type)), nil, nil
	}

	if err := t.logs.ClearLog(ctx, args.Name, kind); err != nil {
		if isUserError(err) {
			return errorResult(err.Error()), nil, nil
		}
		return nil, nil, fmt.Errorf("clearing log: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s log of %s cleared", kind, args.Name)},
		},
	}, nil, nil
}

// isUserError reports failures caused by the arguments rather than by PM2 or
// the filesystem.
func isUserError(err error) bool {
	return errors.Is(err, service.ErrNameRequired) ||
		errors.Is(err, service.ErrInvalidStream) ||
		errors.Is(err, service.ErrProcessNotFound) ||
		errors.Is(err, service.ErrLogPathUnavailable)
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling response: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

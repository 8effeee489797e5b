package protocol

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
)

// ToolDescriptor names one MCP tool: its wire name, description,
// declared input schema, and the in-process Handler the wire layer
// dispatches to. InputSchema uses the same jsonschema-go type the
// teacher's internal/mcp/server.go builds tool schemas with.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
}

// Handler runs one tool call given its raw JSON arguments and returns
// a JSON-marshalable result, or an *errors.Error describing the
// failure's Kind.
type Handler func(ctx context.Context, rt *Runtime, args json.RawMessage) (any, error)

// typed adapts a typed (params in, result out) function into a
// Handler, unmarshaling args into P and marshaling the result back.
// Every handler in this package is built this way, so the underlying
// fn is directly unit-testable without touching JSON at all.
func typed[P any, R any](fn func(ctx context.Context, rt *Runtime, p P) (R, error)) Handler {
	return func(ctx context.Context, rt *Runtime, args json.RawMessage) (any, error) {
		var p P
		if len(args) > 0 {
			if err := json.Unmarshal(args, &p); err != nil {
				return nil, errors.New(errors.KindIO, "protocol.typed", err)
			}
		}
		return fn(ctx, rt, p)
	}
}

// Tools returns the declarative registry, one entry per tool the
// server exposes. Building it fresh per call keeps Tools a pure
// function of the package's tool constructors; cmd/astgrepmcpd calls it
// exactly once at startup.
func Tools() []ToolDescriptor {
	return []ToolDescriptor{
		searchTool(),
		rewriteTool(),
		renameTool(),
		extractFunctionTool(),
		findDuplicationTool(),
		dedupApplyTool(),
		coverageTool(),
		qualityTool(),
		lintTool(),
		backupsListTool(),
		backupsRestoreTool(),
		backupsPruneTool(),
		metricsHistoryTool(),
	}
}

// Dispatch finds and runs the named tool, emitting a
// {tool, duration_ms, status, counters} structured event around every
// invocation.
func Dispatch(ctx context.Context, rt *Runtime, name string, args json.RawMessage) (any, error) {
	for _, t := range Tools() {
		if t.Name != name {
			continue
		}
		start := time.Now()
		rt.Log.Start(name, "")
		result, err := t.Handler(ctx, rt, args)
		if err != nil {
			rt.Log.Failed(name, "", time.Since(start), err)
			return nil, err
		}
		rt.Log.Complete(name, "", time.Since(start), nil)
		return result, nil
	}
	return nil, errors.New(errors.KindInternal, "protocol.Dispatch", nil).WithDetail("tool", name)
}

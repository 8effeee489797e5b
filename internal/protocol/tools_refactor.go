package protocol

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/refactor"
)

// RenameParams is the rename_symbol tool's input.
type RenameParams struct {
	Roots    []string `json:"roots"`
	Old      string   `json:"old"`
	New      string   `json:"new"`
	Language string   `json:"language"`
	Scope    string   `json:"scope,omitempty"` // "project" (default), "file", "function"
	Path     string   `json:"path,omitempty"`  // required for "file"/"function"
	Line     int      `json:"line,omitempty"`  // required for "function"
	DryRun   bool     `json:"dry_run,omitempty"`
}

func scopeFilterFrom(p RenameParams) refactor.ScopeFilter {
	switch p.Scope {
	case "file":
		return refactor.ScopeFilter{Kind: refactor.ScopeFile, Path: p.Path}
	case "function":
		return refactor.ScopeFilter{Kind: refactor.ScopeFunction, Path: p.Path, Line: p.Line}
	default:
		return refactor.ScopeFilter{Kind: refactor.ScopeProject}
	}
}

// RenameSymbol runs C5 (reference resolution + conflict detection)
// then C6 (the actual rewrite), composing C5 -> C4 -> C3.
func RenameSymbol(ctx context.Context, rt *Runtime, p RenameParams) (refactor.RenameResult, error) {
	lang := langs.Language(p.Language)
	return refactor.RenameSymbol(ctx, rt.Exec, rt.Engine, p.Roots, p.Old, p.New, lang, scopeFilterFrom(p), p.DryRun)
}

func renameTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "rename_symbol",
		Description: "Rename every reference to a symbol across a scope (project, file, or enclosing function), atomically.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"roots":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"old":      {Type: "string", Description: "current symbol name"},
				"new":      {Type: "string", Description: "replacement symbol name"},
				"language": {Type: "string"},
				"scope":    {Type: "string", Description: "project (default), file, or function"},
				"path":     {Type: "string", Description: "required for scope=file or scope=function"},
				"line":     {Type: "integer", Description: "1-based line within path identifying the enclosing function, required for scope=function"},
				"dry_run":  {Type: "boolean"},
			},
			Required: []string{"roots", "old", "new", "language"},
		},
		Handler: typed(RenameSymbol),
	}
}

// ExtractFunctionParams is the extract_function tool's input.
type ExtractFunctionParams struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	NewName   string `json:"new_name"`
	Language  string `json:"language"`
	DryRun    bool   `json:"dry_run,omitempty"`
}

// ExtractFunction runs C6's extraction: isolate a line range into a
// new function, inferring parameters and returns from the surrounding
// scope.
func ExtractFunction(ctx context.Context, rt *Runtime, p ExtractFunctionParams) (refactor.ExtractResult, error) {
	lang := langs.Language(p.Language)
	return refactor.ExtractFunction(rt.Engine, p.Path, p.StartLine, p.EndLine, p.NewName, lang, p.DryRun)
}

func extractFunctionTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "extract_function",
		Description: "Extract a contiguous line range of a function's body into a new function, replacing the selection with a call.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":       {Type: "string"},
				"start_line": {Type: "integer", Description: "1-based, inclusive"},
				"end_line":   {Type: "integer", Description: "1-based, inclusive"},
				"new_name":   {Type: "string"},
				"language":   {Type: "string"},
				"dry_run":    {Type: "boolean"},
			},
			Required: []string{"path", "start_line", "end_line", "new_name", "language"},
		},
		Handler: typed(ExtractFunction),
	}
}

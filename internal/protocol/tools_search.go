package protocol

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/cache"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// SearchParams is the search tool's input.
type SearchParams struct {
	Pattern      string   `json:"pattern"`
	Language     string   `json:"language"`
	Roots        []string `json:"roots"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty"`
	MaxFileSize  int64    `json:"max_file_size,omitempty"`
	MaxResults   int      `json:"max_results,omitempty"`
}

// SearchResult is the search tool's output.
type SearchResult struct {
	Matches []matcher.MatchRecord `json:"matches"`
	Cached  bool                  `json:"cached"`
}

// Search runs structural pattern search: a cache lookup (C2) first,
// falling through to the executor's streaming mode (C1) on a miss so a
// MaxResults cap can stop the matcher early instead of waiting out a
// full scan. A capped result is never cached, since it isn't the full
// match set the fingerprint otherwise represents.
func Search(ctx context.Context, rt *Runtime, p SearchParams) (SearchResult, error) {
	lang := langs.Language(p.Language)
	paths, err := executor.FilterPaths(p.Roots, lang, executor.FilterOptions{
		MaxFileSize:  p.MaxFileSize,
		ExcludeGlobs: p.ExcludeGlobs,
	})
	if err != nil {
		return SearchResult{}, err
	}

	fp := cache.Fingerprint{
		Command:       "find",
		PatternOrRule: p.Pattern,
		Language:      lang,
		Paths:         paths,
		MaxFileSize:   p.MaxFileSize,
		ExcludeGlobs:  p.ExcludeGlobs,
	}
	if p.MaxResults <= 0 {
		if matches, ok := rt.Cache.Get(fp); ok {
			return SearchResult{Matches: matches, Cached: true}, nil
		}
	}

	args := append([]string{"--pattern", p.Pattern, "--lang", string(lang)}, paths...)
	var matches []matcher.MatchRecord
	_, err = rt.Exec.Stream(ctx, "scan", args, executor.StreamOptions{
		MaxResults: p.MaxResults,
		OnMatch: func(m matcher.MatchRecord) bool {
			matches = append(matches, m)
			return true
		},
	})
	if err != nil {
		return SearchResult{}, err
	}
	if p.MaxResults <= 0 {
		rt.Cache.Put(fp, matches)
	}
	return SearchResult{Matches: matches}, nil
}

func searchTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "search",
		Description: "Structural pattern search over source roots, cached by query fingerprint.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pattern":       {Type: "string", Description: "ast-grep structural pattern"},
				"language":      {Type: "string", Description: "target language (go, python, javascript, ...)"},
				"roots":         {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "root paths to search"},
				"exclude_globs": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "doublestar glob patterns to exclude"},
				"max_file_size": {Type: "integer", Description: "skip files larger than this many bytes"},
				"max_results":   {Type: "integer", Description: "stop the matcher early once this many matches are found"},
			},
			Required: []string{"pattern", "language", "roots"},
		},
		Handler: typed(Search),
	}
}

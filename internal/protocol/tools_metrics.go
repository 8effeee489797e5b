package protocol

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/metrics"
)

// MetricsHistoryParams is the metrics_history tool's input.
type MetricsHistoryParams struct {
	Project  string `json:"project"`
	Path     string `json:"path"`
	Function string `json:"function"`
}

// MetricsHistory returns every recorded measurement for the given
// (project, path, function) key, oldest first.
func MetricsHistory(ctx context.Context, rt *Runtime, p MetricsHistoryParams) ([]metrics.Entry, error) {
	return rt.Metrics.History(p.Project, p.Path, p.Function), nil
}

func metricsHistoryTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "metrics_history",
		Description: "Retrieve the recorded complexity-measurement history for a function across past quality tool runs.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project":  {Type: "string"},
				"path":     {Type: "string"},
				"function": {Type: "string", Description: "as recorded by the quality tool, \"path:start_line\""},
			},
			Required: []string{"project", "path", "function"},
		},
		Handler: typed(MetricsHistory),
	}
}

// Command astgrepmcpd is the MCP stdio server: it wires internal/config,
// the core components, and internal/protocol's tool registry to
// modelcontextprotocol/go-sdk's stdio transport.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/astgrepmcp/astgrepmcp/internal/config"
	"github.com/astgrepmcp/astgrepmcp/internal/protocol"
)

var version = "0.1.0"

func main() {
	app := &cli.App{
		Name:                   "astgrepmcpd",
		Usage:                  "ast-grep orchestration MCP server",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".astgrepmcp.toml",
			},
			&cli.StringFlag{
				Name:  "matcher-binary",
				Usage: "Path to the ast-grep binary (overrides config)",
			},
			&cli.StringFlag{
				Name:  "backup-root",
				Usage: "Directory backups are written under (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, or error (overrides config)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	overrides := config.Config{
		MatcherBinary: c.String("matcher-binary"),
		BackupRoot:    c.String("backup-root"),
		LogLevel:      c.String("log-level"),
	}
	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rt, err := protocol.NewRuntime(cfg, ".", os.Stderr)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}
	defer rt.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "astgrepmcpd",
		Version: version,
	}, nil)

	for _, tool := range protocol.Tools() {
		tool := tool
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return dispatchToolCall(ctx, rt, tool.Name, req)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return server.Run(ctx, &mcp.StdioTransport{})
}

// dispatchToolCall runs one MCP tool call through the in-process
// registry, marshaling its result (or *errors.Error) back into the MCP
// content shape.
func dispatchToolCall(ctx context.Context, rt *protocol.Runtime, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := protocol.Dispatch(ctx, rt, name, req.Params.Arguments)
	if err != nil {
		body, _ := json.Marshal(map[string]any{"success": false, "error": err.Error()})
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
			IsError: true,
		}, nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result for tool %s: %w", name, err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil
}

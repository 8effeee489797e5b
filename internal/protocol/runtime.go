// Package protocol is the thin dispatch table over the MCP wire layer:
// a declarative []ToolDescriptor registry built at startup from typed,
// in-process-callable functions, one per tool the server exposes.
// cmd/astgrepmcpd wires this registry to the MCP SDK; nothing in this
// package depends on the SDK's request/response types, so every tool
// is callable directly from tests.
package protocol

import (
	"io"

	"github.com/astgrepmcp/astgrepmcp/internal/backup"
	"github.com/astgrepmcp/astgrepmcp/internal/cache"
	"github.com/astgrepmcp/astgrepmcp/internal/config"
	"github.com/astgrepmcp/astgrepmcp/internal/duplication/apply"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/metrics"
	"github.com/astgrepmcp/astgrepmcp/internal/obslog"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

// Runtime bundles every component a tool handler needs: a single
// value built once at startup and passed to every call, instead of
// scattering config, caches, and loggers as ambient package state.
type Runtime struct {
	Config  config.Config
	Exec    *executor.Executor
	Cache   *cache.QueryCache
	Backups *backup.Store
	Engine  *rewrite.Engine
	Metrics *metrics.Store
	Locker  *apply.Locker
	Log     *obslog.Logger
}

// NewRuntime wires every component from cfg. metricsDir is where the
// metrics history store keeps its append-only log; logWriter receives
// structured obslog events (nil defaults to stderr, keeping stdout free
// for the MCP stdio transport's protocol frames).
func NewRuntime(cfg config.Config, metricsDir string, logWriter io.Writer) (*Runtime, error) {
	store := backup.New(cfg.BackupRoot)
	ms, err := metrics.Open(metricsDir)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Config:  cfg,
		Exec:    executor.New(cfg.MatcherBinary, cfg.MatcherConfig),
		Cache: cache.New(cache.Config{
			Capacity: cfg.Cache.Capacity,
			TTL:      cfg.Cache.TTL,
			Enabled:  cfg.Cache.Enabled,
		}),
		Backups: store,
		Engine:  rewrite.NewEngine(store),
		Metrics: ms,
		Locker:  apply.NewLocker(),
		Log:     obslog.New(logWriter, obslog.ParseLevel(cfg.LogLevel)),
	}, nil
}

// Close releases resources NewRuntime opened.
func (r *Runtime) Close() error {
	if r.Metrics != nil {
		return r.Metrics.Close()
	}
	return nil
}

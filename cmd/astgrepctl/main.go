// Command astgrepctl is the operator CLI over the same core components
// astgrepmcpd serves over MCP. Each subcommand builds a
// protocol.Runtime from flags/config and calls straight into the typed
// protocol functions, with no MCP framing involved.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/astgrepmcp/astgrepmcp/internal/config"
	"github.com/astgrepmcp/astgrepmcp/internal/coverage"
	"github.com/astgrepmcp/astgrepmcp/internal/protocol"
)

var version = "0.1.0"

func buildRuntime(c *cli.Context) (*protocol.Runtime, error) {
	overrides := config.Config{MatcherBinary: c.String("matcher-binary")}
	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return protocol.NewRuntime(cfg, ".", os.Stderr)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	app := &cli.App{
		Name:    "astgrepctl",
		Usage:   "operator CLI for the ast-grep orchestration core",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".astgrepmcp.toml"},
			&cli.StringFlag{Name: "matcher-binary"},
		},
		Commands: []*cli.Command{
			searchCommand(),
			rewriteCommand(),
			renameCommand(),
			extractFunctionCommand(),
			findDuplicationCommand(),
			dedupApplyCommand(),
			coverageCommand(),
			backupsCommand(),
			metricsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "structural pattern search",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pattern", Required: true},
			&cli.StringFlag{Name: "lang", Required: true},
			&cli.IntFlag{Name: "max-results", Usage: "stop the matcher early once this many matches are found"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			result, err := protocol.Search(c.Context, rt, protocol.SearchParams{
				Pattern: c.String("pattern"), Language: c.String("lang"), Roots: c.Args().Slice(),
				MaxResults: c.Int("max-results"),
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func rewriteCommand() *cli.Command {
	return &cli.Command{
		Name:  "rewrite",
		Usage: "search and replace by structural pattern",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pattern", Required: true},
			&cli.StringFlag{Name: "rewrite", Required: true},
			&cli.StringFlag{Name: "lang", Required: true},
			&cli.BoolFlag{Name: "dry-run"},
			&cli.BoolFlag{Name: "validate-syntax"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			result, err := protocol.Rewrite(c.Context, rt, protocol.RewriteParams{
				Pattern: c.String("pattern"), Rewrite: c.String("rewrite"), Language: c.String("lang"),
				Roots: c.Args().Slice(), DryRun: c.Bool("dry-run"), ValidateSyntax: c.Bool("validate-syntax"),
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:  "rename",
		Usage: "rename every reference to a symbol",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "old", Required: true},
			&cli.StringFlag{Name: "new", Required: true},
			&cli.StringFlag{Name: "lang", Required: true},
			&cli.StringFlag{Name: "scope", Value: "project"},
			&cli.StringFlag{Name: "path"},
			&cli.IntFlag{Name: "line"},
			&cli.BoolFlag{Name: "dry-run"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			result, err := protocol.RenameSymbol(c.Context, rt, protocol.RenameParams{
				Roots: c.Args().Slice(), Old: c.String("old"), New: c.String("new"), Language: c.String("lang"),
				Scope: c.String("scope"), Path: c.String("path"), Line: c.Int("line"), DryRun: c.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func extractFunctionCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract-function",
		Usage: "extract a line range into a new function",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Required: true},
			&cli.IntFlag{Name: "start-line", Required: true},
			&cli.IntFlag{Name: "end-line", Required: true},
			&cli.StringFlag{Name: "new-name", Required: true},
			&cli.StringFlag{Name: "lang", Required: true},
			&cli.BoolFlag{Name: "dry-run"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			result, err := protocol.ExtractFunction(c.Context, rt, protocol.ExtractFunctionParams{
				Path: c.String("path"), StartLine: c.Int("start-line"), EndLine: c.Int("end-line"),
				NewName: c.String("new-name"), Language: c.String("lang"), DryRun: c.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func findDuplicationCommand() *cli.Command {
	return &cli.Command{
		Name:  "find-duplication",
		Usage: "detect, group, and rank duplicated code",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lang", Required: true},
			&cli.Float64Flag{Name: "threshold"},
			&cli.IntFlag{Name: "min-lines"},
			&cli.IntFlag{Name: "max-results"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			result, err := protocol.FindDuplication(c.Context, rt, protocol.FindDuplicationParams{
				Roots: c.Args().Slice(), Language: c.String("lang"), Threshold: c.Float64("threshold"),
				MinLines: c.Int("min-lines"), MaxResults: c.Int("max-results"),
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func dedupApplyCommand() *cli.Command {
	return &cli.Command{
		Name:  "dedup-apply",
		Usage: "apply deduplication candidates from a JSON file (array of apply.Candidate)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "candidates-file", Required: true},
			&cli.BoolFlag{Name: "all-or-nothing"},
			&cli.BoolFlag{Name: "validate-syntax"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			data, err := os.ReadFile(c.String("candidates-file"))
			if err != nil {
				return err
			}
			var p protocol.DedupApplyParams
			if err := json.Unmarshal(data, &p.Candidates); err != nil {
				return fmt.Errorf("decode candidates: %w", err)
			}
			p.AllOrNothing = c.Bool("all-or-nothing")
			p.ValidateSyntax = c.Bool("validate-syntax")
			result, err := protocol.DedupApply(c.Context, rt, p)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func coverageCommand() *cli.Command {
	return &cli.Command{
		Name:  "coverage",
		Usage: "batched has_tests lookup, with optional impact risk assessment",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lang", Required: true},
			&cli.StringFlag{Name: "root"},
			&cli.BoolFlag{Name: "is-public"},
			&cli.BoolFlag{Name: "cross-file"},
			&cli.IntFlag{Name: "caller-count"},
		},
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			files := c.Args().Slice()
			result, err := protocol.Coverage(c.Context, rt, protocol.CoverageParams{
				Files: files, Language: c.String("lang"), Root: c.String("root"),
				Impact: &coverage.ImpactInput{
					FilesAffected: len(files), IsPublic: c.Bool("is-public"),
					CallerCount: c.Int("caller-count"), CrossFile: c.Bool("cross-file"),
				},
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func backupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "backups",
		Usage: "list, restore, or prune backups",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Action: func(c *cli.Context) error {
					rt, err := buildRuntime(c)
					if err != nil {
						return err
					}
					defer rt.Close()
					result, err := protocol.BackupsList(c.Context, rt, protocol.BackupsListParams{})
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
			{
				Name:  "restore",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
				Action: func(c *cli.Context) error {
					rt, err := buildRuntime(c)
					if err != nil {
						return err
					}
					defer rt.Close()
					result, err := protocol.BackupsRestore(c.Context, rt, protocol.BackupsRestoreParams{ID: c.String("id")})
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
			{
				Name: "prune",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "older-than-seconds", Required: true},
					&cli.IntFlag{Name: "keep-last-n", Required: true},
				},
				Action: func(c *cli.Context) error {
					rt, err := buildRuntime(c)
					if err != nil {
						return err
					}
					defer rt.Close()
					result, err := protocol.BackupsPrune(c.Context, rt, protocol.BackupsPruneParams{
						OlderThanSeconds: c.Int("older-than-seconds"), KeepLastN: c.Int("keep-last-n"),
					})
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "inspect recorded complexity-measurement history",
		Subcommands: []*cli.Command{
			{
				Name: "history",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Required: true},
					&cli.StringFlag{Name: "path", Required: true},
					&cli.StringFlag{Name: "function", Required: true},
				},
				Action: func(c *cli.Context) error {
					rt, err := buildRuntime(c)
					if err != nil {
						return err
					}
					defer rt.Close()
					result, err := protocol.MetricsHistory(c.Context, rt, protocol.MetricsHistoryParams{
						Project: c.String("project"), Path: c.String("path"), Function: c.String("function"),
					})
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
		},
	}
}

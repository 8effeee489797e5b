// Package executor runs the external ast-grep matcher process and turns
// its output into structural match records, per the executor component:
// non-streaming and line-streaming invocation, early termination,
// cancellation, and path filtering ahead of invocation.
package executor

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	cancelpkg "github.com/astgrepmcp/astgrepmcp/internal/cancel"
	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// GracePeriod bounds how long a streaming invocation waits between a
// graceful stop signal and a forced kill, per the executor's early
// termination contract (<= 500ms).
const GracePeriod = 500 * time.Millisecond

// MaxMalformedRatio is the fraction of unparsable streamed lines above
// which a scan is considered failed rather than merely lossy.
const MaxMalformedRatio = 0.5

// Executor launches the configured matcher binary.
type Executor struct {
	// BinaryPath is the path to the ast-grep (or compatible) binary.
	BinaryPath string
	// ConfigPath, if non-empty, is appended as `--config <path>` to
	// every invocation.
	ConfigPath string
}

// New creates an Executor for the given binary, with an optional
// config-file path (empty string means no --config argument).
func New(binaryPath, configPath string) *Executor {
	return &Executor{BinaryPath: binaryPath, ConfigPath: configPath}
}

func (e *Executor) fullArgs(args []string) []string {
	if e.ConfigPath == "" {
		return args
	}
	out := make([]string, 0, len(args)+2)
	out = append(out, args...)
	out = append(out, "--config", e.ConfigPath)
	return out
}

// RunResult is the outcome of a non-streaming invocation.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Run launches the matcher synchronously and collects its full output,
// per the non-streaming calling convention
// (`[scan|run] ...pattern/rule... --json`).
func (e *Executor) Run(ctx context.Context, command string, args []string, stdin []byte) (RunResult, error) {
	cmd := exec.CommandContext(ctx, e.BinaryPath, append([]string{command}, e.fullArgs(args)...)...)
	configureShell(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if isNotFound(err) {
			return RunResult{}, errors.New(errors.KindMatcherMissing, "executor.Run", err).
				WithDetail("binary", e.BinaryPath)
		}
		if asExitError(err, &exitErr) {
			return RunResult{ExitCode: exitErr.ExitCode(), Stdout: stdout.Bytes(), Stderr: stderr.Bytes()},
				errors.New(errors.KindMatcherFailed, "executor.Run", err).
					WithDetail("stderr", stderr.String()).
					WithDetail("exit_code", exitErr.ExitCode())
		}
		return RunResult{}, errors.New(errors.KindIO, "executor.Run", err)
	}

	return RunResult{ExitCode: 0, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// RunMatches invokes Run in non-streaming mode and decodes the JSON
// array response into match records.
func (e *Executor) RunMatches(ctx context.Context, args []string) ([]matcher.MatchRecord, error) {
	res, err := e.Run(ctx, "scan", append(args, "--json"), nil)
	if err != nil {
		return nil, err
	}
	matches, decErr := matcherDecodeMatches(res.Stdout)
	if decErr != nil {
		return nil, errors.New(errors.KindIO, "executor.RunMatches", decErr)
	}
	return matches, nil
}

func matcherDecodeMatches(data []byte) ([]matcher.MatchRecord, error) {
	return matcher.DecodeMatches(data)
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

// StreamOptions configures a streaming invocation.
type StreamOptions struct {
	MaxResults int
	OnMatch    func(matcher.MatchRecord) (keepGoing bool)
	OnProgress func(matched int)
	Cancel     *cancelpkg.Token
}

// StreamSummary reports what a streaming invocation produced.
type StreamSummary struct {
	MatchCount     int
	MalformedLines int
	TotalLines     int
	Cancelled      bool
}

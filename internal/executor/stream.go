package executor

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// Stream launches the matcher in streaming mode (`--json=stream`, one
// JSON document per line) and invokes opts.OnMatch for each parsed
// match. Execution terminates early (sending a graceful stop and, if
// the process has not exited within GracePeriod, a forced kill) when
// OnMatch returns false, the cancel token fires, or MaxResults is
// reached. A cancelled stream is reported as success with the matches
// produced so far (spec: "not an error").
func (e *Executor) Stream(ctx context.Context, command string, args []string, opts StreamOptions) (StreamSummary, error) {
	fullArgs := append([]string{command}, e.fullArgs(args)...)
	fullArgs = append(fullArgs, "--json=stream")

	cmd := exec.CommandContext(ctx, e.BinaryPath, fullArgs...)
	configureShell(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return StreamSummary{}, errors.New(errors.KindIO, "executor.Stream", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return StreamSummary{}, errors.New(errors.KindIO, "executor.Stream", err)
	}

	if startErr := cmd.Start(); startErr != nil {
		if isNotFound(startErr) {
			return StreamSummary{}, errors.New(errors.KindMatcherMissing, "executor.Stream", startErr).
				WithDetail("binary", e.BinaryPath)
		}
		return StreamSummary{}, errors.New(errors.KindIO, "executor.Stream", startErr)
	}

	// Drain stderr unconditionally so the child never blocks on a full
	// pipe even if we never read its diagnostics.
	var stderrBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 4096)
		for {
			n, rerr := stderr.Read(buf)
			if n > 0 {
				stderrBuf.Write(buf[:n])
			}
			if rerr != nil {
				return
			}
		}
	}()

	summary := StreamSummary{}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	stopRequested := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytesTrim(line)) == 0 {
			continue
		}
		summary.TotalLines++

		m, decErr := matcher.DecodeMatch(line)
		if decErr != nil {
			summary.MalformedLines++
			continue
		}

		summary.MatchCount++
		keepGoing := true
		if opts.OnMatch != nil {
			keepGoing = opts.OnMatch(m)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(summary.MatchCount)
		}

		cancelled := opts.Cancel != nil && opts.Cancel.Cancelled()
		atLimit := opts.MaxResults > 0 && summary.MatchCount >= opts.MaxResults
		if !keepGoing || cancelled || atLimit {
			stopRequested = true
			summary.Cancelled = cancelled || !keepGoing || atLimit
			break
		}
	}

	// Drain whatever remains of stdout so the child is never left
	// blocked on a full pipe while we wait for it to exit.
	go io.Copy(io.Discard, stdout) //nolint:errcheck

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	if stopRequested {
		_ = terminateGracefully(cmd)
		select {
		case waitErr = <-waitDone:
		case <-time.After(GracePeriod):
			_ = cmd.Process.Kill()
			waitErr = <-waitDone
		}
	} else {
		waitErr = <-waitDone
	}
	wg.Wait()

	if summary.TotalLines > 0 {
		malformedRatio := float64(summary.MalformedLines) / float64(summary.TotalLines)
		if malformedRatio > MaxMalformedRatio {
			return summary, errors.New(errors.KindMatcherFailed, "executor.Stream",
				errMalformedOverThreshold).WithDetail("malformed_ratio", malformedRatio)
		}
	}

	if stopRequested {
		// A deliberate stop is success-with-partial-result regardless
		// of the exit status the killed process reports.
		return summary, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if asExitError(waitErr, &exitErr) {
			return summary, errors.New(errors.KindMatcherFailed, "executor.Stream", waitErr).
				WithDetail("stderr", stderrBuf.String()).
				WithDetail("exit_code", exitErr.ExitCode())
		}
		return summary, errors.New(errors.KindIO, "executor.Stream", waitErr)
	}

	return summary, nil
}

var errMalformedOverThreshold = streamError("more than half of streamed lines were malformed")

type streamError string

func (e streamError) Error() string { return string(e) }

func bytesTrim(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}


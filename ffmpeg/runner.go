// Package ffmpeg wraps the external encode and probe binaries behind a small
// process boundary: build args, run under a timeout, classify failures.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrTimeout reports that the external process hit its deadline.
	ErrTimeout = errors.New("ffmpeg: process timed out")
	// ErrBinaryNotFound reports that the encoder or probe binary is missing.
	ErrBinaryNotFound = errors.New("ffmpeg: binary not found")
)

// ExitError reports a non-zero exit from the external process.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg: exit status %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg: exit status %d: %s", e.Code, e.Stderr)
}

// RunResult carries the raw outcome of one external invocation.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes encode and probe commands.
type Runner struct {
	FFmpegPath  string
	FFprobePath string
}

// NewRunner returns a Runner using the given binary paths, falling back to
// "ffmpeg" and "ffprobe" on $PATH.
func NewRunner(ffmpegPath, ffprobePath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Run executes the encoder binary with args under the given timeout.
// A zero timeout runs without a deadline beyond the caller's context.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, args ...string) (*RunResult, error) {
	return r.runBinary(ctx, timeout, r.FFmpegPath, args)
}

func (r *Runner) runBinary(ctx context.Context, timeout time.Duration, bin string, args []string) (*RunResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return result, classifyRunError(runCtx.Err(), err, result)
	}
	return result, nil
}

// classifyRunError maps a raw process failure to the timeout, missing-binary,
// or non-zero-exit condition.
func classifyRunError(ctxErr, runErr error, res *RunResult) error {
	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(ctxErr, context.Canceled):
		return ctxErr
	case errors.Is(runErr, exec.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrBinaryNotFound, runErr)
	case res != nil && res.ExitCode > 0:
		return &ExitError{Code: res.ExitCode, Stderr: stderrTail(res.Stderr)}
	default:
		return runErr
	}
}

// stderrTail keeps the last few lines of encoder output for error messages.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

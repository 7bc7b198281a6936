// Package command runs external processes: environment probes and the training engine.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// Runner executes commands with a timeout and optional output streaming.
type Runner struct {
	WorkingDir string
	Env        []string // appended to the current process environment
	Timeout    time.Duration
	Stdout     io.Writer // optional; receives output as it is produced
	Stderr     io.Writer
}

// streamTailBytes bounds how much streamed output is kept in a Result.
const streamTailBytes = 64 << 10

// Result carries output and status code. Output that is also streamed to a
// writer is truncated to its last streamTailBytes.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Exec runs command with args. A non-zero exit is returned as an error together with the Result.
func (r *Runner) Exec(ctx context.Context, command string, args ...string) (Result, error) {
	if command == "" {
		return Result{}, errors.New("command is required")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if r.WorkingDir != "" {
		cmd.Dir = r.WorkingDir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	stdout, stderr := capture(r.Stdout), capture(r.Stderr)
	cmd.Stdout = tee(stdout, r.Stdout)
	cmd.Stderr = tee(stderr, r.Stderr)

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", command, ctxErr)
		}
		return res, fmt.Errorf("%s: %w", command, err)
	}
	return res, nil
}

// With returns a copy of the runner with extra environment entries.
func (r *Runner) With(env ...string) *Runner {
	clone := *r
	clone.Env = append(append([]string(nil), r.Env...), env...)
	return &clone
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

type recorder interface {
	io.Writer
	String() string
}

// capture keeps everything for unstreamed output and a bounded tail otherwise.
func capture(w io.Writer) recorder {
	if w == nil {
		return &bytes.Buffer{}
	}
	return &tailBuffer{max: streamTailBytes}
}

func tee(buf recorder, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// tailBuffer retains the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.max {
		b.buf = append(b.buf[:0], p[n-b.max:]...)
		return n, nil
	}
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return n, nil
}

func (b *tailBuffer) String() string { return string(b.buf) }

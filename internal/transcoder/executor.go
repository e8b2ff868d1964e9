package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxStderrBytes bounds how much ffmpeg chatter a Result keeps. The tail is
// kept since that is where ffmpeg reports the failure.
const maxStderrBytes = 64 << 10

// waitDelay caps how long Wait keeps draining stderr after ffmpeg is killed,
// in case a child process still holds the pipe open.
const waitDelay = time.Second

// Result describes one finished ffmpeg run.
type Result struct {
	ExitCode int
	Stderr   string
	Elapsed  time.Duration
	TimedOut bool
	// Err is set when the process could not start, was killed, or exited
	// non-zero.
	Err error
}

// OK reports whether ffmpeg ran and exited with status 0.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Execute runs ffmpeg with the command's arguments and blocks until it
// exits, the engine timeout fires, or ctx is cancelled.
func (e *Engine) Execute(ctx context.Context, c Command) Result {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.FFmpegPath, c.Args...)
	stderr := &tailBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	logger := log.WithField("command", c.String())
	start := time.Now()

	// 1. Start, so a spawn failure is told apart from a failed run.
	if err := cmd.Start(); err != nil {
		logger.WithError(err).Error("Failed to start ffmpeg.")
		return Result{
			ExitCode: -1,
			Elapsed:  time.Since(start),
			Err:      fmt.Errorf("failed to start ffmpeg: %w", err),
		}
	}
	logger.WithField("pid", cmd.Process.Pid).Debug("FFmpeg started.")

	// 2. Wait for it to finish.
	waitErr := cmd.Wait()
	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stderr:   stderr.String(),
		Elapsed:  time.Since(start),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.Err = fmt.Errorf("ffmpeg timed out after %s: %w", res.Elapsed.Round(time.Millisecond), ctx.Err())
	case ctx.Err() != nil:
		res.Err = fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
	case waitErr != nil:
		res.Err = fmt.Errorf("ffmpeg execution failed: %w", waitErr)
	}

	fields := log.Fields{
		"exit_code":  res.ExitCode,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}
	if res.OK() {
		logger.WithFields(fields).Info("FFmpeg finished.")
	} else {
		logger.WithFields(fields).WithError(res.Err).Warn("FFmpeg failed.")
	}
	return res
}

// Compose builds and runs a composition.
func (e *Engine) Compose(ctx context.Context, opts ComposeOptions) Result {
	return e.Execute(ctx, BuildCompose(opts))
}

// Trim builds and runs a trim.
func (e *Engine) Trim(ctx context.Context, opts TrimOptions) Result {
	return e.Execute(ctx, BuildTrim(opts))
}

// Render builds and runs a short-video render.
func (e *Engine) Render(ctx context.Context, opts RenderOptions) Result {
	return e.Execute(ctx, BuildRender(opts))
}

// Export builds and runs a preset rescale.
func (e *Engine) Export(ctx context.Context, opts ExportOptions) Result {
	return e.Execute(ctx, BuildExport(opts))
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.limit {
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

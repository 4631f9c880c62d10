package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"vidqueue/internal/logging"
)

const tailLines = 12

// Command describes one external tool invocation.
type Command struct {
	// Name is a short tool name used in logs and errors, e.g. "ffmpeg".
	Name string
	Path string
	Args []string
	Dir  string
	Env  []string
	// Duration of the source media, used to turn ffmpeg timestamps into fractions.
	Duration time.Duration
}

// Runner executes commands and registers them with a Tracker.
type Runner struct {
	tracker *Tracker
	logger  *slog.Logger
}

// NewRunner returns a runner. A nil tracker disables hard-stop support.
func NewRunner(tracker *Tracker, logger *slog.Logger) *Runner {
	return &Runner{tracker: tracker, logger: logging.NewComponentLogger(logger, "proc")}
}

// Run starts cmd and blocks until it exits. Progress, when non-nil, receives
// monotonically increasing fractions parsed from the tool's output.
func (r *Runner) Run(ctx context.Context, cmd Command, progress func(float64)) error {
	if cmd.Path == "" {
		return errors.New("command path required")
	}
	name := cmd.Name
	if name == "" {
		name = cmd.Path
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...) //nolint:gosec
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return unix.Kill(-c.Process.Pid, unix.SIGKILL)
	}
	c.WaitDelay = 5 * time.Second

	stdout, err := c.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("starting tool", logging.String("tool", name), logging.Any("args", cmd.Args))
	if err := c.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	if r.tracker != nil {
		activity, err := r.tracker.TrackProcess(name, c.Process.Pid)
		if err != nil {
			_ = unix.Kill(-c.Process.Pid, unix.SIGKILL)
			_ = c.Wait()
			return fmt.Errorf("track %s: %w", name, err)
		}
		defer activity.Release()
	}

	parser := NewProgressParser(cmd.Duration)
	tail := newTailBuffer(tailLines)
	var mu sync.Mutex
	handle := func(line string, keep bool) {
		mu.Lock()
		defer mu.Unlock()
		if keep {
			tail.add(line)
		}
		if progress == nil {
			return
		}
		if fraction, ok := parser.Parse(line); ok {
			progress(fraction)
		}
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	scan := func(src io.Reader, keep bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanLinesOrCR)
		for scanner.Scan() {
			handle(scanner.Text(), keep)
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
			// Keep the pipe drained so the tool can still exit.
			_, _ = io.Copy(io.Discard, src)
		}
	}
	wg.Add(2)
	go scan(stdout, false)
	go scan(stderr, true)
	wg.Wait()

	waitErr := c.Wait()
	if scanErr != nil && waitErr == nil {
		return fmt.Errorf("scan %s output: %w", name, scanErr)
	}
	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s interrupted: %w", name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Tool: name, Code: exitErr.ExitCode(), Tail: tail.lines()}
		}
		return fmt.Errorf("wait %s: %w", name, waitErr)
	}
	return nil
}

// scanLinesOrCR splits on \n or \r so carriage-return progress redraws arrive
// as separate lines.
func scanLinesOrCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type tailBuffer struct {
	limit int
	buf   []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.buf = append(t.buf, line)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
}

func (t *tailBuffer) lines() []string {
	return append([]string(nil), t.buf...)
}

// Package runner executes external commands the bootstrap way: output goes to
// a temporary capture file instead of the terminal, a single progress line
// shows liveness while the child runs, success stays quiet and failure prints
// a bounded tail of the transcript.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"devstrap/internal/logger"
)

// displayTail caps how many transcript lines a failure prints.
const displayTail = 10

// progressInterval is how often the in-flight progress line refreshes.
const progressInterval = 500 * time.Millisecond

// Invocation describes one external command.
type Invocation struct {
	// Prefix is the short label output lines are attributed to, e.g. "brew".
	Prefix string
	// Name and Args form the argv. Name is resolved via PATH.
	Name string
	Args []string
	// Stdin, when non-empty, is written to the child's standard input.
	// Used for installers that insist on prompting.
	Stdin string
}

// String renders the invocation roughly the way a user would type it.
func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Name}, inv.Args...), " ")
}

// CommandError reports a child that exited non-zero. Output holds the full
// combined transcript; only the displayed tail is capped, never this.
type CommandError struct {
	Prefix   string
	Cmd      string
	ExitCode int
	Elapsed  time.Duration
	Output   []string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %q exited with status %d", e.Prefix, e.Cmd, e.ExitCode)
}

// Runner executes invocations one at a time.
type Runner struct {
	ctx   context.Context
	coord *Coordinator

	// Out receives failure tails. Defaults to stdout; tests swap in a buffer.
	Out io.Writer
	// Progress enables the spinner line. New turns it on only when stderr
	// is a terminal, so captured or piped runs stay clean.
	Progress bool
}

// New builds a Runner wired to the given cancellation context and interrupt
// coordinator.
func New(ctx context.Context, coord *Coordinator) *Runner {
	return &Runner{
		ctx:      ctx,
		coord:    coord,
		Out:      os.Stdout,
		Progress: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Run executes one invocation to completion. On success it logs a one-line
// confirmation with the elapsed time and discards the transcript; on failure
// it prints the transcript tail and returns a *CommandError carrying the
// whole of it. The capture file is removed on every path; once a drain
// begins, disposal belongs to the coordinator.
func (r *Runner) Run(inv Invocation) error {
	start := time.Now()

	capture, err := os.CreateTemp("", "devstrap-*.log")
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	capturePath := capture.Name()

	cmd := exec.Command(inv.Name, inv.Args...)
	cmd.Stdout = capture
	cmd.Stderr = capture
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}
	// Children get their own process group so an interrupt can take down
	// the whole tree, sudo pipelines included.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Claim the single in-flight slot before the child exists, so a signal
	// arriving mid-start still finds the capture file.
	r.coord.begin(inv, capturePath)

	logger.Debug("[DEBUG] Running: %s\n", inv.String())

	if err := cmd.Start(); err != nil {
		capture.Close()
		if r.coord.seal() {
			os.Remove(capturePath)
		}
		return fmt.Errorf("start %s: %w", inv.Name, err)
	}
	r.coord.started(cmd.Process.Pid)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	waitErr := r.watch(inv.Prefix, cmd, done)

	capture.Close()
	elapsed := time.Since(start)

	if !r.coord.seal() {
		// A drain claimed the teardown while the child was dying; it
		// flushes the transcript, removes the capture file and exits the
		// process. Reachable only in tests, where exit is stubbed.
		return fmt.Errorf("%s: interrupted", inv.Prefix)
	}

	if waitErr == nil {
		os.Remove(capturePath)
		logger.Info("[INFO] %s: completed in %s\n", inv.Prefix, formatElapsed(elapsed))
		return nil
	}

	lines := readLines(capturePath)
	os.Remove(capturePath)

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		// Cancellation or a wait-level failure; the child is already dead.
		return fmt.Errorf("%s: %w", inv.Prefix, waitErr)
	}

	cmdErr := &CommandError{
		Prefix:   inv.Prefix,
		Cmd:      inv.String(),
		ExitCode: exitErr.ExitCode(),
		Elapsed:  elapsed,
		Output:   lines,
	}
	logger.Error("[ERROR] %s: %q failed with status %d after %s\n",
		inv.Prefix, inv.String(), cmdErr.ExitCode, formatElapsed(elapsed))
	r.printTail(inv.Prefix, lines)
	return cmdErr
}

// watch blocks until the child exits or the run context is cancelled,
// refreshing the progress line every half second in between.
func (r *Runner) watch(prefix string, cmd *exec.Cmd, done chan error) error {
	bar := r.spinner(prefix)
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if bar != nil {
				_ = bar.Finish()
			}
			return err
		case <-ticker.C:
			if bar != nil {
				_ = bar.Add(1)
			}
		case <-r.ctx.Done():
			// Kill the whole process group, then reap the child so the
			// capture file is quiescent before cleanup.
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			<-done
			if bar != nil {
				_ = bar.Finish()
			}
			return r.ctx.Err()
		}
	}
}

// spinner builds the single-line progress indicator, or nil when progress
// output is off.
func (r *Runner) spinner(prefix string) *progressbar.ProgressBar {
	if !r.Progress {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(fmt.Sprintf("[%s] running", prefix)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// printTail shows at most displayTail transcript lines, newest last, each
// attributed to the command via its prefix. Longer transcripts get a marker
// saying how many lines were left out.
func (r *Runner) printTail(prefix string, lines []string) {
	if len(lines) > displayTail {
		fmt.Fprintf(r.Out, "[%s] ... %d more line(s) above\n", prefix, len(lines)-displayTail)
		lines = lines[len(lines)-displayTail:]
	}
	for _, line := range lines {
		fmt.Fprintf(r.Out, "[%s] %s\n", prefix, line)
	}
}

// readLines loads a capture file as displayable lines. A missing or empty
// file yields nil.
func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// formatElapsed renders a duration as "Xm Ys".
func formatElapsed(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}

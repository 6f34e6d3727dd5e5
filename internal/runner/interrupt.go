package runner

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"devstrap/internal/logger"
)

// Coordinator owns the single in-flight command slot and turns SIGINT or
// SIGTERM into an orderly teardown: announce the interrupt, flush whatever
// the active command captured so far, kill its process group, remove the
// capture file and exit with 128 plus the signal number (130 for Ctrl-C).
//
// The slot moves idle -> running -> idle on the happy path. A signal flips it
// to draining instead, and draining holds the lock until the process exits,
// so the runner can neither dispose of the capture file nor start another
// command while the teardown runs.
type Coordinator struct {
	mu       sync.Mutex
	active   *activeCommand
	draining bool

	// out receives the flushed transcript; exit terminates the process.
	// Both are fixed in NewCoordinator and only swapped by tests.
	out  io.Writer
	exit func(code int)
}

type activeCommand struct {
	inv     Invocation
	capture string
	pid     int
}

// NewCoordinator returns an idle coordinator. Call Notify once to arm the
// signal handler.
func NewCoordinator() *Coordinator {
	return &Coordinator{out: os.Stdout, exit: os.Exit}
}

// Notify installs the interrupt handler. It must be called before the first
// command runs.
func (c *Coordinator) Notify() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		c.drain(<-sigs)
	}()
}

// begin claims the slot for an invocation whose output lands in capturePath.
func (c *Coordinator) begin(inv Invocation, capturePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = &activeCommand{inv: inv, capture: capturePath}
}

// started records the child's pid, which doubles as its process group id.
func (c *Coordinator) started(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.pid = pid
	}
}

// seal releases the slot once the child has exited and reports whether the
// runner still owns the outcome. After a drain has claimed the slot, the
// capture file and the terminal belong to the signal path and the runner
// must touch neither.
func (c *Coordinator) seal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining {
		return false
	}
	c.active = nil
	return true
}

// drain runs on the signal goroutine. It marks the slot draining before
// killing the child, so the runner that wakes from the kill cannot remove
// the capture file or print a failure report out from under the flush. The
// lock is held through exit, which is why the capture file is removed here
// rather than by the runner.
func (c *Coordinator) drain(sig os.Signal) {
	c.mu.Lock()
	c.draining = true

	logger.Warn("\n[WARN] Interrupted by %s\n", sig)
	if a := c.active; a != nil {
		if a.pid > 0 {
			syscall.Kill(-a.pid, syscall.SIGKILL)
		}
		logger.Warn("[WARN] Was running: %s\n", a.inv.String())
		for _, line := range readLines(a.capture) {
			fmt.Fprintf(c.out, "[%s] %s\n", a.inv.Prefix, line)
		}
		os.Remove(a.capture)
	}
	c.exit(128 + signum(sig))
	c.mu.Unlock() // reached only in tests, where exit is stubbed
}

// signum extracts the numeric signal value, defaulting to SIGINT's 2.
func signum(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return int(syscall.SIGINT)
}

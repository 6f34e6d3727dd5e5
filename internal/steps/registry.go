// Package steps defines the named installation units and the registry the
// orchestrator and CLI drive them through.
package steps

import (
	"errors"
	"fmt"

	"devstrap/internal/logger"
	"devstrap/internal/runner"
)

// ErrUnknownStep is returned when a requested step name is not registered.
var ErrUnknownStep = errors.New("unknown step")

// RunFunc executes one external command. In production it is the runner's
// Run method; tests substitute a fake to observe invocations.
type RunFunc func(runner.Invocation) error

// Step is one named, independently runnable installation unit.
type Step interface {
	// Name is the unique identifier used on the command line.
	Name() string
	// Installed reports whether the step's outcome is already present.
	// It must not change system state. Steps without a reliable marker
	// return false and run every time.
	Installed() bool
	// Run performs the installation.
	Run() error
}

// Status classifies one step outcome.
type Status int

const (
	StatusSkipped Status = iota
	StatusInstalled
	StatusFailed
)

// Result is the outcome of driving one step through its idempotency gate.
type Result struct {
	Name   string
	Status Status
	Err    error
}

// Summary aggregates a bulk run.
type Summary struct {
	Results []Result
}

// Failed returns the names of the steps that failed, in run order.
func (s Summary) Failed() []string {
	var names []string
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			names = append(names, r.Name)
		}
	}
	return names
}

// Counts reports how many steps installed and how many were skipped.
func (s Summary) Counts() (installed, skipped int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusInstalled:
			installed++
		case StatusSkipped:
			skipped++
		}
	}
	return installed, skipped
}

// Registry holds the known steps. Registration order is preserved and is the
// order bulk installs run in.
type Registry struct {
	order []string
	steps map[string]Step
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds a step. Names must be unique; a duplicate is a programming
// error and panics.
func (r *Registry) Register(s Step) {
	if _, dup := r.steps[s.Name()]; dup {
		panic(fmt.Sprintf("steps: duplicate registration of %q", s.Name()))
	}
	r.order = append(r.order, s.Name())
	r.steps[s.Name()] = s
}

// Names lists the registered step names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Lookup finds a step by name.
func (r *Registry) Lookup(name string) (Step, bool) {
	s, ok := r.steps[name]
	return s, ok
}

// Install runs a single step through its idempotency gate. An unregistered
// name returns ErrUnknownStep; a failing step returns its error.
func (r *Registry) Install(name string) error {
	s, ok := r.steps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
	return r.apply(s).Err
}

// InstallAll drives every registered step in order. A failing step is
// recorded and does not stop the ones after it.
func (r *Registry) InstallAll() Summary {
	var sum Summary
	for _, name := range r.order {
		sum.Results = append(sum.Results, r.apply(r.steps[name]))
	}
	return sum
}

// apply is the idempotency gate shared by both install modes.
func (r *Registry) apply(s Step) Result {
	if s.Installed() {
		logger.Info("[INFO] %s is already installed. Skipping.\n", s.Name())
		return Result{Name: s.Name(), Status: StatusSkipped}
	}
	logger.Info("[INFO] Installing %s...\n", s.Name())
	if err := s.Run(); err != nil {
		logger.Error("[ERROR] %s failed: %v\n", s.Name(), err)
		return Result{Name: s.Name(), Status: StatusFailed, Err: err}
	}
	return Result{Name: s.Name(), Status: StatusInstalled}
}

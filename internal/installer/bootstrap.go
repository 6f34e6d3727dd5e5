// Package installer drives a full bootstrap run: the preflight checks, the
// bulk package phase, the login-shell switch and the registered steps, in
// that order. Phases and steps run strictly sequentially; a failure in one
// is recorded and never hides the work that can still make progress.
package installer

import (
	"devstrap/internal/config"
	"devstrap/internal/logger"
	"devstrap/internal/pkgset"
	"devstrap/internal/platform"
	"devstrap/internal/steps"
)

// Switcher is the login-shell collaborator. Ensure reports whether it changed
// anything, so the closing summary can tell the user to log in again.
type Switcher interface {
	Ensure() (bool, error)
}

// Bootstrap wires the collaborators of one run. Everything is injected so
// tests can substitute fakes for the pieces that touch the system.
type Bootstrap struct {
	// Guard refuses privileged runs before anything is attempted.
	Guard func() error
	// Detect resolves the target platform, also before anything runs.
	Detect func() (platform.Platform, error)
	// Run executes the package-manager invocations of the bulk phase.
	Run steps.RunFunc
	// Steps builds the step registry for the detected platform.
	Steps func(platform.Platform) *steps.Registry
	// Packages holds the raw package tiers pkgset resolves per platform.
	Packages config.Packages
	// Switch converges the login shell. May be nil to disable switching.
	Switch Switcher
}

// Report aggregates the outcome of one bulk run.
type Report struct {
	Platform platform.Platform
	// PackagesErr is the bulk package phase's failure, when it had one.
	PackagesErr error
	// ShellChanged means the login shell was switched and the user has to
	// log in again for it to take effect.
	ShellChanged bool
	ShellErr     error
	Steps        steps.Summary
}

// Failures names everything that went wrong, phases first, then failed steps
// in run order.
func (r *Report) Failures() []string {
	var failed []string
	if r.PackagesErr != nil {
		failed = append(failed, "packages")
	}
	if r.ShellErr != nil {
		failed = append(failed, "shell")
	}
	return append(failed, r.Steps.Failed()...)
}

// OK reports whether the whole run succeeded.
func (r *Report) OK() bool {
	return len(r.Failures()) == 0
}

// InstallAll is bulk mode. The preflight aborts the run; after it, every
// phase is attempted and its failure recorded in the Report, so one broken
// step cannot stop the independent ones behind it.
func (b *Bootstrap) InstallAll() (*Report, error) {
	p, err := b.preflight()
	if err != nil {
		return nil, err
	}
	rep := &Report{Platform: p}

	rep.PackagesErr = b.installPackages(p)
	if rep.PackagesErr != nil {
		logger.Error("[ERROR] Package installation failed: %v\n", rep.PackagesErr)
	}

	switch {
	case b.Switch == nil:
	case rep.PackagesErr != nil:
		// The target shell comes from the package phase; without it a
		// switch attempt would only add a second confusing failure.
		logger.Warn("[WARN] Skipping login-shell switch: package phase failed\n")
	default:
		rep.ShellChanged, rep.ShellErr = b.Switch.Ensure()
		if rep.ShellErr != nil {
			logger.Error("[ERROR] Login-shell switch failed: %v\n", rep.ShellErr)
		}
	}

	rep.Steps = b.Steps(p).InstallAll()

	installed, skipped := rep.Steps.Counts()
	logger.Info("[INFO] Steps: %d installed, %d skipped\n", installed, skipped)
	if rep.ShellChanged {
		logger.Warn("[WARN] Login shell changed; log out and back in to pick it up\n")
	}
	return rep, nil
}

// Install is single-step mode: the same preflight, then exactly one named
// step. With no siblings to protect, any failure is fatal to the caller.
func (b *Bootstrap) Install(name string) error {
	p, err := b.preflight()
	if err != nil {
		return err
	}
	return b.Steps(p).Install(name)
}

// preflight enforces the fail-fast checks shared by both modes: never run
// privileged, and only run on a platform with a known package manager.
func (b *Bootstrap) preflight() (platform.Platform, error) {
	if err := b.Guard(); err != nil {
		return "", err
	}
	p, err := b.Detect()
	if err != nil {
		return "", err
	}
	logger.Debug("[DEBUG] Detected platform: %s\n", p)
	return p, nil
}

// installPackages runs the platform's package-manager invocations in order.
// The sequence stops at the first failure: the later invocations assume the
// earlier ones (index refresh, then install) succeeded.
func (b *Bootstrap) installPackages(p platform.Platform) error {
	invs, err := pkgset.Plan(p, b.Packages)
	if err != nil {
		return err
	}
	logger.Info("[INFO] Installing packages (%s)...\n", p)
	for _, inv := range invs {
		if err := b.Run(inv); err != nil {
			return err
		}
	}
	return nil
}

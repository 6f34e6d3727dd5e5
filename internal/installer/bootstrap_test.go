package installer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devstrap/internal/config"
	"devstrap/internal/platform"
	"devstrap/internal/runner"
	"devstrap/internal/steps"
)

type fakeStep struct {
	name      string
	installed bool
	err       error
	runs      int
	onRun     func()
}

func (f *fakeStep) Name() string    { return f.name }
func (f *fakeStep) Installed() bool { return f.installed }
func (f *fakeStep) Run() error {
	f.runs++
	if f.onRun != nil {
		f.onRun()
	}
	return f.err
}

type fakeSwitcher struct {
	changed bool
	err     error
	calls   int
}

func (s *fakeSwitcher) Ensure() (bool, error) {
	s.calls++
	return s.changed, s.err
}

// harness assembles a Bootstrap over fakes and records every package-manager
// invocation plus the order phases fire in.
type harness struct {
	boot     *Bootstrap
	invs     []runner.Invocation
	order    []string
	sw       *fakeSwitcher
	runErr   func(inv runner.Invocation) error
	guardErr error
	detected platform.Platform
}

func newHarness(stepList ...steps.Step) *harness {
	h := &harness{sw: &fakeSwitcher{}, detected: platform.Arch}
	reg := steps.NewRegistry()
	for _, s := range stepList {
		reg.Register(s)
	}
	h.boot = &Bootstrap{
		Guard: func() error { return h.guardErr },
		Detect: func() (platform.Platform, error) {
			if h.detected == "" {
				return "", platform.ErrUnsupported
			}
			return h.detected, nil
		},
		Run: func(inv runner.Invocation) error {
			h.invs = append(h.invs, inv)
			h.order = append(h.order, "run:"+inv.Prefix)
			if h.runErr != nil {
				return h.runErr(inv)
			}
			return nil
		},
		Steps:    func(platform.Platform) *steps.Registry { return reg },
		Packages: config.Packages{Base: "git curl\n", Arch: "base-devel\n"},
		Switch:   h.sw,
	}
	return h
}

func (h *harness) mark(name string) func() {
	return func() { h.order = append(h.order, "step:"+name) }
}

func TestInstallAllHappyPath(t *testing.T) {
	h := newHarness(
		&fakeStep{name: "a", installed: true},
		&fakeStep{name: "b"},
	)

	rep, err := h.boot.InstallAll()
	require.NoError(t, err)

	assert.True(t, rep.OK())
	assert.Equal(t, platform.Arch, rep.Platform)
	assert.Empty(t, rep.Failures())

	// One pacman transaction for the merged base+arch tiers.
	require.Len(t, h.invs, 1)
	assert.Equal(t, "sudo", h.invs[0].Name)
	assert.Equal(t,
		[]string{"pacman", "-Syu", "--needed", "--noconfirm", "git", "curl", "base-devel"},
		h.invs[0].Args)

	assert.Equal(t, 1, h.sw.calls)

	installed, skipped := rep.Steps.Counts()
	assert.Equal(t, 1, installed)
	assert.Equal(t, 1, skipped)
}

func TestInstallAllRunsPhasesInOrder(t *testing.T) {
	h := newHarness()
	h.boot.Steps = func(platform.Platform) *steps.Registry {
		reg := steps.NewRegistry()
		reg.Register(&fakeStep{name: "x", onRun: h.mark("x")})
		reg.Register(&fakeStep{name: "y", onRun: h.mark("y")})
		return reg
	}

	_, err := h.boot.InstallAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"run:pacman", "step:x", "step:y"}, h.order,
		"packages run before steps, steps in registration order")
}

func TestInstallAllGuardFailureIsFatal(t *testing.T) {
	s := &fakeStep{name: "a"}
	h := newHarness(s)
	h.guardErr = platform.ErrRunningAsRoot

	_, err := h.boot.InstallAll()
	require.ErrorIs(t, err, platform.ErrRunningAsRoot)

	assert.Empty(t, h.invs, "nothing may be attempted after a failed guard")
	assert.Zero(t, s.runs)
	assert.Zero(t, h.sw.calls)
}

func TestInstallAllDetectFailureIsFatal(t *testing.T) {
	s := &fakeStep{name: "a"}
	h := newHarness(s)
	h.detected = ""

	_, err := h.boot.InstallAll()
	require.ErrorIs(t, err, platform.ErrUnsupported)

	assert.Empty(t, h.invs)
	assert.Zero(t, s.runs)
}

func TestInstallAllPackageFailureDoesNotStopSteps(t *testing.T) {
	s := &fakeStep{name: "a"}
	h := newHarness(s)
	boom := errors.New("mirror unreachable")
	h.runErr = func(runner.Invocation) error { return boom }

	rep, err := h.boot.InstallAll()
	require.NoError(t, err, "a package failure is recorded, not fatal")

	assert.ErrorIs(t, rep.PackagesErr, boom)
	assert.Zero(t, h.sw.calls, "shell switch depends on the package phase")
	assert.Equal(t, 1, s.runs, "steps still run after a package failure")
	assert.Equal(t, []string{"packages"}, rep.Failures())
	assert.False(t, rep.OK())
}

func TestInstallAllShellFailureDoesNotStopSteps(t *testing.T) {
	s := &fakeStep{name: "a"}
	h := newHarness(s)
	h.sw.err = errors.New("chsh denied")

	rep, err := h.boot.InstallAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"shell"}, rep.Failures())
	assert.Equal(t, 1, s.runs)
}

func TestInstallAllReportsShellChange(t *testing.T) {
	h := newHarness()
	h.sw.changed = true

	rep, err := h.boot.InstallAll()
	require.NoError(t, err)

	assert.True(t, rep.ShellChanged)
	assert.True(t, rep.OK(), "a shell change is a success, not a failure")
}

func TestInstallAllWithoutSwitcher(t *testing.T) {
	h := newHarness(&fakeStep{name: "a"})
	h.boot.Switch = nil

	rep, err := h.boot.InstallAll()
	require.NoError(t, err)
	assert.True(t, rep.OK())
}

// The canonical scenario: one step already satisfied, one that succeeds, one
// that fails. Everything is attempted and exactly the broken one is reported.
func TestInstallAllPartialFailure(t *testing.T) {
	a := &fakeStep{name: "a", installed: true}
	b := &fakeStep{name: "b"}
	c := &fakeStep{name: "c", err: errors.New("c broke")}
	h := newHarness(a, b, c)

	rep, err := h.boot.InstallAll()
	require.NoError(t, err)

	assert.Zero(t, a.runs, "already-installed steps are skipped")
	assert.Equal(t, 1, b.runs)
	assert.Equal(t, 1, c.runs)
	assert.Equal(t, []string{"c"}, rep.Failures())
	assert.False(t, rep.OK())

	installed, skipped := rep.Steps.Counts()
	assert.Equal(t, 1, installed)
	assert.Equal(t, 1, skipped)
}

func TestInstallSingleStep(t *testing.T) {
	a := &fakeStep{name: "a"}
	b := &fakeStep{name: "b"}
	h := newHarness(a, b)

	require.NoError(t, h.boot.Install("b"))

	assert.Zero(t, a.runs, "single-step mode must not touch other steps")
	assert.Equal(t, 1, b.runs)
	assert.Empty(t, h.invs, "single-step mode skips the package phase")
	assert.Zero(t, h.sw.calls)
}

func TestInstallSingleStepUnknown(t *testing.T) {
	h := newHarness(&fakeStep{name: "a"})

	err := h.boot.Install("carrots")
	require.ErrorIs(t, err, steps.ErrUnknownStep)
	assert.Empty(t, h.invs)
}

func TestInstallSingleStepFailureIsFatal(t *testing.T) {
	boom := errors.New("clone failed")
	h := newHarness(&fakeStep{name: "a", err: boom})

	require.ErrorIs(t, h.boot.Install("a"), boom)
}

func TestInstallSingleStepGuardFailure(t *testing.T) {
	s := &fakeStep{name: "a"}
	h := newHarness(s)
	h.guardErr = platform.ErrRunningAsRoot

	require.ErrorIs(t, h.boot.Install("a"), platform.ErrRunningAsRoot)
	assert.Zero(t, s.runs)
}

func TestReportFailuresOrder(t *testing.T) {
	rep := &Report{
		PackagesErr: errors.New("pkg"),
		ShellErr:    errors.New("sh"),
		Steps: steps.Summary{Results: []steps.Result{
			{Name: "ok", Status: steps.StatusInstalled},
			{Name: "bad", Status: steps.StatusFailed},
		}},
	}
	assert.Equal(t, []string{"packages", "shell", "bad"}, rep.Failures())
	assert.False(t, rep.OK())

	assert.True(t, (&Report{}).OK())
}

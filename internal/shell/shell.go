// Package shell converges the user's login shell on the configured default.
package shell

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"devstrap/internal/logger"
	"devstrap/internal/runner"
)

// Switcher changes the login shell to Target when it differs.
type Switcher struct {
	// Run executes the chsh invocation; the runner's Run in production.
	Run func(runner.Invocation) error
	// Target is the shell name, e.g. "zsh". Empty disables switching.
	Target string
	// Username is the account whose login shell is changed.
	Username string

	// lookup overrides the user-database query; tests point it at fixtures.
	lookup func() (string, error)
}

// Ensure makes the login shell match Target. It reports whether a change was
// made, so the caller knows to tell the user to restart their terminal.
func (s *Switcher) Ensure() (bool, error) {
	if s.Target == "" {
		return false, nil
	}

	current := s.loginShell()
	if filepath.Base(current) == s.Target {
		logger.Debug("[DEBUG] Login shell is already %s\n", s.Target)
		return false, nil
	}

	// The target binary comes from the package phase that ran just before
	// us; its absence means that phase was skipped or incomplete.
	path, err := exec.LookPath(s.Target)
	if err != nil {
		return false, fmt.Errorf("target shell %q not installed: %w", s.Target, err)
	}

	logger.Info("[INFO] Switching login shell from %s to %s\n", current, path)
	err = s.Run(runner.Invocation{
		Prefix: "chsh",
		Name:   "sudo",
		Args:   []string{"chsh", "-s", path, s.Username},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// loginShell resolves the account's shell from the user database. The SHELL
// variable goes stale the moment chsh runs, so it is only the fallback when
// the database is unreachable.
func (s *Switcher) loginShell() string {
	query := s.lookup
	if query == nil {
		query = s.userDBShell
	}
	if sh, err := query(); err == nil && sh != "" {
		return sh
	}
	return os.Getenv("SHELL")
}

// userDBShell asks the platform's account database for Username's login
// shell: dscl on macOS, getent elsewhere.
func (s *Switcher) userDBShell() (string, error) {
	if runtime.GOOS == "darwin" {
		out, err := exec.Command("dscl", ".", "-read", "/Users/"+s.Username, "UserShell").Output()
		if err != nil {
			return "", fmt.Errorf("dscl: %w", err)
		}
		return shellFromDscl(string(out)), nil
	}
	out, err := exec.Command("getent", "passwd", s.Username).Output()
	if err != nil {
		return "", fmt.Errorf("getent: %w", err)
	}
	return shellFromPasswd(string(out)), nil
}

// shellFromPasswd pulls the shell field out of a passwd(5) line.
func shellFromPasswd(line string) string {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) < 7 {
		return ""
	}
	return fields[6]
}

// shellFromDscl pulls the path out of dscl's "UserShell: /bin/zsh" record.
func shellFromDscl(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "UserShell:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "UserShell:"))
		}
	}
	return ""
}

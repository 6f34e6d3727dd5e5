// Package pkgset turns the layered package lists from the configuration into
// concrete package-manager invocations for the detected platform.
package pkgset

import (
	"fmt"
	"strings"

	"devstrap/internal/config"
	"devstrap/internal/platform"
	"devstrap/internal/runner"
)

// Resolve normalizes one raw package tier: '#' starts a comment running to
// the end of the line, blank lines vanish, and runs of whitespace collapse to
// a single space. The output is deterministic for a given input.
func Resolve(tier string) string {
	var names []string
	for _, line := range strings.Split(tier, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		names = append(names, strings.Fields(line)...)
	}
	return strings.Join(names, " ")
}

// merge resolves tiers in order and returns the combined package names,
// deduplicated on first occurrence so a package named in two tiers reaches
// the manager once.
func merge(tiers ...string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, tier := range tiers {
		for _, name := range strings.Fields(Resolve(tier)) {
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Plan builds the ordered package-manager invocations for a platform. The
// shape is fixed per platform: refresh or upgrade first, then install the
// merged base and platform tiers, and on Arch install the AUR tier through
// the configured helper as a final extension pass.
func Plan(p platform.Platform, pkgs config.Packages) ([]runner.Invocation, error) {
	switch p {
	case platform.Darwin:
		invs := []runner.Invocation{
			{Prefix: "brew", Name: "brew", Args: []string{"update"}},
		}
		if names := merge(pkgs.Base, pkgs.Darwin); len(names) > 0 {
			invs = append(invs, runner.Invocation{
				Prefix: "brew",
				Name:   "brew",
				Args:   append([]string{"install"}, names...),
			})
		}
		return invs, nil

	case platform.Arch:
		// -Syu with the package list upgrades the system and installs the
		// set in one transaction, which is how Arch wants it done.
		args := append([]string{"pacman", "-Syu", "--needed", "--noconfirm"},
			merge(pkgs.Base, pkgs.Arch)...)
		invs := []runner.Invocation{
			{Prefix: "pacman", Name: "sudo", Args: args},
		}
		if aur := merge(pkgs.Aur); len(aur) > 0 {
			helper := pkgs.AurHelper
			if helper == "" {
				helper = "paru"
			}
			// AUR helpers refuse to run as root and escalate on their
			// own, so no sudo here.
			invs = append(invs, runner.Invocation{
				Prefix: helper,
				Name:   helper,
				Args:   append([]string{"-S", "--needed", "--noconfirm"}, aur...),
			})
		}
		return invs, nil

	case platform.Debian:
		invs := []runner.Invocation{
			{Prefix: "apt", Name: "sudo", Args: []string{"apt-get", "update"}},
		}
		if names := merge(pkgs.Base, pkgs.Debian); len(names) > 0 {
			invs = append(invs, runner.Invocation{
				Prefix: "apt",
				Name:   "sudo",
				Args:   append([]string{"apt-get", "install", "-y"}, names...),
			})
		}
		return invs, nil
	}
	return nil, fmt.Errorf("%w: %s", platform.ErrUnsupported, p)
}

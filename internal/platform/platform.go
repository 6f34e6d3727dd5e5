// Package platform identifies which of the supported operating systems the
// bootstrap is running on and enforces the non-root precondition.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform is one of the closed set of supported targets.
type Platform string

const (
	Darwin Platform = "darwin"
	Arch   Platform = "arch"
	Debian Platform = "debian"
)

var (
	// ErrUnsupported is returned by Detect on anything outside the
	// supported set. Callers treat it as fatal: guessing a package
	// manager on an unknown distribution does more harm than stopping.
	ErrUnsupported = errors.New("unsupported platform")

	// ErrRunningAsRoot is returned by AssertNotRoot. The bootstrap
	// writes into $HOME and escalates selectively with sudo; running the
	// whole thing as root would litter root-owned files everywhere.
	ErrRunningAsRoot = errors.New("refusing to run as root")
)

// Detect resolves the current platform. On Linux it consults os-release to
// distinguish Arch-based from Debian-based distributions; the mapping itself
// lives in FromOSRelease.
func Detect() (Platform, error) {
	switch runtime.GOOS {
	case "darwin":
		return Darwin, nil
	case "linux":
		data, err := os.ReadFile("/etc/os-release")
		if err != nil {
			return "", fmt.Errorf("%w: cannot read /etc/os-release: %v", ErrUnsupported, err)
		}
		return FromOSRelease(string(data))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
}

// FromOSRelease maps an os-release body to a supported platform. Derivatives
// count via ID_LIKE, so e.g. Manjaro resolves to Arch and Ubuntu to Debian.
func FromOSRelease(body string) (Platform, error) {
	id, idLike := parseOSRelease(body)
	like := func(name string) bool {
		if id == name {
			return true
		}
		for _, l := range strings.Fields(idLike) {
			if l == name {
				return true
			}
		}
		return false
	}
	switch {
	case like("arch"):
		return Arch, nil
	case like("debian") || id == "ubuntu":
		return Debian, nil
	}
	return "", fmt.Errorf("%w: linux distribution %q", ErrUnsupported, id)
}

// parseOSRelease pulls the ID and ID_LIKE values out of an os-release body.
// Values may be bare or quoted per os-release(5).
func parseOSRelease(body string) (id, idLike string) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			id = strings.ToLower(value)
		case "ID_LIKE":
			idLike = strings.ToLower(value)
		}
	}
	return id, idLike
}

// AssertNotRoot fails when the effective user is root.
func AssertNotRoot() error {
	if os.Geteuid() == 0 {
		return ErrRunningAsRoot
	}
	return nil
}

// FontDir returns the per-user font directory for the platform.
func (p Platform) FontDir(home string) string {
	if p == Darwin {
		return filepath.Join(home, "Library", "Fonts")
	}
	return filepath.Join(home, ".local", "share", "fonts")
}

// Linux reports whether the platform is one of the Linux targets.
func (p Platform) Linux() bool {
	return p == Arch || p == Debian
}

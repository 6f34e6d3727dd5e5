package pkgset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devstrap/internal/config"
	"devstrap/internal/platform"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trailing comment and ragged whitespace",
			in:   "foo # comment\n  bar   baz \n",
			want: "foo bar baz",
		},
		{
			name: "whole-line comments dropped",
			in:   "# header\ngit\n  # indented comment\ncurl\n",
			want: "git curl",
		},
		{
			name: "blank lines dropped",
			in:   "\n\ngit\n\n\ncurl\n\n",
			want: "git curl",
		},
		{
			name: "tabs and multiple spaces collapse",
			in:   "git\t\tcurl    wget\n",
			want: "git curl wget",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "comments only",
			in:   "# a\n# b\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in))
			// Resolving is pure; a second pass gives the same answer.
			assert.Equal(t, tt.want, Resolve(tt.in))
		})
	}
}

func TestPlanDarwin(t *testing.T) {
	pkgs := config.Packages{
		Base:   "git curl\n",
		Darwin: "coreutils # gnu\n",
		Arch:   "base-devel\n", // other platforms' tiers must not leak in
		Aur:    "paru-bin\n",
	}

	invs, err := Plan(platform.Darwin, pkgs)
	require.NoError(t, err)
	require.Len(t, invs, 2)

	assert.Equal(t, "brew", invs[0].Name)
	assert.Equal(t, []string{"update"}, invs[0].Args)
	assert.Equal(t, "brew", invs[1].Name)
	assert.Equal(t, []string{"install", "git", "curl", "coreutils"}, invs[1].Args)
}

func TestPlanArchWithAur(t *testing.T) {
	pkgs := config.Packages{
		Base:      "git\n",
		Arch:      "base-devel\n",
		Aur:       "nerd-fonts-jetbrains-mono\n",
		AurHelper: "yay",
	}

	invs, err := Plan(platform.Arch, pkgs)
	require.NoError(t, err)
	require.Len(t, invs, 2)

	assert.Equal(t, "sudo", invs[0].Name)
	assert.Equal(t, []string{"pacman", "-Syu", "--needed", "--noconfirm", "git", "base-devel"}, invs[0].Args)
	assert.Equal(t, "pacman", invs[0].Prefix)

	assert.Equal(t, "yay", invs[1].Name)
	assert.Equal(t, []string{"-S", "--needed", "--noconfirm", "nerd-fonts-jetbrains-mono"}, invs[1].Args)
}

func TestPlanArchWithoutAur(t *testing.T) {
	pkgs := config.Packages{Base: "git\n", Aur: "# nothing enabled\n"}

	invs, err := Plan(platform.Arch, pkgs)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "sudo", invs[0].Name)
}

func TestPlanDebian(t *testing.T) {
	pkgs := config.Packages{Base: "git curl\n", Debian: "build-essential\n"}

	invs, err := Plan(platform.Debian, pkgs)
	require.NoError(t, err)
	require.Len(t, invs, 2)

	assert.Equal(t, []string{"apt-get", "update"}, invs[0].Args)
	assert.Equal(t, []string{"apt-get", "install", "-y", "git", "curl", "build-essential"}, invs[1].Args)
	assert.Equal(t, "apt", invs[1].Prefix)
}

func TestPlanDeduplicatesAcrossTiers(t *testing.T) {
	pkgs := config.Packages{
		Base:   "git curl git\n",
		Debian: "curl build-essential\n",
	}

	invs, err := Plan(platform.Debian, pkgs)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, []string{"apt-get", "install", "-y", "git", "curl", "build-essential"},
		invs[1].Args, "a package named twice reaches the manager once, first occurrence wins")
}

func TestPlanEmptyTiers(t *testing.T) {
	invs, err := Plan(platform.Darwin, config.Packages{})
	require.NoError(t, err)
	// Index refresh still happens; there is just nothing to install.
	require.Len(t, invs, 1)
	assert.Equal(t, []string{"update"}, invs[0].Args)
}

func TestPlanUnsupported(t *testing.T) {
	_, err := Plan(platform.Platform("freebsd"), config.Packages{})
	require.ErrorIs(t, err, platform.ErrUnsupported)
}

func TestPlanDeterministic(t *testing.T) {
	pkgs := config.Packages{Base: "git curl wget\n", Arch: "openssh\n", Aur: "spotify\n"}

	a, err := Plan(platform.Arch, pkgs)
	require.NoError(t, err)
	b, err := Plan(platform.Arch, pkgs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the test from picking up the developer's real environment.
func isolate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DEVSTRAP_CONFIG", "")
	t.Setenv("DEVSTRAP_SHELL", "")
	t.Setenv("DEVSTRAP_AUR_HELPER", "")
	t.Setenv("DEVSTRAP_FONT_FAMILY", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Packages.Base)
	assert.Equal(t, "zsh", cfg.Shell.Default)
	assert.Equal(t, "paru", cfg.Packages.AurHelper)
	assert.Equal(t, "JetBrainsMono", cfg.Fonts.Family)
	assert.Equal(t, "ryanoasis/nerd-fonts", cfg.Fonts.Release.Repo)
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
packages:
  base: |
    git
  aur_helper: yay
shell:
  default: fish
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "git\n", cfg.Packages.Base)
	assert.Equal(t, "fish", cfg.Shell.Default)
	assert.Equal(t, "yay", cfg.Packages.AurHelper)
	// Fields absent from the file stay zero; defaults only apply to the
	// built-in config, not per-field.
	assert.Empty(t, cfg.Fonts.Family)
}

func TestLoadFileFromEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shell:\n  default: bash\n"), 0o644))
	t.Setenv("DEVSTRAP_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bash", cfg.Shell.Default)
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DEVSTRAP_SHELL", "fish")
	t.Setenv("DEVSTRAP_AUR_HELPER", "yay")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fish", cfg.Shell.Default)
	assert.Equal(t, "yay", cfg.Packages.AurHelper)
}

func TestEnvFileDoesNotOverrideRealEnv(t *testing.T) {
	confDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confDir)
	t.Setenv("DEVSTRAP_CONFIG", "")
	t.Setenv("DEVSTRAP_AUR_HELPER", "")
	t.Setenv("DEVSTRAP_FONT_FAMILY", "")

	require.NoError(t, os.MkdirAll(filepath.Join(confDir, "devstrap"), 0o755))
	envFile := filepath.Join(confDir, "devstrap", "env")
	require.NoError(t, os.WriteFile(envFile, []byte("DEVSTRAP_SHELL=tcsh\n"), 0o644))

	// Real environment wins over the env file.
	t.Setenv("DEVSTRAP_SHELL", "fish")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fish", cfg.Shell.Default)
}

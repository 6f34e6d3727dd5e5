package steps

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"devstrap/internal/archive"
	"devstrap/internal/config"
	"devstrap/internal/fetch"
	"devstrap/internal/logger"
	"devstrap/internal/platform"
	"devstrap/internal/runner"
)

// DefaultRegistry wires up the built-in steps in their canonical order.
func DefaultRegistry(run RunFunc, home string, plat platform.Platform, cfg *config.Config, fetcher *fetch.Fetcher) *Registry {
	r := NewRegistry()
	r.Register(&rustStep{run: run, home: home})
	r.Register(&nvmStep{run: run, home: home, tag: cfg.Tools.NvmTag})
	r.Register(&fzfStep{run: run, home: home})
	r.Register(&tmuxStep{run: run, home: home})
	r.Register(&editorStep{run: run})
	r.Register(&fontsStep{run: run, home: home, plat: plat, cfg: cfg.Fonts, fetcher: fetcher})
	return r
}

// BuiltinNames lists the names DefaultRegistry registers, for help text.
func BuiltinNames() []string {
	return DefaultRegistry(nil, "", "", &config.Config{}, nil).Names()
}

// rustStep keeps the Rust toolchain current. rustup has no cheap "everything
// is installed" check, so the step runs every time: update when rustup is
// present, bootstrap through the official installer when it is not.
type rustStep struct {
	run  RunFunc
	home string
}

func (*rustStep) Name() string    { return "rust" }
func (*rustStep) Installed() bool { return false }

func (s *rustStep) Run() error {
	if path, ok := s.rustup(); ok {
		return s.run(runner.Invocation{Prefix: "rustup", Name: path, Args: []string{"update"}})
	}
	return s.run(runner.Invocation{
		Prefix: "rustup",
		Name:   "sh",
		Args: []string{"-c",
			"curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y --no-modify-path"},
	})
}

// rustup resolves the rustup binary from PATH or the default cargo home,
// which is not on PATH until the user's next login.
func (s *rustStep) rustup() (string, bool) {
	if path, err := exec.LookPath("rustup"); err == nil {
		return path, true
	}
	local := filepath.Join(s.home, ".cargo", "bin", "rustup")
	if fileExists(local) {
		return local, true
	}
	return "", false
}

// nvmStep clones nvm at a pinned tag. Presence of nvm.sh is the marker.
type nvmStep struct {
	run  RunFunc
	home string
	tag  string
}

func (*nvmStep) Name() string { return "nvm" }

func (s *nvmStep) Installed() bool {
	return fileExists(filepath.Join(s.home, ".nvm", "nvm.sh"))
}

func (s *nvmStep) Run() error {
	args := []string{"clone", "--depth", "1"}
	if s.tag != "" {
		args = append(args, "--branch", s.tag)
	}
	args = append(args, "https://github.com/nvm-sh/nvm.git", filepath.Join(s.home, ".nvm"))
	return s.run(runner.Invocation{Prefix: "nvm", Name: "git", Args: args})
}

// fzfStep installs fzf from source. The bundled installer is interactive, so
// its prompts are answered through stdin: key bindings yes, completion yes,
// rc-file updates no (dotfiles own those).
type fzfStep struct {
	run  RunFunc
	home string
}

func (*fzfStep) Name() string { return "fzf" }

func (s *fzfStep) Installed() bool {
	return fileExists(filepath.Join(s.home, ".fzf", "bin", "fzf"))
}

func (s *fzfStep) Run() error {
	dir := filepath.Join(s.home, ".fzf")
	if !dirExists(dir) {
		err := s.run(runner.Invocation{
			Prefix: "fzf",
			Name:   "git",
			Args:   []string{"clone", "--depth", "1", "https://github.com/junegunn/fzf.git", dir},
		})
		if err != nil {
			return err
		}
	}
	return s.run(runner.Invocation{
		Prefix: "fzf",
		Name:   filepath.Join(dir, "install"),
		Stdin:  "y\ny\nn\n",
	})
}

// tmuxStep installs tpm and then the plugins tpm manages.
type tmuxStep struct {
	run  RunFunc
	home string
}

func (*tmuxStep) Name() string { return "tmux-plugins" }

func (s *tmuxStep) Installed() bool {
	return dirExists(filepath.Join(s.home, ".tmux", "plugins", "tpm"))
}

func (s *tmuxStep) Run() error {
	dir := filepath.Join(s.home, ".tmux", "plugins", "tpm")
	if err := s.run(runner.Invocation{
		Prefix: "tpm",
		Name:   "git",
		Args:   []string{"clone", "--depth", "1", "https://github.com/tmux-plugins/tpm", dir},
	}); err != nil {
		return err
	}
	return s.run(runner.Invocation{
		Prefix: "tpm",
		Name:   filepath.Join(dir, "bin", "install_plugins"),
	})
}

// editorStep syncs editor plugins headlessly. Plugin state is derived from
// the user's editor config, so there is no reliable installed-marker and the
// step runs every time. A machine with neither editor is fine; the step then
// has nothing to do.
type editorStep struct {
	run RunFunc
}

func (*editorStep) Name() string    { return "editor-plugins" }
func (*editorStep) Installed() bool { return false }

func (s *editorStep) Run() error {
	if _, err := exec.LookPath("nvim"); err == nil {
		return s.run(runner.Invocation{
			Prefix: "nvim",
			Name:   "nvim",
			Args:   []string{"--headless", "+Lazy! sync", "+qa"},
		})
	}
	if _, err := exec.LookPath("vim"); err == nil {
		return s.run(runner.Invocation{
			Prefix: "vim",
			Name:   "vim",
			Args:   []string{"-es", "-i", "NONE", "-c", "PlugInstall --sync", "-c", "qa"},
		})
	}
	logger.Warn("[WARN] Neither nvim nor vim on PATH; no plugins to sync\n")
	return nil
}

// fontsStep downloads the configured font release and installs its font
// files into the platform's per-user font directory.
type fontsStep struct {
	run     RunFunc
	home    string
	plat    platform.Platform
	cfg     config.Fonts
	fetcher *fetch.Fetcher
}

func (*fontsStep) Name() string { return "fonts" }

// Installed scans the font directory for any file of the configured family.
func (s *fontsStep) Installed() bool {
	if s.cfg.Family == "" {
		return false
	}
	pattern := filepath.Join(s.plat.FontDir(s.home), "*"+s.cfg.Family+"*")
	matches, err := filepath.Glob(pattern)
	return err == nil && len(matches) > 0
}

func (s *fontsStep) Run() error {
	rel := s.cfg.Release
	url, err := s.fetcher.ResolveAsset(rel.Repo, rel.Tag, rel.Asset)
	if err != nil {
		return err
	}
	archivePath, err := s.fetcher.Download(url, rel.Asset, rel.B3Sum)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "devstrap-fonts-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if _, err := archive.Extract(archivePath, tmp); err != nil {
		return err
	}

	fontDir := s.plat.FontDir(s.home)
	installed := 0
	err = filepath.WalkDir(tmp, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf":
		default:
			return nil
		}
		if err := copyFile(path, filepath.Join(fontDir, d.Name()), 0o644); err != nil {
			return err
		}
		installed++
		return nil
	})
	if err != nil {
		return err
	}
	if installed == 0 {
		return fmt.Errorf("release asset %s contained no font files", rel.Asset)
	}
	logger.Info("[INFO] Installed %d font file(s) to %s\n", installed, fontDir)

	// Linux font caches do not notice new files on their own. A missing or
	// failing fc-cache is tolerable; the cache rebuilds on next login.
	if s.plat.Linux() {
		if _, err := exec.LookPath("fc-cache"); err == nil {
			if err := s.run(runner.Invocation{Prefix: "fc-cache", Name: "fc-cache", Args: []string{"-f"}}); err != nil {
				logger.Warn("[WARN] fc-cache failed: %v\n", err)
			}
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyFile copies src to dst, creating missing parent directories. A non-zero
// modeOverride replaces the source permissions.
func copyFile(src, dst string, modeOverride os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	mode := modeOverride
	if mode == 0 {
		info, err := in.Stat()
		if err != nil {
			return fmt.Errorf("stat source: %w", err)
		}
		mode = info.Mode().Perm()
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}

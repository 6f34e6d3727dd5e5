package config

// Packages holds the layered package lists handed to the platform's package
// manager. Each tier is a raw newline-separated list; lines may be blank or
// carry '#' comments, and a single line may name several packages. The raw
// tiers are normalized by pkgset.Resolve before they reach a manager.
type Packages struct {
	// Base is installed on every platform.
	Base string `yaml:"base"`
	// Darwin, Arch and Debian extend Base on the matching platform.
	Darwin string `yaml:"darwin"`
	Arch   string `yaml:"arch"`
	Debian string `yaml:"debian"`
	// Aur is an Arch-only extension tier installed through AurHelper.
	Aur string `yaml:"aur"`
	// AurHelper names the AUR helper binary (e.g. paru, yay).
	AurHelper string `yaml:"aur_helper"`
}

// Shell configures the login-shell switch that runs after package installation.
type Shell struct {
	// Default is the shell the bootstrap converges on (e.g. "zsh").
	// Empty disables the switch.
	Default string `yaml:"default"`
}

// Release identifies one downloadable GitHub release asset.
type Release struct {
	Repo  string `yaml:"repo"`  // owner/name, e.g. ryanoasis/nerd-fonts
	Tag   string `yaml:"tag"`   // release tag, e.g. v3.2.1
	Asset string `yaml:"asset"` // exact asset file name within the release
	// B3Sum is the optional BLAKE3 hex digest of the asset. When set,
	// downloads are verified against it; when empty, verification is skipped.
	B3Sum string `yaml:"b3sum,omitempty"`
}

// Fonts configures the fonts step: which family to look for and which
// release archive provides it.
type Fonts struct {
	Family  string  `yaml:"family"`
	Release Release `yaml:"release"`
}

// Tools pins the versions used by the clone-based installer steps.
type Tools struct {
	// NvmTag is the git tag of nvm-sh/nvm to clone.
	NvmTag string `yaml:"nvm_tag"`
}

// Config is the top-level structure returned by Load.
type Config struct {
	Packages Packages `yaml:"packages"`
	Shell    Shell    `yaml:"shell"`
	Fonts    Fonts    `yaml:"fonts"`
	Tools    Tools    `yaml:"tools"`
}

package main

import (
	"devstrap/cmd" // Import the cmd package which contains the CLI commands and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// This design cleanly separates the CLI interface (cmd package) from main,
// allowing easier testing, extension, and reuse of the CLI commands.
//
// devstrap is a cross-platform bootstrap installer that brings a developer
// machine to a desired toolset:
//   - Installs the configured package set through the native package manager
//     (Homebrew on macOS, pacman plus an AUR helper on Arch, apt-get on Debian)
//   - Switches the login shell to the configured default once the packages
//     that provide it are in place
//   - Runs the per-tool steps (rust, nvm, fzf, tmux-plugins, editor-plugins,
//     fonts), each guarded by an idempotency check so re-runs only do the
//     work that is still missing
//
// Error handling strategy:
//   - Pre-flight failures (running as root, unrecognized platform) abort
//     before anything is attempted
//   - In a bulk run, one failing step never stops the independent steps
//     behind it; the run ends with a summary and a non-zero exit when
//     anything failed
//   - Successful commands stay quiet beyond a one-line confirmation; failing
//     ones show a bounded tail of their captured output
//
// Interruption:
//   - Ctrl-C flushes the in-flight command's captured output, removes its
//     temporary capture file and exits with 130 (128 + SIGINT), so no run
//     ever leaves artifacts behind
func main() {
	cmd.Execute()
}

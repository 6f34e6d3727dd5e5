package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"devstrap/internal/logger"
)

// debug indicates whether debug logging should be enabled.
// It can be toggled via the `--debug` command-line flag.
var debug bool

// configPath is the configuration file passed via `--config` or `-c`.
// Empty means the built-in defaults (or DEVSTRAP_CONFIG).
var configPath string

// rootCmd is the base command for the CLI tool `devstrap`.
// It sets up the root-level CLI structure and provides global flags.
var rootCmd = &cobra.Command{
	Use:   "devstrap",
	Short: "Developer machine bootstrap",

	// Failures are logged through the logger with their context attached;
	// cobra's own error/usage echo would only repeat them.
	SilenceUsage:  true,
	SilenceErrors: true,

	// PersistentPreRun is a hook that runs before any subcommand.
	// Here, we initialize the logger based on the debug flag.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug)
	},
}

// Execute initializes global flags and starts command execution. Any error
// that reaches this level is the run's final summary line; the exit code
// tells scripts whether the machine converged. (Interruption exits earlier,
// with 128 plus the signal number.)
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (built-in defaults when empty)")

	if err := rootCmd.Execute(); err != nil {
		logger.Error("[ERROR] %v\n", err)
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"devstrap/internal/config"
	"devstrap/internal/fetch"
	"devstrap/internal/installer"
	"devstrap/internal/logger"
	"devstrap/internal/pkgset"
	"devstrap/internal/platform"
	"devstrap/internal/runner"
	"devstrap/internal/shell"
	"devstrap/internal/steps"
)

// installCmd is the main entry point: bring the whole machine to the
// configured toolset, or run one named step.
var installCmd = &cobra.Command{
	Use:   "install [step]",
	Short: "Install the configured toolset, or a single named step",
	Long: "Without an argument, install brings the whole machine up to date:\n" +
		"native packages first, then the login shell, then every step below.\n" +
		"One step failing does not stop the others.\n\n" +
		"With a step name, only that step runs and its failure is fatal.\n\n" +
		"Steps: " + strings.Join(steps.BuiltinNames(), ", "),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		boot, err := newBootstrap()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return boot.Install(args[0])
		}
		rep, err := boot.InstallAll()
		if err != nil {
			return err
		}
		if fails := rep.Failures(); len(fails) > 0 {
			return fmt.Errorf("%d failure(s): %s", len(fails), strings.Join(fails, ", "))
		}
		return nil
	},
}

// listCmd prints the step names install accepts.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available steps",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range steps.BuiltinNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

// doctorCmd reports each step's installed state without changing anything.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report which steps are already satisfied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		p, err := platform.Detect()
		if err != nil {
			return err
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}

		logger.Info("[INFO] Platform: %s\n", p)
		// Probes are pure, so the registry needs neither a runner nor a
		// fetcher here.
		reg := steps.DefaultRegistry(nil, home, p, cfg, nil)
		for _, name := range reg.Names() {
			step, _ := reg.Lookup(name)
			if step.Installed() {
				logger.Info("[INFO] %-14s installed\n", name)
			} else {
				logger.Warn("[WARN] %-14s not installed\n", name)
			}
		}
		return nil
	},
}

// packagesCmd shows the package-manager commands a bulk install would run.
var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Print the package-manager commands a bulk install would run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		p, err := platform.Detect()
		if err != nil {
			return err
		}
		invs, err := pkgset.Plan(p, cfg.Packages)
		if err != nil {
			return err
		}
		for _, inv := range invs {
			fmt.Fprintln(cmd.OutOrStdout(), inv.String())
		}
		return nil
	},
}

// newBootstrap loads the configuration and wires the dependency graph of a
// real run: interrupt coordinator, command runner, fetcher, step registry.
func newBootstrap() (*installer.Bootstrap, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	usr, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}
	fetcher, err := fetch.New()
	if err != nil {
		return nil, err
	}

	// Arm the interrupt handler before the first child process can start.
	coord := runner.NewCoordinator()
	coord.Notify()
	run := runner.New(context.Background(), coord)

	return &installer.Bootstrap{
		Guard:  platform.AssertNotRoot,
		Detect: platform.Detect,
		Run:    run.Run,
		Steps: func(p platform.Platform) *steps.Registry {
			return steps.DefaultRegistry(run.Run, home, p, cfg, fetcher)
		},
		Packages: cfg.Packages,
		Switch: &shell.Switcher{
			Run:      run.Run,
			Target:   cfg.Shell.Default,
			Username: usr.Username,
		},
	}, nil
}

// init adds the subcommands to the root command.
func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(packagesCmd)
}

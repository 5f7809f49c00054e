package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/idrisfallout/artemis-installer/internal/service/setup"
	"github.com/idrisfallout/artemis-installer/internal/version"
)

var (
	// silent skips the confirmation prompt for unattended runs.
	silent bool

	// bundlePath overrides the payload location; empty means this executable.
	bundlePath string

	// rootCmd represents the installer itself: running the produced
	// executable with no arguments performs the install.
	rootCmd = &cobra.Command{
		Use:   "artemis-setup",
		Short: "Install the packaged application on this machine",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return setup.Run(ctx, setupOptions())
		},
	}

	// uninstallCmd applies the exact inverse of a previous install.
	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Remove a previous install of the packaged application",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return setup.Uninstall(ctx, setupOptions())
		},
	}
)

func setupOptions() *setup.Options {
	return &setup.Options{
		BundlePath: bundlePath,
		Silent:     silent,
	}
}

// Execute runs the artemis-setup CLI and exits with the install error taxonomy's
// status code on failure.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(setup.ExitCode(err))
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().BoolVarP(&silent, "silent", "s",
		false, "run without confirmation prompts")
	rootCmd.PersistentFlags().StringVar(&bundlePath, "bundle",
		"", "path to an installer bundle (default: this executable)")

	rootCmd.AddCommand(uninstallCmd)
}

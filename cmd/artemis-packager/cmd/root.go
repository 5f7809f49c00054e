package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/idrisfallout/artemis-installer/internal/config"
	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
	"github.com/idrisfallout/artemis-installer/internal/service/packager"
	"github.com/idrisfallout/artemis-installer/internal/version"
)

var (
	// manifestPath to the install manifest YAML file.
	manifestPath string

	// outputPath overrides the derived installer file name.
	outputPath string

	// rootCmd represents the base command for generating an installer.
	rootCmd = &cobra.Command{
		Use:   "artemis-packager [stub-executable]",
		Short: "Package a release into a self-contained Windows installer",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ManifestPath: manifestPath,
				StubPath:     args[0],
				OutputPath:   outputPath,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the artemis-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes input validation failures, which a release engineer
// fixes by editing the manifest, from everything else.
func exitCode(err error) int {
	var validationErr *packager.ValidationError

	if errors.As(err, &validationErr) || errors.Is(err, scope.ErrAmbiguousScopeToken) {
		return 2
	}

	return 1
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m",
		config.DefaultManifestFilename, "path to install manifest file")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o",
		"", "installer output path (default: <app>-setup-<version>.exe next to the manifest)")
}

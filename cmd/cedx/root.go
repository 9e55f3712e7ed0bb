package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cedx/internal/slogutil"
	"cedx/internal/version"
)

var (
	// rootFlag is the project directory holding .cedx/; defaults to the working directory.
	rootFlag   string
	verbosity  int
	quietFlag  bool
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cedx",
	Short: "cedx - cadastral edit-history exchange",
	Long: `cedx turns the edit history of a cadastral drawing into a self-contained
exchange package: every entity created or changed by a live operation becomes an
item with a fresh id, and every location an item depends on is backed by a point,
synthesized where the drawing has none.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("cedx version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman), "Output format (json, human)")
}

// resolveRoot returns the --root flag value, falling back to the working directory.
func resolveRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	return os.Getwd()
}

// cliLevel returns the log level requested on the command line, or nil when
// neither -v nor --quiet was given so that config decides.
func cliLevel() *slog.Level {
	if verbosity == 0 && !quietFlag {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quietFlag)
	return &level
}

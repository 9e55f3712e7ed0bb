package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cedx/internal/config"
	"cedx/internal/errors"
	"cedx/internal/paths"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cedx configuration",
	Long:  "Creates a .cedx/ directory with the default configuration in the project directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return errors.New(errors.InternalError, "cannot determine project directory", err)
	}
	out := cmd.OutOrStdout()

	configPath := filepath.Join(paths.GetDataDir(root), "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Already initialized is success.
		fmt.Fprintln(out, "cedx already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", configPath)
		fmt.Fprintln(out, "\nRun 'cedx init --force' to reset it to the defaults.")
		return nil
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return errors.New(errors.InternalError, "failed to write config file", err)
	}
	if _, err := paths.EnsureDir(paths.GetExportsDir(root)); err != nil {
		return errors.New(errors.InternalError, "failed to create exports directory", err)
	}

	fmt.Fprintln(out, "cedx initialized successfully!")
	fmt.Fprintf(out, "Configuration written to: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'cedx import <fixture>' to load a document")
	fmt.Fprintln(out, "  2. Run 'cedx export <document>' to create an exchange package")
	return nil
}

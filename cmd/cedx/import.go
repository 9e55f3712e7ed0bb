package main

import (
	"time"

	"github.com/spf13/cobra"

	"cedx/internal/document"
	"cedx/internal/errors"
	"cedx/internal/fixture"
)

var importCmd = &cobra.Command{
	Use:   "import <fixture>",
	Short: "Import a document into the store",
	Long: `Reads a document from a .yaml, .yml, .toml or .json file and stores it
under its document name, replacing any earlier import of the same name.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// ImportResponseCLI reports an imported document
type ImportResponseCLI struct {
	Document string          `json:"document"`
	Source   string          `json:"source"`
	Counts   document.Counts `json:"counts"`
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := fixture.Load(args[0])
	if err != nil {
		return errors.New(errors.DataIntegrity, "cannot import "+args[0], err)
	}
	if err := a.openStore(); err != nil {
		return err
	}
	if err := a.docs.Save(cmd.Context(), snap, time.Now()); err != nil {
		return errors.New(errors.InternalError, "cannot store document", err)
	}
	a.logger.Info("document imported", "document", snap.Name(), "source", args[0])

	return writeResponse(cmd.OutOrStdout(), &ImportResponseCLI{
		Document: snap.Name(),
		Source:   args[0],
		Counts:   snap.Counts(),
	})
}

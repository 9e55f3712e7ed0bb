package main

import (
	"github.com/spf13/cobra"

	"cedx/internal/storage"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List imported documents",
	Args:    cobra.NoArgs,
	RunE:    runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}

// DocumentsResponseCLI lists stored documents
type DocumentsResponseCLI struct {
	Documents []storage.DocumentInfo `json:"documents"`
}

func runDocuments(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openStore(); err != nil {
		return err
	}
	docs, err := a.docs.List(cmd.Context())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []storage.DocumentInfo{}
	}
	return writeResponse(cmd.OutOrStdout(), &DocumentsResponseCLI{Documents: docs})
}

package main

import (
	"github.com/spf13/cobra"

	"cedx/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history <document>",
	Short: "Show the export history of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

// HistoryResponseCLI lists recorded exports
type HistoryResponseCLI struct {
	Document string                 `json:"document"`
	Exports  []storage.ExportRecord `json:"exports"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openStore(); err != nil {
		return err
	}
	records, err := a.exports.ListByDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if records == nil {
		records = []storage.ExportRecord{}
	}
	return writeResponse(cmd.OutOrStdout(), &HistoryResponseCLI{Document: args[0], Exports: records})
}

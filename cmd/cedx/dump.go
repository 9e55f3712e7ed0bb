package main

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"cedx/internal/errors"
	"cedx/internal/fixture"
)

var (
	dumpAs  string
	dumpOut string
)

var dumpCmd = &cobra.Command{
	Use:   "dump <document>",
	Short: "Write a stored document back out as a fixture file",
	Long: `Writes a stored document in the fixture format accepted by 'cedx import'.
The format is taken from --as, or from the extension of --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpAs, "as", "", "Output format: yaml, toml or json (default yaml)")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	format := fixture.Format(dumpAs)
	if format == "" {
		format = fixture.FormatYAML
		if dumpOut != "" {
			f, err := fixture.FormatFromPath(dumpOut)
			if err != nil {
				return err
			}
			format = f
		}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openStore(); err != nil {
		return err
	}
	snap, err := a.docs.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := fixture.FromSnapshot(snap).Encode(&buf, format); err != nil {
		return err
	}
	if dumpOut == "" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(dumpOut, buf.Bytes(), 0644); err != nil {
		return errors.New(errors.InternalError, "cannot write "+dumpOut, err)
	}
	a.logger.Info("document dumped", "document", snap.Name(), "path", dumpOut)
	return nil
}

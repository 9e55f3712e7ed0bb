package main

import (
	stderrors "errors"

	"github.com/spf13/cobra"

	"cedx/internal/errors"
	"cedx/internal/exchange"
	"cedx/internal/export"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <dump>",
	Short: "Check a package dump",
	Long: `Reads a package dump (plain or .zst) and checks that ids are unique, that
every location an item depends on resolves to an exported point, and that
items are in timestamp order with extra points last.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// VerifyResponseCLI reports the outcome of a dump check
type VerifyResponseCLI struct {
	Path     string          `json:"path"`
	Valid    bool            `json:"valid"`
	Problems []string        `json:"problems,omitempty"`
	Summary  *export.Summary `json:"summary,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	pkg, err := exchange.ReadFile(args[0])
	if err != nil {
		return errors.New(errors.PackageInvalid, "cannot read "+args[0], err)
	}

	resp := &VerifyResponseCLI{
		Path:    args[0],
		Valid:   true,
		Summary: export.Summarize(pkg),
	}
	verr := export.Verify(pkg)
	if verr != nil {
		resp.Valid = false
		var ce *errors.CedxError
		if stderrors.As(verr, &ce) {
			resp.Problems, _ = ce.Details.([]string)
		}
	}

	if err := writeResponse(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	return verr
}

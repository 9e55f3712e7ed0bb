package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"cedx/internal/config"
	"cedx/internal/errors"
	"cedx/internal/exchange"
	"cedx/internal/export"
	"cedx/internal/paths"
)

var (
	exportTolerance     float64
	exportFirstID       uint32
	exportContinueIDs   bool
	exportCompress      bool
	exportDiagnosticLog bool
	exportOut           string
	exportNoDump        bool
)

var exportCmd = &cobra.Command{
	Use:   "export <document>",
	Short: "Create an exchange package for a stored document",
	Long: `Builds the exchange package for a document: every entity created or changed
by a live operation, in timestamp order, followed by the extra points that back
locations no exported point covers.

The package is written as a JSON dump under .cedx/exports/ and recorded in the
document's export history.

Examples:
  cedx export parcel-7
  cedx export parcel-7 --tolerance 0.005 --compress
  cedx export parcel-7 --continue-ids --out parcel-7.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Float64Var(&exportTolerance, "tolerance", 0, "Coincidence tolerance in metres (default from config)")
	exportCmd.Flags().Uint32Var(&exportFirstID, "first-id", 0, "First export id (default from config)")
	exportCmd.Flags().BoolVar(&exportContinueIDs, "continue-ids", false, "Continue ids after the document's previous exports")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "Write the dump zstd-compressed")
	exportCmd.Flags().BoolVar(&exportDiagnosticLog, "diagnostic-log", false, "Write a per-export diagnostic log")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Dump path (default .cedx/exports/<document>-<session>.json)")
	exportCmd.Flags().BoolVar(&exportNoDump, "no-dump", false, "Do not write a dump file")
	rootCmd.AddCommand(exportCmd)
}

// ExportResponseCLI reports a finished export
type ExportResponseCLI struct {
	Document  string         `json:"document"`
	SessionID string         `json:"sessionId"`
	Machine   string         `json:"machine"`
	Tolerance float64        `json:"tolerance"`
	Items     int            `json:"items"`
	FirstID   uint32         `json:"firstId,omitempty"`
	LastID    uint32         `json:"lastId,omitempty"`
	ByKind    map[string]int `json:"byKind"`
	Stats     export.Stats   `json:"stats"`
	Path      string         `json:"path,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Export
	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		cfg.Tolerance = exportTolerance
	}
	if flags.Changed("first-id") {
		cfg.FirstID = exportFirstID
	}
	if flags.Changed("continue-ids") {
		cfg.ContinueIDs = exportContinueIDs
	}
	if flags.Changed("compress") {
		cfg.Compress = exportCompress
	}
	if flags.Changed("diagnostic-log") {
		cfg.DiagnosticLog = exportDiagnosticLog
	}
	if !config.ValidTolerance(cfg.Tolerance) {
		return errors.Newf(errors.ConfigInvalid, "tolerance must be a finite, non-negative distance, got %g", cfg.Tolerance)
	}
	if cfg.FirstID == 0 {
		return errors.Newf(errors.ConfigInvalid, "first id must be at least 1")
	}

	if err := a.openStore(); err != nil {
		return err
	}
	ctx := cmd.Context()

	snap, err := a.docs.Load(ctx, args[0])
	if err != nil {
		return err
	}

	pkg, err := a.newExporter(ctx, cfg).CreateExport(ctx, snap)
	if err != nil {
		return err
	}

	resp := &ExportResponseCLI{
		Document:  pkg.Document,
		SessionID: pkg.SessionID,
		Machine:   pkg.Machine,
		Tolerance: pkg.Tolerance,
		Items:     len(pkg.Items),
		Stats:     pkg.Stats,
	}
	resp.FirstID, resp.LastID = pkg.IDRange()
	resp.ByKind = export.Summarize(pkg).ByKind

	if !exportNoDump {
		resp.Path = exportOut
		if resp.Path == "" {
			resp.Path = paths.GetExportPath(a.root, pkg.Document, pkg.SessionID, cfg.Compress)
		} else if cfg.Compress && !exchange.IsCompressed(resp.Path) {
			resp.Path += exchange.CompressedExt
		}
	}
	if err := saveExport(ctx, resp.Path, pkg, a.exports.Record); err != nil {
		return err
	}

	return writeResponse(cmd.OutOrStdout(), resp)
}

// saveExport writes the package dump to path, unless path is empty, and
// records pkg in the export history. The dump is removed if recording fails.
func saveExport(ctx context.Context, path string, pkg *export.Package, record func(context.Context, *export.Package) error) error {
	if path != "" {
		if err := exchange.WriteFile(path, pkg); err != nil {
			return errors.New(errors.InternalError, "cannot write package dump", err)
		}
	}
	if err := record(ctx, pkg); err != nil {
		if path != "" {
			_ = os.Remove(path)
		}
		return errors.New(errors.InternalError, "cannot record export history", err)
	}
	return nil
}

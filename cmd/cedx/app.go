package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"cedx/internal/config"
	"cedx/internal/errors"
	"cedx/internal/export"
	"cedx/internal/idalloc"
	"cedx/internal/slogutil"
	"cedx/internal/storage"
)

// app bundles what a command needs: configuration, loggers and the store.
type app struct {
	root    string
	cfg     *config.Config
	factory *slogutil.LoggerFactory
	logger  *slog.Logger
	db      *storage.DB
	docs    *storage.DocumentRepository
	exports *storage.ExportRepository
}

// newApp loads configuration for the resolved project root and sets up
// logging. The store is opened lazily by openStore.
func newApp(cmd *cobra.Command) (*app, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot determine project directory", err)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "cannot load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}

	factory := slogutil.NewLoggerFactory(root, cfg, cliLevel())
	return &app{
		root:    root,
		cfg:     cfg,
		factory: factory,
		logger:  factory.AppLogger(cmd.ErrOrStderr()),
	}, nil
}

// openStore opens the document store named by storage.path.
func (a *app) openStore() error {
	if a.db != nil {
		return nil
	}
	db, err := storage.Open(a.cfg.StoragePath(a.root), a.logger)
	if err != nil {
		return errors.New(errors.InternalError, "cannot open document store", err)
	}
	a.db = db
	a.docs = storage.NewDocumentRepository(db)
	a.exports = storage.NewExportRepository(db)
	return nil
}

// Close releases the store and log files.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing document store", "error", err)
		}
	}
	_ = a.factory.Close()
}

// newExporter builds an exporter from the export configuration. With
// continueIds the id sequence resumes after the document's export history.
func (a *app) newExporter(ctx context.Context, cfg config.ExportConfig) *export.Exporter {
	var opts []export.Option
	if cfg.ContinueIDs {
		opts = append(opts, export.WithAllocatorFactory(idalloc.ContinueFactory(cfg.FirstID,
			func(document string) (uint32, error) {
				return a.exports.HighestID(ctx, document)
			})))
	}
	if cfg.DiagnosticLog {
		opts = append(opts, export.WithDiagnosticOpener(a.factory.DiagnosticLogger))
	}
	return export.NewExporter(cfg, a.logger, opts...)
}

// printError writes err to w together with any suggested fixes.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var ce *errors.CedxError
	if !stderrors.As(err, &ce) {
		return
	}
	if problems, ok := ce.Details.([]string); ok {
		for _, p := range problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	for _, fix := range ce.SuggestedFixes {
		switch {
		case fix.Command != "":
			fmt.Fprintf(w, "Try: %s  (%s)\n", fix.Command, fix.Description)
		case fix.Description != "":
			fmt.Fprintf(w, "Hint: %s\n", fix.Description)
		}
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch errors.CodeOf(err) {
	case errors.DataIntegrity, errors.PackageInvalid:
		return 2
	case errors.DocumentNotFound:
		return 3
	case errors.ConfigInvalid:
		return 4
	default:
		return 1
	}
}

package export

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"cedx/internal/config"
	"cedx/internal/document"
	"cedx/internal/errors"
	"cedx/internal/idalloc"
	"cedx/internal/slogutil"
	"cedx/internal/version"
)

// DiagnosticOpener opens the diagnostic log for one export of document.
// A non-nil error is reported as a warning and the returned logger is used
// regardless.
type DiagnosticOpener func(document string) (*slog.Logger, io.Closer, error)

// Exporter builds exchange packages. It holds no per-export state and may be
// reused; concurrent calls each get their own allocator.
type Exporter struct {
	cfg        config.ExportConfig
	logger     *slog.Logger
	provenance Provenance
	allocators idalloc.Factory
	diagnostic DiagnosticOpener
	now        func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithProvenance replaces the session and machine identifiers.
func WithProvenance(p Provenance) Option {
	return func(e *Exporter) { e.provenance = p }
}

// WithAllocatorFactory replaces how each export gets its id allocator.
func WithAllocatorFactory(f idalloc.Factory) Option {
	return func(e *Exporter) { e.allocators = f }
}

// WithDiagnosticOpener sets how the per-export diagnostic log is opened.
func WithDiagnosticOpener(open DiagnosticOpener) Option {
	return func(e *Exporter) { e.diagnostic = open }
}

// WithDiagnosticLog writes the diagnostic log to path, truncating it per export.
func WithDiagnosticLog(path string) Option {
	return WithDiagnosticOpener(func(string) (*slog.Logger, io.Closer, error) {
		return slogutil.OpenDiagnosticLog(path)
	})
}

// WithDiagnosticWriter writes the diagnostic log to w. Write failures are
// reported once, as a warning, when the export finishes.
func WithDiagnosticWriter(w io.Writer) Option {
	return WithDiagnosticOpener(func(string) (*slog.Logger, io.Closer, error) {
		fw := &failWriter{w: w}
		return slogutil.NewLogger(fw, slog.LevelDebug), fw, nil
	})
}

// WithClock replaces the time source for the package's creation time.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// NewExporter creates an exporter. A nil logger discards. A negative
// tolerance is clamped to 0 and a non-finite one falls back to the default.
func NewExporter(cfg config.ExportConfig, logger *slog.Logger, opts ...Option) *Exporter {
	switch {
	case math.IsNaN(cfg.Tolerance) || math.IsInf(cfg.Tolerance, 0):
		cfg.Tolerance = config.DefaultTolerance
	case cfg.Tolerance < 0:
		cfg.Tolerance = 0
	}
	if cfg.FirstID == 0 {
		cfg.FirstID = 1
	}
	e := &Exporter{
		cfg:        cfg,
		logger:     slogutil.OrDiscard(logger),
		provenance: SystemProvenance{},
		allocators: idalloc.SessionFactory(cfg.FirstID),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tolerance returns the coincidence window used by the exporter.
func (e *Exporter) Tolerance() float64 { return e.cfg.Tolerance }

// CreateExport builds the exchange package for snap. On any fatal error no
// package is returned. Diagnostic log problems never fail the export.
func (e *Exporter) CreateExport(ctx context.Context, snap *document.Snapshot) (*Package, error) {
	name := ""
	if snap != nil {
		name = snap.Name()
	}

	diag, closeDiag := e.openDiagnostics(name)
	defer closeDiag()

	createdAt := e.now().UTC()
	diag.Info("export started", "document", name, "tolerance", e.cfg.Tolerance)

	pkg, err := e.assemble(ctx, snap, diag)
	if err != nil {
		diag.Error("export aborted", "document", name, "error", err)
		return nil, err
	}

	pkg.Format = version.PackageFormat
	pkg.SessionID = e.provenance.SessionID()
	pkg.Machine = e.provenance.MachineName()
	pkg.CreatedAt = createdAt

	diag.Info("export finished",
		"session", pkg.SessionID,
		"items", len(pkg.Items),
		"genuine", pkg.Stats.Genuine,
		"extra", pkg.Stats.Extra,
		"coincident", pkg.Stats.Coincident,
	)
	e.logger.Info("export created",
		"document", name,
		"session", pkg.SessionID,
		"items", len(pkg.Items),
		"extra", pkg.Stats.Extra,
	)
	return pkg, nil
}

func (e *Exporter) assemble(ctx context.Context, snap *document.Snapshot, diag *slog.Logger) (*Package, error) {
	valid, err := LoadValidData(snap)
	if err != nil {
		return nil, err
	}
	diag.Debug("validity filter", "valid", valid.Len())

	alloc, err := e.allocators(snap.Name())
	if err != nil {
		return nil, err
	}

	asm := newAssembly(snap, valid, alloc, diag)
	for _, op := range orderOperations(snap.Operations()) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := asm.appendExportItems(op); err != nil {
			return nil, err
		}
	}

	finder := NewFinder(valid.Locations(snap), e.cfg.Tolerance, diag)
	if err := asm.generateExtraPoints(finder); err != nil {
		return nil, err
	}

	items := asm.items
	if items == nil {
		items = []Item{}
	}
	return &Package{
		Document:  snap.Name(),
		Tolerance: e.cfg.Tolerance,
		Items:     items,
		Stats:     asm.stats,
	}, nil
}

// openDiagnostics returns the export's diagnostic logger and the function
// that closes it.
func (e *Exporter) openDiagnostics(document string) (*slog.Logger, func()) {
	if e.diagnostic == nil {
		return slogutil.NewDiscardLogger(), func() {}
	}

	log, closer, err := e.diagnostic(document)
	if err != nil {
		e.warnLogging(document, loggingFailure("cannot open diagnostic log", err))
	}
	log = slogutil.OrDiscard(log)

	return log, func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			e.warnLogging(document, loggingFailure("cannot close diagnostic log", err))
		}
	}
}

// loggingFailure classifies a diagnostic log error as LOGGING_UNAVAILABLE so
// it cannot abort the export.
func loggingFailure(msg string, err error) error {
	if errors.IsFatal(err) {
		return errors.New(errors.LoggingUnavailable, msg, err)
	}
	return err
}

func (e *Exporter) warnLogging(document string, err error) {
	e.logger.Warn("diagnostic log unavailable",
		"code", string(errors.CodeOf(err)),
		"document", document,
		"error", err,
	)
}

// failWriter remembers the first write error and reports it on Close.
type failWriter struct {
	w   io.Writer
	mu  sync.Mutex
	err error
}

func (f *failWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.w.Write(p)
	if err != nil {
		f.err = err
	}
	return n, err
}

func (f *failWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return errors.New(errors.LoggingUnavailable, "diagnostic log write failed", f.err)
	}
	return nil
}

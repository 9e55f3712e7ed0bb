package slogutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Coincident location", "ref", 12, "match", 40, "dx", 0.0004)

	output := buf.String()
	for _, want := range []string{"[info]", "Coincident location", " | ", "ref=12", "match=40", "dx=0.0004"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("each record should end with a newline")
	}
}

func TestHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("records below warn should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("document", "parcel-7").WithGroup("op")

	logger.Info("Assembled", "id", 3)

	output := buf.String()
	if !strings.Contains(output, "document=parcel-7") {
		t.Errorf("missing pre-set attr, got: %s", output)
	}
	if !strings.Contains(output, "op.id=3") {
		t.Errorf("missing grouped attr, got: %s", output)
	}
}

func TestHandler_Values(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"projected coordinate", slog.Float64("y", 4178199.9997), "y=4178199.9997"},
		{"small offset", slog.Float64("dx", 0.0004), "dx=0.0004"},
		{"plain string", slog.String("key", "7-1"), "key=7-1"},
		{"string with spaces", slog.String("text", "Lot 7"), `text="Lot 7"`},
		{"empty string", slog.String("label", ""), `label=""`},
		{"unsigned", slog.Uint64("id", 4294967295), "id=4294967295"},
		{"bool", slog.Bool("extra", true), "extra=true"},
		{"group", slog.Group("ref", slog.Int("location", 4), slog.Int("point", 1)), "ref.location=4 ref.point=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewLogger(&buf, slog.LevelInfo).LogAttrs(context.Background(), slog.LevelInfo, "msg", tt.attr)
			if !strings.Contains(buf.String(), " "+tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestHandler_Timestamp(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)

	when := time.Date(2024, 5, 14, 8, 30, 0, 125_000_000, time.FixedZone("CEST", 2*3600))
	if err := h.Handle(context.Background(), slog.NewRecord(when, slog.LevelInfo, "export started", 0)); err != nil {
		t.Fatal(err)
	}
	if want := "2024-05-14T06:30:00.125Z [info] export started\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelWarn, "no clock", 0)); err != nil {
		t.Fatal(err)
	}
	if want := "[warn] no clock\n"; buf.String() != want {
		t.Errorf("zero time: got %q, want %q", buf.String(), want)
	}
}

func TestHandler_WithAttrsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, slog.LevelInfo).With("document", "parcel-7")
	first := base.With("session", "a")
	second := base.With("session", "b")

	first.Info("one", "op", 1)
	second.Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[0], "| document=parcel-7 session=a op=1") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "| document=parcel-7 session=b") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, silent},
		{5, true, silent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at any level")
	}
	logger.Error("dropped")

	if OrDiscard(nil) == nil {
		t.Error("OrDiscard(nil) returned nil")
	}
}

func TestNewFormatLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewFormatLogger(&buf, "json", slog.LevelInfo).Info("exported", "items", 4)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if record["msg"] != "exported" {
		t.Errorf("msg = %v, want exported", record["msg"])
	}
}

func TestCreateFileLogger_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "diag.log")

	for _, msg := range []string{"first run", "second run"} {
		logger, f, err := CreateFileLogger(path, slog.LevelDebug)
		if err != nil {
			t.Fatalf("CreateFileLogger: %v", err)
		}
		logger.Info(msg)
		_ = f.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "first run") {
		t.Error("CreateFileLogger should truncate previous content")
	}
	if !strings.Contains(string(data), "second run") {
		t.Error("missing current content")
	}
}

func TestNewFileLogger_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	for _, msg := range []string{"one", "two"} {
		logger, f, err := NewFileLogger(path, slog.LevelInfo)
		if err != nil {
			t.Fatalf("NewFileLogger: %v", err)
		}
		logger.Info(msg)
		_ = f.Close()
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "one") || !strings.Contains(string(data), "two") {
		t.Errorf("NewFileLogger should append, got: %s", data)
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := NewTeeLogger(h1, h2)
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 should contain both records, got: %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "warn message") {
		t.Error("buf2 should contain warn message")
	}
}

func TestLoggerFactory_AppLogger(t *testing.T) {
	root := t.TempDir()
	level := slog.LevelDebug
	f := NewLoggerFactory(root, nil, &level)
	defer f.Close()

	var stderr bytes.Buffer
	logger := f.AppLogger(&stderr)
	logger.Debug("opened store", "path", "cedx.db")

	if !strings.Contains(stderr.String(), "opened store") {
		t.Errorf("stderr missing record: %s", stderr.String())
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".cedx", "logs", "cedx.log"))
	if err != nil {
		t.Fatalf("app log not written: %v", err)
	}
	if !strings.Contains(string(data), "opened store") {
		t.Errorf("app log missing record: %s", data)
	}
}

func TestLoggerFactory_DiagnosticLogger(t *testing.T) {
	root := t.TempDir()
	f := NewLoggerFactory(root, nil, nil)

	logger, closer, err := f.DiagnosticLogger("parcel-7")
	if err != nil {
		t.Fatalf("DiagnosticLogger: %v", err)
	}
	logger.Debug("diagnostic line")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".cedx", "logs", "export-parcel-7.log"))
	if err != nil {
		t.Fatalf("diagnostic log not written: %v", err)
	}
	if !strings.Contains(string(data), "diagnostic line") {
		t.Errorf("debug records should reach the diagnostic log, got: %s", data)
	}
}

func TestOpenDiagnosticLog_Failure(t *testing.T) {
	// A regular file where a directory is expected makes the open fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	logger, closer, err := OpenDiagnosticLog(filepath.Join(blocker, "diag.log"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if logger == nil || closer == nil {
		t.Fatal("failure should still return a usable logger and closer")
	}
	logger.Info("ignored")
	if err := closer.Close(); err != nil {
		t.Errorf("no-op closer returned %v", err)
	}
}

// Package paths resolves the on-disk layout of a cedx workspace:
//
//	<root>/.cedx/config.json
//	<root>/.cedx/cedx.db
//	<root>/.cedx/logs/cedx.log
//	<root>/.cedx/logs/export-<document>.log
//	<root>/.cedx/exports/<document>-<session>.json[.zst]
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirName is the per-workspace data directory
	DirName = ".cedx"
	// LogsDirName holds the application and diagnostic logs
	LogsDirName = "logs"
	// ExportsDirName holds package dumps written by `cedx export`
	ExportsDirName = "exports"
	// AppLogName is the application log file
	AppLogName = "cedx.log"
)

// GetDataDir returns <root>/.cedx
func GetDataDir(root string) string {
	return filepath.Join(root, DirName)
}

// GetLogsDir returns <root>/.cedx/logs
func GetLogsDir(root string) string {
	return filepath.Join(GetDataDir(root), LogsDirName)
}

// GetAppLogPath returns the application log path
func GetAppLogPath(root string) string {
	return filepath.Join(GetLogsDir(root), AppLogName)
}

// GetDiagnosticLogPath returns the per-export diagnostic log for a document.
// Each export of the same document overwrites the previous diagnostic log.
func GetDiagnosticLogPath(root, document string) string {
	return filepath.Join(GetLogsDir(root), "export-"+SafeName(document)+".log")
}

// GetExportsDir returns <root>/.cedx/exports
func GetExportsDir(root string) string {
	return filepath.Join(GetDataDir(root), ExportsDirName)
}

// GetExportPath returns the default dump path for one export session.
func GetExportPath(root, document, session string, compressed bool) string {
	name := SafeName(document) + "-" + shortSession(session) + ".json"
	if compressed {
		name += ".zst"
	}
	return filepath.Join(GetExportsDir(root), name)
}

// EnsureDir creates dir (and parents) if needed and returns it.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// SafeName maps a document name onto a file-name-safe token.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func shortSession(session string) string {
	s := strings.ReplaceAll(session, "-", "")
	if len(s) > 12 {
		return s[:12]
	}
	if s == "" {
		return "session"
	}
	return s
}

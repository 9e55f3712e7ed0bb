package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"cedx/internal/errors"
	"cedx/internal/fixture"
	"cedx/internal/testutil"
)

// resetFlags restores every flag to its default so runs do not leak into each other.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("resetting --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--root", root, "--quiet"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decoding %T: %v\n%s", v, err, out)
	}
	return v
}

func TestCLI_ImportExportVerify(t *testing.T) {
	root := t.TempDir()

	if _, err := runCLI(t, root, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".cedx", "config.json")); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	out, err := runCLI(t, root, "import", testutil.FixturePath(t, "parcel-7.yaml"), "--format", "json")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	imp := decode[ImportResponseCLI](t, out)
	if imp.Document != "parcel-7" || imp.Counts.Operations != 7 {
		t.Errorf("import = %+v", imp)
	}

	out, err = runCLI(t, root, "documents", "--format", "json")
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if docs := decode[DocumentsResponseCLI](t, out); len(docs.Documents) != 1 || docs.Documents[0].Name != "parcel-7" {
		t.Errorf("documents = %+v", docs)
	}

	out, err = runCLI(t, root, "export", "parcel-7", "--format", "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	first := decode[ExportResponseCLI](t, out)
	if first.Items != 10 || first.FirstID != 1 || first.LastID != 10 {
		t.Errorf("export = %d items, ids %d-%d; want 10 items, ids 1-10", first.Items, first.FirstID, first.LastID)
	}
	if first.Stats.Extra != 2 || first.ByKind["extra-point"] != 2 {
		t.Errorf("export stats = %+v, by kind %v", first.Stats, first.ByKind)
	}
	if !strings.HasPrefix(first.Path, filepath.Join(root, ".cedx", "exports")) {
		t.Errorf("dump path %q is outside the exports directory", first.Path)
	}

	out, err = runCLI(t, root, "verify", first.Path, "--format", "json")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v := decode[VerifyResponseCLI](t, out); !v.Valid || v.Summary == nil || v.Summary.Items != 10 {
		t.Errorf("verify = %+v", v)
	}

	out, err = runCLI(t, root, "export", "parcel-7", "--continue-ids", "--compress", "--format", "json")
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	second := decode[ExportResponseCLI](t, out)
	if second.FirstID != 11 || second.LastID != 20 {
		t.Errorf("continued export ids %d-%d, want 11-20", second.FirstID, second.LastID)
	}
	if !strings.HasSuffix(second.Path, ".json.zst") {
		t.Errorf("compressed dump path = %q", second.Path)
	}
	if _, err := runCLI(t, root, "verify", second.Path); err != nil {
		t.Errorf("verify compressed dump: %v", err)
	}

	out, err = runCLI(t, root, "history", "parcel-7", "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	hist := decode[HistoryResponseCLI](t, out)
	if len(hist.Exports) != 2 || hist.Exports[1].SessionID != second.SessionID {
		t.Errorf("history = %+v", hist)
	}
}

func TestCLI_Coincident(t *testing.T) {
	root := t.TempDir()
	if _, err := runCLI(t, root, "import", testutil.FixturePath(t, "parcel-7.yaml")); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, root, "coincident", "parcel-7", "4", "--format", "json")
	if err != nil {
		t.Fatalf("coincident: %v", err)
	}
	resp := decode[CoincidentResponseCLI](t, out)
	if len(resp.Matches) != 2 || resp.Matches[0].Location != 1 || resp.Matches[1].Location != 4 {
		t.Fatalf("matches = %+v, want locations 1 and 4", resp.Matches)
	}
	if len(resp.Matches[0].Points) != 1 || !strings.HasPrefix(resp.Matches[0].Points[0], "7-1") {
		t.Errorf("points on location 1 = %v", resp.Matches[0].Points)
	}

	out, err = runCLI(t, root, "coincident", "parcel-7", "4", "--tolerance", "0", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if resp := decode[CoincidentResponseCLI](t, out); len(resp.Matches) != 1 {
		t.Errorf("zero tolerance matches = %+v, want only the location itself", resp.Matches)
	}

	if _, err := runCLI(t, root, "coincident", "parcel-7", "99"); !errors.HasCode(err, errors.DocumentNotFound) {
		t.Errorf("unknown location error = %v", err)
	}
}

func TestCLI_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := runCLI(t, root, "export", "nowhere")
	if !errors.HasCode(err, errors.DocumentNotFound) {
		t.Errorf("export of missing document: %v, want DOCUMENT_NOT_FOUND", err)
	}
	if exitCode(err) != 3 {
		t.Errorf("exitCode = %d, want 3", exitCode(err))
	}

	for _, tol := range []string{"NaN", "+Inf", "-0.5"} {
		for _, args := range [][]string{{"export", "nowhere"}, {"coincident", "nowhere", "1"}} {
			_, err := runCLI(t, root, append(args, "--tolerance="+tol)...)
			if !errors.HasCode(err, errors.ConfigInvalid) {
				t.Errorf("%s with tolerance %s: %v, want CONFIG_INVALID", args[0], tol, err)
			}
		}
	}

	if _, err := runCLI(t, root, "import", testutil.FixturePath(t, "broken-history.json")); err != nil {
		t.Fatalf("import: %v", err)
	}
	_, exportErr := runCLI(t, root, "export", "broken-history")
	if !errors.HasCode(exportErr, errors.DataIntegrity) {
		t.Fatalf("export of broken history: %v, want DATA_INTEGRITY", exportErr)
	}

	out, err := runCLI(t, root, "history", "broken-history", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if hist := decode[HistoryResponseCLI](t, out); len(hist.Exports) != 0 {
		t.Errorf("failed export was recorded: %+v", hist.Exports)
	}
	entries, _ := os.ReadDir(filepath.Join(root, ".cedx", "exports"))
	if len(entries) != 0 {
		t.Errorf("failed export left %d dump file(s)", len(entries))
	}

	var buf bytes.Buffer
	printError(&buf, exportErr)
	if !strings.Contains(buf.String(), "DATA_INTEGRITY") || !strings.Contains(buf.String(), "Try: cedx coincident") {
		t.Errorf("printError output:\n%s", buf.String())
	}
}

func TestCLI_Dump(t *testing.T) {
	root := t.TempDir()
	if _, err := runCLI(t, root, "import", testutil.FixturePath(t, "subdivision.toml")); err != nil {
		t.Fatal(err)
	}

	for _, format := range []fixture.Format{fixture.FormatYAML, fixture.FormatTOML, fixture.FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			out, err := runCLI(t, root, "dump", "subdivision", "--as", string(format))
			if err != nil {
				t.Fatalf("dump: %v", err)
			}
			snap, err := fixture.Read(strings.NewReader(out), format)
			if err != nil {
				t.Fatalf("dump does not load back: %v\n%s", err, out)
			}
			if got, want := snap.Counts(), testutil.LoadSnapshot(t, "subdivision.toml").Counts(); got != want {
				t.Errorf("Counts() = %+v, want %+v", got, want)
			}
		})
	}

	path := filepath.Join(t.TempDir(), "copy.json")
	if _, err := runCLI(t, root, "dump", "subdivision", "--out", path); err != nil {
		t.Fatalf("dump --out: %v", err)
	}
	if _, err := fixture.Load(path); err != nil {
		t.Errorf("Load(%s) = %v", path, err)
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "cedx version") || !strings.Contains(out, "Package format: 2") {
		t.Errorf("version output:\n%s", out)
	}
}

func TestCLI_ExportDiagnosticLog(t *testing.T) {
	root := t.TempDir()
	if _, err := runCLI(t, root, "import", testutil.FixturePath(t, "subdivision.toml")); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, root, "export", "subdivision", "--diagnostic-log", "--no-dump", "--format", "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if resp := decode[ExportResponseCLI](t, out); resp.Path != "" || resp.Stats.Extra != 3 {
		t.Errorf("export = %+v, want no dump and 3 extra points", resp)
	}

	data, err := os.ReadFile(filepath.Join(root, ".cedx", "logs", "export-subdivision.log"))
	if err != nil {
		t.Fatalf("diagnostic log not written: %v", err)
	}
	if !strings.Contains(string(data), "export finished") {
		t.Errorf("diagnostic log lacks the finish line:\n%s", data)
	}
}

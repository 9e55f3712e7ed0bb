package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cedx/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// writeResponse formats resp with the --format flag and writes it to w.
func writeResponse(w io.Writer, resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ImportResponseCLI:
		return formatImportHuman(v), nil
	case *ExportResponseCLI:
		return formatExportHuman(v), nil
	case *CoincidentResponseCLI:
		return formatCoincidentHuman(v), nil
	case *VerifyResponseCLI:
		return formatVerifyHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *DocumentsResponseCLI:
		return formatDocumentsHuman(v), nil
	case *VersionResponseCLI:
		return formatVersionHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatImportHuman(r *ImportResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %s from %s\n", r.Document, r.Source)
	c := r.Counts
	fmt.Fprintf(&b, "  %d operations, %d locations, %d points, %d lines, %d texts",
		c.Operations, c.Locations, c.Points, c.Lines, c.Texts)
	return b.String()
}

func formatExportHuman(r *ExportResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exported %s\n", r.Document)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Session:   %s\n", r.SessionID)
	fmt.Fprintf(&b, "Machine:   %s\n", r.Machine)
	fmt.Fprintf(&b, "Tolerance: %g m\n", r.Tolerance)
	if r.Items > 0 {
		fmt.Fprintf(&b, "Items:     %d (ids %d-%d)\n", r.Items, r.FirstID, r.LastID)
	} else {
		b.WriteString("Items:     0\n")
	}
	s := r.Stats
	fmt.Fprintf(&b, "  genuine %d, extra points %d, coincident %d\n", s.Genuine, s.Extra, s.Coincident)
	fmt.Fprintf(&b, "  operations %d (rolled back %d), retired references %d\n", s.Operations, s.Skipped, s.Retired)
	if len(r.ByKind) > 0 {
		kinds := make([]string, 0, len(r.ByKind))
		for k := range r.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, r.ByKind[k])
		}
		fmt.Fprintf(&b, "  by kind: %s\n", strings.Join(parts, " "))
	}
	if r.Path != "" {
		fmt.Fprintf(&b, "Written to %s", r.Path)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCoincidentHuman(r *CoincidentResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Location %d of %s at (%.4f, %.4f), tolerance %g m\n",
		r.Location, r.Document, r.X, r.Y, r.Tolerance)
	if len(r.Matches) == 0 {
		b.WriteString("No coincident locations.")
		return b.String()
	}
	for _, m := range r.Matches {
		marker := " "
		if m.Location == r.Location {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s location:%d  dx=%+.4f dy=%+.4f", marker, m.Location, m.DX, m.DY)
		if len(m.Points) > 0 {
			fmt.Fprintf(&b, "  points %s", strings.Join(m.Points, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatVerifyHuman(r *VerifyResponseCLI) string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "%s: valid\n", r.Path)
	} else {
		fmt.Fprintf(&b, "%s: %d problem(s)\n", r.Path, len(r.Problems))
		for _, p := range r.Problems {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
	}
	if s := r.Summary; s != nil {
		fmt.Fprintf(&b, "Document %s, session %s, created %s on %s\n",
			s.Document, s.SessionID, s.CreatedAt.Format(time.RFC3339), s.Machine)
		fmt.Fprintf(&b, "%d items", s.Items)
		if s.Items > 0 {
			fmt.Fprintf(&b, " (ids %d-%d)", s.FirstID, s.LastID)
		}
		b.WriteByte('\n')
		for _, op := range s.Operations {
			fmt.Fprintf(&b, "  op %-4d %-20s %s  %d item(s)", op.Op, op.Kind, op.When.Format(time.RFC3339), op.Items)
			if op.Extras > 0 {
				fmt.Fprintf(&b, ", %d extra", op.Extras)
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistoryHuman(r *HistoryResponseCLI) string {
	if len(r.Exports) == 0 {
		return fmt.Sprintf("No exports recorded for %s.", r.Document)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Exports of %s\n", r.Document)
	for _, e := range r.Exports {
		fmt.Fprintf(&b, "  %s  %s  %-12s %4d items (%d extra)  ids %d-%d\n",
			e.CreatedAt.Format(time.RFC3339), e.SessionID, e.Machine, e.ItemCount, e.ExtraCount, e.FirstID, e.LastID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDocumentsHuman(r *DocumentsResponseCLI) string {
	if len(r.Documents) == 0 {
		return "No documents imported."
	}
	var b strings.Builder
	for _, d := range r.Documents {
		c := d.Counts
		fmt.Fprintf(&b, "%-24s %4d ops %5d locations %5d points %5d lines %4d texts  imported %s\n",
			d.Name, c.Operations, c.Locations, c.Points, c.Lines, c.Texts, d.ImportedAt.Format(time.RFC3339))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatVersionHuman(r *VersionResponseCLI) string {
	return fmt.Sprintf("%s\nPackage format: %d", version.Full(), r.PackageFormat)
}

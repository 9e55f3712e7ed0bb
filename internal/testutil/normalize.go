package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"cedx/internal/export"
)

// volatileFields change on every export and are dropped before comparison.
var volatileFields = map[string]bool{
	"sessionId": true,
	"machine":   true,
	"createdAt": true,
}

// Digest renders a package as one line per item, without the envelope fields
// that differ between runs. Refs are written location>point.
func Digest(pkg *export.Package) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "document %s tolerance %g\n", pkg.Document, pkg.Tolerance)
	s := pkg.Stats
	fmt.Fprintf(&buf, "stats operations=%d skipped=%d genuine=%d extra=%d retired=%d coincident=%d\n",
		s.Operations, s.Skipped, s.Genuine, s.Extra, s.Retired, s.Coincident)

	for _, it := range pkg.Items {
		fmt.Fprintf(&buf, "%d %s", it.ID, it.Kind)
		if it.Extra {
			buf.WriteString(" extra")
		}
		if it.Source != 0 {
			fmt.Fprintf(&buf, " src=%d", it.Source)
		}
		if it.Location != 0 {
			fmt.Fprintf(&buf, " loc=%d", it.Location)
		}
		fmt.Fprintf(&buf, " op=%d", it.Op)
		if it.Label != "" {
			fmt.Fprintf(&buf, " label=%q", it.Label)
		}
		if len(it.Refs) > 0 {
			refs := make([]string, len(it.Refs))
			for i, r := range it.Refs {
				refs[i] = fmt.Sprintf("%d>%d", r.Location, r.Point)
			}
			buf.WriteString(" refs=" + strings.Join(refs, ","))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Normalize round-trips v through JSON and drops volatile fields.
func Normalize(t *testing.T, v any) any {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}
	return normalizeValue(out)
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, inner := range val {
			if volatileFields[k] {
				continue
			}
			result[k] = normalizeValue(inner)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, inner := range val {
			result[i] = normalizeValue(inner)
		}
		return result
	default:
		return v
	}
}

// MarshalNormalized normalizes v and marshals it with 2-space indentation.
// encoding/json sorts map keys, so the output is stable.
func MarshalNormalized(t *testing.T, v any) []byte {
	t.Helper()

	data, err := json.MarshalIndent(Normalize(t, v), "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return append(data, '\n')
}

// DeepEqual compares two values for equality, ignoring volatile fields.
func DeepEqual(t *testing.T, a, b any) bool {
	t.Helper()
	return reflect.DeepEqual(Normalize(t, a), Normalize(t, b))
}

// Package fixture reads document snapshots from YAML, TOML or JSON files.
package fixture

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"cedx/internal/document"
)

// Format is a fixture file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// File is the on-disk layout of a fixture. Entity references are written as
// "kind:id", e.g. "point:3".
type File struct {
	Document   string      `yaml:"document" toml:"document" json:"document"`
	Locations  []Location  `yaml:"locations" toml:"locations" json:"locations"`
	Points     []Point     `yaml:"points" toml:"points" json:"points"`
	Lines      []Line      `yaml:"lines" toml:"lines" json:"lines"`
	Texts      []Text      `yaml:"texts" toml:"texts" json:"texts"`
	Operations []Operation `yaml:"operations" toml:"operations" json:"operations"`
}

type Location struct {
	ID     uint64  `yaml:"id" toml:"id" json:"id"`
	X      float64 `yaml:"x" toml:"x" json:"x"`
	Y      float64 `yaml:"y" toml:"y" json:"y"`
	Status string  `yaml:"status,omitempty" toml:"status,omitempty" json:"status,omitempty"`
}

type Point struct {
	ID       uint64 `yaml:"id" toml:"id" json:"id"`
	Key      string `yaml:"key" toml:"key" json:"key"`
	Location uint64 `yaml:"location" toml:"location" json:"location"`
	Status   string `yaml:"status,omitempty" toml:"status,omitempty" json:"status,omitempty"`
}

type Line struct {
	ID     uint64 `yaml:"id" toml:"id" json:"id"`
	Start  uint64 `yaml:"start" toml:"start" json:"start"`
	End    uint64 `yaml:"end" toml:"end" json:"end"`
	Center uint64 `yaml:"center,omitempty" toml:"center,omitempty" json:"center,omitempty"`
	Status string `yaml:"status,omitempty" toml:"status,omitempty" json:"status,omitempty"`
}

type Text struct {
	ID       uint64  `yaml:"id" toml:"id" json:"id"`
	Text     string  `yaml:"text" toml:"text" json:"text"`
	X        float64 `yaml:"x" toml:"x" json:"x"`
	Y        float64 `yaml:"y" toml:"y" json:"y"`
	Rotation float64 `yaml:"rotation,omitempty" toml:"rotation,omitempty" json:"rotation,omitempty"`
	Status   string  `yaml:"status,omitempty" toml:"status,omitempty" json:"status,omitempty"`
}

type Operation struct {
	ID         uint64    `yaml:"id" toml:"id" json:"id"`
	Kind       string    `yaml:"kind" toml:"kind" json:"kind"`
	When       time.Time `yaml:"when" toml:"when" json:"when"`
	Status     string    `yaml:"status,omitempty" toml:"status,omitempty" json:"status,omitempty"`
	Created    []string  `yaml:"created,omitempty" toml:"created,omitempty" json:"created,omitempty"`
	Changed    []string  `yaml:"changed,omitempty" toml:"changed,omitempty" json:"changed,omitempty"`
	Inputs     []string  `yaml:"inputs,omitempty" toml:"inputs,omitempty" json:"inputs,omitempty"`
	Supersedes []string  `yaml:"supersedes,omitempty" toml:"supersedes,omitempty" json:"supersedes,omitempty"`
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported fixture extension %q (want .yaml, .yml, .toml or .json)", filepath.Ext(path))
	}
}

// Load reads and builds the snapshot stored at path.
func Load(path string) (*document.Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	snap, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Read decodes a fixture in the given format and builds its snapshot.
func Read(r io.Reader, format Format) (*document.Snapshot, error) {
	file, err := Decode(r, format)
	if err != nil {
		return nil, err
	}
	return file.Snapshot()
}

// Decode decodes a fixture without building it.
func Decode(r io.Reader, format Format) (*File, error) {
	var file File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decoding yaml fixture: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&file)
		if err != nil {
			return nil, fmt.Errorf("decoding toml fixture: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decoding toml fixture: unknown keys %v", undecoded)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decoding json fixture: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown fixture format %q", format)
	}
	return &file, nil
}

// Snapshot builds and validates the document described by the file.
func (f *File) Snapshot() (*document.Snapshot, error) {
	b := document.NewBuilder(f.Document)
	for _, l := range f.Locations {
		b.PutLocation(document.Location{ID: document.EntityID(l.ID), X: l.X, Y: l.Y, Status: document.Status(l.Status)})
	}
	for _, p := range f.Points {
		b.PutPoint(document.Point{ID: document.EntityID(p.ID), Key: p.Key, Location: document.EntityID(p.Location), Status: document.Status(p.Status)})
	}
	for _, l := range f.Lines {
		b.PutLine(document.Line{
			ID:     document.EntityID(l.ID),
			Start:  document.EntityID(l.Start),
			End:    document.EntityID(l.End),
			Center: document.EntityID(l.Center),
			Status: document.Status(l.Status),
		})
	}
	for _, t := range f.Texts {
		b.PutText(document.Text{ID: document.EntityID(t.ID), Text: t.Text, X: t.X, Y: t.Y, Rotation: t.Rotation, Status: document.Status(t.Status)})
	}
	for i, op := range f.Operations {
		dop := document.Operation{
			ID:     document.OpID(op.ID),
			Kind:   document.OpKind(op.Kind),
			When:   op.When,
			Status: document.Status(op.Status),
		}
		var err error
		if dop.Created, err = parseRefs(op.Created); err != nil {
			return nil, fmt.Errorf("operation %d created: %w", i+1, err)
		}
		if dop.Changed, err = parseRefs(op.Changed); err != nil {
			return nil, fmt.Errorf("operation %d changed: %w", i+1, err)
		}
		if dop.Inputs, err = parseRefs(op.Inputs); err != nil {
			return nil, fmt.Errorf("operation %d inputs: %w", i+1, err)
		}
		if dop.Supersedes, err = parseRefs(op.Supersedes); err != nil {
			return nil, fmt.Errorf("operation %d supersedes: %w", i+1, err)
		}
		b.AddOperation(dop)
	}
	return b.Build()
}

func parseRefs(in []string) ([]document.EntityRef, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]document.EntityRef, 0, len(in))
	for _, s := range in {
		ref, err := document.ParseEntityRef(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

// FromSnapshot converts a snapshot back into its fixture form.
func FromSnapshot(snap *document.Snapshot) *File {
	f := &File{Document: snap.Name()}
	for _, l := range snap.Locations() {
		f.Locations = append(f.Locations, Location{ID: uint64(l.ID), X: l.X, Y: l.Y, Status: string(l.Status)})
	}
	for _, p := range snap.Points() {
		f.Points = append(f.Points, Point{ID: uint64(p.ID), Key: p.Key, Location: uint64(p.Location), Status: string(p.Status)})
	}
	for _, l := range snap.Lines() {
		f.Lines = append(f.Lines, Line{ID: uint64(l.ID), Start: uint64(l.Start), End: uint64(l.End), Center: uint64(l.Center), Status: string(l.Status)})
	}
	for _, t := range snap.Texts() {
		f.Texts = append(f.Texts, Text{ID: uint64(t.ID), Text: t.Text, X: t.X, Y: t.Y, Rotation: t.Rotation, Status: string(t.Status)})
	}
	for _, op := range snap.Operations() {
		f.Operations = append(f.Operations, Operation{
			ID:         uint64(op.ID),
			Kind:       string(op.Kind),
			When:       op.When,
			Status:     string(op.Status),
			Created:    formatRefs(op.Created),
			Changed:    formatRefs(op.Changed),
			Inputs:     formatRefs(op.Inputs),
			Supersedes: formatRefs(op.Supersedes),
		})
	}
	return f
}

func formatRefs(refs []document.EntityRef) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

// Encode writes f in the given format.
func (f *File) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(f)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	default:
		return fmt.Errorf("unknown fixture format %q", format)
	}
}

package document

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Snapshot is an immutable view of a document. Slices returned by its
// accessors are shared and must not be modified.
type Snapshot struct {
	name       string
	operations []Operation
	locations  []Location
	points     []Point
	lines      []Line
	texts      []Text

	locationIdx map[EntityID]int
	pointIdx    map[EntityID]int
	lineIdx     map[EntityID]int
	textIdx     map[EntityID]int
	opIdx       map[OpID]int
}

// Name returns the document name.
func (s *Snapshot) Name() string { return s.name }

// Operations returns the operation log in document order.
func (s *Snapshot) Operations() []Operation { return s.operations }

// Locations returns every location in document order.
func (s *Snapshot) Locations() []Location { return s.locations }

// Points returns every point in document order.
func (s *Snapshot) Points() []Point { return s.points }

// Lines returns every line in document order.
func (s *Snapshot) Lines() []Line { return s.lines }

// Texts returns every text in document order.
func (s *Snapshot) Texts() []Text { return s.texts }

// Location looks up a location by id.
func (s *Snapshot) Location(id EntityID) (Location, bool) {
	i, ok := s.locationIdx[id]
	if !ok {
		return Location{}, false
	}
	return s.locations[i], true
}

// Point looks up a point by id.
func (s *Snapshot) Point(id EntityID) (Point, bool) {
	i, ok := s.pointIdx[id]
	if !ok {
		return Point{}, false
	}
	return s.points[i], true
}

// Line looks up a line by id.
func (s *Snapshot) Line(id EntityID) (Line, bool) {
	i, ok := s.lineIdx[id]
	if !ok {
		return Line{}, false
	}
	return s.lines[i], true
}

// Text looks up a text by id.
func (s *Snapshot) Text(id EntityID) (Text, bool) {
	i, ok := s.textIdx[id]
	if !ok {
		return Text{}, false
	}
	return s.texts[i], true
}

// Operation looks up an operation by id.
func (s *Snapshot) Operation(id OpID) (Operation, bool) {
	i, ok := s.opIdx[id]
	if !ok {
		return Operation{}, false
	}
	return s.operations[i], true
}

// Status returns the stored status of any entity.
func (s *Snapshot) Status(ref EntityRef) (Status, bool) {
	switch ref.Kind {
	case KindLocation:
		if l, ok := s.Location(ref.ID); ok {
			return l.Status, true
		}
	case KindPoint:
		if p, ok := s.Point(ref.ID); ok {
			return p.Status, true
		}
	case KindLine:
		if l, ok := s.Line(ref.ID); ok {
			return l.Status, true
		}
	case KindText:
		if t, ok := s.Text(ref.ID); ok {
			return t.Status, true
		}
	}
	return "", false
}

// Has reports whether the document contains the entity.
func (s *Snapshot) Has(ref EntityRef) bool {
	_, ok := s.Status(ref)
	return ok
}

// LocationsOf returns the locations an entity depends on, in source order.
// A location depends on itself; texts depend on none.
func (s *Snapshot) LocationsOf(ref EntityRef) []EntityID {
	switch ref.Kind {
	case KindLocation:
		return []EntityID{ref.ID}
	case KindPoint:
		if p, ok := s.Point(ref.ID); ok {
			return []EntityID{p.Location}
		}
	case KindLine:
		if l, ok := s.Line(ref.ID); ok {
			return l.Locations()
		}
	}
	return nil
}

// Counts summarises the snapshot size by kind.
type Counts struct {
	Operations int `json:"operations"`
	Locations  int `json:"locations"`
	Points     int `json:"points"`
	Lines      int `json:"lines"`
	Texts      int `json:"texts"`
}

// Counts returns the number of entities of each kind.
func (s *Snapshot) Counts() Counts {
	return Counts{
		Operations: len(s.operations),
		Locations:  len(s.locations),
		Points:     len(s.points),
		Lines:      len(s.lines),
		Texts:      len(s.texts),
	}
}

// ValidationError lists every structural problem found in a snapshot.
type ValidationError struct {
	Document string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document %q is malformed: %s", e.Document, strings.Join(e.Problems, "; "))
}

// Validate checks the snapshot's structure: ids, statuses, coordinates and the
// locations referenced by points and lines. References held by operations are
// checked by the exporter, which knows which entities are meant to be live.
func (s *Snapshot) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(s.name) == "" {
		add("document name is empty")
	}

	checkStatus := func(ref EntityRef, st Status) {
		if !st.Valid() {
			add("%s has unknown status %q", ref, st)
		}
	}
	checkCoord := func(ref EntityRef, x, y float64) {
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			add("%s has a non-finite position", ref)
		}
	}
	checkLoc := func(ref EntityRef, role string, id EntityID) {
		if id == 0 {
			add("%s has no %s location", ref, role)
			return
		}
		if _, ok := s.locationIdx[id]; !ok {
			add("%s %s references missing location:%d", ref, role, id)
		}
	}

	seen := make(map[EntityRef]int)
	for _, l := range s.locations {
		seen[l.Ref()]++
		checkStatus(l.Ref(), l.Status)
		checkCoord(l.Ref(), l.X, l.Y)
	}
	for _, p := range s.points {
		seen[p.Ref()]++
		checkStatus(p.Ref(), p.Status)
		checkLoc(p.Ref(), "position", p.Location)
	}
	for _, l := range s.lines {
		seen[l.Ref()]++
		checkStatus(l.Ref(), l.Status)
		checkLoc(l.Ref(), "start", l.Start)
		checkLoc(l.Ref(), "end", l.End)
		if l.IsArc() {
			checkLoc(l.Ref(), "centre", l.Center)
		}
	}
	for _, t := range s.texts {
		seen[t.Ref()]++
		checkStatus(t.Ref(), t.Status)
		checkCoord(t.Ref(), t.X, t.Y)
	}
	for ref, n := range seen {
		if ref.ID == 0 {
			add("%s entity has id 0", ref.Kind)
		} else if n > 1 {
			add("%s appears %d times", ref, n)
		}
	}

	opSeen := make(map[OpID]bool, len(s.operations))
	for _, op := range s.operations {
		if op.ID == 0 {
			add("operation has id 0")
		} else if opSeen[op.ID] {
			add("operation %d appears more than once", op.ID)
		}
		opSeen[op.ID] = true

		if op.Status != StatusLive && op.Status != StatusRolledBack {
			add("operation %d has status %q", op.ID, op.Status)
		}
		if op.When.IsZero() {
			add("operation %d has no timestamp", op.ID)
		}
		for _, group := range [][]EntityRef{op.Created, op.Changed, op.Inputs, op.Supersedes} {
			for _, ref := range group {
				if !ref.Kind.Valid() || ref.ID == 0 {
					add("operation %d has malformed reference %s", op.ID, ref)
				}
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	// map iteration above makes the order unstable
	sort.Strings(problems)
	return &ValidationError{Document: s.name, Problems: problems}
}

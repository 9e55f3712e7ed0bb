// Package document holds the read-only snapshot of a survey map document that
// an export works from: locations, the features built on them, and the
// operation log that produced them.
package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityID identifies an entity within its kind. Zero is never a valid id.
type EntityID uint64

// OpID identifies an operation within a document.
type OpID uint64

// EntityKind names the kind of a document entity.
type EntityKind string

const (
	KindLocation EntityKind = "location"
	KindPoint    EntityKind = "point"
	KindLine     EntityKind = "line"
	KindText     EntityKind = "text"
)

// Valid reports whether k is one of the known kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindLocation, KindPoint, KindLine, KindText:
		return true
	}
	return false
}

// Status is the lifecycle state of an entity or operation.
type Status string

const (
	StatusLive       Status = "live"
	StatusSuperseded Status = "superseded"
	StatusRolledBack Status = "rolled-back"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusLive, StatusSuperseded, StatusRolledBack:
		return true
	}
	return false
}

// EntityRef is the identity of an entity across kinds. It is the key type for
// every map over entities.
type EntityRef struct {
	Kind EntityKind
	ID   EntityID
}

// Ref builds an EntityRef.
func Ref(kind EntityKind, id EntityID) EntityRef {
	return EntityRef{Kind: kind, ID: id}
}

// String renders the ref as "kind:id".
func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ParseEntityRef parses the "kind:id" form produced by String.
func ParseEntityRef(s string) (EntityRef, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return EntityRef{}, fmt.Errorf("entity ref %q: want kind:id", s)
	}
	k := EntityKind(strings.ToLower(kind))
	if !k.Valid() {
		return EntityRef{}, fmt.Errorf("entity ref %q: unknown kind %q", s, kind)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return EntityRef{}, fmt.Errorf("entity ref %q: invalid id", s)
	}
	return EntityRef{Kind: k, ID: EntityID(n)}, nil
}

// Location is an immutable coordinate in metres.
type Location struct {
	ID     EntityID
	X, Y   float64
	Status Status
}

// Ref returns the location's identity.
func (l Location) Ref() EntityRef { return Ref(KindLocation, l.ID) }

// Point is a keyed feature sitting on exactly one Location.
type Point struct {
	ID       EntityID
	Key      string
	Location EntityID
	Status   Status
}

// Ref returns the point's identity.
func (p Point) Ref() EntityRef { return Ref(KindPoint, p.ID) }

// Line is a straight segment between two locations, or a circular arc when
// Center is non-zero.
type Line struct {
	ID     EntityID
	Start  EntityID
	End    EntityID
	Center EntityID
	Status Status
}

// Ref returns the line's identity.
func (l Line) Ref() EntityRef { return Ref(KindLine, l.ID) }

// IsArc reports whether the line is a circular arc.
func (l Line) IsArc() bool { return l.Center != 0 }

// Locations returns the locations the line depends on: start, end, then the
// centre for arcs.
func (l Line) Locations() []EntityID {
	if l.IsArc() {
		return []EntityID{l.Start, l.End, l.Center}
	}
	return []EntityID{l.Start, l.End}
}

// Text is an annotation placed at a position. It references no Location.
type Text struct {
	ID       EntityID
	Text     string
	X, Y     float64
	Rotation float64
	Status   Status
}

// Ref returns the text's identity.
func (t Text) Ref() EntityRef { return Ref(KindText, t.ID) }

// OpKind names the editing operation that produced a set of changes.
type OpKind string

const (
	OpNewPoint           OpKind = "new-point"
	OpNewLine            OpKind = "new-line"
	OpNewArc             OpKind = "new-arc"
	OpNewText            OpKind = "new-text"
	OpIntersect          OpKind = "intersect"
	OpLineSubdivision    OpKind = "line-subdivision"
	OpPolygonSubdivision OpKind = "polygon-subdivision"
	OpMovePoint          OpKind = "move-point"
	OpDeletion           OpKind = "deletion"
	OpImport             OpKind = "import"
)

// Operation is one timestamped edit. Created and Changed list the entities it
// exposes, Inputs the entities it consumed and Supersedes the entities it
// retired.
type Operation struct {
	ID         OpID
	Kind       OpKind
	When       time.Time
	Status     Status
	Created    []EntityRef
	Changed    []EntityRef
	Inputs     []EntityRef
	Supersedes []EntityRef
}

// Live reports whether the operation has not been undone.
func (o Operation) Live() bool { return o.Status == StatusLive }

// Package export assembles the exchange package for a document: the
// stable-identified items produced by its live operations, extra points for
// locations no exported point covers, and the session envelope.
package export

import (
	"time"

	"cedx/internal/document"
)

// Item is one entry of an exchange package.
type Item struct {
	ID   uint32              `json:"id"`
	Kind document.EntityKind `json:"kind"`
	// Source is the document entity the item exports. Zero for extra points.
	Source document.EntityID `json:"source,omitempty"`
	// Location is the location a point item sits on.
	Location document.EntityID `json:"location,omitempty"`
	Position *Position         `json:"position,omitempty"`
	Label    string            `json:"label,omitempty"`
	Op       document.OpID     `json:"op"`
	OpKind   document.OpKind   `json:"opKind,omitempty"`
	When     time.Time         `json:"when"`
	// Extra marks points synthesized for otherwise unrepresented locations.
	Extra bool  `json:"extra,omitempty"`
	Refs  []Ref `json:"refs,omitempty"`
}

// Position is a coordinate in metres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ref links a location an item depends on to the exported point representing it.
type Ref struct {
	Location document.EntityID `json:"location"`
	Point    uint32            `json:"point"`
}

// IsPoint reports whether the item is a genuine or extra point.
func (it Item) IsPoint() bool { return it.Kind == document.KindPoint }

// Stats counts what an export did.
type Stats struct {
	Operations int `json:"operations"`
	// Skipped counts rolled-back operations.
	Skipped    int `json:"skipped"`
	Genuine    int `json:"genuine"`
	Extra      int `json:"extra"`
	Retired    int `json:"retired"`
	Coincident int `json:"coincident"`
}

// Package is the exchange package produced by one export.
type Package struct {
	Format    int       `json:"format"`
	SessionID string    `json:"sessionId"`
	Machine   string    `json:"machine"`
	Document  string    `json:"document"`
	CreatedAt time.Time `json:"createdAt"`
	Tolerance float64   `json:"tolerance"`
	Items     []Item    `json:"items"`
	Stats     Stats     `json:"stats"`
}

// IDRange returns the lowest and highest item ids, or 0, 0 for an empty package.
func (p *Package) IDRange() (first, last uint32) {
	for i, it := range p.Items {
		if i == 0 || it.ID < first {
			first = it.ID
		}
		if it.ID > last {
			last = it.ID
		}
	}
	return first, last
}

// ExtraCount returns the number of synthesized points.
func (p *Package) ExtraCount() int {
	n := 0
	for _, it := range p.Items {
		if it.Extra {
			n++
		}
	}
	return n
}

package export

import (
	"sort"
	"time"

	"cedx/internal/document"
)

// Summary is an overview of a package for display.
type Summary struct {
	Document   string         `json:"document"`
	SessionID  string         `json:"sessionId"`
	Machine    string         `json:"machine"`
	CreatedAt  time.Time      `json:"createdAt"`
	Items      int            `json:"items"`
	FirstID    uint32         `json:"firstId,omitempty"`
	LastID     uint32         `json:"lastId,omitempty"`
	ByKind     map[string]int `json:"byKind"`
	Operations []OpSummary    `json:"operations"`
	Stats      Stats          `json:"stats"`
}

// OpSummary counts the items produced by one operation.
type OpSummary struct {
	Op     document.OpID   `json:"op"`
	Kind   document.OpKind `json:"kind"`
	When   time.Time       `json:"when"`
	Items  int             `json:"items"`
	Extras int             `json:"extras,omitempty"`
}

// Summarize groups a package's items by kind and by producing operation.
// Operations are listed in timestamp order.
func Summarize(pkg *Package) *Summary {
	if pkg == nil {
		return &Summary{ByKind: map[string]int{}}
	}

	s := &Summary{
		Document:  pkg.Document,
		SessionID: pkg.SessionID,
		Machine:   pkg.Machine,
		CreatedAt: pkg.CreatedAt,
		Items:     len(pkg.Items),
		ByKind:    make(map[string]int),
		Stats:     pkg.Stats,
	}
	s.FirstID, s.LastID = pkg.IDRange()

	byOp := make(map[document.OpID]*OpSummary)
	for _, it := range pkg.Items {
		kind := string(it.Kind)
		if it.Extra {
			kind = "extra-point"
		}
		s.ByKind[kind]++

		op, ok := byOp[it.Op]
		if !ok {
			op = &OpSummary{Op: it.Op, Kind: it.OpKind, When: it.When}
			byOp[it.Op] = op
		}
		if it.Extra {
			op.Extras++
		} else {
			op.Items++
		}
	}

	s.Operations = make([]OpSummary, 0, len(byOp))
	for _, op := range byOp {
		s.Operations = append(s.Operations, *op)
	}
	sort.Slice(s.Operations, func(i, j int) bool {
		a, b := s.Operations[i], s.Operations[j]
		if !a.When.Equal(b.When) {
			return a.When.Before(b.When)
		}
		return a.Op < b.Op
	})
	return s
}

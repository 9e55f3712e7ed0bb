package export

import (
	"fmt"
	"log/slog"
	"sort"

	"cedx/internal/document"
	"cedx/internal/errors"
	"cedx/internal/idalloc"
)

// assembly accumulates the items of one export.
type assembly struct {
	snap  *document.Snapshot
	valid *ValidSet
	alloc idalloc.Allocator
	log   *slog.Logger

	items    []Item
	exported map[document.EntityRef]struct{}
	index    *LocationIndex
	// locations needing a representative, in the order items referenced them
	pending []pendingLocation
	// locations represented through a coincident location's point
	covered map[document.EntityID]uint32
	stats   Stats
}

type pendingLocation struct {
	location document.EntityID
	op       document.Operation
}

func newAssembly(snap *document.Snapshot, valid *ValidSet, alloc idalloc.Allocator, log *slog.Logger) *assembly {
	return &assembly{
		snap:     snap,
		valid:    valid,
		alloc:    alloc,
		log:      log,
		exported: make(map[document.EntityRef]struct{}),
		index:    newLocationIndex(),
		covered:  make(map[document.EntityID]uint32),
	}
}

// orderOperations returns ops sorted by timestamp. Operations with equal
// timestamps keep their document order.
func orderOperations(ops []document.Operation) []document.Operation {
	out := make([]document.Operation, len(ops))
	copy(out, ops)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].When.Before(out[j].When)
	})
	return out
}

// appendExportItems adds the items exposed by op.
func (a *assembly) appendExportItems(op document.Operation) error {
	a.stats.Operations++
	if !op.Live() {
		a.stats.Skipped++
		a.log.Debug("skipping rolled-back operation", "op", op.ID, "kind", op.Kind)
		return nil
	}

	for _, ref := range op.Inputs {
		if !a.snap.Has(ref) {
			return a.integrity(op, ref, "input", "missing from the document")
		}
		if !a.valid.IsValid(ref) && !a.valid.IsRetired(ref) {
			return a.integrity(op, ref, "input", a.describe(ref))
		}
	}

	for _, ref := range op.Created {
		if err := a.exportEntity(op, ref); err != nil {
			return err
		}
	}
	for _, ref := range op.Changed {
		if err := a.exportEntity(op, ref); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembly) exportEntity(op document.Operation, ref document.EntityRef) error {
	if !a.snap.Has(ref) {
		return a.integrity(op, ref, "exposed", "missing from the document")
	}
	if _, done := a.exported[ref]; done {
		return nil
	}
	if !a.valid.IsValid(ref) {
		if a.valid.IsRetired(ref) {
			a.stats.Retired++
			a.log.Debug("skipping retired entity", "op", op.ID, "entity", ref.String())
			return nil
		}
		return a.integrity(op, ref, "exposed", a.describe(ref))
	}

	locs := a.snap.LocationsOf(ref)
	for _, loc := range locs {
		lref := document.Ref(document.KindLocation, loc)
		if !a.valid.IsValid(lref) {
			return a.integrity(op, lref, "position of "+ref.String(), a.describe(lref))
		}
	}
	a.exported[ref] = struct{}{}

	if ref.Kind == document.KindLocation {
		// A bare location is not an item; it only needs a representative point.
		a.pending = append(a.pending, pendingLocation{location: ref.ID, op: op})
		return nil
	}

	id, err := a.alloc.Allocate()
	if err != nil {
		return err
	}
	item := a.newItem(id, op, ref)
	for _, loc := range locs {
		item.Refs = append(item.Refs, Ref{Location: loc})
		a.pending = append(a.pending, pendingLocation{location: loc, op: op})
	}
	a.items = append(a.items, item)
	a.stats.Genuine++
	a.log.Debug("exported entity", "op", op.ID, "entity", ref.String(), "id", id)

	if item.IsPoint() {
		a.recordLocations(item)
	}
	return nil
}

func (a *assembly) newItem(id uint32, op document.Operation, ref document.EntityRef) Item {
	item := Item{
		ID:     id,
		Kind:   ref.Kind,
		Source: ref.ID,
		Op:     op.ID,
		OpKind: op.Kind,
		When:   op.When,
	}
	switch ref.Kind {
	case document.KindPoint:
		p, _ := a.snap.Point(ref.ID)
		loc, _ := a.snap.Location(p.Location)
		item.Location = p.Location
		item.Position = &Position{X: loc.X, Y: loc.Y}
		item.Label = p.Key
	case document.KindText:
		t, _ := a.snap.Text(ref.ID)
		item.Position = &Position{X: t.X, Y: t.Y}
		item.Label = t.Text
	}
	return item
}

// recordLocations makes a point item the representative of its location
// unless an earlier point already is.
func (a *assembly) recordLocations(item Item) {
	if !a.index.Record(item.Location, item.ID) {
		first, _ := a.index.Lookup(item.Location)
		a.log.Debug("location already represented", "location", item.Location, "point", item.ID, "representative", first)
	}
}

func (a *assembly) describe(ref document.EntityRef) string {
	st, ok := a.snap.Status(ref)
	switch {
	case !ok:
		return "missing from the document"
	case a.valid.IsUndone(ref):
		return "created by a rolled-back operation"
	case a.valid.IsRetired(ref):
		return fmt.Sprintf("%s by a live operation", st)
	default:
		return fmt.Sprintf("%s without a live operation retiring it", st)
	}
}

func (a *assembly) integrity(op document.Operation, ref document.EntityRef, role, reason string) error {
	a.log.Error("data integrity failure", "op", op.ID, "entity", ref.String(), "role", role, "reason", reason)
	return errors.Newf(errors.DataIntegrity, "operation %d (%s): %s entity %s is %s",
		op.ID, op.Kind, role, ref, reason).WithDetails(map[string]interface{}{
		"document": a.snap.Name(),
		"op":       op.ID,
		"entity":   ref.String(),
	})
}

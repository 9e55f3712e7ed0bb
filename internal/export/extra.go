package export

import (
	"cedx/internal/document"
	"cedx/internal/errors"
)

// generateExtraPoints appends a synthesized point for every referenced
// location with no exported point on it or on a coincident location, then
// resolves every item's refs.
func (a *assembly) generateExtraPoints(f *Finder) error {
	for _, p := range a.pending {
		if err := a.checkForExtraPoint(f, p); err != nil {
			return err
		}
	}
	return a.resolveRefs()
}

func (a *assembly) checkForExtraPoint(f *Finder, p pendingLocation) error {
	if _, ok := a.index.Lookup(p.location); ok {
		return nil
	}
	if _, ok := a.covered[p.location]; ok {
		return nil
	}

	loc, _ := a.snap.Location(p.location)
	if rep, id, ok := f.Representative(loc, a.index); ok {
		a.covered[loc.ID] = id
		a.stats.Coincident++
		a.log.Debug("location represented by coincident point",
			"location", loc.ID, "coincident", rep.ID, "point", id)
		return nil
	}

	id, err := a.alloc.Allocate()
	if err != nil {
		return err
	}
	a.items = append(a.items, Item{
		ID:       id,
		Kind:     document.KindPoint,
		Location: loc.ID,
		Position: &Position{X: loc.X, Y: loc.Y},
		Op:       p.op.ID,
		OpKind:   p.op.Kind,
		When:     p.op.When,
		Extra:    true,
		Refs:     []Ref{{Location: loc.ID, Point: id}},
	})
	a.index.Record(loc.ID, id)
	a.stats.Extra++
	a.log.Debug("synthesized extra point", "location", loc.ID, "id", id, "op", p.op.ID)
	return nil
}

func (a *assembly) resolveRefs() error {
	for i := range a.items {
		refs := a.items[i].Refs
		for j := range refs {
			if refs[j].Point != 0 {
				continue
			}
			id, ok := a.index.Lookup(refs[j].Location)
			if !ok {
				id, ok = a.covered[refs[j].Location]
			}
			if !ok {
				return errors.Newf(errors.InternalError, "location %d of item %d has no representative", refs[j].Location, a.items[i].ID)
			}
			refs[j].Point = id
		}
	}
	return nil
}

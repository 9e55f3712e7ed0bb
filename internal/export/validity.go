package export

import (
	"cedx/internal/document"
	"cedx/internal/errors"
)

// ValidSet is the outcome of the validity filter for one snapshot.
type ValidSet struct {
	valid   map[document.EntityRef]struct{}
	retired map[document.EntityRef]struct{}
	undone  map[document.EntityRef]struct{}
}

// LoadValidData computes which entities of snap may be exported. An entity is
// valid when it is live and was not created by a rolled-back operation.
// Entities named in a live operation's Supersedes are recorded as retired.
func LoadValidData(snap *document.Snapshot) (*ValidSet, error) {
	if snap == nil {
		return nil, errors.New(errors.DataIntegrity, "no document to export", nil)
	}
	if err := snap.Validate(); err != nil {
		return nil, errors.New(errors.DataIntegrity, "document failed validation", err)
	}

	c := snap.Counts()
	v := &ValidSet{
		valid:   make(map[document.EntityRef]struct{}, c.Locations+c.Points+c.Lines+c.Texts),
		retired: make(map[document.EntityRef]struct{}),
		undone:  make(map[document.EntityRef]struct{}),
	}

	for _, op := range snap.Operations() {
		if op.Live() {
			for _, ref := range op.Supersedes {
				v.retired[ref] = struct{}{}
			}
			continue
		}
		for _, ref := range op.Created {
			v.undone[ref] = struct{}{}
		}
	}

	mark := func(ref document.EntityRef, st document.Status) {
		if st != document.StatusLive {
			return
		}
		if _, ok := v.undone[ref]; ok {
			return
		}
		v.valid[ref] = struct{}{}
	}
	for _, l := range snap.Locations() {
		mark(l.Ref(), l.Status)
	}
	for _, p := range snap.Points() {
		mark(p.Ref(), p.Status)
	}
	for _, l := range snap.Lines() {
		mark(l.Ref(), l.Status)
	}
	for _, t := range snap.Texts() {
		mark(t.Ref(), t.Status)
	}
	return v, nil
}

// IsValid reports whether ref passed the filter.
func (v *ValidSet) IsValid(ref document.EntityRef) bool {
	_, ok := v.valid[ref]
	return ok
}

// IsRetired reports whether a live operation superseded ref.
func (v *ValidSet) IsRetired(ref document.EntityRef) bool {
	_, ok := v.retired[ref]
	return ok
}

// IsUndone reports whether ref was created by a rolled-back operation.
func (v *ValidSet) IsUndone(ref document.EntityRef) bool {
	_, ok := v.undone[ref]
	return ok
}

// Len returns the number of valid entities.
func (v *ValidSet) Len() int { return len(v.valid) }

// Locations returns the valid locations of snap in document order.
func (v *ValidSet) Locations(snap *document.Snapshot) []document.Location {
	all := snap.Locations()
	out := make([]document.Location, 0, len(all))
	for _, l := range all {
		if v.IsValid(l.Ref()) {
			out = append(out, l)
		}
	}
	return out
}

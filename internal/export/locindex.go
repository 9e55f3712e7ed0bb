package export

import "cedx/internal/document"

// LocationIndex maps a location to the export id of the first point exported
// on it.
type LocationIndex struct {
	points map[document.EntityID]uint32
}

func newLocationIndex() *LocationIndex {
	return &LocationIndex{points: make(map[document.EntityID]uint32)}
}

// Record notes that point represents loc. The first record for a location
// wins; Record reports whether this call added it.
func (ix *LocationIndex) Record(loc document.EntityID, point uint32) bool {
	if _, ok := ix.points[loc]; ok {
		return false
	}
	ix.points[loc] = point
	return true
}

// Lookup returns the export id of the point representing loc.
func (ix *LocationIndex) Lookup(loc document.EntityID) (uint32, bool) {
	id, ok := ix.points[loc]
	return id, ok
}

// Len returns the number of represented locations.
func (ix *LocationIndex) Len() int { return len(ix.points) }

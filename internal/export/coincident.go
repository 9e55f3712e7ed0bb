package export

import (
	"log/slog"
	"math"

	"cedx/internal/document"
	"cedx/internal/slogutil"
)

// IsCoincident reports whether a and b lie within tol of each other on both axes.
func IsCoincident(a, b document.Location, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// GetAllCoincidentLocations returns every location in locs, in order, that is
// coincident with loc under tol. loc itself is included when it is in locs.
// Each match is written to log at debug level. The scan is linear.
func GetAllCoincidentLocations(locs []document.Location, loc document.Location, tol float64, log *slog.Logger) []document.Location {
	log = slogutil.OrDiscard(log)

	var out []document.Location
	for _, cand := range locs {
		if !IsCoincident(cand, loc, tol) {
			continue
		}
		log.Debug("coincident location",
			"location", loc.ID,
			"match", cand.ID,
			"dx", cand.X-loc.X,
			"dy", cand.Y-loc.Y,
		)
		out = append(out, cand)
	}
	return out
}

// Finder answers coincidence queries over a fixed set of locations.
type Finder struct {
	locations []document.Location
	tolerance float64
	log       *slog.Logger
}

// NewFinder creates a finder over locs, which must be in document order.
func NewFinder(locs []document.Location, tolerance float64, log *slog.Logger) *Finder {
	return &Finder{
		locations: locs,
		tolerance: tolerance,
		log:       slogutil.OrDiscard(log),
	}
}

// Coincident returns the locations coincident with loc.
func (f *Finder) Coincident(loc document.Location) []document.Location {
	return GetAllCoincidentLocations(f.locations, loc, f.tolerance, f.log)
}

// Representative returns the first location coincident with loc, in document
// order, that ix already maps to an exported point.
func (f *Finder) Representative(loc document.Location, ix *LocationIndex) (document.Location, uint32, bool) {
	for _, cand := range f.Coincident(loc) {
		if id, ok := ix.Lookup(cand.ID); ok {
			return cand, id, true
		}
	}
	return document.Location{}, 0, false
}

// Tolerance returns the finder's coincidence window in metres.
func (f *Finder) Tolerance() float64 { return f.tolerance }

package export

import (
	"fmt"

	"cedx/internal/errors"
)

// Verify checks that pkg has unique non-zero ids, that every location an item
// depends on resolves to an exported point, and that items are ordered by
// timestamp with extra points last. All problems are listed in the error
// details.
func Verify(pkg *Package) error {
	if pkg == nil {
		return errors.New(errors.PackageInvalid, "no package", nil)
	}

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	byID := make(map[uint32]Item, len(pkg.Items))
	for i, it := range pkg.Items {
		if it.ID == 0 {
			add("item %d has id 0", i)
			continue
		}
		if _, dup := byID[it.ID]; dup {
			add("id %d is used more than once", it.ID)
			continue
		}
		byID[it.ID] = it
	}

	seenExtra := false
	var last Item
	genuine := 0
	for _, it := range pkg.Items {
		if it.Extra {
			seenExtra = true
			if !it.IsPoint() {
				add("extra item %d is a %s, not a point", it.ID, it.Kind)
			}
			continue
		}
		if seenExtra {
			add("item %d follows an extra point", it.ID)
		}
		if genuine > 0 && it.When.Before(last.When) {
			add("item %d (%s) is older than item %d (%s)",
				it.ID, it.When.Format("2006-01-02T15:04:05Z07:00"),
				last.ID, last.When.Format("2006-01-02T15:04:05Z07:00"))
		}
		last = it
		genuine++
	}

	for _, it := range pkg.Items {
		if it.IsPoint() && it.Location == 0 {
			add("point item %d has no location", it.ID)
		}
		for _, ref := range it.Refs {
			target, ok := byID[ref.Point]
			switch {
			case ref.Point == 0:
				add("item %d leaves location %d unrepresented", it.ID, ref.Location)
			case !ok:
				add("item %d refers to missing point %d", it.ID, ref.Point)
			case !target.IsPoint():
				add("item %d refers to item %d, a %s", it.ID, ref.Point, target.Kind)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Newf(errors.PackageInvalid, "package %s has %d problem(s), first: %s",
		pkg.SessionID, len(problems), problems[0]).WithDetails(problems)
}

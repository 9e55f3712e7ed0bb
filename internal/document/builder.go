package document

import "slices"

// Builder assembles a Snapshot. Entities added with the Add methods get the
// next free id of their kind; the Put methods keep the caller's id. An empty
// status defaults to live.
type Builder struct {
	name       string
	operations []Operation
	locations  []Location
	points     []Point
	lines      []Line
	texts      []Text

	nextID map[EntityKind]EntityID
	nextOp OpID
}

// NewBuilder creates a builder for the named document.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:   name,
		nextID: make(map[EntityKind]EntityID),
		nextOp: 1,
	}
}

func (b *Builder) claim(kind EntityKind, id EntityID) EntityID {
	if id == 0 {
		id = b.nextID[kind]
		if id == 0 {
			id = 1
		}
	}
	if id >= b.nextID[kind] {
		b.nextID[kind] = id + 1
	}
	return id
}

func orLive(s Status) Status {
	if s == "" {
		return StatusLive
	}
	return s
}

// AddLocation adds a live location and returns its id.
func (b *Builder) AddLocation(x, y float64) EntityID {
	return b.PutLocation(Location{X: x, Y: y})
}

// PutLocation adds l, assigning an id when l.ID is zero.
func (b *Builder) PutLocation(l Location) EntityID {
	l.ID = b.claim(KindLocation, l.ID)
	l.Status = orLive(l.Status)
	b.locations = append(b.locations, l)
	return l.ID
}

// AddPoint adds a live point on loc and returns its id.
func (b *Builder) AddPoint(key string, loc EntityID) EntityID {
	return b.PutPoint(Point{Key: key, Location: loc})
}

// PutPoint adds p, assigning an id when p.ID is zero.
func (b *Builder) PutPoint(p Point) EntityID {
	p.ID = b.claim(KindPoint, p.ID)
	p.Status = orLive(p.Status)
	b.points = append(b.points, p)
	return p.ID
}

// AddLine adds a live straight line and returns its id.
func (b *Builder) AddLine(start, end EntityID) EntityID {
	return b.PutLine(Line{Start: start, End: end})
}

// AddArc adds a live circular arc and returns its id.
func (b *Builder) AddArc(start, end, center EntityID) EntityID {
	return b.PutLine(Line{Start: start, End: end, Center: center})
}

// PutLine adds l, assigning an id when l.ID is zero.
func (b *Builder) PutLine(l Line) EntityID {
	l.ID = b.claim(KindLine, l.ID)
	l.Status = orLive(l.Status)
	b.lines = append(b.lines, l)
	return l.ID
}

// AddText adds a live text and returns its id.
func (b *Builder) AddText(text string, x, y, rotation float64) EntityID {
	return b.PutText(Text{Text: text, X: x, Y: y, Rotation: rotation})
}

// PutText adds t, assigning an id when t.ID is zero.
func (b *Builder) PutText(t Text) EntityID {
	t.ID = b.claim(KindText, t.ID)
	t.Status = orLive(t.Status)
	b.texts = append(b.texts, t)
	return t.ID
}

// SetStatus changes the status of an entity already added. It reports false
// when no such entity exists.
func (b *Builder) SetStatus(ref EntityRef, status Status) bool {
	switch ref.Kind {
	case KindLocation:
		for i := range b.locations {
			if b.locations[i].ID == ref.ID {
				b.locations[i].Status = status
				return true
			}
		}
	case KindPoint:
		for i := range b.points {
			if b.points[i].ID == ref.ID {
				b.points[i].Status = status
				return true
			}
		}
	case KindLine:
		for i := range b.lines {
			if b.lines[i].ID == ref.ID {
				b.lines[i].Status = status
				return true
			}
		}
	case KindText:
		for i := range b.texts {
			if b.texts[i].ID == ref.ID {
				b.texts[i].Status = status
				return true
			}
		}
	}
	return false
}

// AddOperation appends op to the log, assigning an id when op.ID is zero.
func (b *Builder) AddOperation(op Operation) OpID {
	if op.ID == 0 {
		op.ID = b.nextOp
	}
	if op.ID >= b.nextOp {
		b.nextOp = op.ID + 1
	}
	op.Status = orLive(op.Status)
	b.operations = append(b.operations, op)
	return op.ID
}

// Build copies the builder's contents into a Snapshot and validates it.
// The builder may be reused afterwards without affecting the snapshot.
func (b *Builder) Build() (*Snapshot, error) {
	s := b.snapshot()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *Builder) snapshot() *Snapshot {
	s := &Snapshot{
		name:       b.name,
		operations: make([]Operation, len(b.operations)),
		locations:  slices.Clone(b.locations),
		points:     slices.Clone(b.points),
		lines:      slices.Clone(b.lines),
		texts:      slices.Clone(b.texts),

		locationIdx: make(map[EntityID]int, len(b.locations)),
		pointIdx:    make(map[EntityID]int, len(b.points)),
		lineIdx:     make(map[EntityID]int, len(b.lines)),
		textIdx:     make(map[EntityID]int, len(b.texts)),
		opIdx:       make(map[OpID]int, len(b.operations)),
	}
	for i, op := range b.operations {
		op.Created = slices.Clone(op.Created)
		op.Changed = slices.Clone(op.Changed)
		op.Inputs = slices.Clone(op.Inputs)
		op.Supersedes = slices.Clone(op.Supersedes)
		s.operations[i] = op
	}

	// Duplicates keep their first position; Validate reports them.
	for i, l := range s.locations {
		if _, dup := s.locationIdx[l.ID]; !dup {
			s.locationIdx[l.ID] = i
		}
	}
	for i, p := range s.points {
		if _, dup := s.pointIdx[p.ID]; !dup {
			s.pointIdx[p.ID] = i
		}
	}
	for i, l := range s.lines {
		if _, dup := s.lineIdx[l.ID]; !dup {
			s.lineIdx[l.ID] = i
		}
	}
	for i, t := range s.texts {
		if _, dup := s.textIdx[t.ID]; !dup {
			s.textIdx[t.ID] = i
		}
	}
	for i, op := range s.operations {
		if _, dup := s.opIdx[op.ID]; !dup {
			s.opIdx[op.ID] = i
		}
	}
	return s
}

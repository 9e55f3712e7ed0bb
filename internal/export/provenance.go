package export

import (
	"os"

	"github.com/google/uuid"
)

// Provenance supplies the envelope identifiers of an export.
type Provenance interface {
	SessionID() string
	MachineName() string
}

// SystemProvenance uses a random UUID per session and the host name.
type SystemProvenance struct{}

// SessionID returns a new random UUID.
func (SystemProvenance) SessionID() string {
	return uuid.New().String()
}

// MachineName returns the host name, or "unknown".
func (SystemProvenance) MachineName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

// FixedProvenance returns the same identifiers every time.
type FixedProvenance struct {
	Session string
	Machine string
}

// SessionID returns p.Session.
func (p FixedProvenance) SessionID() string { return p.Session }

// MachineName returns p.Machine.
func (p FixedProvenance) MachineName() string { return p.Machine }

// Package identity resolves device-local application identifiers (Android
// package names, Windows executable names, ...) onto one canonical display
// name and category.
package identity

import (
	"strings"

	"countdowntodo-sync/internal/models"
)

// Identity is the canonical form an application is reported under.
type Identity struct {
	CanonicalName string
	Category      string
}

// Resolver maps a raw identifier to its canonical identity. Implementations
// must be side-effect free; a miss resolves to the raw identifier and the
// unclassified category.
type Resolver interface {
	Resolve(raw string) Identity
}

// Table is an immutable snapshot of the mapping table.
type Table struct {
	byID map[string]Identity
}

func NewTable(ms []models.IdentityMapping) *Table {
	t := &Table{byID: make(map[string]Identity, len(ms))}
	for _, m := range ms {
		id := strings.TrimSpace(m.AppID)
		if id == "" {
			continue
		}
		t.byID[id] = Identity{CanonicalName: m.CanonicalName, Category: m.Category}
	}
	return t
}

func (t *Table) Resolve(raw string) Identity {
	if t != nil {
		if id, ok := t.byID[raw]; ok {
			if id.CanonicalName == "" {
				id.CanonicalName = raw
			}
			if id.Category == "" {
				id.Category = models.Unclassified
			}
			return id
		}
	}
	return Fallback(raw)
}

// Fallback is the identity of an unmapped identifier.
func Fallback(raw string) Identity {
	return Identity{CanonicalName: raw, Category: models.Unclassified}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byID)
}

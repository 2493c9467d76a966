package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// specimenNamespace scopes derived specimen ids so they never collide with other v5 ids.
var specimenNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("pmiengine/specimen"))

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// Domain-specific ID types
type (
	SpecimenID ID
	RunID      ID
)

func (id SpecimenID) String() string { return ID(id).String() }
func (id RunID) String() string      { return ID(id).String() }

// NewRunID creates a time-ordered id for one analysis run
func NewRunID() RunID {
	return RunID(NewID())
}

// DeriveSpecimenID returns a stable id for a specimen that arrived without one.
// The same batch position and attributes always produce the same id, so reports
// stay reproducible across runs.
func DeriveSpecimenID(position int, parts ...string) SpecimenID {
	name := fmt.Sprintf("%d|%s", position, strings.Join(parts, "|"))
	return SpecimenID(uuid.NewSHA1(specimenNamespace, []byte(name)).String())
}

// ParseSpecimenID parses a string into SpecimenID
func ParseSpecimenID(s string) (SpecimenID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("specimen ID cannot be empty")
	}
	return SpecimenID(strings.TrimSpace(s)), nil
}

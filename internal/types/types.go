// Package types defines the entities persisted by the local storage core.
//
// Every persistent entity carries a LocalUID (always present once stored,
// authoritative within the local store) and an optional GUID assigned by the
// remote service after synchronization. Equality is by LocalUID. Optional
// fields are pointers so "absent" is never conflated with a zero value.
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Timestamps are unix-epoch milliseconds throughout.
type Timestamp = int64

// LookupBy selects which identity a find operation uses.
type LookupBy int

const (
	// ByLocalUID looks up by the locally generated stable identifier.
	ByLocalUID LookupBy = iota
	// ByGUID looks up by the remote-service-assigned identifier.
	ByGUID
)

func (l LookupBy) String() string {
	switch l {
	case ByLocalUID:
		return "local uid"
	case ByGUID:
		return "guid"
	default:
		return fmt.Sprintf("LookupBy(%d)", int(l))
	}
}

// NewLocalUID generates a fresh local uid.
func NewLocalUID() string {
	return uuid.NewString()
}

// CheckGUID reports whether s is a well-formed guid. The remote service
// hands out uuid-shaped identifiers; anything else is rejected before it
// reaches the database.
func CheckGUID(s string) error {
	if s == "" {
		return fmt.Errorf("guid is empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("guid %q is not uuid-shaped", s)
	}
	return nil
}

// Ptr returns a pointer to v. Convenience for building entities with
// optional fields.
func Ptr[T any](v T) *T { return &v }

// Package ids allocates opaque identifiers for stored records.
package ids

import (
	"strconv"

	"github.com/google/uuid"
)

// Allocator produces identifiers unique within a Document.
type Allocator interface {
	NewID() string
}

// UUID allocates random version 4 UUIDs.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// Func adapts a plain function to an Allocator.
type Func func() string

func (f Func) NewID() string { return f() }

// Sequence returns an allocator yielding prefix1, prefix2, ... in order.
// It is not safe for concurrent use.
func Sequence(prefix string) Func {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}


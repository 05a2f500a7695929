package engine

import "fmt"

// ID identifies an entity, a component or a relationship pair. The low 32 bits
// hold the entity index, bits 32..47 hold the generation. Pairs set PairFlag
// and pack the index of the relationship in bits 32..62 and the index of the
// target in the low 32 bits.
type ID uint64

const (
	// PairFlag marks an ID as a (relationship, target) pair.
	PairFlag ID = 1 << 63

	indexMask  ID = 0xFFFFFFFF
	firstMask  ID = 0x7FFFFFFF
	genShift      = 32
	genMask    ID = 0xFFFF << genShift
)

// Builtin entities. Index 0 is never a valid entity.
const (
	// Wildcard matches any relationship or target inside a pair.
	Wildcard ID = 1
	// ChildOf is the builtin hierarchy relationship.
	ChildOf ID = 2
	// Traversable marks a relationship usable for up and cascade traversal.
	Traversable ID = 3
)

const (
	// FirstComponentID is the first index of the range reserved for
	// components. Keeping components in a low range lets independently
	// created worlds agree on ids for the same symbol.
	FirstComponentID = 16
	// MaxReservedComponents is the size of the reserved component range.
	MaxReservedComponents = 4096

	firstEntityIndex = FirstComponentID + MaxReservedComponents
)

// MakePair builds a pair id from a relationship and a target.
func MakePair(first, second ID) ID {
	return PairFlag | (first&firstMask)<<32 | second&indexMask
}

// IsPair reports whether id is a pair.
func (id ID) IsPair() bool {
	return id&PairFlag != 0
}

// First returns the relationship index of a pair.
func (id ID) First() ID {
	return (id >> 32) & firstMask
}

// Second returns the target index of a pair.
func (id ID) Second() ID {
	return id & indexMask
}

// Index returns the entity index without generation bits.
func (id ID) Index() uint32 {
	return uint32(id & indexMask)
}

// Generation returns the recycle counter of an entity id.
func (id ID) Generation() uint16 {
	return uint16((id & genMask) >> genShift)
}

// HasWildcard reports whether a pair uses Wildcard on either side.
func (id ID) HasWildcard() bool {
	if id == Wildcard {
		return true
	}
	return id.IsPair() && (id.First() == Wildcard || id.Second() == Wildcard)
}

// Matches reports whether a concrete id matches a (possibly wildcard) pattern.
func (id ID) Matches(pattern ID) bool {
	if id == pattern {
		return true
	}
	if !pattern.IsPair() || !id.IsPair() {
		return false
	}
	first := pattern.First()
	second := pattern.Second()
	return (first == Wildcard || first == id.First()) &&
		(second == Wildcard || second == id.Second())
}

func (id ID) String() string {
	if id.IsPair() {
		return fmt.Sprintf("(%d, %d)", id.First(), id.Second())
	}
	if g := id.Generation(); g != 0 {
		return fmt.Sprintf("%d#%d", id.Index(), g)
	}
	return fmt.Sprintf("%d", id.Index())
}

func makeID(index uint32, gen uint16) ID {
	return ID(gen)<<genShift | ID(index)
}

// Package dsl parses the textual query language into an intermediate form.
// Resolving names to component ids and building the query is left to the
// caller, so the same builder path serves typed and textual queries.
//
// A query is a list of terms separated by "," (and) or "||" (or):
//
//	[inout] *Position, Velocity(up ChildOf), !Frozen, (Likes, *), Gravity($)
package dsl

import (
	"strconv"
	"strings"
)

// Access is the access annotation of a term.
type Access uint8

const (
	AccessDefault Access = iota
	AccessIn
	AccessOut
	AccessInOut
	AccessFilter
	AccessNone
)

var accessNames = [...]string{"default", "in", "out", "inout", "filter", "none"}

func (a Access) String() string {
	if int(a) < len(accessNames) {
		return accessNames[a]
	}
	return "unknown"
}

// Oper is the operator of a term.
type Oper uint8

const (
	OperAnd Oper = iota
	OperOr
	OperNot
	OperOptional
)

var operNames = [...]string{"and", "or", "not", "optional"}

func (o Oper) String() string {
	if int(o) < len(operNames) {
		return operNames[o]
	}
	return "unknown"
}

// SourceKind is the source annotation of a term.
type SourceKind uint8

const (
	// SourceNone means no source was written; the term matches the iterated
	// entity.
	SourceNone SourceKind = iota
	SourceSelf
	// SourceSingleton is written "$": the component is read from its own
	// component entity.
	SourceSingleton
	SourceUp
	SourceCascade
	// SourceEntity names a fixed source entity.
	SourceEntity
)

// Wildcard is the identifier matching any relationship or target.
const Wildcard = "*"

// Term is one parsed term.
type Term struct {
	Access  Access
	Oper    Oper
	Mutable bool // written with a leading "*"
	// First is the component name, or the relationship of a pair.
	First string
	// Second is the pair target; empty when the term is not a pair.
	Second string
	Source SourceKind
	// SourceName is the traversal relationship for up/cascade, or the
	// entity name for SourceEntity.
	SourceName string
	// Pos is the byte offset of the term in the source text.
	Pos int
}

// IsPair reports whether the term was written as a pair.
func (t Term) IsPair() bool {
	return t.Second != ""
}

func (t Term) String() string {
	var b strings.Builder
	b.WriteString(t.Access.String())
	b.WriteByte(' ')
	b.WriteString(t.Oper.String())
	b.WriteByte(' ')
	if t.Mutable {
		b.WriteByte('*')
	}
	if t.IsPair() {
		b.WriteString("(" + t.First + ", " + t.Second + ")")
	} else {
		b.WriteString(t.First)
	}
	switch t.Source {
	case SourceSelf:
		b.WriteString("(self)")
	case SourceSingleton:
		b.WriteString("($)")
	case SourceUp, SourceCascade:
		kw := "up"
		if t.Source == SourceCascade {
			kw = "cascade"
		}
		if t.SourceName != "" {
			kw += " " + t.SourceName
		}
		b.WriteString("(" + kw + ")")
	case SourceEntity:
		b.WriteString("(" + t.SourceName + ")")
	}
	return b.String()
}

// Query is a parsed query.
type Query struct {
	Terms []Term
}

// String renders one numbered term per line. The output is stable and is
// used by golden tests.
func (q *Query) String() string {
	var b strings.Builder
	for i, t := range q.Terms {
		b.WriteString(strconv.Itoa(i))
		b.WriteString(": ")
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Package kozo is a typed Entity Component System front-end for Go.
//
// Go types are mapped to component ids once per world, with the same id in
// every world of the process. Queries are described either with typed terms
// (Read, Write, Pair, ...), with element tuples (NewQuery2[*Position,
// Velocity]) or with a small text DSL ("*Position, Velocity, !Frozen"), and
// all three compile to the same descriptor. Iteration hands out batches whose
// columns are bound as typed views, and structural changes made while
// iterating are deferred until the batch is released.
//
// Features:
//   - Cross-world stable component ids derived from the Go type path.
//   - Pairs, wildcards, ChildOf hierarchies with up and cascade traversal.
//   - Singletons, optional and or terms, group and order by.
//   - OnAdd, OnRemove and OnSet hooks whose contexts are released exactly once.
//   - Systems run by Progress and observers for lifecycle events.
package kozo

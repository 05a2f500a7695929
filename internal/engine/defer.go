package engine

import "unsafe"

type cmdKind uint8

const (
	cmdAdd cmdKind = iota
	cmdRemove
	cmdSet
	cmdEnsure
	cmdModified
	cmdDelete
)

// command is a structural change queued while the world is deferred.
type command struct {
	value unsafe.Pointer // staged component value for set/ensure
	rec   *componentRecord
	e     ID
	id    ID
	kind  cmdKind
}

// DeferBegin starts deferred mode. Structural changes are queued until the
// matching DeferEnd. Calls nest.
func (w *World) DeferBegin() {
	w.deferDepth++
}

// DeferEnd leaves deferred mode and, at the outermost level, applies queued
// commands in order. Commands targeting entities deleted in the meantime are
// skipped.
func (w *World) DeferEnd() {
	if w.deferDepth == 0 {
		return
	}
	w.deferDepth--
	if w.deferDepth > 0 {
		return
	}
	for len(w.cmds) > 0 {
		cmds := w.cmds
		w.cmds = nil
		for i := range cmds {
			w.apply(&cmds[i])
		}
	}
}

// DeferDiscard leaves deferred mode dropping queued commands at the outermost
// level. It is used when the code that queued them did not complete.
func (w *World) DeferDiscard() {
	if w.deferDepth == 0 {
		return
	}
	w.deferDepth--
	if w.deferDepth == 0 {
		w.cmds = nil
	}
}

// IsDeferred reports whether structural changes are currently queued.
func (w *World) IsDeferred() bool {
	return w.deferDepth > 0
}

func (w *World) apply(c *command) {
	if !w.IsAlive(c.e) {
		return
	}
	switch c.kind {
	case cmdAdd:
		if w.checkAddable(c.id) == nil {
			w.add(c.e, c.id)
		}
	case cmdRemove:
		_ = w.Remove(c.e, c.id)
	case cmdSet:
		if w.checkAddable(c.id) == nil {
			w.set(c.e, c.id, c.value, c.rec)
		}
	case cmdEnsure:
		if w.checkAddable(c.id) == nil && w.Get(c.e, c.id) == nil {
			w.add(c.e, c.id)
			if dst := w.Get(c.e, c.id); dst != nil {
				c.rec.hooks.Copy(dst, c.value, 1)
			}
		}
	case cmdModified:
		w.modified(c.e, c.id)
	case cmdDelete:
		w.delete(c.e)
	}
}

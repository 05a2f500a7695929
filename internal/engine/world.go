package engine

import (
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultChunkSize is the number of rows stored per chunk.
const DefaultChunkSize = 1024

// entityMeta holds the location and state of an entity.
type entityMeta struct {
	table *table
	chunk int    // index in table.chunks
	row   int    // position inside the chunk
	gen   uint16 // current generation
	alive bool
}

// entityRegistry tracks entity indices, generations and recycling.
type entityRegistry struct {
	freeIDs []uint32     // stack of recycled entity indices
	metas   []entityMeta // indexed by entity index
	next    uint32       // next never used index
}

// Options configures a World.
type Options struct {
	InitialCapacity int
	ChunkSize       int
	Logger          *zap.Logger
}

// World is one instance of the engine. It is not safe for concurrent use.
type World struct {
	entities       entityRegistry
	components     map[ID]*componentRecord
	names          map[string]ID
	entityNames    map[uint32]string
	tables         []*table
	tableIndex     map[string]*table
	root           *table
	slots          map[ID]int
	queries        []*Query
	observers      observerRegistry
	systems        []*System
	cmds           []command
	log            *zap.Logger
	chunkSize      int
	deferDepth     int
	tableVersion   uint64 // incremented when a new table is created
	reservedCursor uint32
	finished       bool
}

// NewWorld creates a world with builtin entities in place.
func NewWorld(opts Options) *World {
	if opts.InitialCapacity <= 0 {
		opts.InitialCapacity = 1024
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = Logger()
	}
	w := &World{
		components:     make(map[ID]*componentRecord, 64),
		names:          make(map[string]ID, 64),
		entityNames:    make(map[uint32]string, 64),
		tableIndex:     make(map[string]*table),
		slots:          make(map[ID]int),
		log:            opts.Logger,
		chunkSize:      opts.ChunkSize,
		reservedCursor: firstEntityIndex - 1,
	}
	w.entities.metas = make([]entityMeta, firstEntityIndex, firstEntityIndex+opts.InitialCapacity)
	w.entities.next = firstEntityIndex
	w.observers.init()
	w.root = w.getOrCreateTable(nil)

	for _, b := range []struct {
		id   ID
		name string
	}{{Wildcard, "Wildcard"}, {ChildOf, "ChildOf"}, {Traversable, "Traversable"}} {
		w.makeAlive(b.id.Index())
		w.names[b.name] = b.id
		w.entityNames[b.id.Index()] = b.name
	}
	w.components[ChildOf] = &componentRecord{info: ComponentInfo{ID: ChildOf, Name: "ChildOf"}}
	w.components[Traversable] = &componentRecord{info: ComponentInfo{ID: Traversable, Name: "Traversable"}}
	_ = w.Add(ChildOf, Traversable)
	return w
}

// slotOf returns the dense bitset slot for id.
func (w *World) slotOf(id ID) int {
	if s, ok := w.slots[id]; ok {
		return s
	}
	s := len(w.slots)
	w.slots[id] = s
	return s
}

// IsAlive checks if the entity is currently alive. The generation must match
// the world's current generation for the index, so stale references to a
// recycled index are rejected.
func (w *World) IsAlive(e ID) bool {
	if e == 0 || e.IsPair() {
		return false
	}
	idx := e.Index()
	if int(idx) >= len(w.entities.metas) {
		return false
	}
	meta := &w.entities.metas[idx]
	return meta.alive && meta.gen == e.Generation()
}

// aliveByIndex returns the current id for an index, or 0 when not alive.
func (w *World) aliveByIndex(idx uint32) ID {
	if int(idx) >= len(w.entities.metas) {
		return 0
	}
	meta := &w.entities.metas[idx]
	if !meta.alive {
		return 0
	}
	return makeID(idx, meta.gen)
}

// makeAlive brings a specific index to life in the root table.
func (w *World) makeAlive(idx uint32) ID {
	for int(idx) >= len(w.entities.metas) {
		w.entities.metas = append(w.entities.metas, entityMeta{})
	}
	meta := &w.entities.metas[idx]
	meta.alive = true
	e := makeID(idx, meta.gen)
	meta.table = w.root
	meta.chunk, meta.row = w.appendRow(w.root, e)
	return e
}

// NewEntity creates a new entity with no components.
func (w *World) NewEntity() ID {
	var idx uint32
	if n := len(w.entities.freeIDs); n > 0 {
		idx = w.entities.freeIDs[n-1]
		w.entities.freeIDs = w.entities.freeIDs[:n-1]
	} else {
		idx = w.entities.next
		w.entities.next++
	}
	return w.makeAlive(idx)
}

// NewEntities creates count entities directly in the table of the given type
// and returns them. On-add hooks and observers run per entity and id once the
// entity reached its table. While deferred, the ids are queued as adds.
func (w *World) NewEntities(ids []ID, count int) ([]ID, error) {
	if w.finished {
		return nil, ErrWorldFinished
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, id := range sorted {
		if err := w.checkAddable(id); err != nil {
			return nil, err
		}
	}
	out := make([]ID, count)
	if w.deferDepth > 0 {
		for i := range out {
			e := w.NewEntity()
			for _, id := range sorted {
				w.cmds = append(w.cmds, command{kind: cmdAdd, e: e, id: id})
			}
			out[i] = e
		}
		return out, nil
	}
	t := w.getOrCreateTable(sorted)
	w.assertUnlocked(t)
	for i := range out {
		e := w.NewEntity()
		w.moveEntity(e, &w.entities.metas[e.Index()], t)
		out[i] = e
	}
	for _, e := range out {
		for _, id := range sorted {
			if !w.IsAlive(e) {
				break
			}
			w.invokeHook(HookOnAdd, e, id, w.Get(e, id))
			w.observers.emit(w, EventOnAdd, e, id)
		}
	}
	return out, nil
}

// Has reports whether e has id. Wildcard pairs match any concrete pair.
func (w *World) Has(e, id ID) bool {
	if !w.IsAlive(e) {
		return false
	}
	_, ok := w.entities.metas[e.Index()].table.findMatch(id)
	return ok
}

// Type returns the sorted ids of an entity.
func (w *World) Type(e ID) []ID {
	if !w.IsAlive(e) {
		return nil
	}
	return slices.Clone(w.entities.metas[e.Index()].table.ids)
}

// Get returns a pointer to the value of id on e, or nil when e does not have
// it or it carries no data. The pointer is valid until the next structural
// change of e.
func (w *World) Get(e, id ID) unsafe.Pointer {
	if !w.IsAlive(e) {
		return nil
	}
	meta := &w.entities.metas[e.Index()]
	col, ok := meta.table.index[id]
	if !ok || col < 0 {
		return nil
	}
	return meta.table.chunks[meta.chunk].ptr(meta.table, col, meta.row)
}

// Target returns the alive target of the first (rel, *) pair on e, or 0.
func (w *World) Target(e, rel ID) ID {
	if !w.IsAlive(e) {
		return 0
	}
	idx, ok := w.entities.metas[e.Index()].table.target(rel)
	if !ok {
		return 0
	}
	return w.aliveByIndex(idx)
}

// Parent returns the ChildOf target of e, or 0.
func (w *World) Parent(e ID) ID {
	return w.Target(e, ChildOf)
}

func (w *World) checkAddable(id ID) error {
	if id == 0 {
		return errors.Wrap(ErrInvalidID, "id is zero")
	}
	if id.HasWildcard() {
		return errors.Wrapf(ErrInvalidID, "cannot add wildcard %s", id)
	}
	if id.IsPair() {
		if w.aliveByIndex(uint32(id.First())) == 0 || w.aliveByIndex(uint32(id.Second())) == 0 {
			return errors.Wrapf(ErrInvalidID, "pair %s refers to a dead entity", id)
		}
		return nil
	}
	if !w.IsAlive(id) {
		return errors.Wrapf(ErrInvalidID, "%s is not alive", id)
	}
	return nil
}

// assertUnlocked panics when a structural change would invalidate column
// pointers handed out to a live iterator.
func (w *World) assertUnlocked(t *table) {
	if t.lock > 0 {
		panic("ecs: structural change on locked table; defer changes made during iteration")
	}
}

// moveEntity moves e to table to, carrying over shared column values.
func (w *World) moveEntity(e ID, meta *entityMeta, to *table) {
	from := meta.table
	if from == to {
		return
	}
	ci, row := w.appendRow(to, e)
	src := from.chunks[meta.chunk]
	dst := to.chunks[ci]
	for col, c := range to.columns {
		if fromCol, ok := from.index[c.id]; ok && fromCol >= 0 {
			c.rec.hooks.Move(dst.ptr(to, col, row), src.ptr(from, fromCol, meta.row), 1)
		}
	}
	w.removeRow(from, meta.chunk, meta.row)
	meta.table = to
	meta.chunk = ci
	meta.row = row
}

// Add adds id to e. Adding an id e already has is a no-op and invokes no hook.
func (w *World) Add(e, id ID) error {
	if w.finished {
		return ErrWorldFinished
	}
	if !w.IsAlive(e) {
		return ErrNotAlive
	}
	if err := w.checkAddable(id); err != nil {
		return err
	}
	if w.deferDepth > 0 {
		w.cmds = append(w.cmds, command{kind: cmdAdd, e: e, id: id})
		return nil
	}
	w.add(e, id)
	return nil
}

// add returns false when e already had id.
func (w *World) add(e, id ID) bool {
	meta := &w.entities.metas[e.Index()]
	if meta.table.has(id) {
		return false
	}
	w.assertUnlocked(meta.table)
	to := w.tableWith(meta.table, id)
	w.assertUnlocked(to)
	if id.IsPair() && id.First() == ChildOf&firstMask {
		// An entity has at most one parent.
		if old, ok := meta.table.target(ChildOf); ok {
			w.remove(e, MakePair(ChildOf, ID(old)))
			to = w.tableWith(meta.table, id)
		}
	}
	w.moveEntity(e, meta, to)
	w.invokeHook(HookOnAdd, e, id, w.Get(e, id))
	w.observers.emit(w, EventOnAdd, e, id)
	return true
}

// Remove removes id from e. Wildcard pairs remove every matching pair.
func (w *World) Remove(e, id ID) error {
	if w.finished {
		return ErrWorldFinished
	}
	if !w.IsAlive(e) {
		return ErrNotAlive
	}
	if w.deferDepth > 0 {
		w.cmds = append(w.cmds, command{kind: cmdRemove, e: e, id: id})
		return nil
	}
	if id.HasWildcard() {
		for _, cur := range w.Type(e) {
			if cur.Matches(id) {
				w.remove(e, cur)
			}
		}
		return nil
	}
	w.remove(e, id)
	return nil
}

func (w *World) remove(e, id ID) {
	meta := &w.entities.metas[e.Index()]
	if !meta.table.has(id) {
		return
	}
	w.assertUnlocked(meta.table)
	w.invokeHook(HookOnRemove, e, id, w.Get(e, id))
	w.observers.emit(w, EventOnRemove, e, id)
	// Hooks may have moved or deleted e.
	if !w.IsAlive(e) || !meta.table.has(id) {
		return
	}
	to := w.tableWithout(meta.table, id)
	w.assertUnlocked(to)
	w.moveEntity(e, meta, to)
}

// Ensure returns a pointer to the value of id on e, adding it when missing.
// While deferred, a missing value is staged in a command buffer and the
// returned pointer refers to that buffer.
func (w *World) Ensure(e, id ID) (unsafe.Pointer, error) {
	if w.finished {
		return nil, ErrWorldFinished
	}
	if !w.IsAlive(e) {
		return nil, ErrNotAlive
	}
	if err := w.checkAddable(id); err != nil {
		return nil, err
	}
	rec := w.typeRecord(id)
	if rec == nil {
		return nil, errors.Wrapf(ErrNotComponent, "ensure %s", id)
	}
	if p := w.Get(e, id); p != nil {
		return p, nil
	}
	if w.deferDepth > 0 {
		buf := rec.newColumn(1)
		w.cmds = append(w.cmds, command{kind: cmdEnsure, e: e, id: id, value: buf, rec: rec})
		return buf, nil
	}
	w.add(e, id)
	return w.Get(e, id), nil
}

// Set copies the value at src into id on e, adding id when missing, then
// invokes on-set hooks and observers.
func (w *World) Set(e, id ID, src unsafe.Pointer) error {
	if w.finished {
		return ErrWorldFinished
	}
	if !w.IsAlive(e) {
		return ErrNotAlive
	}
	if err := w.checkAddable(id); err != nil {
		return err
	}
	rec := w.typeRecord(id)
	if rec == nil {
		return errors.Wrapf(ErrNotComponent, "set %s", id)
	}
	if w.deferDepth > 0 {
		buf := rec.newColumn(1)
		rec.hooks.Copy(buf, src, 1)
		w.cmds = append(w.cmds, command{kind: cmdSet, e: e, id: id, value: buf, rec: rec})
		return nil
	}
	w.set(e, id, src, rec)
	return nil
}

func (w *World) set(e, id ID, src unsafe.Pointer, rec *componentRecord) {
	w.add(e, id)
	dst := w.Get(e, id)
	if dst == nil {
		return
	}
	rec.hooks.Copy(dst, src, 1)
	w.modified(e, id)
}

// Modified signals that the value of id on e was changed in place.
func (w *World) Modified(e, id ID) error {
	if w.finished {
		return ErrWorldFinished
	}
	if !w.IsAlive(e) {
		return ErrNotAlive
	}
	if w.deferDepth > 0 {
		w.cmds = append(w.cmds, command{kind: cmdModified, e: e, id: id})
		return nil
	}
	w.modified(e, id)
	return nil
}

func (w *World) modified(e, id ID) {
	p := w.Get(e, id)
	if p == nil {
		return
	}
	w.invokeHook(HookOnSet, e, id, p)
	w.observers.emit(w, EventOnSet, e, id)
}

// Delete deletes e. Children (ChildOf e) are deleted first, pairs targeting e
// are removed from other entities, and on-remove hooks run for each id of e.
func (w *World) Delete(e ID) {
	if w.finished || !w.IsAlive(e) {
		return
	}
	if _, ok := w.components[e]; ok || e.Index() < FirstComponentID {
		w.log.Warn("refusing to delete a builtin or registered component", zap.Stringer("id", e))
		return
	}
	if w.deferDepth > 0 {
		w.cmds = append(w.cmds, command{kind: cmdDelete, e: e})
		return
	}
	w.delete(e)
}

func (w *World) delete(e ID) {
	idx := e.Index()
	// Clean up references to e before e itself goes away.
	for _, t := range slices.Clone(w.tables) {
		var refs []ID
		for _, id := range t.ids {
			if id.IsPair() && uint32(id.Second()) == idx {
				refs = append(refs, id)
			}
		}
		if len(refs) == 0 || t.size == 0 {
			continue
		}
		holders := make([]ID, 0, t.size)
		for _, c := range t.chunks {
			holders = append(holders, c.entities[:c.size]...)
		}
		for _, h := range holders {
			if !w.IsAlive(h) || h == e {
				continue
			}
			for _, ref := range refs {
				if ref.First() == ChildOf&firstMask {
					w.delete(h)
					break
				}
				w.remove(h, ref)
			}
		}
	}
	if !w.IsAlive(e) {
		return
	}
	meta := &w.entities.metas[idx]
	w.assertUnlocked(meta.table)
	for _, id := range slices.Clone(meta.table.ids) {
		w.invokeHook(HookOnRemove, e, id, w.Get(e, id))
		w.observers.emit(w, EventOnRemove, e, id)
	}
	if !w.IsAlive(e) {
		return
	}
	w.removeRow(meta.table, meta.chunk, meta.row)
	if name, ok := w.entityNames[idx]; ok {
		delete(w.names, name)
		delete(w.entityNames, idx)
	}
	meta.table = nil
	meta.alive = false
	meta.gen++
	w.entities.freeIDs = append(w.entities.freeIDs, idx)
}

// Count returns the number of alive entities, builtins and components included.
func (w *World) Count() int {
	n := 0
	for _, t := range w.tables {
		n += t.size
	}
	return n
}

// Fini tears the world down. Systems and observers are destroyed, on-remove
// hooks run for every remaining component value, and every installed hook
// context is released exactly once. Calling Fini again is a no-op.
func (w *World) Fini() {
	if w.finished {
		return
	}
	// Structural changes from hooks below are refused from here on.
	w.finished = true
	for _, s := range slices.Clone(w.systems) {
		s.Destroy()
	}
	w.observers.destroyAll()
	w.cmds = nil
	w.deferDepth = 0
	var rows []ID
	for _, t := range w.tables {
		t.lock = 0
		if len(t.ids) == 0 {
			continue
		}
		for _, c := range t.chunks {
			rows = append(rows, c.entities[:c.size]...)
		}
	}
	for _, e := range rows {
		if !w.IsAlive(e) {
			continue
		}
		for _, id := range slices.Clone(w.entities.metas[e.Index()].table.ids) {
			w.invokeHook(HookOnRemove, e, id, w.Get(e, id))
		}
	}
	released := 0
	for _, rec := range w.components {
		for k := range rec.slots {
			if rec.slots[k].fn != nil || rec.slots[k].ctx != nil {
				rec.slots[k].release()
				released++
			}
		}
	}
	for _, q := range slices.Clone(w.queries) {
		q.destroy()
	}
	w.tables = nil
	w.tableIndex = nil
	w.log.Debug("world finished", zap.Int("hooks_released", released))
}

// Finished reports whether Fini was called.
func (w *World) Finished() bool {
	return w.finished
}

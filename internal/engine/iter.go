package engine

import "unsafe"

// Iter walks the batches matched by a query. Between two calls to Next the
// table of the current batch is locked: structural changes to it panic unless
// the world is deferred. Fini releases the lock and is safe to call more than
// once.
type Iter struct {
	world   *World
	query   *Query
	matches []tableMatch
	mi      int // current match
	ci      int // next chunk
	row     int // next row, when yielding one row per batch
	perRow  bool

	entities []ID
	fields   []unsafe.Pointer
	cur      *tableMatch
	locked   *table
	offset   int

	group    uint64
	groupSet bool

	single bool
	event  Event
	evID   ID
	ctx    unsafe.Pointer
	dt     float32
	done   bool
}

// Iter starts iterating the query. The returned iterator holds a reference to
// the query until Fini.
func (q *Query) Iter() *Iter {
	if q.dead {
		panic("ecs: iteration of a destroyed query")
	}
	q.Retain()
	return &Iter{
		world:   q.world,
		query:   q,
		matches: q.collect(),
		perRow:  q.shared && !q.desc.Instanced,
		fields:  make([]unsafe.Pointer, len(q.desc.Terms)),
	}
}

// entityIter positions an iterator on a single entity. It returns false when
// the entity does not match the query.
func (q *Query) entityIter(e ID) (*Iter, bool) {
	w := q.world
	meta := &w.entities.metas[e.Index()]
	m, ok := q.matchTable(meta.table)
	if !ok {
		return nil, false
	}
	q.Retain()
	it := &Iter{
		world:   w,
		query:   q,
		matches: []tableMatch{m},
		fields:  make([]unsafe.Pointer, len(q.desc.Terms)),
		single:  true,
	}
	it.bind(&it.matches[0], meta.table.chunks[meta.chunk], meta.row, 1)
	return it, true
}

// SetGroup restricts iteration to the tables of one group. It must be called
// before the first Next.
func (it *Iter) SetGroup(group uint64) {
	it.group = group
	it.groupSet = true
}

// Next advances to the next batch.
func (it *Iter) Next() bool {
	if it.done {
		return false
	}
	it.unlock()
	if it.single {
		if it.cur == nil {
			it.Fini()
			return false
		}
		t := it.cur.t
		t.lock++
		it.locked = t
		// Yielded once; the next call ends the iteration.
		it.single = false
		it.matches = nil
		return true
	}
	for it.mi < len(it.matches) {
		m := &it.matches[it.mi]
		t := m.t
		if (it.groupSet && m.group != it.group) || it.ci >= len(t.chunks) {
			it.mi++
			it.ci = 0
			it.row = 0
			continue
		}
		c := t.chunks[it.ci]
		if it.perRow {
			if it.row >= c.size {
				it.ci++
				it.row = 0
				continue
			}
			it.bind(m, c, it.row, 1)
			it.row++
		} else {
			it.bind(m, c, 0, c.size)
			it.ci++
		}
		t.lock++
		it.locked = t
		return true
	}
	it.Fini()
	return false
}

func (it *Iter) bind(m *tableMatch, c *chunk, row, count int) {
	it.cur = m
	it.offset = row
	it.entities = c.entities[row : row+count]
	for i, tm := range m.terms {
		switch {
		case !tm.set:
			it.fields[i] = nil
		case tm.col >= 0:
			it.fields[i] = c.ptr(m.t, tm.col, row)
		case tm.src != 0:
			it.fields[i] = it.world.Get(tm.src, tm.id)
		default:
			it.fields[i] = nil
		}
	}
}

func (it *Iter) unlock() {
	if it.locked != nil {
		if it.locked.lock > 0 {
			it.locked.lock--
		}
		it.locked = nil
	}
}

// Fini ends the iteration, releasing the table lock and the query reference.
func (it *Iter) Fini() {
	if it.done {
		return
	}
	it.unlock()
	it.done = true
	it.matches = nil
	it.query.Release()
}

// Done reports whether the iterator was finished.
func (it *Iter) Done() bool {
	return it.done
}

// World returns the world being iterated.
func (it *Iter) World() *World {
	return it.world
}

// Query returns the query being iterated.
func (it *Iter) Query() *Query {
	return it.query
}

// Count returns the number of rows in the current batch.
func (it *Iter) Count() int {
	return len(it.entities)
}

// Offset returns the row of the first entity of the batch inside its chunk.
func (it *Iter) Offset() int {
	return it.offset
}

// Entities returns the entities of the current batch. The slice aliases table
// storage and is only valid until the next call to Next.
func (it *Iter) Entities() []ID {
	return it.entities
}

// TermCount returns the number of terms of the query.
func (it *Iter) TermCount() int {
	return len(it.fields)
}

// Term returns the descriptor of term i.
func (it *Iter) Term(i int) TermDesc {
	return it.query.desc.Terms[i]
}

// Column returns the base pointer of field i for the current batch, or nil
// when the term is not set or carries no data. Shared fields point at a single
// value.
func (it *Iter) Column(i int) unsafe.Pointer {
	return it.fields[i]
}

// ColumnSize returns the element size of field i, or 0 when it carries no data.
func (it *Iter) ColumnSize(i int) uintptr {
	if it.cur == nil || !it.cur.terms[i].set {
		return 0
	}
	rec := it.world.typeRecord(it.cur.terms[i].id)
	if rec == nil {
		return 0
	}
	return rec.info.Size
}

// IsSet reports whether term i matched in the current batch. Only Optional,
// Not and Or terms can be unset.
func (it *Iter) IsSet(i int) bool {
	return it.cur != nil && it.cur.terms[i].set
}

// IsSelf reports whether field i is owned by the iterated entities.
func (it *Iter) IsSelf(i int) bool {
	return it.cur != nil && it.cur.terms[i].set && it.cur.terms[i].src == 0
}

// Src returns the entity field i was matched on, or 0 for owned fields.
func (it *Iter) Src(i int) ID {
	if it.cur == nil {
		return 0
	}
	return it.cur.terms[i].src
}

// ID returns the concrete id term i matched. For wildcard terms this is the
// matching pair.
func (it *Iter) ID(i int) ID {
	if it.cur == nil || !it.cur.terms[i].set {
		return it.query.desc.Terms[i].ID
	}
	return it.cur.terms[i].id
}

// LockTable adds a lock to the table of the current batch. Each call must be
// paired with UnlockTable.
func (it *Iter) LockTable() {
	if it.cur != nil {
		it.cur.t.lock++
	}
}

// UnlockTable releases a lock taken with LockTable.
func (it *Iter) UnlockTable() {
	if it.cur != nil && it.cur.t.lock > 0 {
		it.cur.t.lock--
	}
}

// GroupID returns the group of the current batch.
func (it *Iter) GroupID() uint64 {
	if it.cur == nil {
		return 0
	}
	return it.cur.group
}

// Event returns the event an observer was invoked for.
func (it *Iter) Event() Event {
	return it.event
}

// EventID returns the id that triggered an observer.
func (it *Iter) EventID() ID {
	return it.evID
}

// Ctx returns the context of the running system or observer.
func (it *Iter) Ctx() unsafe.Pointer {
	return it.ctx
}

// DeltaTime returns the time passed to Progress.
func (it *Iter) DeltaTime() float32 {
	return it.dt
}

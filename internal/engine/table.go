package engine

import (
	"slices"
	"strconv"
	"strings"
	"unsafe"
)

// column is one data column of a table.
type column struct {
	id  ID
	rec *componentRecord
}

// chunk holds fixed-size storage for up to chunkSize rows of a table.
type chunk struct {
	entities []ID
	data     []unsafe.Pointer // one base pointer per table column
	size     int              // number of rows in this chunk
}

// table holds storage for one unique set of ids.
type table struct {
	ids     []ID           // sorted type of the table
	set     bitset         // slots of ids, for query filtering
	index   map[ID]int     // id -> column index, -1 for ids without data
	columns []column       // data columns in type order
	chunks  []*chunk
	add     map[ID]*table // cached archetype graph edges
	remove  map[ID]*table
	key     string
	id      int // position in World.tables
	size    int // total row count across chunks
	lock    int // structural change lock count
}

func tableKey(ids []ID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 16))
	}
	return b.String()
}

// getOrCreateTable returns the table for the given sorted type.
func (w *World) getOrCreateTable(ids []ID) *table {
	key := tableKey(ids)
	if t, ok := w.tableIndex[key]; ok {
		return t
	}
	t := &table{
		ids:    slices.Clone(ids),
		index:  make(map[ID]int, len(ids)),
		add:    make(map[ID]*table),
		remove: make(map[ID]*table),
		key:    key,
		id:     len(w.tables),
	}
	for _, id := range ids {
		t.set.set(w.slotOf(id))
		if rec := w.typeRecord(id); rec != nil {
			t.index[id] = len(t.columns)
			t.columns = append(t.columns, column{id: id, rec: rec})
		} else {
			t.index[id] = -1
		}
	}
	w.tables = append(w.tables, t)
	w.tableIndex[key] = t
	w.tableVersion++
	return t
}

// tableWith follows (or creates) the graph edge adding id to t.
func (w *World) tableWith(t *table, id ID) *table {
	if next, ok := t.add[id]; ok {
		return next
	}
	ids := make([]ID, 0, len(t.ids)+1)
	ids = append(ids, t.ids...)
	pos, _ := slices.BinarySearch(ids, id)
	ids = slices.Insert(ids, pos, id)
	next := w.getOrCreateTable(ids)
	t.add[id] = next
	next.remove[id] = t
	return next
}

// tableWithout follows (or creates) the graph edge removing id from t.
func (w *World) tableWithout(t *table, id ID) *table {
	if next, ok := t.remove[id]; ok {
		return next
	}
	ids := make([]ID, 0, len(t.ids))
	for _, cur := range t.ids {
		if cur != id {
			ids = append(ids, cur)
		}
	}
	next := w.getOrCreateTable(ids)
	t.remove[id] = next
	next.add[id] = t
	return next
}

// has reports whether the table type contains id.
func (t *table) has(id ID) bool {
	_, ok := t.index[id]
	return ok
}

// findMatch returns the first id in the table type matching a pattern.
func (t *table) findMatch(pattern ID) (ID, bool) {
	if !pattern.HasWildcard() {
		return pattern, t.has(pattern)
	}
	for _, id := range t.ids {
		if id.Matches(pattern) {
			return id, true
		}
	}
	return 0, false
}

// target returns the target index of the first (rel, *) pair of the table.
func (t *table) target(rel ID) (uint32, bool) {
	for _, id := range t.ids {
		if id.IsPair() && id.First() == rel&firstMask {
			return uint32(id.Second()), true
		}
	}
	return 0, false
}

// newChunk creates a new chunk for the table.
func (w *World) newChunk(t *table) *chunk {
	c := &chunk{
		entities: make([]ID, w.chunkSize),
		data:     make([]unsafe.Pointer, len(t.columns)),
	}
	for i, col := range t.columns {
		c.data[i] = col.rec.newColumn(w.chunkSize)
	}
	return c
}

// ptr returns the address of a row in a column.
func (c *chunk) ptr(t *table, col, row int) unsafe.Pointer {
	return unsafe.Add(c.data[col], uintptr(row)*t.columns[col].rec.info.Size)
}

// appendRow places e in the last chunk of the table, allocating one when full.
// Column values of the new row are constructed.
func (w *World) appendRow(t *table, e ID) (int, int) {
	if len(t.chunks) == 0 || t.chunks[len(t.chunks)-1].size == w.chunkSize {
		t.chunks = append(t.chunks, w.newChunk(t))
	}
	ci := len(t.chunks) - 1
	c := t.chunks[ci]
	row := c.size
	c.entities[row] = e
	c.size++
	t.size++
	for col := range t.columns {
		t.columns[col].rec.hooks.Ctor(c.ptr(t, col, row), 1)
	}
	return ci, row
}

// removeRow removes a row by moving the last row of the table into its place,
// keeping chunks dense. The vacated slot is destructed.
func (w *World) removeRow(t *table, ci, row int) {
	lastCI := len(t.chunks) - 1
	last := t.chunks[lastCI]
	lastRow := last.size - 1
	c := t.chunks[ci]
	if ci != lastCI || row != lastRow {
		moved := last.entities[lastRow]
		c.entities[row] = moved
		for col := range t.columns {
			t.columns[col].rec.hooks.Move(c.ptr(t, col, row), last.ptr(t, col, lastRow), 1)
		}
		meta := &w.entities.metas[moved.Index()]
		meta.chunk = ci
		meta.row = row
	}
	for col := range t.columns {
		t.columns[col].rec.hooks.Dtor(last.ptr(t, col, lastRow), 1)
	}
	last.entities[lastRow] = 0
	last.size--
	t.size--
	if last.size == 0 {
		t.chunks = t.chunks[:lastCI]
	}
}

// reorder rewrites the rows of the table in the order given by perm, where
// perm[i] is the current global row placed at position i.
func (w *World) reorder(t *table, perm []int) {
	if len(perm) < 2 {
		return
	}
	old := t.chunks
	t.chunks = nil
	for i, src := range perm {
		sc := old[src/w.chunkSize]
		sr := src % w.chunkSize
		if len(t.chunks) == 0 || t.chunks[len(t.chunks)-1].size == w.chunkSize {
			t.chunks = append(t.chunks, w.newChunk(t))
		}
		dc := t.chunks[len(t.chunks)-1]
		dr := dc.size
		dc.size++
		e := sc.entities[sr]
		dc.entities[dr] = e
		for col := range t.columns {
			t.columns[col].rec.hooks.Move(dc.ptr(t, col, dr), sc.ptr(t, col, sr), 1)
		}
		meta := &w.entities.metas[e.Index()]
		meta.chunk = i / w.chunkSize
		meta.row = dr
	}
}

// rowAt returns the chunk and row of a global row index.
func (w *World) rowAt(t *table, global int) (*chunk, int) {
	return t.chunks[global/w.chunkSize], global % w.chunkSize
}

package engine

// bitset represents a set of id slots. Each table keeps one so query
// candidates can be filtered without walking the table type. Slots are dense
// per world (see World.slotOf), so the set grows with the number of distinct
// ids in use rather than with id values.
type bitset []uint64

// set enables the bit for the given slot, growing the set when needed.
func (m *bitset) set(bit int) {
	i := bit >> 6 // (bit / 64) to find the uint64 index
	o := bit & 63 // (bit % 64) to find the bit offset
	for len(*m) <= i {
		*m = append(*m, 0)
	}
	(*m)[i] |= uint64(1) << uint64(o)
}

// containsBit checks if a specific bit is set in the set.
func (m bitset) containsBit(bit int) bool {
	i := bit >> 6
	o := bit & 63
	if i >= len(m) {
		return false
	}
	return (m[i] & (uint64(1) << uint64(o))) != 0
}

// contains checks if all the bits set in sub are also set in m. It is used to
// decide whether a table is a superset of a query's required ids.
func (m bitset) contains(sub bitset) bool {
	for i, w := range sub {
		if w == 0 {
			continue
		}
		if i >= len(m) || (m[i]&w) != w {
			return false
		}
	}
	return true
}

// intersects checks if m has any bit in common with other.
func (m bitset) intersects(other bitset) bool {
	n := min(len(m), len(other))
	for i := 0; i < n; i++ {
		if (m[i] & other[i]) != 0 {
			return true
		}
	}
	return false
}

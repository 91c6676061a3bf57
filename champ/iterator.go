package champ

// Iterator walks a Map depth-first, pre-order, over a stable snapshot of
// the root it was created from: spec §4.4's "fixed-maximum-depth stack of
// child cursors plus one current-payload cursor", adapted from the
// teacher's pathT ancestor stack (path.go) into a cursor stack deep
// enough (MaxDepth) to never reallocate during a walk.
//
// A Map's mutating methods never touch a node already reachable from a
// Map value a caller holds (see node.go's ownership discussion), so an
// Iterator stays valid across any later Set/Delete on the Map it was
// created from, or on any other Map value — concurrent use of the same
// *Builder* is the one thing that can invalidate it; see builder.go.
type Iterator[K comparable, V any] struct {
	stack   []*iterFrame[K, V]
	reverse bool
}

type iterFrame[K comparable, V any] struct {
	n       *bitmapIndexedNode[K, V]
	pIdx    int // next payload index
	kIdx    int // next kid index
	cIdx    int // next coll index
	cSubIdx int // next entry index within colls[cIdx]
}

func newIterFrame[K comparable, V any](n *bitmapIndexedNode[K, V], reverse bool) *iterFrame[K, V] {
	f := &iterFrame[K, V]{n: n}
	if reverse {
		f.pIdx = len(n.keys) - 1
		f.kIdx = len(n.kids) - 1
		f.cIdx = len(n.colls) - 1
		if f.cIdx >= 0 {
			f.cSubIdx = n.colls[f.cIdx].entryCount() - 1
		}
	}
	return f
}

// Iterator returns a forward (ascending slot-bit order, payload entries
// before node children before collision-leaf entries) depth-first iterator
// over m.
func (m Map[K, V]) Iterator() *Iterator[K, V] {
	it := &Iterator[K, V]{stack: make([]*iterFrame[K, V], 0, MaxDepth)}
	if m.root != nil {
		it.stack = append(it.stack, newIterFrame(m.root, false))
	}
	return it
}

// ReverseIterator mirrors Iterator's order: descending slot-bit order at
// every level, collision-leaf entries before node children before payload
// entries.
func (m Map[K, V]) ReverseIterator() *Iterator[K, V] {
	it := &Iterator[K, V]{stack: make([]*iterFrame[K, V], 0, MaxDepth), reverse: true}
	if m.root != nil {
		it.stack = append(it.stack, newIterFrame(m.root, true))
	}
	return it
}

// Next returns the next (key, value) pair, or ok == false once the walk is
// exhausted.
func (it *Iterator[K, V]) Next() (key K, val V, ok bool) {
	if it.reverse {
		return it.nextReverse()
	}
	return it.nextForward()
}

func (it *Iterator[K, V]) nextForward() (key K, val V, ok bool) {
	for len(it.stack) > 0 {
		f := it.stack[len(it.stack)-1]

		if f.pIdx < len(f.n.keys) {
			k, v := f.n.keys[f.pIdx], f.n.vals[f.pIdx]
			f.pIdx++
			return k, v, true
		}
		if f.kIdx < len(f.n.kids) {
			child := f.n.kids[f.kIdx]
			f.kIdx++
			it.stack = append(it.stack, newIterFrame(child, false))
			continue
		}
		if f.cIdx < len(f.n.colls) {
			leaf := f.n.colls[f.cIdx]
			if f.cSubIdx < len(leaf.keys) {
				k, v := leaf.keys[f.cSubIdx], leaf.vals[f.cSubIdx]
				f.cSubIdx++
				return k, v, true
			}
			f.cIdx++
			f.cSubIdx = 0
			continue
		}
		it.stack = it.stack[:len(it.stack)-1]
	}
	var zk K
	var zv V
	return zk, zv, false
}

func (it *Iterator[K, V]) nextReverse() (key K, val V, ok bool) {
	for len(it.stack) > 0 {
		f := it.stack[len(it.stack)-1]

		if f.cIdx >= 0 {
			leaf := f.n.colls[f.cIdx]
			if f.cSubIdx >= 0 {
				k, v := leaf.keys[f.cSubIdx], leaf.vals[f.cSubIdx]
				f.cSubIdx--
				return k, v, true
			}
			f.cIdx--
			if f.cIdx >= 0 {
				f.cSubIdx = f.n.colls[f.cIdx].entryCount() - 1
			}
			continue
		}
		if f.kIdx >= 0 {
			child := f.n.kids[f.kIdx]
			f.kIdx--
			it.stack = append(it.stack, newIterFrame(child, true))
			continue
		}
		if f.pIdx >= 0 {
			k, v := f.n.keys[f.pIdx], f.n.vals[f.pIdx]
			f.pIdx--
			return k, v, true
		}
		it.stack = it.stack[:len(it.stack)-1]
	}
	var zk K
	var zv V
	return zk, zv, false
}

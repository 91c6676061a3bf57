package champ

import "github.com/dolthub/maphash"

// Builder is a single-writer, mutable construction session that recovers
// genuine cross-call in-place reuse for bulk construction — something the
// value-semantic Map.Set/Delete API cannot safely offer once a node has
// been handed back to a caller (see node.go). It is the idiomatic-Go
// answer to the teacher's own pointer-receiver mutation idiom
// (hamt32_test.go builds a huge fixture via repeated `*h, added =
// h.Put(...)` on a single *Hamt); Builder makes that single-owner
// discipline explicit and enforced instead of merely conventional.
//
// A Builder must not be used from more than one goroutine, and must not be
// used after Build is called — both Set and Delete panic on a spent
// Builder. It is not safe to iterate a Builder mid-construction; call
// Build first.
type Builder[K comparable, V any] struct {
	root   *bitmapIndexedNode[K, V]
	count  int
	hasher maphash.Hasher[K]
	built  bool
}

// NewBuilder returns an empty, ready-to-use Builder.
func NewBuilder[K comparable, V any]() *Builder[K, V] {
	return &Builder[K, V]{hasher: newHasher[K]()}
}

func (b *Builder[K, V]) checkNotBuilt() {
	if b.built {
		panic("champ: Builder used after Build")
	}
}

func (b *Builder[K, V]) Get(key K) (val V, found bool) {
	if b.root == nil {
		return val, false
	}
	return b.root.get(key, b.hasher.Hash(key), 0)
}

func (b *Builder[K, V]) ContainsKey(key K) bool {
	if b.root == nil {
		return false
	}
	return b.root.containsKey(key, b.hasher.Hash(key), 0)
}

// Set inserts or overwrites key in place and reports whether it was newly
// added.
func (b *Builder[K, V]) Set(key K, val V) bool {
	b.checkNotBuilt()
	h := b.hasher.Hash(key)

	if b.root == nil {
		b.root = newSinglePayloadResidue[K, V](key, val, h)
		b.count = 1
		return true
	}

	var eff effect[V]
	// Every node reachable from b.root was allocated by this Builder and
	// never published, so it is always exclusive to this call.
	b.root = b.root.update(true, key, val, h, 0, b.hasher.Hash, &eff)
	if eff.modified && !eff.replaced {
		b.count++
	}
	return eff.modified && !eff.replaced
}

// Delete removes key in place, returning its prior value and whether it
// was present.
func (b *Builder[K, V]) Delete(key K) (val V, found bool) {
	b.checkNotBuilt()
	if b.root == nil {
		return val, false
	}

	h := b.hasher.Hash(key)
	var eff effect[V]
	newRoot := b.root.remove(true, key, h, 0, b.hasher.Hash, &eff)
	if !eff.modified {
		return val, false
	}

	b.count--
	if newRoot.dataMap() == 0 && newRoot.nodeMap() == 0 && newRoot.collMap() == 0 {
		b.root = nil
	} else {
		b.root = newRoot
	}
	return eff.prevValue, true
}

func (b *Builder[K, V]) Len() int { return b.count }

// Build freezes the tree built so far and returns it as an immutable Map.
// The Builder is spent afterwards: further Set/Delete calls panic.
func (b *Builder[K, V]) Build() Map[K, V] {
	b.checkNotBuilt()
	b.built = true
	if b.root != nil {
		b.root.freeze()
	}
	return Map[K, V]{root: b.root, count: b.count, hasher: b.hasher}
}

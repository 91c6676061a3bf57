package champ

import (
	"fmt"
	"log"
	"strings"
)

// collisionLeaf is the hash-collision bucket of spec §3/§4.2: an unordered
// sequence of 2+ entries that all share one full hash. It holds no
// sub-nodes; every operation is a linear scan over the bucket, which is
// expected to stay tiny in practice (adapted from the teacher's
// collision_leaf.go, generalized to inline (K,V) storage and generics
// instead of a boxed []key.KeyVal).
//
// shared mirrors bitmapIndexedNode.shared; see node.go for the
// exclusive-ownership discipline this module follows throughout.
type collisionLeaf[K comparable, V any] struct {
	shared bool
	hash   uint64
	keys   []K
	vals   []V
}

func newCollisionLeaf[K comparable, V any](h uint64, k1 K, v1 V, k2 K, v2 V) *collisionLeaf[K, V] {
	return &collisionLeaf[K, V]{
		hash: h,
		keys: []K{k1, k2},
		vals: []V{v1, v2},
	}
}

func (l *collisionLeaf[K, V]) prepare(exclusive bool) *collisionLeaf[K, V] {
	if exclusive {
		return l
	}
	return &collisionLeaf[K, V]{
		hash: l.hash,
		keys: append([]K(nil), l.keys...),
		vals: append([]V(nil), l.vals...),
	}
}

func (l *collisionLeaf[K, V]) get(key K) (V, bool) {
	for i, k := range l.keys {
		if k == key {
			return l.vals[i], true
		}
	}
	var zero V
	return zero, false
}

func (l *collisionLeaf[K, V]) containsKey(key K) bool {
	for _, k := range l.keys {
		if k == key {
			return true
		}
	}
	return false
}

// update either overwrites an existing entry (setting eff.replaced and
// eff.prevValue) or appends a new one (setting only eff.modified).
func (l *collisionLeaf[K, V]) update(exclusive bool, key K, val V, eff *effect[V]) *collisionLeaf[K, V] {
	for i, k := range l.keys {
		if k == key {
			nl := l.prepare(exclusive)
			eff.modified = true
			eff.replaced = true
			eff.prevValue = nl.vals[i]
			nl.vals[i] = val
			return nl
		}
	}
	nl := l.prepare(exclusive)
	nl.keys = append(nl.keys, key)
	nl.vals = append(nl.vals, val)
	eff.modified = true
	return nl
}

// leafRemoveResult reports the outcome of collisionLeaf.remove to the
// owning bitmapIndexedNode. A bucket never shrinks below two entries
// through its own API (spec §4.2); once removal would leave only one
// entry, the leaf hands that survivor straight back instead, and the
// caller is responsible for rewrapping it as an inline payload or
// escalating it further up the trie.
type leafRemoveResult[K comparable, V any] struct {
	leaf        *collisionLeaf[K, V] // nil if the bucket shrank to one entry
	survivorKey K
	survivorVal V
	removedVal  V
	removed     bool
}

func (l *collisionLeaf[K, V]) remove(exclusive bool, key K) leafRemoveResult[K, V] {
	idx := -1
	for i, k := range l.keys {
		if k == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return leafRemoveResult[K, V]{}
	}

	removedVal := l.vals[idx]

	if len(l.keys) == 2 {
		survivorIdx := 1 - idx
		return leafRemoveResult[K, V]{
			survivorKey: l.keys[survivorIdx],
			survivorVal: l.vals[survivorIdx],
			removedVal:  removedVal,
			removed:     true,
		}
	}

	nl := l.prepare(exclusive)
	nl.keys = removeAt(nl.keys, uint(idx))
	nl.vals = removeAt(nl.vals, uint(idx))
	return leafRemoveResult[K, V]{leaf: nl, removedVal: removedVal, removed: true}
}

func (l *collisionLeaf[K, V]) entryCount() int { return len(l.keys) }

func (l *collisionLeaf[K, V]) String() string {
	parts := make([]string, len(l.keys))
	for i := range l.keys {
		parts[i] = fmt.Sprintf("%v:%v", l.keys[i], l.vals[i])
	}
	return fmt.Sprintf("collisionLeaf{hash:%#x, entries:[%s]}", l.hash, strings.Join(parts, ", "))
}

// checkInvariants is used by the test suite to validate spec §3's
// invariant 3 (every collision leaf has >= 2 entries, all distinct keys).
func (l *collisionLeaf[K, V]) checkInvariants() {
	if len(l.keys) < 2 {
		log.Panicf("champ: collisionLeaf invariant violated: %d entries (want >= 2)", len(l.keys))
	}
	if len(l.keys) != len(l.vals) {
		log.Panicf("champ: collisionLeaf invariant violated: %d keys != %d vals", len(l.keys), len(l.vals))
	}
	for i, k1 := range l.keys {
		for j, k2 := range l.keys {
			if i != j && k1 == k2 {
				log.Panicf("champ: collisionLeaf invariant violated: duplicate key %v", k1)
			}
		}
	}
}

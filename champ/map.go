/*
Package champ implements an immutable, persistent associative map over a
Hash Array Mapped Trie with bitmap-indexed inner nodes (the CHAMP shape:
two physical bitmaps deriving three disjoint occupancy classes per node,
plus hash-collision leaves for keys whose hashes fully agree).

Map[K, V] is a small value-semantic handle: copying one is O(1) and the
copy shares structure with the original until either is mutated. Every
mutating method returns a new Map rather than changing the receiver.
*/
package champ

import (
	"fmt"

	"github.com/dolthub/maphash"
)

// Map is the persistent handle of spec §4.5: a single root node reference
// plus the entry count and the hasher that computes every key's trie
// position. The zero value reads as an empty Map, but its hasher is
// unseeded, so Set on it panics; New returns an empty Map with a seeded
// hasher.
type Map[K comparable, V any] struct {
	root   *bitmapIndexedNode[K, V]
	count  int
	hasher maphash.Hasher[K]
}

// New returns an empty Map with a freshly seeded hasher.
func New[K comparable, V any]() Map[K, V] {
	return Map[K, V]{hasher: newHasher[K]()}
}

func (m Map[K, V]) IsEmpty() bool { return m.root == nil }

func (m Map[K, V]) Len() int { return m.count }

// Get retrieves the value stored for key. found reports whether key was
// present.
func (m Map[K, V]) Get(key K) (val V, found bool) {
	if m.root == nil {
		return val, false
	}
	return m.root.get(key, m.hasher.Hash(key), 0)
}

// GetOr is the default-value subscript named in spec §6's handle
// boilerplate: it returns dflt when key is absent.
func (m Map[K, V]) GetOr(key K, dflt V) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	return dflt
}

func (m Map[K, V]) ContainsKey(key K) bool {
	if m.root == nil {
		return false
	}
	return m.root.containsKey(key, m.hasher.Hash(key), 0)
}

// Set returns a new Map with key bound to val, and whether the key was
// newly added (as opposed to an existing entry's value being replaced).
func (m Map[K, V]) Set(key K, val V) (Map[K, V], bool) {
	h := m.hasher.Hash(key)

	if m.root == nil {
		nm := m
		nm.root = newSinglePayloadResidue[K, V](key, val, h)
		nm.root.freeze()
		nm.count = 1
		return nm, true
	}

	var eff effect[V]
	newRoot := m.root.update(!m.root.shared, key, val, h, 0, m.hasher.Hash, &eff)
	newRoot.freeze()

	nm := m
	nm.root = newRoot
	if eff.modified && !eff.replaced {
		nm.count++
	}
	return nm, eff.modified && !eff.replaced
}

// Delete returns a new Map with key removed, the value that was removed,
// and whether key was present at all.
func (m Map[K, V]) Delete(key K) (Map[K, V], V, bool) {
	var zero V
	if m.root == nil {
		return m, zero, false
	}

	h := m.hasher.Hash(key)
	var eff effect[V]
	newRoot := m.root.remove(!m.root.shared, key, h, 0, m.hasher.Hash, &eff)
	if !eff.modified {
		return m, zero, false
	}

	nm := m
	nm.count--
	if newRoot.dataMap() == 0 && newRoot.nodeMap() == 0 && newRoot.collMap() == 0 {
		nm.root = nil
	} else {
		newRoot.freeze()
		nm.root = newRoot
	}
	return nm, eff.prevValue, true
}

// Merge unions other into m, last-writer-wins on overlapping keys, per the
// funvibe-funxy persistent-map reference's Merge semantics. It is pure
// boilerplate composed from Set, not a new core operation.
func (m Map[K, V]) Merge(other Map[K, V]) Map[K, V] {
	result := m
	it := other.Iterator()
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		result, _ = result.Set(k, v)
	}
	return result
}

// Equal is spec §9's resolved key+value equality: cardinality first, then
// every key from m looked up in other. Two maps built in different
// insertion orders, or through different split chains, can still legally
// compare equal, so this never walks both tries in lock-step.
func (m Map[K, V]) Equal(other Map[K, V], valEqual func(a, b V) bool) bool {
	if m.count != other.count {
		return false
	}
	it := m.Iterator()
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		ov, found := other.Get(k)
		if !found || !valEqual(v, ov) {
			return false
		}
	}
	return true
}

func (m Map[K, V]) String() string {
	if m.root == nil {
		return fmt.Sprintf("Map{count: 0, root: nil}")
	}
	return fmt.Sprintf("Map{count: %d, root: %s}", m.count, m.root)
}

func (m Map[K, V]) LongString(indent string) string {
	if m.root == nil {
		return indent + fmt.Sprintf("Map{count: %d, root: nil}", m.count)
	}
	str := indent + fmt.Sprintf("Map{count: %d, root:\n", m.count)
	str += m.root.LongString(indent+fullIndent, true)
	str += indent + "}\n"
	return str
}

// checkInvariants validates spec §3's invariants over the whole trie and
// panics (InvariantViolation) on the first breach. Test-only.
func (m Map[K, V]) checkInvariants() {
	if m.root == nil {
		if m.count != 0 {
			panic("champ: invariant violated: nil root with nonzero count")
		}
		return
	}
	n := m.root.checkInvariants(0, true, m.hasher.Hash)
	if n != m.count {
		panic(fmt.Sprintf("champ: invariant violated: counted %d entries, count field says %d", n, m.count))
	}
}

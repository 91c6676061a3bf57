package champ

import (
	"fmt"
	"log"
	"strings"
)

// bitmapIndexedNode is the BitmapIndexedNode of spec §3/§4.1: a single node
// representation covering every occupied slot in one of three disjoint
// classes, derived from two physical 32-bit bitmaps —
//
//	collMap = bitmap1 & bitmap2   (slot holds a *collisionLeaf child)
//	dataMap = bitmap1 ^ collMap   (slot holds an inline (key, value) pair)
//	nodeMap = bitmap2 ^ collMap   (slot holds a *bitmapIndexedNode child)
//
// Spec's design notes recommend parallel typed arrays over one erased
// buffer; this port keeps four of them (keys/vals for the payload region,
// kids/colls for the two child regions) rather than the teacher's single
// hashPath/nodeMap/[]nodeI encoding, since the teacher's classic HAMT has
// no dataMap/collMap split to preserve in the first place — every payload
// is a separately heap-allocated flatLeaf there. Each array is independently
// ordered in ascending slot-bit order against its own bitmap; there is no
// interleaving constraint between the three regions.
type bitmapIndexedNode[K comparable, V any] struct {
	shared  bool
	bitmap1 uint32
	bitmap2 uint32
	keys    []K
	vals    []V
	kids    []*bitmapIndexedNode[K, V]
	colls   []*collisionLeaf[K, V]
}

func (n *bitmapIndexedNode[K, V]) collMap() uint32 { return n.bitmap1 & n.bitmap2 }
func (n *bitmapIndexedNode[K, V]) dataMap() uint32 { return n.bitmap1 ^ n.collMap() }
func (n *bitmapIndexedNode[K, V]) nodeMap() uint32 { return n.bitmap2 ^ n.collMap() }

// isResidue reports whether n has exactly one occupied slot. When that slot
// is a payload or a collision leaf, n is one of the transient single-element
// carriers spec §4.1's deletion compaction produces, which is never a legal
// shape for a non-root node once a remove() call returns control to its
// caller's caller (the immediate caller must either escalate or
// inline/unwrap it first). A one-slot node whose slot is a node child is an
// ordinary chain node (see buildSplit) and stays in the trie.
func (n *bitmapIndexedNode[K, V]) isResidue() bool {
	return popcount32(n.bitmap1|n.bitmap2) == 1
}

// slot-class transitions. Each sets the final bitmap1/bitmap2 state for
// bitpos directly rather than toggling individual bits relative to the
// prior class, so every one of the six buffer migrations in update/remove
// reduces to "clear the old region, toX, insert into the new region."
func (n *bitmapIndexedNode[K, V]) toData(bitpos uint32)  { n.bitmap1 |= bitpos; n.bitmap2 &^= bitpos }
func (n *bitmapIndexedNode[K, V]) toNode(bitpos uint32)  { n.bitmap1 &^= bitpos; n.bitmap2 |= bitpos }
func (n *bitmapIndexedNode[K, V]) toColl(bitpos uint32)  { n.bitmap1 |= bitpos; n.bitmap2 |= bitpos }
func (n *bitmapIndexedNode[K, V]) toEmpty(bitpos uint32) { n.bitmap1 &^= bitpos; n.bitmap2 &^= bitpos }

func newSinglePayloadResidue[K comparable, V any](key K, val V, h uint64) *bitmapIndexedNode[K, V] {
	bitpos := bitposFrom(maskFrom(h, 0))
	return &bitmapIndexedNode[K, V]{
		bitmap1: bitpos,
		keys:    []K{key},
		vals:    []V{val},
	}
}

func newSingleCollisionResidue[K comparable, V any](leaf *collisionLeaf[K, V]) *bitmapIndexedNode[K, V] {
	bitpos := bitposFrom(maskFrom(leaf.hash, 0))
	return &bitmapIndexedNode[K, V]{
		bitmap1: bitpos,
		bitmap2: bitpos,
		colls:   []*collisionLeaf[K, V]{leaf},
	}
}

// prepare returns n itself when exclusive (the caller has established n was
// allocated within the current call and has not yet been published to any
// returned Map), or a shallow clone otherwise. See node.go for the full
// ownership discussion.
func (n *bitmapIndexedNode[K, V]) prepare(exclusive bool) *bitmapIndexedNode[K, V] {
	if exclusive {
		return n
	}
	return n.clone()
}

func (n *bitmapIndexedNode[K, V]) clone() *bitmapIndexedNode[K, V] {
	c := &bitmapIndexedNode[K, V]{
		bitmap1: n.bitmap1,
		bitmap2: n.bitmap2,
		keys:    append([]K(nil), n.keys...),
		vals:    append([]V(nil), n.vals...),
		kids:    append([]*bitmapIndexedNode[K, V](nil), n.kids...),
		colls:   append([]*collisionLeaf[K, V](nil), n.colls...),
	}
	// Every child carried over verbatim now has a second live reference
	// (the original n and this new clone c), so it can no longer be
	// considered exclusive to any one call.
	for _, k := range c.kids {
		k.shared = true
	}
	for _, cl := range c.colls {
		cl.shared = true
	}
	return c
}

// freeze marks n and every node still exclusive beneath it as shared,
// publishing them. It stops descending the moment it finds an
// already-shared node, since everything under that node was published by
// an earlier call and is already marked. map.go and builder.go call this
// on exactly the path they touched before handing a new root to a caller.
func (n *bitmapIndexedNode[K, V]) freeze() {
	if n.shared {
		return
	}
	n.shared = true
	for _, k := range n.kids {
		k.freeze()
	}
	for _, cl := range n.colls {
		cl.shared = true
	}
}

func (n *bitmapIndexedNode[K, V]) get(key K, h uint64, shift uint) (V, bool) {
	bitpos := bitposFrom(maskFrom(h, shift))
	switch {
	case n.dataMap()&bitpos != 0:
		i := indexFrom(n.dataMap(), bitpos)
		if n.keys[i] == key {
			return n.vals[i], true
		}
	case n.nodeMap()&bitpos != 0:
		i := indexFrom(n.nodeMap(), bitpos)
		return n.kids[i].get(key, h, shift+Nbits)
	case n.collMap()&bitpos != 0:
		i := indexFrom(n.collMap(), bitpos)
		return n.colls[i].get(key)
	}
	var zero V
	return zero, false
}

func (n *bitmapIndexedNode[K, V]) containsKey(key K, h uint64, shift uint) bool {
	bitpos := bitposFrom(maskFrom(h, shift))
	switch {
	case n.dataMap()&bitpos != 0:
		i := indexFrom(n.dataMap(), bitpos)
		return n.keys[i] == key
	case n.nodeMap()&bitpos != 0:
		i := indexFrom(n.nodeMap(), bitpos)
		return n.kids[i].containsKey(key, h, shift+Nbits)
	case n.collMap()&bitpos != 0:
		i := indexFrom(n.collMap(), bitpos)
		return n.colls[i].containsKey(key)
	}
	return false
}

// buildSplit builds a fresh chain of bitmap-indexed nodes, starting at
// shift, that disambiguates two entries whose hashes agree on every chunk
// consumed below shift. Grounded on the teacher's createCompressedTable
// iterative-chain-building loop, generalized to the two-bitmap node shape.
func buildSplit[K comparable, V any](shift uint, k1 K, v1 V, h1 uint64, k2 K, v2 V, h2 uint64) *bitmapIndexedNode[K, V] {
	if shift >= hashBits {
		// Spec §4.1: "or until shift exceeds W, where a collision leaf
		// terminates the chain." Unreachable from case 4's caller, which
		// only invokes buildSplit when h1 != h2 — two distinct 64-bit
		// hashes must diverge in some chunk before all 64 bits are spent.
		log.Panicf("champ: buildSplit exhausted %d hash bits without h1=%#x and h2=%#x diverging", hashBits, h1, h2)
	}
	m1, m2 := maskFrom(h1, shift), maskFrom(h2, shift)
	if m1 == m2 {
		child := buildSplit[K, V](shift+Nbits, k1, v1, h1, k2, v2, h2)
		return &bitmapIndexedNode[K, V]{
			bitmap2: bitposFrom(m1),
			kids:    []*bitmapIndexedNode[K, V]{child},
		}
	}
	n := &bitmapIndexedNode[K, V]{bitmap1: bitposFrom(m1) | bitposFrom(m2)}
	if m1 < m2 {
		n.keys = []K{k1, k2}
		n.vals = []V{v1, v2}
	} else {
		n.keys = []K{k2, k1}
		n.vals = []V{v2, v1}
	}
	return n
}

// buildSplitLeaf is buildSplit's other half: it merges a brand new entry
// against an existing collision leaf whose hash differs from it (spec's
// required collision→node migration, case 6). leaf is reused, not copied,
// so it is marked shared the moment it gains this second reference.
func buildSplitLeaf[K comparable, V any](shift uint, leaf *collisionLeaf[K, V], k2 K, v2 V, h2 uint64) *bitmapIndexedNode[K, V] {
	h1 := leaf.hash
	if shift >= hashBits {
		log.Panicf("champ: buildSplitLeaf exhausted %d hash bits without h1=%#x and h2=%#x diverging", hashBits, h1, h2)
	}
	m1, m2 := maskFrom(h1, shift), maskFrom(h2, shift)
	if m1 == m2 {
		child := buildSplitLeaf[K, V](shift+Nbits, leaf, k2, v2, h2)
		return &bitmapIndexedNode[K, V]{
			bitmap2: bitposFrom(m1),
			kids:    []*bitmapIndexedNode[K, V]{child},
		}
	}
	leaf.shared = true
	return &bitmapIndexedNode[K, V]{
		bitmap1: bitposFrom(m1) | bitposFrom(m2),
		bitmap2: bitposFrom(m1),
		keys:    []K{k2},
		vals:    []V{v2},
		colls:   []*collisionLeaf[K, V]{leaf},
	}
}

// update implements spec §4.1's six insertion cases. exclusive is the
// caller's claim that n itself may be mutated in place; hashFn recomputes
// the hash of an existing inline key when a migration needs it (the node
// never stores a payload's hash redundantly).
func (n *bitmapIndexedNode[K, V]) update(exclusive bool, key K, val V, h uint64, shift uint, hashFn func(K) uint64, eff *effect[V]) *bitmapIndexedNode[K, V] {
	bitpos := bitposFrom(maskFrom(h, shift))
	dataMap, nodeMap, collMap := n.dataMap(), n.nodeMap(), n.collMap()

	switch {
	case dataMap&bitpos != 0: // case 1: occupied by an inline payload
		i := indexFrom(dataMap, bitpos)
		existingKey, existingVal := n.keys[i], n.vals[i]

		if existingKey == key { // case 2: same key, overwrite
			nt := n.prepare(exclusive)
			eff.modified = true
			eff.replaced = true
			eff.prevValue = nt.vals[i]
			nt.vals[i] = val
			return nt
		}

		existingHash := hashFn(existingKey)
		if existingHash == h { // case 3: full hash collision -> collision leaf
			leaf := newCollisionLeaf(h, existingKey, existingVal, key, val)
			nt := n.prepare(exclusive)
			nt.keys = removeAt(nt.keys, i)
			nt.vals = removeAt(nt.vals, i)
			nt.toColl(bitpos)
			j := indexFrom(nt.collMap(), bitpos)
			nt.colls = insertAt(nt.colls, j, leaf)
			eff.modified = true
			return nt
		}

		// case 4: hashes differ -> split into a fresh chain of nodes
		child := buildSplit(shift+Nbits, existingKey, existingVal, existingHash, key, val, h)
		nt := n.prepare(exclusive)
		nt.keys = removeAt(nt.keys, i)
		nt.vals = removeAt(nt.vals, i)
		nt.toNode(bitpos)
		j := indexFrom(nt.nodeMap(), bitpos)
		nt.kids = insertAt(nt.kids, j, child)
		eff.modified = true
		return nt

	case nodeMap&bitpos != 0: // case 5: occupied by a node child
		i := indexFrom(nodeMap, bitpos)
		child := n.kids[i]
		newChild := child.update(exclusiveChild(exclusive, child.shared), key, val, h, shift+Nbits, hashFn, eff)
		if newChild == child {
			return n
		}
		nt := n.prepare(exclusive)
		nt.kids[i] = newChild
		return nt

	case collMap&bitpos != 0: // occupied by a collision-leaf child
		i := indexFrom(collMap, bitpos)
		leaf := n.colls[i]
		if leaf.hash == h {
			newLeaf := leaf.update(exclusiveChild(exclusive, leaf.shared), key, val, eff)
			if newLeaf == leaf {
				return n
			}
			nt := n.prepare(exclusive)
			nt.colls[i] = newLeaf
			return nt
		}

		// case 6: different hash -> merge against the leaf via a split chain
		child := buildSplitLeaf(shift+Nbits, leaf, key, val, h)
		nt := n.prepare(exclusive)
		nt.colls = removeAt(nt.colls, i)
		nt.toNode(bitpos)
		j := indexFrom(nt.nodeMap(), bitpos)
		nt.kids = insertAt(nt.kids, j, child)
		eff.modified = true
		return nt

	default: // empty slot -> new inline payload
		nt := n.prepare(exclusive)
		nt.toData(bitpos)
		j := indexFrom(nt.dataMap(), bitpos)
		nt.keys = insertAt(nt.keys, j, key)
		nt.vals = insertAt(nt.vals, j, val)
		eff.modified = true
		return nt
	}
}

// remove implements spec §4.1's deletion compaction. It returns either an
// ordinary node (possibly n itself, unchanged, if the key was absent), or
// one of the single-element residue shapes from newSinglePayloadResidue /
// newSingleCollisionResidue, which the caller must escalate or inline.
func (n *bitmapIndexedNode[K, V]) remove(exclusive bool, key K, h uint64, shift uint, hashFn func(K) uint64, eff *effect[V]) *bitmapIndexedNode[K, V] {
	bitpos := bitposFrom(maskFrom(h, shift))
	dataMap, nodeMap, collMap := n.dataMap(), n.nodeMap(), n.collMap()

	switch {
	case dataMap&bitpos != 0: // inline payload case
		i := indexFrom(dataMap, bitpos)
		if n.keys[i] != key {
			return n
		}

		payloadArity := popcount32(dataMap)
		nodeArity := popcount32(nodeMap)
		collArity := popcount32(collMap)
		eff.modified = true
		eff.replaced = true
		eff.prevValue = n.vals[i]

		if payloadArity == 2 && nodeArity == 0 && collArity == 0 {
			survivorIdx := uint(1) - i
			sk, sv := n.keys[survivorIdx], n.vals[survivorIdx]
			return newSinglePayloadResidue[K, V](sk, sv, hashFn(sk))
		}
		if payloadArity == 1 && nodeArity == 0 && collArity == 1 {
			return newSingleCollisionResidue(n.colls[0])
		}

		nt := n.prepare(exclusive)
		nt.keys = removeAt(nt.keys, i)
		nt.vals = removeAt(nt.vals, i)
		nt.toEmpty(bitpos)
		return nt

	case nodeMap&bitpos != 0: // bitmap-indexed child case
		i := indexFrom(nodeMap, bitpos)
		child := n.kids[i]
		newChild := child.remove(exclusiveChild(exclusive, child.shared), key, h, shift+Nbits, hashFn, eff)
		if newChild == child {
			return n
		}

		// A single occupied slot in newChild is only a residue to inline/
		// escalate when that slot is a payload or a collision leaf. A
		// single remaining *node* child (nodeMap has the one bit) is an
		// ordinary, legal subtree of arity >= 2 and must be kept as a node
		// reference, not unwrapped as if it were a single element.
		if newChild.nodeMap() == 0 && newChild.isResidue() {
			if popcount32(dataMap)+popcount32(nodeMap)+popcount32(collMap) == 1 {
				return newChild // escalate unchanged: n itself dissolves
			}
			nt := n.prepare(exclusive)
			nt.kids = removeAt(nt.kids, i)
			if newChild.collMap() != 0 {
				leaf := newChild.colls[0]
				j := indexFrom(nt.collMap(), bitpos)
				nt.colls = insertAt(nt.colls, j, leaf)
				nt.toColl(bitpos) // node -> collision
			} else {
				k, v := newChild.keys[0], newChild.vals[0]
				j := indexFrom(nt.dataMap(), bitpos)
				nt.keys = insertAt(nt.keys, j, k)
				nt.vals = insertAt(nt.vals, j, v)
				nt.toData(bitpos) // node -> inline
			}
			return nt
		}

		nt := n.prepare(exclusive)
		nt.kids[i] = newChild
		return nt

	case collMap&bitpos != 0: // collision-leaf child case
		i := indexFrom(collMap, bitpos)
		leaf := n.colls[i]
		res := leaf.remove(exclusiveChild(exclusive, leaf.shared), key)
		if !res.removed {
			return n
		}
		eff.modified = true
		eff.replaced = true
		eff.prevValue = res.removedVal

		if res.leaf != nil {
			nt := n.prepare(exclusive)
			nt.colls[i] = res.leaf
			return nt
		}

		if popcount32(dataMap)+popcount32(nodeMap)+popcount32(collMap) == 1 {
			return newSinglePayloadResidue[K, V](res.survivorKey, res.survivorVal, hashFn(res.survivorKey))
		}

		nt := n.prepare(exclusive)
		nt.colls = removeAt(nt.colls, i)
		j := indexFrom(nt.dataMap(), bitpos)
		nt.keys = insertAt(nt.keys, j, res.survivorKey)
		nt.vals = insertAt(nt.vals, j, res.survivorVal)
		nt.toData(bitpos) // collision -> inline
		return nt

	default:
		return n
	}
}

func (n *bitmapIndexedNode[K, V]) String() string {
	return fmt.Sprintf("bitmapIndexedNode{dataMap:%#010x, nodeMap:%#010x, collMap:%#010x, payloads:%d, kids:%d, colls:%d}",
		n.dataMap(), n.nodeMap(), n.collMap(), len(n.keys), len(n.kids), len(n.colls))
}

// LongString recursively renders the subtree, in the teacher's
// LongString(indent, recurse) idiom.
func (n *bitmapIndexedNode[K, V]) LongString(indent string, recurse bool) string {
	lines := []string{indent + n.String() + "{"}
	for i := range n.keys {
		lines = append(lines, indent+halfIndent+fmt.Sprintf("payload[%d]: %v -> %v", i, n.keys[i], n.vals[i]))
	}
	for i, k := range n.kids {
		if recurse {
			lines = append(lines, indent+halfIndent+fmt.Sprintf("kids[%d]:", i), k.LongString(indent+fullIndent, recurse))
		} else {
			lines = append(lines, indent+halfIndent+fmt.Sprintf("kids[%d]: %s", i, k.String()))
		}
	}
	for i, cl := range n.colls {
		lines = append(lines, indent+halfIndent+fmt.Sprintf("colls[%d]: %s", i, cl.String()))
	}
	lines = append(lines, indent+"}")
	return strings.Join(lines, "\n")
}

const halfIndent = "  "
const fullIndent = "    "

// checkInvariants walks the subtree validating spec §3's invariants 1-6;
// used by the test suite, not by any production code path.
func (n *bitmapIndexedNode[K, V]) checkInvariants(shift uint, isRoot bool, hashFn func(K) uint64) int {
	dataMap, nodeMap, collMap := n.dataMap(), n.nodeMap(), n.collMap()
	if dataMap&nodeMap != 0 || dataMap&collMap != 0 || nodeMap&collMap != 0 {
		log.Panicf("champ: invariant violated: dataMap/nodeMap/collMap overlap")
	}
	if len(n.keys) != len(n.vals) || uint(len(n.keys)) != popcount32(dataMap) {
		log.Panicf("champ: invariant violated: payload arrays inconsistent with dataMap")
	}
	if uint(len(n.kids)) != popcount32(nodeMap) {
		log.Panicf("champ: invariant violated: kids array inconsistent with nodeMap")
	}
	if uint(len(n.colls)) != popcount32(collMap) {
		log.Panicf("champ: invariant violated: colls array inconsistent with collMap")
	}
	total := popcount32(dataMap) + popcount32(nodeMap) + popcount32(collMap)
	if !isRoot && total < 2 && nodeMap == 0 {
		log.Panicf("champ: invariant violated: non-root node with arity %d and no node child", total)
	}
	for i, k := range n.keys {
		bitpos := bitposFrom(maskFrom(hashFn(k), shift))
		if dataMap&bitpos == 0 || indexFrom(dataMap, bitpos) != uint(i) {
			log.Panicf("champ: invariant violated: payload key %v not at its hash-selected slot", k)
		}
	}
	count := len(n.keys)
	for _, k := range n.kids {
		count += k.checkInvariants(shift+Nbits, false, hashFn)
	}
	for _, cl := range n.colls {
		cl.checkInvariants()
		count += cl.entryCount()
	}
	if !isRoot && count < 2 {
		log.Panicf("champ: invariant violated: non-root subtree with %d entries (want >= 2)", count)
	}
	return count
}

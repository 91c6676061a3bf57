package champ

// effect is the out-parameter channel spec §3/§4.1 describes: every
// update/remove call threads one effect down through the recursion, and
// exactly the frame that performs the edit sets it. modified covers both a
// structural change and a value-only overwrite; replaced/prevValue carry
// the value that was overwritten or removed, when there was one.
type effect[V any] struct {
	modified  bool
	replaced  bool
	prevValue V
}

// Ownership.
//
// Spec §4.1 calls for an "ownership-propagation scheme" that lets a
// recursion frame mutate a node's buffer in place instead of cloning it,
// the same trick Steindorfer's original implementation gets from Swift's
// isKnownUniquelyReferenced. Go exposes no equivalent: a plain struct copy
// of a Map value (`b := a`) is invisible to this package, so a refcount
// that could read back down to 1 after such a copy would let a later
// mutation on `b` corrupt the tree `a` still points to.
//
// This port resolves that (see DESIGN.md) with a single bool per node,
// `shared`, defaulting to false (exclusive) on construction:
//
//   - A node is only ever mutated in place while shared == false, which
//     holds exactly for nodes allocated during the currently-executing
//     top-level Set/Delete call and not yet handed back to a caller.
//   - Map.Set/Delete mark every node on the edited path shared = true
//     right before returning the new root (see the freeze calls in map.go), and
//     clone() marks every child it retains verbatim as shared, since a
//     clone introduces a second live reference to each of them.
//   - Consequently every node reachable from any Map value a caller has
//     ever observed has shared == true; shared == false is only ever true
//     for nodes still under construction inside the current call.
//
// This is sound for every aliasing pattern (it never claims exclusivity it
// cannot prove) at the cost of not reusing buffers across separate top
// level calls on the same Map value — exactly the "default to pure
// functional copying" fallback spec's design notes license when a real
// uniqueness primitive isn't available, applied as tightly as Go permits.
// Builder (builder.go) recovers genuine cross-call reuse for callers who
// opt into an explicit, non-shared, single-writer construction session.
func exclusiveChild(callerExclusive, childShared bool) bool {
	return callerExclusive && !childShared
}

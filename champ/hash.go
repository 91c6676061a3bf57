package champ

import "github.com/dolthub/maphash"

// newHasher wires spec §3's "Hash" primitive to github.com/dolthub/maphash,
// the generic comparable-key hasher already pulled into the pack by
// gophc-swiss's Map8. A fresh Hasher is seeded once per Map/Builder root and
// never reseeded mid-lifetime, since two Map values built from different
// seeds would disagree on every key's trie position.
func newHasher[K comparable]() maphash.Hasher[K] {
	return maphash.NewHasher[K]()
}

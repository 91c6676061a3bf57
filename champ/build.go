package champ

import "github.com/pkg/errors"

// Entry is one key/value pair, used by the bulk constructors below.
type Entry[K comparable, V any] struct {
	Key K
	Val V
}

// NewFromSeq bulk-constructs a Map from entries, rejecting duplicate keys:
// the handle boilerplate spec §6 names directly. It mirrors the teacher's
// TestMain-level bulk Put loop, but surfaces a repeated key as a returned,
// wrapped error instead of log.Fatalf — a library has no business calling
// os.Exit on its caller's behalf.
//
// Construction goes through a Builder internally, so nodes are edited in
// place instead of having their root-to-leaf path cloned for every entry.
func NewFromSeq[K comparable, V any](entries []Entry[K, V]) (Map[K, V], error) {
	b := NewBuilder[K, V]()
	for _, e := range entries {
		if b.ContainsKey(e.Key) {
			return Map[K, V]{}, errors.Wrapf(ErrDuplicateKey, "key %v", e.Key)
		}
		b.Set(e.Key, e.Val)
	}
	return b.Build(), nil
}

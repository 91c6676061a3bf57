package champ

import "github.com/pkg/errors"

// ErrDuplicateKey is returned (wrapped via github.com/pkg/errors, the
// teacher's own choice of error-wrapping library in hamt32/main_test.go)
// by the bulk constructors in build.go when a key repeats.
var ErrDuplicateKey = errors.New("champ: duplicate key")

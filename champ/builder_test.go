package champ

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderBasic(t *testing.T) {
	b := NewBuilder[int, string]()
	require.Equal(t, 0, b.Len())

	added := b.Set(1, "one")
	require.True(t, added)
	added = b.Set(1, "uno")
	require.False(t, added)
	require.Equal(t, 1, b.Len())

	v, ok := b.Get(1)
	require.True(t, ok)
	require.Equal(t, "uno", v)

	for i := 2; i < 1000; i++ {
		b.Set(i, "x")
	}
	require.Equal(t, 999, b.Len())

	m := b.Build()
	require.Equal(t, 999, m.Len())
	m.checkInvariants()

	v, ok = m.Get(1)
	require.True(t, ok)
	require.Equal(t, "uno", v)
}

func TestBuilderDelete(t *testing.T) {
	b := NewBuilder[int, int]()
	for i := 0; i < 100; i++ {
		b.Set(i, i)
	}
	val, found := b.Delete(50)
	require.True(t, found)
	require.Equal(t, 50, val)
	require.Equal(t, 99, b.Len())

	_, found = b.Delete(50)
	require.False(t, found)

	m := b.Build()
	_, ok := m.Get(50)
	require.False(t, ok)
	require.Equal(t, 99, m.Len())
}

func TestBuilderPanicsAfterBuild(t *testing.T) {
	b := NewBuilder[int, int]()
	b.Set(1, 1)
	_ = b.Build()

	require.Panics(t, func() {
		b.Set(2, 2)
	})
}

func TestBuilderResultIsIndependentOfFurtherMutation(t *testing.T) {
	b := NewBuilder[int, int]()
	b.Set(1, 1)
	m := b.Build()

	m2, _ := m.Set(2, 2)
	_, ok := m.Get(2)
	require.False(t, ok)
	_, ok = m2.Get(2)
	require.True(t, ok)
}

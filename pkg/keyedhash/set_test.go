package keyedhash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type tag struct {
	ID int32
}

func newTestSet(opts ...Option[int32, tag]) *Set[int32, tag] {
	return NewInt32KeyedSetFlat[tag]("test_set",
		func(t tag) int32 { return t.ID },
		opts...,
	)
}

func TestSetAddContainsRemove(t *testing.T) {
	s := newTestSet()
	_, existed, err := s.Add(tag{ID: 1})
	require.NoError(t, err)
	require.False(t, existed)

	require.True(t, s.Contains(1))
	require.False(t, s.Contains(2))

	removed, found, err := s.Remove(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(1), removed.ID)
	require.False(t, s.Contains(1))
}

func TestSetAddIfAbsent(t *testing.T) {
	s := newTestSet()
	_, _, _ = s.Add(tag{ID: 1})
	_, existed, err := s.AddIfAbsent(tag{ID: 1})
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, 1, s.Size())
}

func TestSetEqualAndHashCode(t *testing.T) {
	a := newTestSet()
	b := newTestSet()
	_, _, _ = a.Add(tag{ID: 1})
	_, _, _ = a.Add(tag{ID: 2})
	_, _, _ = b.Add(tag{ID: 2})
	_, _, _ = b.Add(tag{ID: 1})

	require.True(t, a.Equal(b))
	require.Equal(t, a.HashCode(), b.HashCode())

	_, _, _ = b.Remove(2)
	require.False(t, a.Equal(b))
}

func TestSetElementsIteration(t *testing.T) {
	s := newTestSet()
	_, _, _ = s.Add(tag{ID: 1})
	_, _, _ = s.Add(tag{ID: 2})
	_, _, _ = s.Add(tag{ID: 3})

	seen := map[int32]bool{}
	it := s.Elements()
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		seen[v.ID] = true
	}
	require.Len(t, seen, 3)
}

func TestSetGetOrCreate(t *testing.T) {
	s := newTestSet()
	v, err := s.GetOrCreate(context.Background(), 9, func(ctx context.Context, key int32, extras ...any) (tag, error) {
		return tag{ID: key}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(9), v.ID)
	require.True(t, s.Contains(9))
}

func TestSetClearAndCompact(t *testing.T) {
	s := newTestSet()
	for i := int32(0); i < 5; i++ {
		_, _, _ = s.Add(tag{ID: i})
	}
	require.NoError(t, s.Clear())
	require.Equal(t, 0, s.Size())
	require.NoError(t, s.Compact())
}

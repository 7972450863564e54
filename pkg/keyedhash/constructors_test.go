package keyedhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type floatVal struct {
	K float64
}

type objVal struct {
	Name string
}

func TestNewInt32KeyedFlatRoundTrip(t *testing.T) {
	m := NewInt32KeyedFlat[int32]("i32", func(v int32) int32 { return v })
	_, _, err := m.Put(7)
	require.NoError(t, err)
	v, ok, _ := m.Get(7)
	require.True(t, ok)
	require.Equal(t, int32(7), v)
}

func TestNewFloat64KeyedFlatRoundTrip(t *testing.T) {
	m := NewFloat64KeyedFlat[floatVal]("f64", func(v floatVal) float64 { return v.K })
	_, _, err := m.Put(floatVal{K: 3.5})
	require.NoError(t, err)
	v, ok, _ := m.Get(3.5)
	require.True(t, ok)
	require.Equal(t, 3.5, v.K)
}

func TestNewObjectKeyedFlatRoundTrip(t *testing.T) {
	m := NewObjectKeyedFlat[string, objVal]("obj",
		func(v objVal) string { return v.Name },
		func(a, b string) bool { return a == b },
		func(k string) uint64 {
			var h uint64 = 14695981039346656037
			for i := 0; i < len(k); i++ {
				h ^= uint64(k[i])
				h *= 1099511628211
			}
			return h
		},
	)
	_, _, err := m.Put(objVal{Name: "x"})
	require.NoError(t, err)
	v, ok, _ := m.Get("x")
	require.True(t, ok)
	require.Equal(t, "x", v.Name)
}

type linkedInt32 struct {
	V    int32
	next *linkedInt32
}

func (n *linkedInt32) Next() *linkedInt32     { return n.next }
func (n *linkedInt32) SetNext(x *linkedInt32) { n.next = x }

func TestNewInt32KeyedIntrusiveRoundTrip(t *testing.T) {
	m := NewInt32KeyedIntrusive[*linkedInt32]("i32_intrusive", func(v *linkedInt32) int32 { return v.V })
	_, _, err := m.Put(&linkedInt32{V: 9})
	require.NoError(t, err)
	v, ok, _ := m.Get(9)
	require.True(t, ok)
	require.Equal(t, int32(9), v.V)
}

func TestNewInt32KeyedSetRoundTrip(t *testing.T) {
	s := NewInt32KeyedSetFlat[int32]("i32_set", func(v int32) int32 { return v })
	_, _, err := s.Add(1)
	require.NoError(t, err)
	require.True(t, s.Contains(1))
}

func TestNewInt64KeyedSetIntrusiveRoundTrip(t *testing.T) {
	s := NewInt64KeyedSetIntrusive[*linkedUser]("i64_set_intrusive", func(v *linkedUser) int64 { return v.ID })
	_, _, err := s.Add(&linkedUser{ID: 3, Name: "z"})
	require.NoError(t, err)
	require.True(t, s.Contains(3))
}

func TestNewFloat64KeyedSetRoundTrip(t *testing.T) {
	s := NewFloat64KeyedSetFlat[floatVal]("f64_set", func(v floatVal) float64 { return v.K })
	_, _, err := s.Add(floatVal{K: 1.25})
	require.NoError(t, err)
	require.True(t, s.Contains(1.25))
}

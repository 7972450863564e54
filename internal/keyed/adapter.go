package keyed

import "math"

// KeyAdapter extracts and hashes the derived key of a value, and compares a
// candidate key against a value without requiring the caller to re-derive
// the key first. Implementations must satisfy, for every value v the table
// accepts:
//
//	EqualKey(GetKey(v), v) == true
//	HashKey(GetKey(v)) is stable for the lifetime of v inside the table
//	EqualKey(k1, v) && EqualKey(k2, v) implies HashKey(k1) == HashKey(k2)
type KeyAdapter[K, V any] interface {
	GetKey(v V) K
	HashKey(k K) uint64
	EqualKey(k K, v V) bool
}

// FuncKeyAdapter is a lax KeyAdapter built from three plain closures. This is
// the idiomatic Go shape for the distilled spec's "boxed methods delegate to
// primitive methods" adapter: since Go generics monomorphise per K/V pair,
// there is no boxing to delegate away from in the first place.
type FuncKeyAdapter[K, V any] struct {
	GetKeyFn   func(v V) K
	HashKeyFn  func(k K) uint64
	EqualKeyFn func(k K, v V) bool
}

func (a FuncKeyAdapter[K, V]) GetKey(v V) K          { return a.GetKeyFn(v) }
func (a FuncKeyAdapter[K, V]) HashKey(k K) uint64     { return a.HashKeyFn(k) }
func (a FuncKeyAdapter[K, V]) EqualKey(k K, v V) bool { return a.EqualKeyFn(k, v) }

// maskHash clears the sign bit. Go's uint64 hashes are never negative, but
// the mask is kept so a signed-hash adapter added later still honours the
// documented "index never sees a negative value" contract.
func maskHash(h uint64) uint64 {
	return h & 0x7FFFFFFFFFFFFFFF
}

// splitmix64 is a cheap, allocation-free finaliser with good avalanche,
// used by the built-in integer key adapters so hashing a primitive key
// never allocates.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}

// Int32KeyAdapter builds a KeyAdapter for values keyed by an int32 field,
// with allocation-free hashing.
func Int32KeyAdapter[V any](getKey func(V) int32) KeyAdapter[int32, V] {
	return FuncKeyAdapter[int32, V]{
		GetKeyFn:  getKey,
		HashKeyFn: func(k int32) uint64 { return maskHash(splitmix64(uint64(uint32(k)))) },
		EqualKeyFn: func(k int32, v V) bool {
			return getKey(v) == k
		},
	}
}

// Int64KeyAdapter builds a KeyAdapter for values keyed by an int64 field,
// with allocation-free hashing.
func Int64KeyAdapter[V any](getKey func(V) int64) KeyAdapter[int64, V] {
	return FuncKeyAdapter[int64, V]{
		GetKeyFn:  getKey,
		HashKeyFn: func(k int64) uint64 { return maskHash(splitmix64(uint64(k))) },
		EqualKeyFn: func(k int64, v V) bool {
			return getKey(v) == k
		},
	}
}

// Float64KeyAdapter builds a KeyAdapter for values keyed by a float64 field.
// The key is hashed by its raw IEEE-754 bit pattern, so +0.0 and -0.0 (which
// compare == under Go's normal float equality) hash to different slots —
// this is a deliberate, documented quirk carried over from the distilled
// spec's Open Questions, not an oversight: EqualKey below uses the same raw
// bit comparison so the contract "equal keys hash equal" still holds with
// respect to the adapter's own notion of key equality.
func Float64KeyAdapter[V any](getKey func(V) float64) KeyAdapter[float64, V] {
	return FuncKeyAdapter[float64, V]{
		GetKeyFn: getKey,
		HashKeyFn: func(k float64) uint64 {
			return maskHash(splitmix64(math.Float64bits(k)))
		},
		EqualKeyFn: func(k float64, v V) bool {
			return math.Float64bits(getKey(v)) == math.Float64bits(k)
		},
	}
}

// ObjectKeyAdapter builds a KeyAdapter for a reference key type, given a key
// extractor and an equality function.
func ObjectKeyAdapter[K, V any](getKey func(V) K, hashKey func(K) uint64, equalKey func(K, K) bool) KeyAdapter[K, V] {
	return FuncKeyAdapter[K, V]{
		GetKeyFn:  getKey,
		HashKeyFn: hashKey,
		EqualKeyFn: func(k K, v V) bool {
			return equalKey(k, getKey(v))
		},
	}
}

// StrictKeyAdapter wraps a lax KeyAdapter and additionally exposes boxed
// ("any"-typed) entry points that always fail with ErrMustNotBox. It exists
// to catch accidental interface{} conversions of a key on a hot path: code
// that has a statically-typed K should never need the boxed methods, so a
// call through them is itself the bug.
type StrictKeyAdapter[K, V any] struct {
	KeyAdapter[K, V]
}

// NewStrictKeyAdapter wraps lax in a StrictKeyAdapter.
func NewStrictKeyAdapter[K, V any](lax KeyAdapter[K, V]) StrictKeyAdapter[K, V] {
	return StrictKeyAdapter[K, V]{KeyAdapter: lax}
}

// HashKeyBoxed always fails: see StrictKeyAdapter's doc comment.
func (StrictKeyAdapter[K, V]) HashKeyBoxed(any) (uint64, error) {
	return 0, ErrMustNotBox
}

// EqualKeyBoxed always fails: see StrictKeyAdapter's doc comment.
func (StrictKeyAdapter[K, V]) EqualKeyBoxed(any, V) (bool, error) {
	return false, ErrMustNotBox
}

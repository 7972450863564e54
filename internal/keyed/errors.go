// Package keyed implements the core keyed hash collections: an
// open-addressed flat table and an intrusively-chained table, both indexed
// by a key derived from the stored value rather than stored alongside it.
//
// © 2025 keyedhash authors. MIT License.
package keyed

import "errors"

// Sentinel errors returned by table operations. Callers should use
// errors.Is against these, never string-match the message.
var (
	// ErrKeyInconsistent is returned when a put/replace/factory-produced
	// value's derived key does not match the key the caller supplied. The
	// failing operation has no effect on table state.
	ErrKeyInconsistent = errors.New("keyed: derived key does not match supplied key")

	// ErrNullValueDisallowed is returned when an operation is asked to
	// match against a nil "expected" value where a real value is required
	// (the 3-arg Replace/RemoveExpected family).
	ErrNullValueDisallowed = errors.New("keyed: nil value not allowed here")

	// ErrCycleDetected indicates a probe sequence returned to its origin
	// slot without finding an empty slot or the target key. This can only
	// happen if an invariant has been violated (concurrent corruption, a
	// load factor of 1, or a capacity that is not prime); it is fatal.
	ErrCycleDetected = errors.New("keyed: probe sequence cycled without resolution")

	// ErrInternalInvariantBroken marks a condition the table's own
	// bookkeeping should make impossible (e.g. Clear leaving size != 0, or
	// a rehash leaving the new array without an empty slot). Fatal.
	ErrInternalInvariantBroken = errors.New("keyed: internal invariant broken")

	// ErrNoSuchElement is returned by iterators once exhausted.
	ErrNoSuchElement = errors.New("keyed: no such element")

	// ErrMustNotBox is returned by a StrictKeyAdapter's boxed-entry
	// methods: it is a deliberate guard against accidental key boxing on
	// a hot path, not a real failure of the underlying adapter.
	ErrMustNotBox = errors.New("keyed: strict adapter forbids boxed key access")
)

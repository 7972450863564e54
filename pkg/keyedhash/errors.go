package keyedhash

// errors.go re-exports the core package's sentinel errors so callers never
// need to import internal/keyed directly to use errors.Is against them.
//
// © 2025 keyedhash authors. MIT License.

import "github.com/Voskan/keyedhash/internal/keyed"

var (
	// ErrKeyInconsistent is returned when a put/replace/factory-produced
	// value's derived key does not match the key supplied to the call.
	ErrKeyInconsistent = keyed.ErrKeyInconsistent

	// ErrNullValueDisallowed is returned when an expected-value operation
	// is asked to match against a nil value where a real one is required.
	ErrNullValueDisallowed = keyed.ErrNullValueDisallowed

	// ErrCycleDetected indicates a probe sequence cycled without
	// resolution — fatal, indicates internal corruption.
	ErrCycleDetected = keyed.ErrCycleDetected

	// ErrInternalInvariantBroken marks a condition the table's own
	// bookkeeping should make impossible. Fatal.
	ErrInternalInvariantBroken = keyed.ErrInternalInvariantBroken

	// ErrNoSuchElement is returned by iterators once exhausted.
	ErrNoSuchElement = keyed.ErrNoSuchElement

	// ErrMustNotBox is returned by a StrictKeyAdapter's boxed-entry
	// methods.
	ErrMustNotBox = keyed.ErrMustNotBox
)

var errNoSuchElementView = ErrNoSuchElement

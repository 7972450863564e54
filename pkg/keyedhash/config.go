package keyedhash

// config.go defines the internal configuration object and the set of
// functional options passed to the specialised constructors. A generic
// Option is used so callbacks retain full type-safety with respect to the
// concrete key/value types chosen by the caller.
//
// Design notes
// ------------
// • All fields are initialised with sensible defaults in defaultConfig().
// • Options never allocate unless strictly necessary — they just capture
//   pointers to external objects (registry, logger, equality func).
// • The struct itself is unexported: callers can only influence behaviour
//   via Option[K,V], which keeps the surface forward-compatible.
//
// © 2025 keyedhash authors. MIT License.

import (
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a table constructed by one of the New*Keyed functions.
type Option[K, V any] func(*config[K, V])

type config[K, V any] struct {
	initialCapacity int
	loadFactor      float64
	logger          *zap.Logger
	registry        *prometheus.Registry
	valueEqual      func(a, b V) bool
	strict          bool
}

func defaultConfig[K, V any]() *config[K, V] {
	return &config[K, V]{
		initialCapacity: 16,
		loadFactor:      0, // 0 means "let the backing table pick its own default"
		logger:          zap.NewNop(),
		registry:        nil,
		valueEqual:      nil,
		strict:          false,
	}
}

// WithInitialCapacity sets the initial capacity handed to the backing table:
// a flat table starts with the smallest listed prime >= n slots, a chained
// table with ⌈n·loadFactor⌉ buckets. Values below 1 are ignored and the
// default of 16 is kept.
func WithInitialCapacity[K, V any](n int) Option[K, V] {
	return func(c *config[K, V]) {
		if n > 0 {
			c.initialCapacity = n
		}
	}
}

// WithLoadFactor overrides the table's default load factor. Values outside
// (0, 1) are ignored; the backing table then falls back to its own default
// (0.5 for flat tables, 0.75 for chained tables).
func WithLoadFactor[K, V any](f float64) Option[K, V] {
	return func(c *config[K, V]) {
		if f > 0 && f < 1 {
			c.loadFactor = f
		}
	}
}

// WithLogger plugs an external zap.Logger. The table never logs on the hot
// path; the only event logged is a rehash (including the rehash a Compact
// performs). Errors are returned to the caller, not logged.
func WithLogger[K, V any](l *zap.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for the table. Passing
// nil disables metrics (the default).
func WithMetrics[K, V any](reg *prometheus.Registry) Option[K, V] {
	return func(c *config[K, V]) {
		c.registry = reg
	}
}

// WithValueEqual overrides the value-equality function used by Map.Equal
// and, on flat-backed tables, by ContainsValue and the expected-value
// operations. Intrusive-backed tables always use reflect.DeepEqual for
// ContainsValue and the expected-value operations. Defaults to
// reflect.DeepEqual.
func WithValueEqual[K, V any](eq func(a, b V) bool) Option[K, V] {
	return func(c *config[K, V]) {
		c.valueEqual = eq
	}
}

// WithStrictKeyAdapter wraps the table's key adapter in a StrictKeyAdapter,
// so any accidental boxed-key access through it fails loudly instead of
// silently boxing the key.
func WithStrictKeyAdapter[K, V any]() Option[K, V] {
	return func(c *config[K, V]) {
		c.strict = true
	}
}

func applyOptions[K, V any](opts []Option[K, V]) *config[K, V] {
	cfg := defaultConfig[K, V]()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Package config holds the tunables for the capture pipeline, the packet
// cache and the frame source. A Config is built once via New and threaded
// through the components that need it, the way the teacher threads its
// decoder Config through InitGoPacketDecoders.
package config

import "time"

// Defaults per spec: poll tick 10ms, batch size 50, batch timeout 250ms,
// cache bound 100,000 entries, snaplen 65535, source timeout 1000ms.
const (
	DefaultPollTick        = 10 * time.Millisecond
	DefaultBatchSize       = 50
	DefaultBatchTimeout    = 250 * time.Millisecond
	DefaultMaxCacheEntries = 100_000
	DefaultSnapLen         = 65535
	DefaultSourceTimeout   = 1000 * time.Millisecond
)

// Config collects the tunables a capture session is started with.
type Config struct {
	PollTick        time.Duration
	BatchSize       int
	BatchTimeout    time.Duration
	MaxCacheEntries int
	SnapLen         int32
	SourceTimeout   time.Duration

	// Debug enables verbose dumps (e.g. spew.Sdump of frames that fail
	// Ethernet framing) in packages that check it.
	Debug bool
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithBatchSize overrides the default batch-size trigger.
func WithBatchSize(n int) Option {
	return func(c *Config) { c.BatchSize = n }
}

// WithBatchTimeout overrides the default batch-timeout trigger.
func WithBatchTimeout(d time.Duration) Option {
	return func(c *Config) { c.BatchTimeout = d }
}

// WithMaxCacheEntries overrides the default cache bound.
func WithMaxCacheEntries(n int) Option {
	return func(c *Config) { c.MaxCacheEntries = n }
}

// WithPollTick overrides the default consumer tick cadence.
func WithPollTick(d time.Duration) Option {
	return func(c *Config) { c.PollTick = d }
}

// WithSnapLen overrides the default frame-source snaplen.
func WithSnapLen(n int32) Option {
	return func(c *Config) { c.SnapLen = n }
}

// WithSourceTimeout overrides the default frame-source poll timeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(c *Config) { c.SourceTimeout = d }
}

// WithDebug toggles verbose debug dumps.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

// New builds a Config from the package defaults, applying opts in order.
func New(opts ...Option) *Config {
	c := &Config{
		PollTick:        DefaultPollTick,
		BatchSize:       DefaultBatchSize,
		BatchTimeout:    DefaultBatchTimeout,
		MaxCacheEntries: DefaultMaxCacheEntries,
		SnapLen:         DefaultSnapLen,
		SourceTimeout:   DefaultSourceTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

package keylisten

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dshills/keylisten/dispatch"
	"github.com/dshills/keylisten/infer"
	"github.com/dshills/keylisten/key"
	"github.com/dshills/keylisten/reader"
)

// Defaults for session configuration.
const (
	// DefaultUntil is the key that ends listening unless overridden.
	DefaultUntil = "esc"

	// DefaultPollInterval is the sleep between listening loop ticks.
	DefaultPollInterval = 50 * time.Millisecond

	maxDefaultWorkers = 32
)

// Config captures a session's immutable configuration. Build one through
// Options; the zero value is not usable directly.
type Config struct {
	// OnPress handles press events. Optional if OnRelease is set.
	OnPress dispatch.Handler

	// OnRelease handles release events. Optional if OnPress is set.
	OnRelease dispatch.Handler

	// Until names the key whose press ends the session. Empty disables
	// until-key termination; the session then runs until stopped.
	Until string

	// Policy selects how handlers execute.
	Policy dispatch.Policy

	// DelaySecondChar is the longest expected gap between a press and
	// the first key repeat.
	DelaySecondChar time.Duration

	// DelayOtherChars is the longest expected gap between later repeats.
	DelayOtherChars time.Duration

	// Lower folds key names to lowercase before dispatch.
	Lower bool

	// Debug enables diagnostic logging of dropped bytes and handler
	// failures.
	Debug bool

	// DebugOutput receives diagnostics when Debug is set.
	// Defaults to os.Stderr.
	DebugOutput io.Writer

	// MaxWorkers sizes the worker pool for the Concurrent policy.
	MaxWorkers int

	// PollInterval is the sleep between loop ticks.
	PollInterval time.Duration

	// HoldTimeout is how long an ambiguous escape prefix is retained
	// before committing to the shorter match.
	HoldTimeout time.Duration

	// WaitForHandlers makes session shutdown wait for in-flight
	// Concurrent handlers instead of leaving them to finish detached.
	WaitForHandlers bool

	// Input is the terminal to listen on. Defaults to os.Stdin.
	Input *os.File

	// Source overrides terminal input entirely. When set, no terminal
	// mode is acquired; bytes come from the source instead. Intended
	// for tests and callers that own their terminal handling.
	Source reader.ByteSource
}

// DefaultConfig returns the documented defaults: stop on "esc", lowercase
// key names, concurrent handler execution sized to the machine, and the
// timing thresholds tuned for common terminals.
func DefaultConfig() Config {
	workers := runtime.NumCPU() + 4
	if workers > maxDefaultWorkers {
		workers = maxDefaultWorkers
	}
	return Config{
		Until:           DefaultUntil,
		Policy:          dispatch.Concurrent,
		DelaySecondChar: infer.DefaultDelaySecondChar,
		DelayOtherChars: infer.DefaultDelayOtherChars,
		Lower:           true,
		MaxWorkers:      workers,
		PollInterval:    DefaultPollInterval,
		HoldTimeout:     reader.DefaultHoldTimeout,
		Input:           os.Stdin,
	}
}

// Validate checks the configuration. All failures are ConfigErrors and
// occur before any terminal state is modified.
func (c *Config) Validate() error {
	if c.OnPress == nil && c.OnRelease == nil {
		return &ConfigError{Field: "handlers", Reason: "either an on-press or an on-release handler must be set"}
	}
	if !c.Policy.Valid() {
		return &ConfigError{Field: "policy", Reason: "unknown dispatch policy"}
	}
	if c.DelaySecondChar < 0 {
		return &ConfigError{Field: "delay-second-char", Reason: "must not be negative"}
	}
	if c.DelayOtherChars < 0 {
		return &ConfigError{Field: "delay-other-chars", Reason: "must not be negative"}
	}
	if c.PollInterval < 0 {
		return &ConfigError{Field: "poll-interval", Reason: "must not be negative"}
	}
	if c.HoldTimeout < 0 {
		return &ConfigError{Field: "hold-timeout", Reason: "must not be negative"}
	}
	if c.Policy == dispatch.Concurrent && c.MaxWorkers <= 0 {
		return &ConfigError{Field: "max-workers", Reason: "concurrent policy requires at least one worker"}
	}
	if c.Until != "" && !key.IsName(c.untilKey()) {
		return &ConfigError{Field: "until", Reason: fmt.Sprintf("unknown key name %q", c.Until)}
	}
	return nil
}

// untilKey returns the until key as it will be compared at dispatch time.
func (c *Config) untilKey() string {
	if c.Lower {
		return strings.ToLower(c.Until)
	}
	return c.Until
}

// Option configures a session.
type Option func(*Config)

// WithOnPress registers a plain press callback receiving the key name.
func WithOnPress(fn func(key string)) Option {
	return func(c *Config) {
		c.OnPress = dispatch.Callback(fn)
	}
}

// WithOnRelease registers a plain release callback receiving the key name.
func WithOnRelease(fn func(key string)) Option {
	return func(c *Config) {
		c.OnRelease = dispatch.Callback(fn)
	}
}

// WithPressHandler registers a full press handler with context and error.
func WithPressHandler(h dispatch.Handler) Option {
	return func(c *Config) {
		c.OnPress = h
	}
}

// WithReleaseHandler registers a full release handler with context and
// error.
func WithReleaseHandler(h dispatch.Handler) Option {
	return func(c *Config) {
		c.OnRelease = h
	}
}

// WithUntil sets the key whose press ends the session. An empty name
// disables until-key termination.
func WithUntil(name string) Option {
	return func(c *Config) {
		c.Until = name
	}
}

// WithSequential selects the Sequential policy: each callback completes
// before the loop continues.
func WithSequential() Option {
	return func(c *Config) {
		c.Policy = dispatch.Sequential
	}
}

// WithPolicy selects the dispatch policy explicitly.
func WithPolicy(p dispatch.Policy) Option {
	return func(c *Config) {
		c.Policy = p
	}
}

// WithDelays sets the two release-inference thresholds.
func WithDelays(secondChar, otherChars time.Duration) Option {
	return func(c *Config) {
		c.DelaySecondChar = secondChar
		c.DelayOtherChars = otherChars
	}
}

// WithLower controls lowercase folding of key names.
func WithLower(lower bool) Option {
	return func(c *Config) {
		c.Lower = lower
	}
}

// WithDebug enables diagnostic logging.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithDebugOutput sets the diagnostics destination and enables debug
// logging.
func WithDebugOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Debug = true
		c.DebugOutput = w
	}
}

// WithMaxWorkers sizes the Concurrent policy's worker pool.
func WithMaxWorkers(n int) Option {
	return func(c *Config) {
		c.MaxWorkers = n
	}
}

// WithPollInterval sets the sleep between loop ticks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}

// WithHoldTimeout sets the escape-prefix hold window.
func WithHoldTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HoldTimeout = d
	}
}

// WithWaitForHandlers makes shutdown wait for in-flight Concurrent
// handlers.
func WithWaitForHandlers(wait bool) Option {
	return func(c *Config) {
		c.WaitForHandlers = wait
	}
}

// WithInput sets the terminal file to listen on.
func WithInput(f *os.File) Option {
	return func(c *Config) {
		c.Input = f
	}
}

// WithSource bypasses the terminal and reads bytes from src instead.
func WithSource(src reader.ByteSource) Option {
	return func(c *Config) {
		c.Source = src
	}
}

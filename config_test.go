package keylisten

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keylisten/dispatch"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "esc", cfg.Until)
	assert.Equal(t, dispatch.Concurrent, cfg.Policy)
	assert.True(t, cfg.Lower)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 750*time.Millisecond, cfg.DelaySecondChar)
	assert.Equal(t, 50*time.Millisecond, cfg.DelayOtherChars)
	assert.Positive(t, cfg.MaxWorkers)
	assert.LessOrEqual(t, cfg.MaxWorkers, 32)
}

func TestConfigValidate(t *testing.T) {
	press := func(c *Config) { c.OnPress = dispatch.Callback(func(string) {}) }

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "no handlers",
			mutate:    func(c *Config) {},
			wantField: "handlers",
		},
		{
			name: "invalid policy",
			mutate: func(c *Config) {
				press(c)
				c.Policy = dispatch.Policy(99)
			},
			wantField: "policy",
		},
		{
			name: "negative delay second char",
			mutate: func(c *Config) {
				press(c)
				c.DelaySecondChar = -time.Second
			},
			wantField: "delay-second-char",
		},
		{
			name: "negative delay other chars",
			mutate: func(c *Config) {
				press(c)
				c.DelayOtherChars = -time.Second
			},
			wantField: "delay-other-chars",
		},
		{
			name: "negative poll interval",
			mutate: func(c *Config) {
				press(c)
				c.PollInterval = -time.Millisecond
			},
			wantField: "poll-interval",
		},
		{
			name: "negative hold timeout",
			mutate: func(c *Config) {
				press(c)
				c.HoldTimeout = -time.Millisecond
			},
			wantField: "hold-timeout",
		},
		{
			name: "concurrent without workers",
			mutate: func(c *Config) {
				press(c)
				c.MaxWorkers = 0
			},
			wantField: "max-workers",
		},
		{
			name: "unknown until key",
			mutate: func(c *Config) {
				press(c)
				c.Until = "hyperspace"
			},
			wantField: "until",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantField, cerr.Field)
		})
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OnPress = dispatch.Callback(func(string) {})
	assert.NoError(t, cfg.Validate())

	// Folding applies to the until key before it is checked.
	cfg.Until = "ESC"
	assert.NoError(t, cfg.Validate())

	// Empty until disables until-key termination and is always valid.
	cfg.Until = ""
	assert.NoError(t, cfg.Validate())

	// A single printable rune is a valid until key.
	cfg.Until = "q"
	assert.NoError(t, cfg.Validate())

	// Only an on-release handler is enough.
	cfg.OnPress = nil
	cfg.OnRelease = dispatch.Callback(func(string) {})
	assert.NoError(t, cfg.Validate())
}

func TestOptionsApply(t *testing.T) {
	cfg := DefaultConfig()
	opts := []Option{
		WithOnPress(func(string) {}),
		WithOnRelease(func(string) {}),
		WithUntil("space"),
		WithSequential(),
		WithDelays(time.Second, 100*time.Millisecond),
		WithLower(false),
		WithMaxWorkers(3),
		WithPollInterval(10 * time.Millisecond),
		WithHoldTimeout(40 * time.Millisecond),
		WithWaitForHandlers(true),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	assert.NotNil(t, cfg.OnPress)
	assert.NotNil(t, cfg.OnRelease)
	assert.Equal(t, "space", cfg.Until)
	assert.Equal(t, dispatch.Sequential, cfg.Policy)
	assert.Equal(t, time.Second, cfg.DelaySecondChar)
	assert.Equal(t, 100*time.Millisecond, cfg.DelayOtherChars)
	assert.False(t, cfg.Lower)
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 40*time.Millisecond, cfg.HoldTimeout)
	assert.True(t, cfg.WaitForHandlers)
}

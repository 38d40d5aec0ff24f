package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// fileConfig mirrors the listen flags in a TOML file. All fields are
// optional; explicit command-line flags always win.
type fileConfig struct {
	Until           *string  `toml:"until"`
	Policy          *string  `toml:"policy"`
	Sequential      *bool    `toml:"sequential"`
	DelaySecondChar *float64 `toml:"delay-second-char"`
	DelayOtherChars *float64 `toml:"delay-other-chars"`
	NoLower         *bool    `toml:"no-lower"`
	Debug           *bool    `toml:"debug"`
	MaxWorkers      *int     `toml:"max-workers"`
	PollInterval    *float64 `toml:"poll-interval"`
	WaitForHandlers *bool    `toml:"wait-for-handlers"`
}

// loadFileConfig reads the TOML config at path. A missing file is only
// an error when the path was given explicitly.
func loadFileConfig(path string) (*fileConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}

// apply copies file values into flags that were not set on the command
// line.
func (c *fileConfig) apply(cmd *cobra.Command, flags *listenFlags) {
	set := cmd.Flags().Changed

	if c.Until != nil && !set("until") {
		flags.until = *c.Until
	}
	if c.Policy != nil && !set("policy") {
		flags.policy = *c.Policy
	}
	if c.Sequential != nil && !set("sequential") {
		flags.sequential = *c.Sequential
	}
	if c.DelaySecondChar != nil && !set("delay-second-char") {
		flags.delaySecondChar = *c.DelaySecondChar
	}
	if c.DelayOtherChars != nil && !set("delay-other-chars") {
		flags.delayOtherChars = *c.DelayOtherChars
	}
	if c.NoLower != nil && !set("no-lower") {
		flags.noLower = *c.NoLower
	}
	if c.Debug != nil && !set("debug") {
		flags.debug = *c.Debug
	}
	if c.MaxWorkers != nil && !set("max-workers") {
		flags.maxWorkers = *c.MaxWorkers
	}
	if c.PollInterval != nil && !set("poll-interval") {
		flags.pollInterval = *c.PollInterval
	}
	if c.WaitForHandlers != nil && !set("wait-for-handlers") {
		flags.waitForHandlers = *c.WaitForHandlers
	}
}

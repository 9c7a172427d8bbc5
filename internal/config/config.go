// Package config handles circuit.toml configuration for the viewer-side
// tuning knobs that spec §6 leaves to the deployer: timeouts, resend
// limits, and flags for optional traffic classes (agent updates, agent
// throttle). The traffic-class flags are parsed and defaulted only;
// ToOptions does not pass them to circuit.Options. Grounded on
// the teacher's manifest.Load (TOML file plus defaulting plus
// environment override), generalized from build manifests to circuit
// options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk/env-overridable circuit configuration. Fields
// other than SendAgentUpdates and SendAgentThrottle mirror circuit.Options'
// tunables; keys absent from the file keep the Default() values, which
// match the defaults circuit.Options.setDefaults applies.
type Config struct {
	SimulatorTimeoutMS int  `toml:"simulator_timeout_ms"`
	LogoutTimeoutMS    int  `toml:"logout_timeout_ms"`
	ResendTimeoutMS    int  `toml:"resend_timeout_ms"`
	MaxResendAttempts  int  `toml:"max_resend_attempts"`
	AckFlushMS         int  `toml:"ack_flush_ms"`
	SendAgentUpdates   bool `toml:"send_agent_updates"`
	SendAgentThrottle  bool `toml:"send_agent_throttle"`
	MultipleSims       bool `toml:"multiple_sims"`

	// Dir is the directory containing the loaded file, empty for
	// Default().
	Dir string `toml:"-"`
}

// Default returns a Config with every field at its packaged default.
func Default() Config {
	return Config{
		SimulatorTimeoutMS: 30000,
		LogoutTimeoutMS:    5000,
		ResendTimeoutMS:    4000,
		MaxResendAttempts:  5,
		AckFlushMS:         500,
		SendAgentUpdates:   true,
		SendAgentThrottle:  true,
		MultipleSims:       false,
	}
}

// Load reads path as TOML into a Config seeded with Default(), then
// applies SL_-prefixed environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides fields from SL_-prefixed environment variables,
// letting a deployment tweak timeouts without editing the file.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("SL_SIMULATOR_TIMEOUT_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.SimulatorTimeoutMS = n
		}
	}
	if v, ok := os.LookupEnv("SL_LOGOUT_TIMEOUT_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.LogoutTimeoutMS = n
		}
	}
	if v, ok := os.LookupEnv("SL_RESEND_TIMEOUT_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.ResendTimeoutMS = n
		}
	}
	if v, ok := os.LookupEnv("SL_MAX_RESEND_ATTEMPTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxResendAttempts = n
		}
	}
	if v, ok := os.LookupEnv("SL_ACK_FLUSH_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.AckFlushMS = n
		}
	}
	if v, ok := os.LookupEnv("SL_SEND_AGENT_UPDATES"); ok {
		c.SendAgentUpdates = v != "" && v != "0" && v != "false"
	}
	if v, ok := os.LookupEnv("SL_SEND_AGENT_THROTTLE"); ok {
		c.SendAgentThrottle = v != "" && v != "0" && v != "false"
	}
	if v, ok := os.LookupEnv("SL_MULTIPLE_SIMS"); ok {
		c.MultipleSims = v != "" && v != "0" && v != "false"
	}
}

// SimulatorTimeout returns the configured simulator liveness timeout.
func (c Config) SimulatorTimeout() time.Duration {
	return time.Duration(c.SimulatorTimeoutMS) * time.Millisecond
}

// LogoutTimeout returns the configured logout-reply wait.
func (c Config) LogoutTimeout() time.Duration {
	return time.Duration(c.LogoutTimeoutMS) * time.Millisecond
}

// ResendTimeout returns the configured retransmit interval.
func (c Config) ResendTimeout() time.Duration {
	return time.Duration(c.ResendTimeoutMS) * time.Millisecond
}

// AckFlushInterval returns the configured periodic ack-flush interval.
func (c Config) AckFlushInterval() time.Duration {
	return time.Duration(c.AckFlushMS) * time.Millisecond
}

package config

import "dev.mvwire.core/circuit"

// ToOptions builds a circuit.Options from the configured timeouts, leaving
// Throttle and Trace for the caller to attach.
func (c Config) ToOptions() circuit.Options {
	return circuit.Options{
		ResendTimeout:     c.ResendTimeout(),
		MaxResendAttempts: c.MaxResendAttempts,
		AckFlushInterval:  c.AckFlushInterval(),
		SimulatorTimeout:  c.SimulatorTimeout(),
		LogoutTimeout:     c.LogoutTimeout(),
		MultipleSims:      c.MultipleSims,
	}
}

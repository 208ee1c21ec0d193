// Package config loads Supervisor startup options from the
// environment using github.com/golobby/config/v3, the config
// dependency the teacher's go.mod already carries but never wires
// into code. The env tag convention matches the teacher's own
// WorkerConfig in internal/worker/linux.go.
package config

import (
	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

// SupervisorConfig holds the master's process-pool-wide defaults.
type SupervisorConfig struct {
	// DefaultKeepAlive is a keep-alive flag for the host program to
	// pass to New(); New itself always takes the flag as an argument
	// and does not read this field.
	DefaultKeepAlive bool `env:"WORKERBUS_DEFAULT_KEEP_ALIVE"`

	// BaseMaxListeners is loaded from the environment but is not passed
	// to the Supervisor: the Supervisor's cluster-limit baseline is
	// always emitter.DefaultMaxListeners, plus the sum of every
	// handle's own limit.
	BaseMaxListeners int `env:"WORKERBUS_BASE_MAX_LISTENERS"`

	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	LogLevel string `env:"WORKERBUS_LOG_LEVEL"`
}

// Default returns the configuration used when no environment
// overrides are present.
func Default() SupervisorConfig {
	return SupervisorConfig{
		DefaultKeepAlive: false,
		BaseMaxListeners: 10,
		LogLevel:         "info",
	}
}

// Load reads SupervisorConfig from the process environment, falling
// back to Default() for anything unset.
func Load() (SupervisorConfig, error) {
	cfg := Default()
	_, err := config.New(
		config.WithFeeder(feeder.Env{}),
		config.WithStruct(&cfg),
	)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

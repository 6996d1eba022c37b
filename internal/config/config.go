// Package config resolves the runtime configuration shared by the launcher and
// the gateway. The environment is read once, at startup, into an immutable
// Config; no component reads raw environment variables after that.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Fixed locations and defaults.
const (
	ModelsDir          = "/models"
	DefaultModelPath   = "/models/model.gguf"
	DefaultPromptsDir  = "/prompts"
	DefaultBackendBin  = "/usr/local/bin/llama-server"
	DefaultBindHost    = "0.0.0.0"
	DefaultContextSize = 2048
	DefaultBatchSize   = 256
	DefaultParallel    = 1
	DefaultBackendPort = 8080
	DefaultGatewayPort = 3000

	DefaultHealthInterval = 1 * time.Second
	DefaultHealthAttempts = 30

	DefaultWatchdogInterval  = 10 * time.Second
	DefaultWatchdogFailures  = 3
	DefaultRestartMax        = 5
	DefaultRestartBackoff    = 1 * time.Second
	DefaultRestartBackoffMax = 30 * time.Second
	DefaultUpstreamTimeout   = 60 * time.Second
	DefaultMaxQueueWait      = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
)

// MissingExecutablePolicy decides what the launcher does when the backend
// executable is not installed.
type MissingExecutablePolicy string

const (
	// PolicyDegrade skips the spawn and hands off in degraded mode.
	PolicyDegrade MissingExecutablePolicy = "degrade"
	// PolicyFail searches for alternatives, then exits non-zero without a handoff.
	PolicyFail MissingExecutablePolicy = "fail"
)

// ParsePolicy maps user input to a policy. Unknown values are an error.
func ParsePolicy(s string) (MissingExecutablePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "degrade", "lenient":
		return PolicyDegrade, nil
	case "fail", "strict":
		return PolicyFail, nil
	}
	return PolicyDegrade, fmt.Errorf("unknown missing-executable policy %q (want degrade|fail)", s)
}

// RestartPolicy controls whether the gateway watchdog respawns a dead backend.
type RestartPolicy string

const (
	RestartNever     RestartPolicy = "never"
	RestartOnFailure RestartPolicy = "on-failure"
)

// WatchdogConfig tunes periodic backend liveness checks in the gateway.
type WatchdogConfig struct {
	Interval          time.Duration
	FailureThreshold  int
	Restart           RestartPolicy
	MaxRestarts       int
	RestartBackoff    time.Duration
	RestartBackoffMax time.Duration
}

// Config is the resolved runtime configuration. Build it with Resolve; treat it
// as read-only afterwards.
type Config struct {
	ModelPath   string
	ContextSize int
	BatchSize   int
	Threads     int
	Parallel    int
	BackendPort int
	GatewayPort int

	PromptsDir       string
	SystemPromptPath string
	SystemPrompt     string

	// Workers is the gateway concurrency hint (GOMAXPROCS).
	Workers int

	BackendBin string
	BindHost   string

	HealthInterval time.Duration
	HealthAttempts int

	OnMissingExecutable MissingExecutablePolicy

	Watchdog WatchdogConfig

	UpstreamTimeout time.Duration
	MaxQueueWait    time.Duration
	CORSOrigins     []string

	LogLevel  string
	LogFormat string
}

// BackendURL is the base URL the gateway and probes use to reach the backend.
// The backend binds BindHost; local clients always dial loopback.
func (c Config) BackendURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.BackendPort)
}

// GatewayAddr is the listen address of the gateway.
func (c Config) GatewayAddr() string {
	return fmt.Sprintf(":%d", c.GatewayPort)
}

// MaxInflight bounds concurrent inference requests in the gateway.
func (c Config) MaxInflight() int {
	n := c.Parallel
	if n <= 0 {
		n = DefaultParallel
	}
	return n * 32
}

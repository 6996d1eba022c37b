package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Recognized environment variables.
const (
	EnvModelFile         = "MODEL_FILE"
	EnvModelPath         = "MODEL_PATH"
	EnvContextSize       = "CTX_SIZE"
	EnvBatchSize         = "BATCH_SIZE"
	EnvThreads           = "THREADS"
	EnvParallel          = "N_PARALLEL"
	EnvBackendPort       = "LLAMA_PORT"
	EnvGatewayPort       = "PORT"
	EnvPromptsDir        = "PROMPTS_DIR"
	EnvSystemPromptFile  = "SYSTEM_PROMPT_FILE"
	EnvWorkers           = "WORKERS"
	EnvBackendBin        = "LLAMA_SERVER_BIN"
	EnvHealthInterval    = "HEALTH_CHECK_INTERVAL"
	EnvHealthRetries     = "HEALTH_CHECK_RETRIES"
	EnvOnMissingExec     = "ON_MISSING_EXECUTABLE"
	EnvWatchdogInterval  = "WATCHDOG_INTERVAL"
	EnvWatchdogFailures  = "WATCHDOG_FAILURES"
	EnvBackendRestart    = "BACKEND_RESTART"
	EnvBackendRestartMax = "BACKEND_RESTART_MAX"
	EnvUpstreamTimeout   = "UPSTREAM_TIMEOUT"
	EnvQueueMaxWait      = "QUEUE_MAX_WAIT"
	EnvCORSOrigins       = "CORS_ALLOWED_ORIGINS"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFormat         = "LOG_FORMAT"

	// Set by the launcher for the gateway.
	EnvMode       = "INFERD_MODE"
	EnvBackendPID = "BACKEND_PID"
	EnvBootID     = "INFERD_BOOT_ID"
	EnvGatewayCmd = "GATEWAY_CMD"
)

// Env is a snapshot of environment variables. Missing keys and empty values
// are treated the same.
type Env map[string]string

// FromOS snapshots the process environment.
func FromOS() Env { return FromEnviron(os.Environ()) }

// FromEnviron parses KEY=VALUE pairs. Later duplicates win.
func FromEnviron(kv []string) Env {
	env := make(Env, len(kv))
	for _, pair := range kv {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// ReadDotEnv reads a .env file without touching the process environment.
func ReadDotEnv(path string) (Env, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return Env(m), nil
}

// Merge layers envs left to right; later non-empty values override earlier ones.
func Merge(layers ...Env) Env {
	out := Env{}
	for _, l := range layers {
		for k, v := range l {
			if v == "" {
				if _, ok := out[k]; ok {
					continue
				}
			}
			out[k] = v
		}
	}
	return out
}

// Environ renders env as sorted KEY=VALUE pairs, suitable for exec.
func (e Env) Environ() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e[k])
	}
	return out
}

func (e Env) str(key, def string) string {
	if v := strings.TrimSpace(e[key]); v != "" {
		return v
	}
	return def
}

// positiveInt returns def when the value is missing, unparsable or <= 0.
func (e Env) positiveInt(key string, def int) int {
	v := strings.TrimSpace(e[key])
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (e Env) port(key string, def int) int {
	n := e.positiveInt(key, def)
	if n > 65535 {
		return def
	}
	return n
}

// duration accepts Go durations ("500ms") or bare integer seconds ("2").
func (e Env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e[key])
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return def
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (e Env) list(key string) []string {
	v := strings.TrimSpace(e[key])
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Environ renders the resolved configuration as canonical environment pairs.
// MODEL_PATH is pinned to the resolved path and MODEL_FILE is emptied so a
// second resolution in the gateway yields the same Config.
func (c Config) Environ() Env {
	return Env{
		EnvModelFile:         "",
		EnvModelPath:         c.ModelPath,
		EnvContextSize:       strconv.Itoa(c.ContextSize),
		EnvBatchSize:         strconv.Itoa(c.BatchSize),
		EnvThreads:           strconv.Itoa(c.Threads),
		EnvParallel:          strconv.Itoa(c.Parallel),
		EnvBackendPort:       strconv.Itoa(c.BackendPort),
		EnvGatewayPort:       strconv.Itoa(c.GatewayPort),
		EnvPromptsDir:        c.PromptsDir,
		EnvSystemPromptFile:  c.SystemPromptPath,
		EnvWorkers:           strconv.Itoa(c.Workers),
		EnvBackendBin:        c.BackendBin,
		EnvHealthInterval:    c.HealthInterval.String(),
		EnvHealthRetries:     strconv.Itoa(c.HealthAttempts),
		EnvOnMissingExec:     string(c.OnMissingExecutable),
		EnvWatchdogInterval:  c.Watchdog.Interval.String(),
		EnvWatchdogFailures:  strconv.Itoa(c.Watchdog.FailureThreshold),
		EnvBackendRestart:    string(c.Watchdog.Restart),
		EnvBackendRestartMax: strconv.Itoa(c.Watchdog.MaxRestarts),
		EnvUpstreamTimeout:   c.UpstreamTimeout.String(),
		EnvQueueMaxWait:      c.MaxQueueWait.String(),
		EnvCORSOrigins:       strings.Join(c.CORSOrigins, ","),
		EnvLogLevel:          c.LogLevel,
		EnvLogFormat:         c.LogFormat,
	}
}

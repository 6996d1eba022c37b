package config

import (
	"path/filepath"
	"runtime"
	"strings"

	"inferd/internal/common/fsutil"
)

// Host carries host facts that Resolve needs. Read them once with DetectHost.
type Host struct {
	NumCPU int
}

// DetectHost queries the number of logical CPUs visible to the process.
func DetectHost() Host { return Host{NumCPU: runtime.NumCPU()} }

// Resolve turns an environment snapshot into a Config. It never fails: every
// unset or unparsable option falls back to its default. The only side effect is
// reading SYSTEM_PROMPT_FILE; a missing or unreadable file leaves the prompt empty.
func Resolve(env Env, host Host) Config {
	cpus := host.NumCPU
	if cpus <= 0 {
		cpus = 1
	}

	cfg := Config{
		ModelPath:   resolveModelPath(env),
		ContextSize: env.positiveInt(EnvContextSize, DefaultContextSize),
		BatchSize:   env.positiveInt(EnvBatchSize, DefaultBatchSize),
		// THREADS=0 is the explicit "auto" sentinel.
		Threads:     env.positiveInt(EnvThreads, cpus),
		Parallel:    env.positiveInt(EnvParallel, DefaultParallel),
		BackendPort: env.port(EnvBackendPort, DefaultBackendPort),
		GatewayPort: env.port(EnvGatewayPort, DefaultGatewayPort),
		PromptsDir:  env.str(EnvPromptsDir, DefaultPromptsDir),
		Workers:     env.positiveInt(EnvWorkers, cpus),
		BackendBin:  env.str(EnvBackendBin, DefaultBackendBin),
		BindHost:    DefaultBindHost,

		HealthInterval: env.duration(EnvHealthInterval, DefaultHealthInterval),
		HealthAttempts: env.positiveInt(EnvHealthRetries, DefaultHealthAttempts),

		Watchdog: WatchdogConfig{
			Interval:          env.duration(EnvWatchdogInterval, DefaultWatchdogInterval),
			FailureThreshold:  env.positiveInt(EnvWatchdogFailures, DefaultWatchdogFailures),
			Restart:           resolveRestart(env.str(EnvBackendRestart, string(RestartOnFailure))),
			MaxRestarts:       env.positiveInt(EnvBackendRestartMax, DefaultRestartMax),
			RestartBackoff:    DefaultRestartBackoff,
			RestartBackoffMax: DefaultRestartBackoffMax,
		},

		UpstreamTimeout: env.duration(EnvUpstreamTimeout, DefaultUpstreamTimeout),
		MaxQueueWait:    env.duration(EnvQueueMaxWait, DefaultMaxQueueWait),
		CORSOrigins:     env.list(EnvCORSOrigins),

		LogLevel:  strings.ToLower(env.str(EnvLogLevel, DefaultLogLevel)),
		LogFormat: strings.ToLower(env.str(EnvLogFormat, DefaultLogFormat)),
	}

	// An unknown policy value falls back to the lenient default; the CLI flag
	// is where a typo is reported.
	cfg.OnMissingExecutable, _ = ParsePolicy(env[EnvOnMissingExec])

	if p := strings.TrimSpace(env[EnvSystemPromptFile]); p != "" {
		cfg.SystemPromptPath = p
		if s, ok := fsutil.ReadFileIfExists(p); ok {
			cfg.SystemPrompt = s
		}
	}
	return cfg
}

// resolveModelPath: MODEL_FILE (joined with the models dir) wins over
// MODEL_PATH, which wins over the default.
func resolveModelPath(env Env) string {
	if name := strings.TrimSpace(env[EnvModelFile]); name != "" {
		return filepath.Join(ModelsDir, name)
	}
	return env.str(EnvModelPath, DefaultModelPath)
}

func resolveRestart(s string) RestartPolicy {
	switch strings.ToLower(s) {
	case "never", "no", "off", "0", "false":
		return RestartNever
	default:
		return RestartOnFailure
	}
}

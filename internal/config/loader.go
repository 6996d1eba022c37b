package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration format. Every field is optional; zero
// values mean "unspecified" and leave the environment (or the default) in charge.
type File struct {
	ModelFile           string   `json:"model_file" yaml:"model_file" toml:"model_file"`
	ModelPath           string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	ContextSize         int      `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size" validate:"gte=0"`
	BatchSize           int      `json:"batch_size" yaml:"batch_size" toml:"batch_size" validate:"gte=0"`
	Threads             int      `json:"threads" yaml:"threads" toml:"threads" validate:"gte=0"`
	Parallel            int      `json:"n_parallel" yaml:"n_parallel" toml:"n_parallel" validate:"gte=0"`
	BackendPort         int      `json:"llama_port" yaml:"llama_port" toml:"llama_port" validate:"gte=0,lte=65535"`
	GatewayPort         int      `json:"port" yaml:"port" toml:"port" validate:"gte=0,lte=65535"`
	PromptsDir          string   `json:"prompts_dir" yaml:"prompts_dir" toml:"prompts_dir"`
	SystemPromptFile    string   `json:"system_prompt_file" yaml:"system_prompt_file" toml:"system_prompt_file"`
	Workers             int      `json:"workers" yaml:"workers" toml:"workers" validate:"gte=0"`
	BackendBin          string   `json:"llama_server_bin" yaml:"llama_server_bin" toml:"llama_server_bin"`
	HealthInterval      string   `json:"health_check_interval" yaml:"health_check_interval" toml:"health_check_interval"`
	HealthRetries       int      `json:"health_check_retries" yaml:"health_check_retries" toml:"health_check_retries" validate:"gte=0"`
	OnMissingExecutable string   `json:"on_missing_executable" yaml:"on_missing_executable" toml:"on_missing_executable" validate:"omitempty,oneof=degrade fail lenient strict"`
	BackendRestart      string   `json:"backend_restart" yaml:"backend_restart" toml:"backend_restart" validate:"omitempty,oneof=never on-failure"`
	CORSAllowedOrigins  []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	LogLevel            string   `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn error off"`
	LogFormat           string   `json:"log_format" yaml:"log_format" toml:"log_format" validate:"omitempty,oneof=console json"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &f); err != nil {
			return f, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &f); err != nil {
			return f, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &f); err != nil {
			return f, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return f, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return f, nil
}

// Validate checks struct tags and reports the first offending fields by name.
func (f File) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Env converts the set fields into environment form so the file can be layered
// underneath the real environment.
func (f File) Env() Env {
	env := Env{}
	setStr := func(k, v string) {
		if v != "" {
			env[k] = v
		}
	}
	setInt := func(k string, v int) {
		if v != 0 {
			env[k] = strconv.Itoa(v)
		}
	}
	setStr(EnvModelFile, f.ModelFile)
	setStr(EnvModelPath, f.ModelPath)
	setInt(EnvContextSize, f.ContextSize)
	setInt(EnvBatchSize, f.BatchSize)
	setInt(EnvThreads, f.Threads)
	setInt(EnvParallel, f.Parallel)
	setInt(EnvBackendPort, f.BackendPort)
	setInt(EnvGatewayPort, f.GatewayPort)
	setStr(EnvPromptsDir, f.PromptsDir)
	setStr(EnvSystemPromptFile, f.SystemPromptFile)
	setInt(EnvWorkers, f.Workers)
	setStr(EnvBackendBin, f.BackendBin)
	setStr(EnvHealthInterval, f.HealthInterval)
	setInt(EnvHealthRetries, f.HealthRetries)
	setStr(EnvOnMissingExec, f.OnMissingExecutable)
	setStr(EnvBackendRestart, f.BackendRestart)
	setStr(EnvCORSOrigins, strings.Join(f.CORSAllowedOrigins, ","))
	setStr(EnvLogLevel, f.LogLevel)
	setStr(EnvLogFormat, f.LogFormat)
	return env
}

// Sources names the optional layers underneath the process environment.
type Sources struct {
	ConfigFile string // yaml, json or toml
	DotEnvFile string
}

// Gather builds the effective environment: config file < .env < process env.
// An explicitly named source that cannot be read is an error.
func Gather(src Sources, process Env) (Env, error) {
	var fileEnv, dotEnv Env
	if src.ConfigFile != "" {
		f, err := Load(src.ConfigFile)
		if err != nil {
			return nil, err
		}
		fileEnv = f.Env()
	}
	if src.DotEnvFile != "" {
		d, err := ReadDotEnv(src.DotEnvFile)
		if err != nil {
			return nil, err
		}
		dotEnv = d
	}
	return Merge(fileEnv, dotEnv, process), nil
}

// FileFrom renders a resolved Config in file form. Loading the result yields
// the same Config.
func FileFrom(c Config) File {
	return File{
		ModelPath:           c.ModelPath,
		ContextSize:         c.ContextSize,
		BatchSize:           c.BatchSize,
		Threads:             c.Threads,
		Parallel:            c.Parallel,
		BackendPort:         c.BackendPort,
		GatewayPort:         c.GatewayPort,
		PromptsDir:          c.PromptsDir,
		SystemPromptFile:    c.SystemPromptPath,
		Workers:             c.Workers,
		BackendBin:          c.BackendBin,
		HealthInterval:      c.HealthInterval.String(),
		HealthRetries:       c.HealthAttempts,
		OnMissingExecutable: string(c.OnMissingExecutable),
		BackendRestart:      string(c.Watchdog.Restart),
		CORSAllowedOrigins:  c.CORSOrigins,
		LogLevel:            c.LogLevel,
		LogFormat:           c.LogFormat,
	}
}

// Encode marshals f as yaml, json or toml.
func Encode(f File, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		return yaml.Marshal(f)
	case "json":
		return json.MarshalIndent(f, "", "  ")
	case "toml":
		return toml.Marshal(f)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

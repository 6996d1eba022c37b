package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestResolveDefaults(t *testing.T) {
	cfg := Resolve(Env{}, Host{NumCPU: 6})
	if cfg.ModelPath != DefaultModelPath {
		t.Fatalf("model path: %q", cfg.ModelPath)
	}
	if cfg.ContextSize != 2048 || cfg.BatchSize != 256 || cfg.Parallel != 1 {
		t.Fatalf("numeric defaults: %+v", cfg)
	}
	if cfg.BackendPort != 8080 || cfg.GatewayPort != 3000 {
		t.Fatalf("ports: backend=%d gateway=%d", cfg.BackendPort, cfg.GatewayPort)
	}
	if cfg.Threads != 6 || cfg.Workers != 6 {
		t.Fatalf("threads/workers should follow cpu count: %d/%d", cfg.Threads, cfg.Workers)
	}
	if cfg.HealthInterval != time.Second || cfg.HealthAttempts != 30 {
		t.Fatalf("health gate defaults: %v x %d", cfg.HealthInterval, cfg.HealthAttempts)
	}
	if cfg.OnMissingExecutable != PolicyDegrade {
		t.Fatalf("policy default: %q", cfg.OnMissingExecutable)
	}
	if cfg.Watchdog.Restart != RestartOnFailure || cfg.Watchdog.FailureThreshold != 3 {
		t.Fatalf("watchdog defaults: %+v", cfg.Watchdog)
	}
	if cfg.SystemPrompt != "" || cfg.PromptsDir != "/prompts" || cfg.BindHost != "0.0.0.0" {
		t.Fatalf("misc defaults: %+v", cfg)
	}
	if cfg.MaxInflight() != 32 {
		t.Fatalf("max inflight: %d", cfg.MaxInflight())
	}
}

func TestResolveThreadsAuto(t *testing.T) {
	for _, env := range []Env{{}, {EnvThreads: "0"}, {EnvThreads: ""}, {EnvThreads: "abc"}} {
		if got := Resolve(env, Host{NumCPU: 12}).Threads; got != 12 {
			t.Fatalf("env %v: threads=%d want 12", env, got)
		}
	}
	if got := Resolve(Env{EnvThreads: "3"}, Host{NumCPU: 12}).Threads; got != 3 {
		t.Fatalf("explicit threads: %d", got)
	}
}

func TestResolveUnparsableFallsBack(t *testing.T) {
	env := Env{
		EnvContextSize:    "big",
		EnvBatchSize:      "-5",
		EnvParallel:       "0",
		EnvBackendPort:    "99999",
		EnvGatewayPort:    "http",
		EnvHealthInterval: "soon",
		EnvHealthRetries:  "-1",
	}
	cfg := Resolve(env, Host{NumCPU: 1})
	if cfg.ContextSize != DefaultContextSize || cfg.BatchSize != DefaultBatchSize || cfg.Parallel != DefaultParallel {
		t.Fatalf("sizes did not fall back: %+v", cfg)
	}
	if cfg.BackendPort != DefaultBackendPort || cfg.GatewayPort != DefaultGatewayPort {
		t.Fatalf("ports did not fall back: %d %d", cfg.BackendPort, cfg.GatewayPort)
	}
	if cfg.HealthInterval != DefaultHealthInterval || cfg.HealthAttempts != DefaultHealthAttempts {
		t.Fatalf("health did not fall back: %v %d", cfg.HealthInterval, cfg.HealthAttempts)
	}
}

func TestResolveDurations(t *testing.T) {
	cfg := Resolve(Env{EnvHealthInterval: "250ms", EnvUpstreamTimeout: "5"}, Host{NumCPU: 1})
	if cfg.HealthInterval != 250*time.Millisecond {
		t.Fatalf("interval: %v", cfg.HealthInterval)
	}
	if cfg.UpstreamTimeout != 5*time.Second {
		t.Fatalf("bare seconds: %v", cfg.UpstreamTimeout)
	}
}

func TestResolveModelPath(t *testing.T) {
	cases := []struct {
		env  Env
		want string
	}{
		{Env{EnvModelFile: "foo.gguf"}, filepath.Join(ModelsDir, "foo.gguf")},
		{Env{EnvModelFile: "foo.gguf", EnvModelPath: "/elsewhere/bar.gguf"}, filepath.Join(ModelsDir, "foo.gguf")},
		{Env{EnvModelPath: "/elsewhere/bar.gguf"}, "/elsewhere/bar.gguf"},
		{Env{}, DefaultModelPath},
	}
	for _, c := range cases {
		if got := Resolve(c.env, Host{NumCPU: 1}).ModelPath; got != c.want {
			t.Fatalf("env %v: got %q want %q", c.env, got, c.want)
		}
	}
}

func TestResolveSystemPrompt(t *testing.T) {
	d := t.TempDir()
	missing := filepath.Join(d, "missing.txt")
	cfg := Resolve(Env{EnvSystemPromptFile: missing}, Host{NumCPU: 1})
	if cfg.SystemPrompt != "" {
		t.Fatalf("missing file should yield empty prompt, got %q", cfg.SystemPrompt)
	}
	if cfg.SystemPromptPath != missing {
		t.Fatalf("path should still be recorded: %q", cfg.SystemPromptPath)
	}

	p := filepath.Join(d, "system.txt")
	if err := os.WriteFile(p, []byte("X"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := Resolve(Env{EnvSystemPromptFile: p}, Host{NumCPU: 1}).SystemPrompt; got != "X" {
		t.Fatalf("prompt: %q", got)
	}

	multi := filepath.Join(d, "multi.txt")
	content := "You are terse.\n  Keep whitespace.\n"
	if err := os.WriteFile(multi, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := Resolve(Env{EnvSystemPromptFile: multi}, Host{NumCPU: 1}).SystemPrompt; got != content {
		t.Fatalf("prompt should be verbatim, got %q", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "system.txt")
	if err := os.WriteFile(p, []byte("be nice"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := Env{EnvModelFile: "m.gguf", EnvThreads: "0", EnvSystemPromptFile: p, EnvCORSOrigins: "http://a, http://b"}
	a := Resolve(env, Host{NumCPU: 4})
	b := Resolve(env, Host{NumCPU: 4})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("resolve not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestEnvironRoundTrip(t *testing.T) {
	env := Env{EnvModelFile: "m.gguf", EnvThreads: "0", EnvLogLevel: "DEBUG", EnvBackendRestart: "never", EnvCORSOrigins: "http://a"}
	first := Resolve(env, Host{NumCPU: 4})
	second := Resolve(first.Environ(), Host{NumCPU: 16})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-resolving the rendered env changed the config:\n%+v\n%+v", first, second)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]MissingExecutablePolicy{"": PolicyDegrade, "degrade": PolicyDegrade, "FAIL": PolicyFail, "strict": PolicyFail} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("explode"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestMergeAndEnviron(t *testing.T) {
	m := Merge(Env{"A": "1", "B": "1"}, Env{"B": "2", "A": ""}, nil)
	if m["A"] != "1" || m["B"] != "2" {
		t.Fatalf("merge: %v", m)
	}
	got := Env{"Z": "1", "A": "2"}.Environ()
	if !reflect.DeepEqual(got, []string{"A=2", "Z=1"}) {
		t.Fatalf("environ: %v", got)
	}
	parsed := FromEnviron([]string{"K=v=w", "bad", "K2="})
	if parsed["K"] != "v=w" || parsed["K2"] != "" {
		t.Fatalf("FromEnviron: %v", parsed)
	}
}

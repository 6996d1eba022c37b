package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"inferd/internal/config"
	"inferd/internal/launcher"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommandLayersSources(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "inferd.toml")
	if err := os.WriteFile(cfgFile, []byte("ctx_size = 4096\nport = 4000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PORT=5000\nMODEL_FILE=tiny.gguf\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvGatewayPort, "")
	t.Setenv(config.EnvModelFile, "")
	t.Setenv(config.EnvContextSize, "")

	out, err := run(t, "config", "--config", cfgFile, "--env-file", envFile)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	var f config.File
	if err := yaml.Unmarshal([]byte(out), &f); err != nil {
		t.Fatalf("yaml: %v\n%s", err, out)
	}
	if f.ContextSize != 4096 || f.GatewayPort != 5000 || f.ModelPath != "/models/tiny.gguf" {
		t.Fatalf("unexpected resolved config: %+v", f)
	}
}

func TestConfigCommandRejectsBadPolicy(t *testing.T) {
	if _, err := run(t, "config", "--on-missing-executable", "maybe"); err == nil {
		t.Fatalf("expected policy error")
	}
}

func TestConfigCommandMissingFile(t *testing.T) {
	if _, err := run(t, "config", "--config", filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}

func TestProbeCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	out, err := run(t, "probe", "--url", srv.URL)
	if err != nil || !strings.Contains(out, "reachable") {
		t.Fatalf("probe: %v %q", err, out)
	}
	srv.Close()
	if _, err := run(t, "probe", "--url", srv.URL); err == nil {
		t.Fatalf("expected failure against a closed server")
	}
}

func TestLaunchStrictPolicyFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvBackendBin, filepath.Join(dir, "llama-server"))
	t.Setenv(config.EnvModelPath, filepath.Join(dir, "model.gguf"))
	t.Setenv(config.EnvLogLevel, "off")
	_, err := run(t, "launch", "--on-missing-executable", "strict")
	if !launcher.IsMissingExecutable(err) {
		t.Fatalf("expected missing executable error, got %v", err)
	}
}

package backend

import (
	"os"
	"path/filepath"
	"testing"

	"inferd/internal/config"
)

func TestCheckAvailability(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "llama-server")
	model := filepath.Join(dir, "model.gguf")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(model, []byte("gguf"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name       string
		bin, model string
		exe, mod   bool
	}{
		{"both present", bin, model, true, true},
		{"missing executable", filepath.Join(dir, "nope"), model, false, true},
		{"missing model", bin, filepath.Join(dir, "nope.gguf"), true, false},
		{"model is a directory", bin, dir, true, false},
		{"executable not executable", model, model, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := CheckAvailability(config.Config{BackendBin: tc.bin, ModelPath: tc.model})
			if a.Executable != tc.exe || a.Model != tc.mod {
				t.Fatalf("got %+v, want executable=%v model=%v", a, tc.exe, tc.mod)
			}
			if a.OK() != (tc.exe && tc.mod) {
				t.Fatalf("OK() = %v", a.OK())
			}
		})
	}
}

func TestErrNotAvailable(t *testing.T) {
	err := ErrNotAvailable("executable", "/usr/local/bin/llama-server")
	if !IsNotAvailable(err) {
		t.Fatalf("expected IsNotAvailable")
	}
	if got := err.Error(); got != "backend executable not available: /usr/local/bin/llama-server" {
		t.Fatalf("unexpected message: %q", got)
	}
	if IsNotAvailable(os.ErrNotExist) {
		t.Fatalf("unrelated error classified as not available")
	}
}

package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	sub := "test-sub"
	exp, err := ExpandHome("~/" + sub)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS == "windows" {
		if filepath.Base(exp) != sub {
			t.Fatalf("unexpected expanded path: %q", exp)
		}
	} else {
		expected := filepath.Join(home, sub)
		if exp != expected {
			t.Fatalf("expected %q, got %q", expected, exp)
		}
	}
}

func TestIsRegularFileAndExecutable(t *testing.T) {
	d := t.TempDir()
	plain := filepath.Join(d, "model.gguf")
	if err := os.WriteFile(plain, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bin := filepath.Join(d, "llama-server")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsRegularFile(plain) {
		t.Fatalf("expected %s to be a regular file", plain)
	}
	if IsRegularFile(d) {
		t.Fatalf("directory reported as regular file")
	}
	if IsRegularFile(filepath.Join(d, "missing")) || IsRegularFile("") {
		t.Fatalf("missing path reported as regular file")
	}
	if runtime.GOOS == "windows" {
		return
	}
	if IsExecutable(plain) {
		t.Fatalf("0644 file reported executable")
	}
	if !IsExecutable(bin) {
		t.Fatalf("0755 file not reported executable")
	}
	if IsExecutable(d) {
		t.Fatalf("directory reported executable")
	}
}

func TestReadFileIfExists(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "system.txt")
	if _, ok := ReadFileIfExists(p); ok {
		t.Fatalf("expected missing file to report ok=false")
	}
	if _, ok := ReadFileIfExists(""); ok {
		t.Fatalf("expected empty path to report ok=false")
	}
	if err := os.WriteFile(p, []byte("X"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok := ReadFileIfExists(p)
	if !ok || got != "X" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

package backend

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inferd/internal/config"
)

// buildFakeServer builds the fake llama server used for subprocess tests and returns its path.
func buildFakeServer(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_llama_server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_llama_server.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	return bin
}

// fakeProcess returns a Process with no OS process behind it.
func fakeProcess(pid int) *Process {
	return &Process{pid: pid, started: time.Now(), done: make(chan struct{})}
}

// scriptProber answers from a script of results; past the end it repeats the last.
type scriptProber struct {
	mu     sync.Mutex
	script []error
	calls  int
}

var errRefused = errors.New("connection refused")

func failThenSucceed(failures int) *scriptProber {
	s := &scriptProber{}
	for i := 0; i < failures; i++ {
		s.script = append(s.script, errRefused)
	}
	s.script = append(s.script, nil)
	return s
}

func (s *scriptProber) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.script) == 0 {
		return errRefused
	}
	i := s.calls - 1
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return s.script[i]
}

func (s *scriptProber) set(script ...error) {
	s.mu.Lock()
	s.script = script
	s.calls = 0
	s.mu.Unlock()
}

func (s *scriptProber) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordSleep returns a Sleep hook that records requested durations without waiting.
func recordSleep(total *time.Duration, n *int) func(context.Context, time.Duration) error {
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		mu.Lock()
		*total += d
		*n++
		mu.Unlock()
		return nil
	}
}

// fakeSpawner hands out fake processes and counts spawns.
type fakeSpawner struct {
	mu    sync.Mutex
	procs []*Process
	err   error
}

func (f *fakeSpawner) Spawn(cfg config.Config) (*Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := fakeProcess(5000 + len(f.procs))
	f.procs = append(f.procs, p)
	return p, nil
}

func (f *fakeSpawner) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.procs)
}

package backend

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/config"
)

// Spawner starts a backend process. The launcher and the watchdog share it.
type Spawner interface {
	Spawn(cfg config.Config) (*Process, error)
}

// Args translates the configuration into the llama-server command line.
func Args(cfg config.Config) []string {
	return []string{
		"-m", cfg.ModelPath,
		"-c", strconv.Itoa(cfg.ContextSize),
		"-b", strconv.Itoa(cfg.BatchSize),
		"-t", strconv.Itoa(cfg.Threads),
		"--parallel", strconv.Itoa(cfg.Parallel),
		"--host", cfg.BindHost,
		"--port", strconv.Itoa(cfg.BackendPort),
	}
}

// ExecSpawner spawns the backend with os/exec and returns without waiting.
type ExecSpawner struct {
	Log       zerolog.Logger
	Publisher EventPublisher
	// Stdout/Stderr receive the backend's output. The launcher leaves them nil
	// so the child inherits the supervisor's descriptors: Go pipes are
	// close-on-exec and would break at the gateway handoff.
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn starts cfg.BackendBin in the background and returns its handle.
func (s ExecSpawner) Spawn(cfg config.Config) (*Process, error) {
	cmd := exec.Command(cfg.BackendBin, Args(cfg)...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
			return nil, ErrNotAvailable("executable", cfg.BackendBin)
		}
		return nil, fmt.Errorf("start %s: %w", cfg.BackendBin, err)
	}
	p := &Process{
		pid:     cmd.Process.Pid,
		started: time.Now(),
		proc:    cmd.Process,
		done:    make(chan struct{}),
	}
	go func() {
		p.exit(cmd.Wait())
	}()
	s.Log.Info().Str("event", EventSpawnStart).Int("pid", p.pid).Str("bin", cfg.BackendBin).
		Strs("args", Args(cfg)).Msg("backend spawned")
	orNoop(s.Publisher).Publish(Event{Name: EventSpawnStart, PID: p.pid, Fields: map[string]any{"port": cfg.BackendPort, "model": cfg.ModelPath}})
	return p, nil
}

// Process is a handle to a backend process that was spawned here or adopted
// from a pid inherited across exec.
type Process struct {
	pid     int
	started time.Time
	proc    *os.Process

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	waitErr error
}

// Pid returns the OS process id.
func (p *Process) Pid() int { return p.pid }

// StartTime is when the process was spawned (or adopted).
func (p *Process) StartTime() time.Time { return p.started }

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the wait error after exit (nil for a clean exit or while running).
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

func (p *Process) exit(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.done)
	})
}

// Stop sends SIGTERM and waits up to grace before killing. Best effort.
func (p *Process) Stop(grace time.Duration) error {
	if p == nil {
		return nil
	}
	if p.proc == nil {
		p.exit(nil)
		return nil
	}
	if p.Exited() {
		return nil
	}
	if err := terminate(p.proc); err != nil && !p.Exited() {
		// Already gone between the check and the signal.
		if !alive(p.pid) {
			p.exit(nil)
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", p.pid, err)
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}
	_ = p.proc.Kill()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		return fmt.Errorf("pid %d did not exit after kill", p.pid)
	}
	return nil
}

// Adopt wraps a pid this process did not spawn itself. After the launcher's
// exec handoff the backend is still a child of the same pid, so Wait reaps it;
// when it is not our child, exit is detected by polling.
func Adopt(pid int) (*Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	if !alive(pid) {
		return nil, fmt.Errorf("pid %d is not running", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("find pid %d: %w", pid, err)
	}
	p := &Process{pid: pid, started: time.Now(), proc: proc, done: make(chan struct{})}
	go func() {
		state, err := proc.Wait()
		if err == nil {
			p.exit(exitError(state))
			return
		}
		for alive(pid) {
			time.Sleep(500 * time.Millisecond)
		}
		p.exit(nil)
	}()
	return p, nil
}

func exitError(state *os.ProcessState) error {
	if state == nil || state.Success() {
		return nil
	}
	return fmt.Errorf("backend exited: %s", state.String())
}

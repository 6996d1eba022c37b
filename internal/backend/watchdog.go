package backend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/config"
	"inferd/pkg/types"
)

// ModeSource reports the current operating mode.
type ModeSource interface {
	Mode() types.Mode
}

// StaticMode is a ModeSource that never changes. Used when no backend was
// spawned: without a spawn the gateway stays degraded.
type StaticMode types.Mode

func (m StaticMode) Mode() types.Mode { return types.Mode(m) }

// stopGrace bounds how long a misbehaving backend gets to exit on SIGTERM.
const stopGrace = 5 * time.Second

// WatchdogOptions configures NewWatchdog.
type WatchdogOptions struct {
	Config    config.Config
	Prober    Prober
	Spawner   Spawner // nil disables restarts
	Process   *Process
	Initial   types.Mode
	Log       zerolog.Logger
	Publisher EventPublisher
	Sleep     func(ctx context.Context, d time.Duration) error
}

// Watchdog keeps checking a spawned backend after the initial readiness gate
// and exposes the result as a live mode. Under the on-failure restart policy
// it respawns a backend that stopped answering, with exponential backoff.
type Watchdog struct {
	cfg     config.WatchdogConfig
	spawn   config.Config
	prober  Prober
	spawner Spawner
	log     zerolog.Logger
	pub     EventPublisher
	sleep   func(ctx context.Context, d time.Duration) error
	stop    func(p *Process, grace time.Duration) error
	nudge   chan struct{}
	// grace is how long a (re)spawned backend may stay unready before
	// failures count toward a restart: the launcher's full gate budget.
	grace time.Duration

	mu        sync.Mutex
	mode      types.Mode
	proc      *Process
	failures  int
	restarts  int
	gaveUp    bool
	spawnedAt time.Time
}

// NewWatchdog applies defaults and returns a watchdog that is not yet running.
func NewWatchdog(o WatchdogOptions) *Watchdog {
	wc := o.Config.Watchdog
	if wc.Interval <= 0 {
		wc.Interval = config.DefaultWatchdogInterval
	}
	if wc.FailureThreshold <= 0 {
		wc.FailureThreshold = config.DefaultWatchdogFailures
	}
	if wc.MaxRestarts <= 0 {
		wc.MaxRestarts = config.DefaultRestartMax
	}
	if wc.RestartBackoff <= 0 {
		wc.RestartBackoff = config.DefaultRestartBackoff
	}
	if wc.RestartBackoffMax < wc.RestartBackoff {
		wc.RestartBackoffMax = wc.RestartBackoff
	}
	mode := o.Initial
	if mode != types.ModeFull {
		mode = types.ModeDegraded
	}
	w := &Watchdog{
		cfg:     wc,
		spawn:   o.Config,
		prober:  o.Prober,
		spawner: o.Spawner,
		log:     o.Log,
		pub:     orNoop(o.Publisher),
		sleep:   o.Sleep,
		stop:    (*Process).Stop,
		nudge:   make(chan struct{}, 1),
		grace:   o.Config.HealthInterval * time.Duration(o.Config.HealthAttempts),
		mode:    mode,
		proc:    o.Process,
	}
	if o.Process != nil {
		w.spawnedAt = o.Process.StartTime()
	}
	if mode == types.ModeDegraded {
		// Slow model load: the launcher gave up waiting but the backend may
		// still come up, so start counting from now.
		w.spawnedAt = time.Now()
	}
	return w
}

// Mode returns the live operating mode.
func (w *Watchdog) Mode() types.Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Process returns the backend currently being watched (may be nil).
func (w *Watchdog) Process() *Process {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.proc
}

// Restarts returns the number of consecutive restarts without a healthy probe.
func (w *Watchdog) Restarts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restarts
}

// Nudge asks for an immediate check, e.g. after a failed forward. Never blocks.
func (w *Watchdog) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// Run checks the backend every interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()
	w.log.Info().Dur("interval", w.cfg.Interval).Int("failure_threshold", w.cfg.FailureThreshold).
		Str("restart", string(w.cfg.Restart)).Str("mode", w.Mode().String()).Msg("watchdog started")
	// handled is the Done channel of an exit already reacted to. A closed
	// channel stays ready, so each process wakes the loop at most once.
	var handled <-chan struct{}
	for {
		var exited <-chan struct{}
		if p := w.Process(); p != nil && p.Done() != handled {
			exited = p.Done()
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-w.nudge:
		case <-exited:
			handled = exited
		}
		w.Check(ctx)
	}
}

// Check runs one probe and applies the failure/restart policy.
func (w *Watchdog) Check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, w.cfg.Interval)
	err := w.prober.Probe(pctx)
	cancel()

	w.mu.Lock()
	proc := w.proc
	exited := proc != nil && proc.Exited()
	if err == nil && !exited {
		w.failures = 0
		w.restarts = 0
		w.gaveUp = false
		w.mu.Unlock()
		w.setMode(types.ModeFull)
		return
	}
	w.failures++
	if exited {
		w.failures = max(w.failures, w.cfg.FailureThreshold)
	}
	failures := w.failures
	inGrace := !exited && time.Since(w.spawnedAt) < w.grace
	w.mu.Unlock()

	w.log.Debug().Err(err).Int("failures", failures).Bool("exited", exited).Msg("backend liveness check failed")
	if failures < w.cfg.FailureThreshold {
		return
	}
	w.setMode(types.ModeDegraded)
	if inGrace || w.cfg.Restart != config.RestartOnFailure || w.spawner == nil {
		return
	}
	w.restart(ctx)
}

func (w *Watchdog) restart(ctx context.Context) {
	w.mu.Lock()
	if w.restarts >= w.cfg.MaxRestarts {
		first := !w.gaveUp
		w.gaveUp = true
		n := w.restarts
		w.mu.Unlock()
		if first {
			w.log.Error().Str("event", EventRestartGiveUp).Int("restarts", n).Msg("backend keeps failing; giving up on restarts")
			w.pub.Publish(Event{Name: EventRestartGiveUp, Fields: map[string]any{"restarts": n}})
		}
		return
	}
	backoff := w.cfg.RestartBackoff << uint(w.restarts)
	if backoff > w.cfg.RestartBackoffMax || backoff <= 0 {
		backoff = w.cfg.RestartBackoffMax
	}
	w.restarts++
	attempt := w.restarts
	old := w.proc
	w.mu.Unlock()

	if err := w.pause(ctx, backoff); err != nil {
		return
	}
	fields := map[string]any{"attempt": attempt, "backoff": backoff.String()}
	if old != nil {
		if err := w.stop(old, stopGrace); err != nil {
			w.log.Warn().Err(err).Int("pid", old.Pid()).Msg("stopping unhealthy backend")
			if !old.Exited() {
				// It still holds the port; a new backend could not bind.
				fields["error"] = err.Error()
				w.log.Error().Int("pid", old.Pid()).Int("attempt", attempt).Msg("old backend still running; restart skipped")
				w.pub.Publish(Event{Name: EventRestart, PID: old.Pid(), Fields: fields})
				return
			}
		}
	}
	proc, err := w.spawner.Spawn(w.spawn)
	if err != nil {
		fields["error"] = err.Error()
		w.log.Error().Err(err).Int("attempt", attempt).Msg("backend restart failed")
		w.pub.Publish(Event{Name: EventRestart, Fields: fields})
		return
	}
	w.mu.Lock()
	w.proc = proc
	w.failures = 0
	w.spawnedAt = time.Now()
	w.mu.Unlock()
	w.log.Warn().Str("event", EventRestart).Int("pid", proc.Pid()).Int("attempt", attempt).Dur("backoff", backoff).Msg("backend restarted")
	w.pub.Publish(Event{Name: EventRestart, PID: proc.Pid(), Fields: fields})
}

func (w *Watchdog) setMode(m types.Mode) {
	w.mu.Lock()
	prev := w.mode
	w.mode = m
	w.mu.Unlock()
	if prev == m {
		return
	}
	w.log.Info().Str("event", EventModeChange).Str("from", prev.String()).Str("to", m.String()).Msg("operating mode changed")
	w.pub.Publish(Event{Name: EventModeChange, Fields: map[string]any{"from": prev.String(), "mode": m.String()}})
}

func (w *Watchdog) pause(ctx context.Context, d time.Duration) error {
	if w.sleep != nil {
		return w.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the watched backend. Called by the gateway on exit.
func (w *Watchdog) Shutdown() error {
	if p := w.Process(); p != nil {
		return p.Stop(stopGrace)
	}
	return nil
}

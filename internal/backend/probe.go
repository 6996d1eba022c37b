package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ReadinessPath is the backend endpoint polled by probes.
const ReadinessPath = "/health"

// Prober performs one readiness check. A nil error means the backend answered.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber issues GET <base>/health. Any HTTP response, whatever its status,
// counts as success: a loading llama-server answers 503 but is reachable.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber builds a prober for the given backend base URL.
func NewHTTPProber(baseURL string) *HTTPProber {
	// Timeout=0: every probe carries its own context deadline.
	return &HTTPProber{
		URL:    strings.TrimRight(baseURL, "/") + ReadinessPath,
		Client: &http.Client{Timeout: 0},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return nil
}

// ProbeStatus is the outcome of a bounded readiness wait.
type ProbeStatus int

const (
	// ProbeTimedOut means every attempt failed.
	ProbeTimedOut ProbeStatus = iota
	// ProbeReady means some attempt got a response.
	ProbeReady
	// ProbeExited means the process died before it became ready.
	ProbeExited
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeReady:
		return "ready"
	case ProbeExited:
		return "exited"
	default:
		return "timed_out"
	}
}

// ProbeResult summarizes a Gate wait.
type ProbeResult struct {
	Status   ProbeStatus
	Attempts int
	Elapsed  time.Duration
	// LastErr is the error of the final failed probe, if any.
	LastErr error
}

// Ready reports whether the backend answered within the budget.
func (r ProbeResult) Ready() bool { return r.Status == ProbeReady }

// Gate polls a Prober at a fixed interval for a fixed number of attempts.
// Attempt k probes about k intervals after the start: the time a probe takes
// is deducted from the following pause. Exhaustion takes about Attempts
// intervals plus the last probe, even when the backend accepts connections
// but never answers.
type Gate struct {
	Prober    Prober
	Interval  time.Duration
	Attempts  int
	Log       zerolog.Logger
	Publisher EventPublisher
	// Sleep overrides the wait between attempts (tests). It must return early
	// with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Wait blocks until the backend answers, the attempt budget is exhausted, or
// proc exits. It never signals proc: a timed-out backend keeps running.
func (g Gate) Wait(ctx context.Context, proc *Process) ProbeResult {
	interval := g.Interval
	if interval <= 0 {
		interval = time.Second
	}
	attempts := g.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	pub := orNoop(g.Publisher)
	pid := 0
	var done <-chan struct{}
	if proc != nil {
		pid = proc.Pid()
		done = proc.Done()
	}

	start := time.Now()
	res := ProbeResult{Status: ProbeTimedOut}
	var spent time.Duration
	for i := 1; i <= attempts; i++ {
		if err := g.pause(ctx, max(interval-spent, 0), done); err != nil {
			res.LastErr = err
			break
		}
		if proc != nil && proc.Exited() {
			res.Status = ProbeExited
			res.LastErr = proc.Err()
			break
		}
		res.Attempts = i
		began := time.Now()
		pctx, cancel := context.WithTimeout(ctx, interval)
		err := g.Prober.Probe(pctx)
		cancel()
		spent = time.Since(began)
		if err == nil {
			res.Status = ProbeReady
			res.LastErr = nil
			break
		}
		res.LastErr = err
		g.Log.Debug().Int("attempt", i).Int("max_attempts", attempts).Err(err).Msg("backend not ready yet")
	}
	res.Elapsed = time.Since(start)

	fields := map[string]any{"attempts": res.Attempts, "elapsed": res.Elapsed.String()}
	switch res.Status {
	case ProbeReady:
		g.Log.Info().Str("event", EventSpawnReady).Int("pid", pid).Int("attempts", res.Attempts).Dur("elapsed", res.Elapsed).Msg("backend ready")
		pub.Publish(Event{Name: EventSpawnReady, PID: pid, Fields: fields})
	case ProbeExited:
		g.Log.Warn().Str("event", EventSpawnExit).Int("pid", pid).Err(res.LastErr).Msg("backend exited before ready")
		pub.Publish(Event{Name: EventSpawnExit, PID: pid, Fields: fields})
	default:
		g.Log.Warn().Str("event", EventSpawnTimeout).Int("pid", pid).Int("attempts", res.Attempts).Dur("elapsed", res.Elapsed).
			Err(res.LastErr).Msg("backend not ready in time; leaving it running")
		pub.Publish(Event{Name: EventSpawnTimeout, PID: pid, Fields: fields})
	}
	return res
}

func (g Gate) pause(ctx context.Context, d time.Duration, done <-chan struct{}) error {
	if g.Sleep != nil {
		return g.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-done:
		// Process exited; let the caller observe it right away.
		return nil
	case <-ctx.Done():
		return fmt.Errorf("readiness wait canceled: %w", ctx.Err())
	}
}

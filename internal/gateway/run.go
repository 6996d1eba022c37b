package gateway

import (
	"context"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/logging"
	"inferd/internal/prompts"
	"inferd/internal/upstream"
	"inferd/pkg/types"
)

// Runtime is what the launcher handed over besides the configuration.
type Runtime struct {
	Mode       types.Mode
	BackendPID int
	BootID     string
}

// RuntimeFromEnv reads the handoff variables. A missing or unknown mode is
// degraded.
func RuntimeFromEnv(env config.Env) Runtime {
	mode, err := types.ParseMode(env[config.EnvMode])
	if err != nil {
		mode = types.ModeDegraded
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(env[config.EnvBackendPID]))
	return Runtime{Mode: mode, BackendPID: max(pid, 0), BootID: env[config.EnvBootID]}
}

// Run serves the gateway until ctx is done. When a backend pid was handed
// over, a watchdog keeps the live mode current and the backend is stopped on
// exit.
func Run(ctx context.Context, cfg config.Config, rt Runtime, log zerolog.Logger) error {
	if cfg.Workers > 0 {
		runtime.GOMAXPROCS(cfg.Workers)
	}
	if rt.BootID != "" {
		log = log.With().Str("boot_id", rt.BootID).Logger()
	}
	SetModeGauge(rt.Mode)

	opts := Options{
		Mode:         backend.StaticMode(rt.Mode),
		Upstream:     upstream.New(cfg.BackendURL(), cfg.UpstreamTimeout),
		Prompts:      prompts.New(cfg.PromptsDir),
		SystemPrompt: cfg.SystemPrompt,
		MaxInflight:  cfg.MaxInflight(),
		MaxQueueWait: cfg.MaxQueueWait,
		CORSOrigins:  cfg.CORSOrigins,
		Log:          log,
	}

	var wd *backend.Watchdog
	if rt.BackendPID > 0 {
		proc, err := backend.Adopt(rt.BackendPID)
		if err != nil {
			log.Warn().Err(err).Int("pid", rt.BackendPID).Msg("cannot adopt backend process")
		}
		pub := backend.MultiPublisher{MetricsPublisher{}}
		// Respawns happen after the handoff, so their output can go
		// through the logger.
		spawner := backend.ExecSpawner{
			Log:       log,
			Publisher: pub,
			Stdout:    &logging.LineWriter{Log: log, Stream: "stdout"},
			Stderr:    &logging.LineWriter{Log: log, Stream: "stderr"},
		}
		wd = backend.NewWatchdog(backend.WatchdogOptions{
			Config:    cfg,
			Prober:    backend.NewHTTPProber(cfg.BackendURL()),
			Spawner:   spawner,
			Process:   proc,
			Initial:   rt.Mode,
			Log:       log,
			Publisher: pub,
		})
		opts.Mode = wd
		opts.Nudger = wd
	}

	log.Info().
		Str("mode", rt.Mode.String()).
		Int("backend_pid", rt.BackendPID).
		Str("upstream", cfg.BackendURL()).
		Int("workers", cfg.Workers).
		Int("max_inflight", opts.MaxInflight).
		Msg("starting gateway")

	wctx, stopWatchdog := context.WithCancel(ctx)
	done := make(chan struct{})
	if wd != nil {
		go func() {
			defer close(done)
			wd.Run(wctx)
		}()
	} else {
		close(done)
	}

	err := Serve(ctx, cfg.GatewayAddr(), NewMux(opts), log)
	stopWatchdog()
	<-done
	if wd != nil {
		if serr := wd.Shutdown(); serr != nil {
			log.Warn().Err(serr).Msg("stopping backend")
		}
	}
	return err
}

package launcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/pkg/types"
)

// Options wires a Launcher. Zero values select production behavior.
type Options struct {
	// Env is the merged environment snapshot; nil means the process environment.
	Env  config.Env
	Host config.Host

	Spawner backend.Spawner
	// NewProber builds the readiness prober for the resolved config.
	NewProber func(cfg config.Config) backend.Prober
	// Sleep overrides the health gate's wait between attempts.
	Sleep  func(ctx context.Context, d time.Duration) error
	Execer Execer

	// Self is the binary path used for the default gateway argv.
	Self   string
	BootID string

	SearchRoots []string
	SearchDepth int

	Log       zerolog.Logger
	Publisher backend.EventPublisher
}

// Launcher drives the startup sequence once.
type Launcher struct {
	opts Options
	out  Outcome
}

// New applies defaults to o.
func New(o Options) *Launcher {
	if o.Env == nil {
		o.Env = config.FromOS()
	}
	if o.Host.NumCPU <= 0 {
		o.Host = config.DetectHost()
	}
	if o.Spawner == nil {
		o.Spawner = backend.ExecSpawner{Log: o.Log, Publisher: o.Publisher}
	}
	if o.NewProber == nil {
		o.NewProber = func(cfg config.Config) backend.Prober { return backend.NewHTTPProber(cfg.BackendURL()) }
	}
	if o.Execer == nil {
		o.Execer = SyscallExecer{}
	}
	if o.BootID == "" {
		o.BootID = uuid.NewString()
	}
	if o.SearchRoots == nil {
		o.SearchRoots = DefaultSearchRoots
	}
	return &Launcher{opts: o}
}

// DecideMode is Full only when a backend was spawned and answered in time.
func DecideMode(spawned bool, res backend.ProbeResult) types.Mode {
	if spawned && res.Status == backend.ProbeReady {
		return types.ModeFull
	}
	return types.ModeDegraded
}

func (l *Launcher) enter(s State) {
	l.out.Trace = append(l.out.Trace, s)
	l.opts.Log.Debug().Str("state", string(s)).Msg("launcher state")
}

// Run executes the sequence. With the production Execer a successful handoff
// never returns; the Outcome is returned on failure paths and in tests.
func (l *Launcher) Run(ctx context.Context) (Outcome, error) {
	log := l.opts.Log
	l.out = Outcome{}
	l.enter(StateInit)

	cfg := config.Resolve(l.opts.Env, l.opts.Host)
	l.out.Config = cfg
	l.enter(StateConfigResolved)
	log.Info().
		Str("model", cfg.ModelPath).
		Int("ctx_size", cfg.ContextSize).
		Int("batch_size", cfg.BatchSize).
		Int("threads", cfg.Threads).
		Int("parallel", cfg.Parallel).
		Int("backend_port", cfg.BackendPort).
		Int("gateway_port", cfg.GatewayPort).
		Int("workers", cfg.Workers).
		Str("backend_bin", cfg.BackendBin).
		Str("prompts_dir", cfg.PromptsDir).
		Bool("system_prompt", cfg.SystemPrompt != "").
		Msg("configuration resolved")

	avail := backend.CheckAvailability(cfg)
	l.out.Availability = avail
	l.enter(StateAvailabilityChecked)
	if !avail.Executable {
		log.Warn().Str("path", cfg.BackendBin).Msg("llama-server executable not found")
	}
	if !avail.Model {
		log.Warn().Str("path", cfg.ModelPath).Msg("model file not found")
	}

	if !avail.Executable && cfg.OnMissingExecutable == config.PolicyFail {
		return l.abort(cfg)
	}

	var proc *backend.Process
	if avail.OK() {
		l.enter(StateSpawning)
		p, err := l.opts.Spawner.Spawn(cfg)
		if err != nil {
			log.Error().Err(err).Str("bin", cfg.BackendBin).Msg("backend spawn failed; continuing degraded")
			l.enter(StateSpawnFailed)
		} else {
			proc = p
			l.out.Spawned = true
			l.out.Process = p
			l.enter(StateHealthPolling)
			gate := backend.Gate{
				Prober:    l.opts.NewProber(cfg),
				Interval:  cfg.HealthInterval,
				Attempts:  cfg.HealthAttempts,
				Log:       log,
				Publisher: l.opts.Publisher,
				Sleep:     l.opts.Sleep,
			}
			res := gate.Wait(ctx, p)
			l.out.Probe = res
			switch res.Status {
			case backend.ProbeReady:
				l.enter(StateHealthy)
			case backend.ProbeExited:
				l.enter(StateExited)
			default:
				l.enter(StateTimedOut)
			}
		}
	} else {
		log.Warn().Msg("skipping backend spawn; gateway will run degraded")
		l.enter(StateSkippedSpawn)
	}

	l.out.Mode = DecideMode(l.out.Spawned, l.out.Probe)
	l.enter(StateModeDecided)
	log.Info().Str("mode", l.out.Mode.String()).Msg("operating mode decided")

	pid := 0
	if proc != nil && !proc.Exited() {
		pid = proc.Pid()
	}
	cmd, err := BuildCommand(l.opts.Env, cfg, HandoffParams{
		Mode:       l.out.Mode,
		BackendPID: pid,
		BootID:     l.opts.BootID,
		Self:       l.opts.Self,
	})
	if err != nil {
		l.out.ExitCode = 1
		return l.out, handoffError{path: l.opts.Env[config.EnvGatewayCmd], err: err}
	}
	l.out.Command = cmd
	l.enter(StateGatewayForeground)
	log.Info().Strs("argv", cmd.Args).Int("backend_pid", pid).Str("boot_id", l.opts.BootID).Msg("handing off to gateway")
	if err := l.opts.Execer.Exec(cmd); err != nil {
		log.Error().Err(err).Str("path", cmd.Path).Msg("gateway exec failed")
		l.out.ExitCode = 1
		return l.out, handoffError{path: cmd.Path, err: err}
	}
	return l.out, nil
}

func (l *Launcher) abort(cfg config.Config) (Outcome, error) {
	log := l.opts.Log
	log.Error().Str("path", cfg.BackendBin).Msg("strict policy: llama-server is required; searching for alternatives")
	found := SearchAlternatives(l.opts.SearchRoots, l.opts.SearchDepth)
	for _, c := range found {
		log.Info().Str("candidate", c).Msg("possible llama-server executable")
	}
	if len(found) == 0 {
		log.Info().Strs("roots", l.opts.SearchRoots).Msg("no alternative executables found")
	}
	l.out.Candidates = found
	l.out.Mode = types.ModeDegraded
	l.out.ExitCode = 1
	l.enter(StateAborted)
	return l.out, missingExecutableError{path: cfg.BackendBin, candidates: len(found)}
}

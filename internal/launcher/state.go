package launcher

import (
	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/pkg/types"
)

// State is a step of the startup sequence. Each state is entered at most once.
//
//	init → config_resolved → availability_checked →
//	  {spawning → health_polling → {healthy|timed_out|exited}}
//	  | {spawning → spawn_failed} | skipped_spawn
//	→ mode_decided → gateway_foreground
//
// Under the strict policy a missing executable goes from
// availability_checked to aborted.
type State string

const (
	StateInit                State = "init"
	StateConfigResolved      State = "config_resolved"
	StateAvailabilityChecked State = "availability_checked"
	StateSpawning            State = "spawning"
	// StateSpawnFailed: both files exist but the executable would not start.
	StateSpawnFailed   State = "spawn_failed"
	StateHealthPolling State = "health_polling"
	StateHealthy       State = "healthy"
	StateTimedOut      State = "timed_out"
	// StateExited: the backend died before answering.
	StateExited       State = "exited"
	StateSkippedSpawn State = "skipped_spawn"
	StateModeDecided  State = "mode_decided"
	// StateGatewayForeground is the last state; on a real exec nothing follows.
	StateGatewayForeground State = "gateway_foreground"
	// StateAborted ends the sequence without a handoff (strict policy).
	StateAborted State = "aborted"
)

// Outcome records what Run did. In production only the failure paths return
// one, since a successful handoff replaces the process.
type Outcome struct {
	Config       config.Config
	Availability backend.Availability
	Spawned      bool
	Process      *backend.Process
	Probe        backend.ProbeResult
	Mode         types.Mode
	Trace        []State
	// Candidates lists executables found by the strict-policy search.
	Candidates []string
	Command    Command
	ExitCode   int
}

// Visited reports whether s appears in the trace.
func (o Outcome) Visited(s State) bool {
	for _, t := range o.Trace {
		if t == s {
			return true
		}
	}
	return false
}

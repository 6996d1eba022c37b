// Package backend owns the inference backend process: checking that it can be
// started, spawning it, gating on its readiness probe, and (in the gateway)
// watching it afterwards.
//
//   - availability.go: executable/model presence checks.
//   - process.go: Spawner, Process handle, Adopt for a pid inherited across exec.
//   - probe.go: HTTP readiness probe and the bounded-retry Gate.
//   - watchdog.go: periodic liveness checks, live mode and restart/backoff.
//   - events.go: lifecycle events and publishers.
package backend

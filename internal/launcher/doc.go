// Package launcher runs the startup sequence of a container: resolve the
// configuration, check that the backend can run, spawn it, wait for it to
// answer, decide the operating mode and hand the process over to the gateway.
//
// Files:
//   - state.go    (State, Outcome, trace bookkeeping)
//   - launcher.go (Launcher, Options, Run, DecideMode)
//   - handoff.go  (Command, Execer, BuildCommand)
//   - exec_unix.go / exec_other.go (process image replacement)
//   - search.go   (SearchAlternatives for the strict missing-executable policy)
//   - errors.go   (missing executable / handoff errors)
package launcher

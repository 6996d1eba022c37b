package types

import (
	"fmt"
	"strings"
)

// Mode is the operating mode handed to the gateway.
type Mode string

const (
	// ModeFull means the backend was spawned and answered its readiness probe.
	ModeFull Mode = "full"
	// ModeDegraded means the gateway must not assume the backend is reachable.
	ModeDegraded Mode = "degraded"
)

func (m Mode) String() string { return string(m) }

// Full reports whether inference may be forwarded to the backend.
func (m Mode) Full() bool { return m == ModeFull }

// ParseMode accepts "full" or "degraded" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return ModeFull, nil
	case "degraded":
		return ModeDegraded, nil
	default:
		return ModeDegraded, fmt.Errorf("unknown mode: %q", s)
	}
}

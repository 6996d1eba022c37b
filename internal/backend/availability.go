package backend

import (
	"inferd/internal/common/fsutil"
	"inferd/internal/config"
)

// Availability records whether the backend can be started at all.
type Availability struct {
	Executable bool
	Model      bool
}

// OK reports whether both the executable and the model artifact are present.
func (a Availability) OK() bool { return a.Executable && a.Model }

// CheckAvailability inspects the filesystem only; it has no side effects.
func CheckAvailability(cfg config.Config) Availability {
	return Availability{
		Executable: fsutil.IsExecutable(cfg.BackendBin),
		Model:      fsutil.IsRegularFile(cfg.ModelPath),
	}
}

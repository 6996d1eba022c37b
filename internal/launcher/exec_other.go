//go:build !unix

package launcher

import "errors"

// SyscallExecer is unavailable on this platform.
type SyscallExecer struct{}

func (SyscallExecer) Exec(Command) error {
	return errors.New("process replacement is not supported on this platform")
}

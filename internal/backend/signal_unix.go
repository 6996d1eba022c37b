//go:build unix

package backend

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// alive uses signal 0 to test for existence. EPERM means the pid exists but
// belongs to someone else.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// terminate requests a graceful stop with SIGTERM.
func terminate(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}

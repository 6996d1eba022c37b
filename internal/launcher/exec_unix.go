//go:build unix

package launcher

import "golang.org/x/sys/unix"

// SyscallExecer replaces the process image with execve(2). The pid, open
// descriptors without close-on-exec and child processes all carry over.
type SyscallExecer struct{}

func (SyscallExecer) Exec(cmd Command) error {
	return unix.Exec(cmd.Path, cmd.Args, cmd.Env)
}

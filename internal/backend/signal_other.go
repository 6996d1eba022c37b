//go:build !unix

package backend

import "os"

func alive(pid int) bool {
	p, err := os.FindProcess(pid)
	return err == nil && p != nil
}

func terminate(p *os.Process) error { return p.Kill() }

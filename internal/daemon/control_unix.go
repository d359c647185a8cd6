//go:build !windows

package daemon

import "golang.org/x/sys/unix"

func processAlive(pid int) bool {
	// Signal 0 checks existence; EPERM means the process exists but
	// belongs to someone else.
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func terminate(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

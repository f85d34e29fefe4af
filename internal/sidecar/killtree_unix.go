//go:build !windows

package sidecar

import "syscall"

// killProcessTree sends SIGKILL to the process group. The sidecar is
// spawned with Setpgid, so -pid addresses it together with every
// descendant it forked.
func killProcessTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

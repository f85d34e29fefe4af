//go:build !windows

package sidecar

import "syscall"

// sysProcAttr places the child in a new process group so the whole tree
// can be signalled with kill(-pid).
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

//go:build windows

package sidecar

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// sysProcAttr detaches the child from the parent's console and process
// group. CREATE_NO_WINDOW prevents a console window for the child. Tree
// termination on Windows goes through taskkill /T, which walks
// parent/child relationships itself.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.CREATE_NO_WINDOW,
	}
}

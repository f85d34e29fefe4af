//go:build windows

// Single-instance enforcement on Windows using a named mutex. A second
// launch brings the existing window to the foreground instead of opening
// a duplicate shell, which would spawn a second backend on the same port.
package shellapp

import (
	"syscall"
	"unsafe"

	"github.com/siri-labs/siri-billing/internal/constants"
)

var (
	kernel32      = syscall.NewLazyDLL("kernel32.dll")
	user32        = syscall.NewLazyDLL("user32.dll")
	createMutex   = kernel32.NewProc("CreateMutexW")
	findWindow    = user32.NewProc("FindWindowW")
	setForeground = user32.NewProc("SetForegroundWindow")
	showWindow    = user32.NewProc("ShowWindow")
	isIconic      = user32.NewProc("IsIconic")
)

const (
	mutexName = "SiriBillingShell_SingleInstance_v1"

	// Error code when the mutex already exists
	errorAlreadyExists = 183

	// ShowWindow restore command
	swRestore = 9
)

// singleInstanceMutex holds the mutex handle, kept alive for the process
// lifetime.
var singleInstanceMutex uintptr

// EnsureSingleInstance checks if another instance is already running.
// Returns true if this is the first instance. When another instance
// exists its window is brought to the foreground.
func EnsureSingleInstance() bool {
	mutexNamePtr, _ := syscall.UTF16PtrFromString(mutexName)

	handle, _, err := createMutex.Call(
		0,
		0,
		uintptr(unsafe.Pointer(mutexNamePtr)),
	)

	if handle == 0 {
		return false
	}

	if err == syscall.Errno(errorAlreadyExists) {
		bringExistingToForeground()
		return false
	}

	singleInstanceMutex = handle
	return true
}

// bringExistingToForeground attempts to find and activate the existing
// window by its title prefix.
func bringExistingToForeground() {
	windowTitle, _ := syscall.UTF16PtrFromString(constants.AppName)
	hwnd, _, _ := findWindow.Call(0, uintptr(unsafe.Pointer(windowTitle)))

	if hwnd != 0 {
		iconic, _, _ := isIconic.Call(hwnd)
		if iconic != 0 {
			showWindow.Call(hwnd, swRestore)
		}
		setForeground.Call(hwnd)
	}
}

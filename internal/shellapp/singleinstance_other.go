//go:build !windows

package shellapp

// EnsureSingleInstance on non-Windows platforms always returns true.
// Single-instance enforcement is only implemented for Windows, where a
// duplicate shell would collide with the backend's fixed port.
func EnsureSingleInstance() bool {
	return true
}

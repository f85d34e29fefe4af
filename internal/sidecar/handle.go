package sidecar

import "sync"

// handleCell is the single shared-ownership container for the running
// backend process. At most one Process is held at a time; whichever
// shutdown path takes it first owns termination, so the OS-level kill is
// issued at most once no matter how many close/exit events fire.
//
// Critical sections are limited to store/take/peek bookkeeping. The lock
// is never held across the shutdown POST, the grace sleep, or the kill.
type handleCell struct {
	mu   sync.Mutex
	proc Process
}

// store places a freshly spawned process into the cell. It reports false
// if the cell is already occupied; the caller then owns the new process.
func (c *handleCell) store(p Process) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != nil {
		return false
	}
	c.proc = p
	return true
}

// take removes and returns the held process. After take returns true, no
// other path can act on the handle again.
func (c *handleCell) take() (Process, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return nil, false
	}
	p := c.proc
	c.proc = nil
	return p, true
}

// peek returns the held process id without consuming the handle.
func (c *handleCell) peek() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return 0, false
	}
	return c.proc.PID(), true
}

// clearIf drops the handle only if it still refers to p. The relay task
// uses this after the event stream ends: it clears bookkeeping for an
// already-dead process but must not disturb a handle a shutdown path has
// taken, or a replacement process stored later.
func (c *handleCell) clearIf(p Process) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != p {
		return false
	}
	c.proc = nil
	return true
}

//go:build windows

package sidecar

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// killProcessTree force-terminates the process and all of its children.
// taskkill /T walks the parent/child tree, /F terminates without asking.
func killProcessTree(pid int) error {
	cmd := exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F")

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("taskkill /PID %d failed: %w, output: %s",
			pid, err, strings.TrimSpace(out.String()))
	}
	return nil
}

//go:build windows

package printing

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func hiddenCommand(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	return cmd
}

func listPrinters() ([]string, error) {
	out, psErr := hiddenCommand("powershell", "-NoProfile", "-Command",
		"Get-Printer | Select-Object -ExpandProperty Name").Output()
	if psErr == nil {
		if names := parsePrinterNames(string(out)); len(names) > 0 {
			return names, nil
		}
	}

	// Older systems without the PrintManagement module.
	out, wmicErr := hiddenCommand("wmic", "printer", "get", "name").Output()
	if wmicErr == nil {
		if names := parsePrinterNames(string(out)); len(names) > 0 {
			return names, nil
		}
	}

	if psErr != nil {
		return nil, fmt.Errorf("printer query failed: %w", psErr)
	}
	if wmicErr != nil {
		return nil, fmt.Errorf("printer query failed: %w", wmicErr)
	}
	return nil, nil
}

func printText(content, printerName string) error {
	tmp, err := os.CreateTemp("", "siri-billing-print-*.txt")
	if err != nil {
		return fmt.Errorf("failed to stage print content: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage print content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage print content: %w", err)
	}

	script := fmt.Sprintf("Get-Content -Path '%s' | Out-Printer", path)
	if printerName != "" {
		script = fmt.Sprintf("Get-Content -Path '%s' | Out-Printer -Name '%s'", path, printerName)
	}

	if out, err := hiddenCommand("powershell", "-NoProfile", "-Command", script).CombinedOutput(); err != nil {
		return fmt.Errorf("print command failed: %w: %s", err, string(out))
	}
	return nil
}

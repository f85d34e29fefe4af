package printing

import "strings"

// parsePrinterNames extracts printer names from line-oriented tool output.
// Blank lines are skipped, as is a leading "Name" header emitted by wmic.
func parsePrinterNames(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if len(names) == 0 && strings.EqualFold(name, "Name") {
			continue
		}
		names = append(names, name)
	}
	return names
}

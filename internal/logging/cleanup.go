package logging

import (
	"os"
	"path/filepath"
	"strings"
)

// CleanLogDirectory deletes pre-existing "*.log" files in dir before the
// rotating logger attaches. Only regular files with the .log extension are
// removed; subdirectories and other files are left alone. A missing
// directory is not an error.
func CleanLogDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".log") {
			continue
		}
		// Best-effort: a file locked by a lingering process should not
		// abort startup.
		os.Remove(filepath.Join(dir, entry.Name()))
	}

	return nil
}

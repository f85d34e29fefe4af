//go:build !windows

package printing

func listPrinters() ([]string, error) {
	return nil, ErrNotSupported
}

func printText(content, printerName string) error {
	return ErrNotSupported
}

// Package printing lists installed printers and sends plain text to the
// print spooler. Both operations are backed by system tools and are only
// available on Windows.
package printing

import "errors"

// ErrNotSupported is returned on platforms without print spooler access.
var ErrNotSupported = errors.New("printing is only supported on Windows")

// ListPrinters returns the names of installed printers.
func ListPrinters() ([]string, error) {
	return listPrinters()
}

// PrintText sends content to the named printer. An empty printerName
// targets the system default printer.
func PrintText(content, printerName string) error {
	return printText(content, printerName)
}

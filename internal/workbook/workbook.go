// Package workbook reads and writes the spreadsheet containers exchanged by
// the admin export and import endpoints.
//
// Readers expose literal cell text only. Formulas are never evaluated, styles
// are not loaded and number formats are not applied, so a date cell comes back
// as its stored serial number and a formula cell as its cached value.
package workbook

import (
	"errors"
	"fmt"
)

// Format identifies a spreadsheet container.
type Format string

const (
	// FormatXLSX is the zip-based Office Open XML workbook.
	FormatXLSX Format = "xlsx"
	// FormatXLS is the legacy OLE2 compound-document workbook.
	FormatXLS Format = "xls"
)

// ErrCorrupt is returned when a container cannot be parsed.
var ErrCorrupt = errors.New("corrupt workbook")

// Workbook is a parsed, read-only workbook.
type Workbook interface {
	// SheetNames lists sheets in workbook order.
	SheetNames() []string
	// Rows returns every row of the sheet as trimmed cell text.
	Rows(sheet string) ([][]string, error)
	Close() error
}

// Limits bounds decompression of zip-based containers.
type Limits struct {
	// UnzipSizeLimit caps the total decompressed size of all parts.
	UnzipSizeLimit int64
	// UnzipXMLSizeLimit caps a single worksheet part held in memory.
	UnzipXMLSizeLimit int64
}

// Open parses data as the given format.
func Open(data []byte, format Format, limits Limits) (Workbook, error) {
	switch format {
	case FormatXLSX:
		return openXLSX(data, limits)
	case FormatXLS:
		return openXLS(data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrCorrupt, format)
	}
}

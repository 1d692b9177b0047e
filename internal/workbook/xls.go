package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

// xlsWorkbook materialises every sheet on open. The legacy reader panics on
// some malformed records, so all access happens under recover.
type xlsWorkbook struct {
	names []string
	rows  map[string][][]string
}

func openXLS(data []byte) (wb *xlsWorkbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	wb = &xlsWorkbook{rows: make(map[string][][]string)}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		wb.names = append(wb.names, sheet.Name)
		wb.rows[sheet.Name] = readXLSSheet(sheet)
	}
	return wb, nil
}

func readXLSSheet(sheet *xls.WorkSheet) [][]string {
	var out [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			out = append(out, nil)
			continue
		}
		// LastCol is one past the final cell.
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, strings.TrimSpace(row.Col(c)))
		}
		out = append(out, cells)
	}
	return out
}

func (w *xlsWorkbook) SheetNames() []string {
	return w.names
}

func (w *xlsWorkbook) Rows(sheet string) ([][]string, error) {
	rows, ok := w.rows[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrCorrupt, sheet)
	}
	return rows, nil
}

func (w *xlsWorkbook) Close() error { return nil }

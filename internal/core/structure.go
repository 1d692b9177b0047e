package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/stateport/internal/workbook"
)

// ParsedSheet is the worksheet resolved for one entity kind.
type ParsedSheet struct {
	Kind       string
	Name       string
	Header     []string
	HeaderLine int // 1-based line of the header row
	Rows       []SheetRow
}

// SheetRow is one non-blank data row and its 1-based line number.
type SheetRow struct {
	Line  int
	Cells []string
}

// StructureReport is what the structural validator learned about a
// workbook.
type StructureReport struct {
	Sheets       map[string]*ParsedSheet // by entity kind
	TotalRows    int
	Unrecognized []string
}

// Kinds returns the kinds with a resolved sheet, in the given order.
func (r StructureReport) Kinds(order []string) []string {
	var out []string
	for _, k := range order {
		if _, ok := r.Sheets[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// ValidateStructure resolves entity sheets through the alias table, reads
// their rows and enforces the row ceiling summed over recognised sheets.
// Sheets matching no alias are reported as warnings and otherwise ignored.
func ValidateStructure(wb workbook.Workbook, aliases workbook.AliasTable, kinds []string, maxRows int) (StructureReport, Verdict) {
	report := StructureReport{Sheets: make(map[string]*ParsedSheet)}

	names := wb.SheetNames()
	if len(names) == 0 {
		return report, Reject(StageStructure, KindMalformedInput, ReasonNoSheets, "")
	}

	resolved := aliases.ResolveAll(kinds, names)
	claimed := make(map[string]bool, len(resolved))
	for _, kind := range kinds {
		name, ok := resolved[kind]
		if !ok {
			continue
		}
		claimed[name] = true

		rows, err := wb.Rows(name)
		if err != nil {
			if errors.Is(err, workbook.ErrCorrupt) {
				return report, Reject(StageStructure, KindMalformedInput, ReasonCorruptFile, fmt.Sprintf("sheet %q", name))
			}
			return report, Reject(StageStructure, KindMalformedInput, ReasonCorruptFile, err.Error())
		}

		sheet := splitSheet(kind, name, rows)
		report.Sheets[kind] = sheet
		report.TotalRows += len(sheet.Rows)
	}

	var warnings []string
	for _, name := range names {
		if claimed[name] || aliases.Ignored(name) {
			continue
		}
		report.Unrecognized = append(report.Unrecognized, name)
	}
	if len(report.Unrecognized) > 0 {
		warnings = append(warnings, fmt.Sprintf("ignored unrecognised sheet(s): %s", strings.Join(report.Unrecognized, ", ")))
	}
	if len(resolved) == 0 {
		warnings = append(warnings, "no sheet matched a known entity; nothing to import")
	}

	if report.TotalRows > maxRows {
		return report, Reject(StageStructure, KindStructuralLimitExceeded, ReasonRowLimit,
			fmt.Sprintf("%d rows across recognised sheets exceeds %d", report.TotalRows, maxRows))
	}

	return report, Accept(StageStructure, warnings...)
}

// splitSheet takes the first non-blank row as the header and keeps every
// later non-blank row as data.
func splitSheet(kind, name string, rows [][]string) *ParsedSheet {
	sheet := &ParsedSheet{Kind: kind, Name: name}
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if sheet.Header == nil {
			sheet.Header = row
			sheet.HeaderLine = i + 1
			continue
		}
		sheet.Rows = append(sheet.Rows, SheetRow{Line: i + 1, Cells: row})
	}
	return sheet
}

// CountRows returns the number of data rows in a sheet: non-blank rows after
// the header.
func CountRows(rows [][]string) int {
	n := 0
	header := false
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if !header {
			header = true
			continue
		}
		n++
	}
	return n
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/JonMunkholm/stateport/internal/core"
)

// maxCellWidth truncates long cells such as audit evidence.
const maxCellWidth = 48

// writeTable prints rows under header in aligned columns. Widths are measured
// in terminal cells so sheet names in CJK line up.
func writeTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range row {
			row[i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			if cw := runewidth.StringWidth(row[i]); i < len(widths) && cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(header)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

func printImportResult(w io.Writer, res *core.ImportResult) {
	imported, skipped, rejected := res.Stats.Totals()
	fmt.Fprintf(w, "import %s: %d imported, %d skipped, %d rejected\n\n",
		res.ImportID, imported, skipped, rejected)

	var rows [][]string
	var issues [][]string
	if res.Stats != nil {
		for _, e := range res.Stats.Entities {
			rows = append(rows, []string{
				e.Sheet, e.Kind,
				strconv.Itoa(e.Imported), strconv.Itoa(e.SkippedExisting), strconv.Itoa(e.Rejected),
			})
			for _, is := range e.Issues {
				issues = append(issues, []string{e.Sheet, strconv.Itoa(is.Line), is.Field, is.Reason})
			}
		}
	}
	writeTable(w, []string{"SHEET", "KIND", "IMPORTED", "SKIPPED", "REJECTED"}, rows)

	if len(issues) > 0 {
		fmt.Fprintln(w)
		writeTable(w, []string{"SHEET", "LINE", "FIELD", "ISSUE"}, issues)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func printSheetCounts(w io.Writer, snap *core.Snapshot) {
	var rows [][]string
	for _, def := range core.Ordered() {
		if n, ok := snap.Counts[def.Kind]; ok {
			rows = append(rows, []string{def.Kind, strconv.Itoa(n)})
		}
	}
	writeTable(w, []string{"KIND", "ROWS"}, rows)
}

func printAuditEvents(w io.Writer, events []core.AuditEvent) {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(ev.Action),
			string(ev.Stage),
			string(ev.Outcome),
			string(ev.Severity),
			ev.AdminID,
			ev.Reason,
			ev.Evidence,
		})
	}
	writeTable(w, []string{"TIME", "ACTION", "STAGE", "OUTCOME", "SEVERITY", "ADMIN", "REASON", "EVIDENCE"}, rows)
}

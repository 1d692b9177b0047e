package core

// export.go builds the snapshot workbook: one sheet per non-empty entity
// kind, in import order, with references written as the labels the
// importer resolves on the way back in.

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/stateport/internal/workbook"
)

// ExportInfoSheet is the trailing metadata sheet. The alias table lists it
// as ignored so a re-import skips it silently.
const ExportInfoSheet = "Export Info"

// Column width bounds, in character cells.
const (
	minColumnWidth = 10
	maxColumnWidth = 50
)

// exportReadLimit bounds concurrent table reads.
const exportReadLimit = 4

// Snapshot is a rendered export.
type Snapshot struct {
	Data        []byte
	Filename    string
	GeneratedAt time.Time
	Counts      map[string]int // rows per exported kind
}

// Exporter reads every entity table and renders a snapshot.
type Exporter struct {
	store   Store
	aliases workbook.AliasTable
	logger  *slog.Logger
	now     func() time.Time
}

// NewExporter returns an exporter over store.
func NewExporter(store Store, aliases workbook.AliasTable, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, aliases: aliases, logger: logger, now: time.Now}
}

// Build reads all entity tables and renders the snapshot.
func (e *Exporter) Build(ctx context.Context) (*Snapshot, error) {
	defs := Ordered()
	tables := make([][]Record, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportReadLimit)
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			recs, err := e.store.List(gctx, def)
			if err != nil {
				return fmt.Errorf("read %s: %w", def.Kind, err)
			}
			tables[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storageFailure(StageExport, err)
	}

	labels := make(map[string]map[int64]string, len(defs))
	for i, def := range defs {
		if def.LabelColumn == "" {
			continue
		}
		m := make(map[int64]string, len(tables[i]))
		for _, rec := range tables[i] {
			if id, ok := toInt64(rec["id"]); ok {
				m[id] = FormatValue(rec[def.LabelColumn])
			}
		}
		labels[def.Kind] = m
	}

	generated := e.now().UTC()
	snap := &Snapshot{GeneratedAt: generated, Counts: make(map[string]int)}

	var sheets []workbook.Sheet
	for i, def := range defs {
		if len(tables[i]) == 0 {
			continue
		}
		sheets = append(sheets, renderSheet(def, e.aliases.Canonical(def.Kind), tables[i], labels))
		snap.Counts[def.Kind] = len(tables[i])
	}
	sheets = append(sheets, infoSheet(generated, defs, snap.Counts))

	data, err := workbook.WriteXLSX(sheets)
	if err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}
	snap.Data = data
	snap.Filename = fmt.Sprintf("stateport_export_%s.xlsx", generated.Format("20060102_150405"))

	e.logger.Info("snapshot built", "sheets", len(sheets)-1, "bytes", len(data))
	return snap, nil
}

func renderSheet(def *EntityDefinition, name string, recs []Record, labels map[string]map[int64]string) workbook.Sheet {
	header := def.Headers()
	sheet := workbook.Sheet{
		Name:   name,
		Header: header,
		Rows:   make([][]string, 0, len(recs)),
		Widths: columnWidths(header),
	}

	for _, rec := range recs {
		row := make([]string, 0, len(header))
		row = append(row, FormatValue(rec["id"]))
		for _, ref := range def.Refs {
			row = append(row, refLabel(rec[ref.Column], labels[ref.Target]))
		}
		for _, f := range def.Fields {
			row = append(row, FormatValue(rec[f.Column]))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// refLabel writes a foreign key as its target's label, falling back to the
// raw id, which the importer also resolves.
func refLabel(v any, labels map[int64]string) string {
	id, ok := toInt64(v)
	if !ok {
		return FormatValue(v)
	}
	if label, ok := labels[id]; ok && label != "" {
		return label
	}
	return strconv.FormatInt(id, 10)
}

// columnWidths sizes each column from its header's display width, so CJK
// headers get double-width cells.
func columnWidths(header []string) []float64 {
	widths := make([]float64, len(header))
	for i, h := range header {
		w := runewidth.StringWidth(h) + 4
		if w < minColumnWidth {
			w = minColumnWidth
		}
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		widths[i] = float64(w)
	}
	return widths
}

func infoSheet(generated time.Time, defs []*EntityDefinition, counts map[string]int) workbook.Sheet {
	rows := [][]string{{"Generated At", generated.Format(TimeLayout)}}
	for _, def := range defs {
		if n, ok := counts[def.Kind]; ok {
			rows = append(rows, []string{def.Label, strconv.Itoa(n)})
		}
	}
	header := []string{"Item", "Value"}
	return workbook.Sheet{Name: ExportInfoSheet, Header: header, Rows: rows, Widths: []float64{24, 24}}
}

package core

// importer.go is the entity import orchestrator. It walks the recognised
// sheets in dependency order inside one transaction. Every row ends as
// imported, skipped as existing, or rejected; only store failures escape the
// row loop, and they roll the whole import back.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Importer runs entity imports. It is safe for concurrent use; per-run
// state lives in the transaction and the Resolver.
type Importer struct {
	scanner *Scanner
	policy  AdminRowPolicy
	logger  *slog.Logger
}

// NewImporter returns an importer that scans free-text fields with scanner
// and applies policy to admin-role rows.
func NewImporter(scanner *Scanner, policy AdminRowPolicy, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = PolicyAllow
	}
	return &Importer{scanner: scanner, policy: policy, logger: logger}
}

// Run imports every sheet in report through tx. Entity kinds without a
// sheet are skipped. The returned error is always a storage failure.
func (im *Importer) Run(ctx context.Context, tx EntityStore, report StructureReport) (*ImportStats, error) {
	stats := &ImportStats{}
	resolver := NewResolver(tx)

	for _, def := range Ordered() {
		sheet, ok := report.Sheets[def.Kind]
		if !ok {
			continue
		}
		es, err := im.importSheet(ctx, tx, resolver, def, sheet, stats)
		if err != nil {
			return stats, storageFailure(StageImport, fmt.Errorf("%s line %d: %w", def.Kind, es.Total+1, err))
		}
		stats.Entities = append(stats.Entities, es)

		im.logger.Debug("entity imported",
			"kind", def.Kind,
			"sheet", sheet.Name,
			"imported", es.Imported,
			"skipped", es.SkippedExisting,
			"rejected", es.Rejected,
		)
	}
	return stats, nil
}

// headerIndex maps table columns, and the ID pseudo-column, to cell
// positions.
type headerIndex struct {
	cols map[string]int
	id   int
}

func buildHeaderIndex(def *EntityDefinition, header []string) headerIndex {
	idx := headerIndex{cols: make(map[string]int), id: -1}

	names := make(map[string]string) // lowercased header -> column
	for _, r := range def.Refs {
		names[strings.ToLower(r.Name)] = r.Column
		for _, a := range r.Aliases {
			names[strings.ToLower(a)] = r.Column
		}
		names[strings.ToLower(r.Column)] = r.Column
	}
	for _, f := range def.Fields {
		names[strings.ToLower(f.Name)] = f.Column
		for _, a := range f.Aliases {
			names[strings.ToLower(a)] = f.Column
		}
		names[strings.ToLower(f.Column)] = f.Column
	}

	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if col, ok := names[h]; ok {
			if _, seen := idx.cols[col]; !seen {
				idx.cols[col] = i
			}
			continue
		}
		if idx.id < 0 && isIDHeader(h) {
			idx.id = i
		}
	}
	return idx
}

func (h headerIndex) cell(cells []string, col string) (string, bool) {
	pos, ok := h.cols[col]
	if !ok {
		return "", false
	}
	if pos >= len(cells) {
		return "", true
	}
	return cells[pos], true
}

func (im *Importer) importSheet(ctx context.Context, tx EntityStore, resolver *Resolver, def *EntityDefinition, sheet *ParsedSheet, stats *ImportStats) (*EntityStats, error) {
	es := &EntityStats{Kind: def.Kind, Sheet: sheet.Name}
	idx := buildHeaderIndex(def, sheet.Header)

	var missing []string
	for _, f := range def.Fields {
		if _, ok := idx.cols[f.Column]; !ok && f.Required && f.Default == "" {
			missing = append(missing, f.Name)
		}
	}
	for _, r := range def.Refs {
		if _, ok := idx.cols[r.Column]; !ok && r.Required {
			missing = append(missing, r.Name)
		}
	}
	if len(missing) > 0 {
		es.warn(fmt.Sprintf("sheet %q is missing required column(s): %s", sheet.Name, strings.Join(missing, ", ")))
	}

	for _, sr := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return es, err
		}

		row := &Row{
			Def:    def,
			Sheet:  sheet.Name,
			Line:   sr.Line,
			Record: make(Record, len(def.Refs)+len(def.Fields)),
			Tx:     tx,
			Policy: im.policy,
		}
		if idx.id >= 0 && idx.id < len(sr.Cells) {
			row.SourceID = sourceKey(sr.Cells[idx.id])
		}

		if err := im.importRow(ctx, resolver, row, idx, sr.Cells, stats); err != nil {
			return es, err
		}

		if row.escalation != nil {
			row.escalation.Outcome = row.outcome
			stats.Escalations = append(stats.Escalations, *row.escalation)
		}
		es.record(row)
	}
	return es, nil
}

// importRow decides one row's outcome. It returns an error only for
// failures that must abort the transaction.
func (im *Importer) importRow(ctx context.Context, resolver *Resolver, row *Row, idx headerIndex, cells []string, stats *ImportStats) error {
	def := row.Def

	for _, ref := range def.Refs {
		raw, present := idx.cell(cells, ref.Column)
		raw = CleanCell(raw)
		if raw == "" {
			if ref.Required {
				reason := "required reference is empty"
				if !present {
					reason = "required reference column missing"
				}
				row.Reject(ref.Name, reason)
				return nil
			}
			row.Record[ref.Column] = nil
			continue
		}

		var scope any
		if ref.ScopeColumn != "" {
			scope = row.Record[ref.ScopeColumn]
		}
		id, found, err := resolver.ResolveRef(ctx, ref, raw, scope)
		if err != nil {
			return err
		}
		if !found {
			if ref.Required {
				row.Reject(ref.Name, fmt.Sprintf("unresolved %s reference %q", ref.Target, truncate(raw, 64)))
				return nil
			}
			row.Record[ref.Column] = nil
			row.Warn("%s reference %q not found; left empty", ref.Target, truncate(raw, 64))
			continue
		}
		row.Record[ref.Column] = id
	}

	for _, f := range def.Fields {
		raw, present := idx.cell(cells, f.Column)
		if !im.parseField(row, f, raw, present, stats) {
			return nil
		}
	}

	if def.Prepare != nil {
		if err := def.Prepare(ctx, row); err != nil {
			return err
		}
	}
	if row.Decided() {
		if row.outcome == OutcomeSkippedExisting {
			return im.rememberExisting(ctx, resolver, row)
		}
		return nil
	}

	id, found, err := row.Tx.FindID(ctx, def, def.KeyOf(row.Record))
	if err != nil {
		return err
	}
	if found {
		row.Skip("already exists")
		resolver.Remember(def.Kind, row.SourceID, id)
		return nil
	}

	id, err = row.Tx.Insert(ctx, def, row.Record)
	if err != nil {
		if errors.Is(err, ErrRowConflict) {
			row.Reject("", err.Error())
			return nil
		}
		return err
	}
	row.outcome = OutcomeImported
	resolver.Remember(def.Kind, row.SourceID, id)
	return nil
}

// rememberExisting maps the source id of a row a Prepare hook skipped to the
// existing row, so later sheets can still reference it by id.
func (im *Importer) rememberExisting(ctx context.Context, resolver *Resolver, row *Row) error {
	if row.SourceID == "" || row.Def.LabelColumn == "" {
		return nil
	}
	label, ok := row.Record[row.Def.LabelColumn]
	if !ok || label == nil {
		return nil
	}
	id, found, err := row.Tx.FindID(ctx, row.Def, Record{row.Def.LabelColumn: label})
	if err != nil {
		return err
	}
	if found {
		resolver.Remember(row.Def.Kind, row.SourceID, id)
	}
	return nil
}

// parseField validates and converts one cell into row.Record. It returns
// false once the row has been rejected.
func (im *Importer) parseField(row *Row, f FieldSpec, raw string, present bool, stats *ImportStats) bool {
	raw = CleanCell(raw)
	if raw == "" {
		raw = f.Default
	}
	if raw == "" {
		if f.Required {
			reason := "required field is empty"
			if !present {
				reason = "required column missing"
			}
			row.Reject(f.Name, reason)
			return false
		}
		row.Record[f.Column] = nil
		return true
	}

	if f.FreeText && im.scanner != nil {
		if v := im.scanner.ScanField(raw); !v.Accepted {
			row.Reject(f.Name, v.Reason)
			stats.FieldRejections = append(stats.FieldRejections, FieldRejection{
				Kind:     row.Def.Kind,
				Sheet:    row.Sheet,
				Line:     row.Line,
				Field:    f.Name,
				Evidence: v.Evidence,
			})
			return false
		}
	}

	switch f.Type {
	case FieldText, FieldEmail:
		value, ok := im.checkText(row, f, raw)
		if !ok {
			return false
		}
		row.Record[f.Column] = value

	case FieldInt:
		n, err := ParseInt(raw)
		if err != nil {
			row.Reject(f.Name, err.Error())
			return false
		}
		row.Record[f.Column] = n

	case FieldBool:
		b, err := ParseBool(raw)
		if err != nil {
			row.Reject(f.Name, err.Error())
			return false
		}
		row.Record[f.Column] = b

	case FieldTime:
		t, err := ParseTime(raw)
		if err != nil {
			row.Reject(f.Name, err.Error())
			return false
		}
		row.Record[f.Column] = t

	case FieldEnum:
		for _, v := range f.EnumValues {
			if strings.EqualFold(v, raw) {
				row.Record[f.Column] = v
				return true
			}
		}
		row.Reject(f.Name, fmt.Sprintf("must be one of %s", strings.Join(f.EnumValues, ", ")))
		return false
	}
	return true
}

// checkText applies the email, pattern and length rules. Identity fields
// are rejected on any failure; other text is truncated to its limit, and an
// optional field with a bad format is dropped with a warning.
func (im *Importer) checkText(row *Row, f FieldSpec, raw string) (any, bool) {
	formatOK := true
	if f.Type == FieldEmail && !validEmail(raw) {
		formatOK = false
	}
	if f.Pattern != nil && !f.Pattern.MatchString(raw) {
		formatOK = false
	}
	if !formatOK {
		if f.Identity || f.Required {
			row.Reject(f.Name, fmt.Sprintf("invalid format %q", truncate(raw, 64)))
			return nil, false
		}
		row.Warn("%s has invalid format; left empty", f.Name)
		return nil, true
	}

	if f.MaxLen > 0 && utf8.RuneCountInString(raw) > f.MaxLen {
		if f.Identity {
			row.Reject(f.Name, fmt.Sprintf("longer than %d characters", f.MaxLen))
			return nil, false
		}
		raw = truncate(raw, f.MaxLen)
		row.Warn("%s truncated to %d characters", f.Name, f.MaxLen)
	}
	return raw, true
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

package core

import (
	"context"
	"regexp"
	"strings"
)

// FieldType is the expected type of a cell.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEmail
	FieldInt
	FieldBool
	FieldTime
	FieldEnum
)

// FieldSpec maps one worksheet column onto one table column.
type FieldSpec struct {
	Name       string   // canonical header, written on export
	Aliases    []string // other accepted headers
	Column     string   // table column
	Type       FieldType
	Required   bool
	Identity   bool           // a format failure rejects the row instead of truncating
	MaxLen     int            // rune limit for text; 0 means unbounded
	Pattern    *regexp.Regexp // extra format check for text fields
	EnumValues []string
	Default    string // used when the cell is empty
	FreeText   bool   // run the field-level content scan
}

// RefSpec is a column that names a row of another entity.
type RefSpec struct {
	Name     string // canonical header
	Aliases  []string
	Column   string // foreign key column
	Target   string // referenced entity kind
	Required bool
	// ScopeColumn names a column of this record whose resolved value narrows
	// the label lookup, e.g. a project name is only unique per user.
	ScopeColumn string
}

// Record is a row keyed by table column.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// PrepareFunc runs after a row is parsed and its references resolved, and
// before dedup. It may adjust the record or decide the row's outcome through
// the Row methods. A returned error aborts the whole import.
type PrepareFunc func(ctx context.Context, row *Row) error

// EntityDefinition is everything needed to import and export one entity
// kind.
type EntityDefinition struct {
	Kind  string // registry key and alias table key
	Table string
	Label string
	Order int // position in the import dependency order

	Fields []FieldSpec
	Refs   []RefSpec

	// NaturalKey columns identify an existing row independent of its id.
	NaturalKey []string
	// Unique lists every uniqueness constraint the table enforces, the
	// natural key included.
	Unique [][]string

	// LabelColumn is what other entities use to reference this one.
	LabelColumn string
	// ScopeColumn narrows label lookups; see RefSpec.ScopeColumn.
	ScopeColumn string

	Prepare PrepareFunc
}

// Columns returns every table column the definition writes, in declaration
// order: references first, then fields.
func (d *EntityDefinition) Columns() []string {
	cols := make([]string, 0, len(d.Refs)+len(d.Fields))
	for _, r := range d.Refs {
		cols = append(cols, r.Column)
	}
	for _, f := range d.Fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// Headers returns the canonical export header row, led by the source id.
func (d *EntityDefinition) Headers() []string {
	h := make([]string, 0, 1+len(d.Refs)+len(d.Fields))
	h = append(h, IDHeader)
	for _, r := range d.Refs {
		h = append(h, r.Name)
	}
	for _, f := range d.Fields {
		h = append(h, f.Name)
	}
	return h
}

// IsTimeColumn reports whether col holds a timestamp.
func (d *EntityDefinition) IsTimeColumn(col string) bool {
	for _, f := range d.Fields {
		if f.Column == col {
			return f.Type == FieldTime
		}
	}
	return false
}

// Field returns the spec writing col.
func (d *EntityDefinition) Field(col string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Column == col {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// KeyOf extracts the natural key of rec.
func (d *EntityDefinition) KeyOf(rec Record) Record {
	key := make(Record, len(d.NaturalKey))
	for _, col := range d.NaturalKey {
		key[col] = rec[col]
	}
	return key
}

// IDHeader is the column carrying the source system's row id.
const IDHeader = "ID"

var idHeaderAliases = []string{"id", "编号", "序号"}

func isIDHeader(h string) bool {
	h = strings.TrimSpace(h)
	for _, a := range idHeaderAliases {
		if strings.EqualFold(h, a) {
			return true
		}
	}
	return false
}

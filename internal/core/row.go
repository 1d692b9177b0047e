package core

import (
	"fmt"
	"strings"
)

// RowOutcome is the terminal state of one input row.
type RowOutcome string

const (
	OutcomeImported        RowOutcome = "imported"
	OutcomeSkippedExisting RowOutcome = "skipped_existing"
	OutcomeRejected        RowOutcome = "rejected"
)

// AdminRowPolicy decides what happens to an import row that claims the admin
// role for an account that is not already an admin.
type AdminRowPolicy string

const (
	// PolicyAllow imports the row as written and audits the escalation.
	PolicyAllow AdminRowPolicy = "allow"
	// PolicyDemote imports the row with the user role and audits it.
	PolicyDemote AdminRowPolicy = "demote"
	// PolicyReject records the row as rejected and audits it.
	PolicyReject AdminRowPolicy = "reject"
)

// ParseAdminRowPolicy reads a policy name. Empty means PolicyAllow.
func ParseAdminRowPolicy(s string) (AdminRowPolicy, error) {
	switch p := AdminRowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAllow, nil
	case PolicyAllow, PolicyDemote, PolicyReject:
		return p, nil
	}
	return "", fmt.Errorf("unknown admin row policy %q", s)
}

// RowIssue describes a rejected row.
type RowIssue struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// Escalation is a row that asked for admin capability.
type Escalation struct {
	Kind     string         `json:"kind"`
	Sheet    string         `json:"sheet"`
	Line     int            `json:"line"`
	Username string         `json:"username"`
	Policy   AdminRowPolicy `json:"policy"`
	Outcome  RowOutcome     `json:"outcome"`
}

// FieldRejection is a row set aside by the field-level content scan.
type FieldRejection struct {
	Kind     string `json:"kind"`
	Sheet    string `json:"sheet"`
	Line     int    `json:"line"`
	Field    string `json:"field"`
	Evidence string `json:"evidence"`
}

// Row is one data row moving through an entity importer. Prepare hooks use
// it to inspect and adjust the parsed record and to decide its outcome.
type Row struct {
	Def      *EntityDefinition
	Sheet    string
	Line     int
	SourceID string
	Record   Record
	Tx       EntityStore
	Policy   AdminRowPolicy

	outcome    RowOutcome
	issue      RowIssue
	warnings   []string
	escalation *Escalation
}

// Skip marks the row as already present.
func (r *Row) Skip(reason string) {
	if r.outcome != "" {
		return
	}
	r.outcome = OutcomeSkippedExisting
	r.issue = RowIssue{Line: r.Line, Reason: reason}
}

// Reject sets the row aside. The first decision wins.
func (r *Row) Reject(field, reason string) {
	if r.outcome != "" {
		return
	}
	r.outcome = OutcomeRejected
	r.issue = RowIssue{Line: r.Line, Field: field, Reason: reason}
}

// Warn attaches a non-fatal note to the row.
func (r *Row) Warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf("line %d: %s", r.Line, fmt.Sprintf(format, args...)))
}

// FlagEscalation records that the row asked for admin capability.
func (r *Row) FlagEscalation(username string) {
	r.escalation = &Escalation{
		Kind:     r.Def.Kind,
		Sheet:    r.Sheet,
		Line:     r.Line,
		Username: username,
		Policy:   r.Policy,
	}
}

// Decided reports whether the row already has an outcome.
func (r *Row) Decided() bool {
	return r.outcome != ""
}

// EntityStats aggregates row outcomes for one entity kind.
type EntityStats struct {
	Kind            string     `json:"kind"`
	Sheet           string     `json:"sheet"`
	Total           int        `json:"total"`
	Imported        int        `json:"imported"`
	SkippedExisting int        `json:"skipped_existing"`
	Rejected        int        `json:"rejected"`
	Issues          []RowIssue `json:"issues,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// maxWarnings bounds the per-entity warning list; issues are not bounded.
const maxWarnings = 200

func (s *EntityStats) record(row *Row) {
	s.Total++
	switch row.outcome {
	case OutcomeImported:
		s.Imported++
	case OutcomeSkippedExisting:
		s.SkippedExisting++
	case OutcomeRejected:
		s.Rejected++
		s.Issues = append(s.Issues, row.issue)
	}
	for _, w := range row.warnings {
		s.warn(w)
	}
}

func (s *EntityStats) warn(msg string) {
	switch {
	case len(s.Warnings) < maxWarnings:
		s.Warnings = append(s.Warnings, msg)
	case len(s.Warnings) == maxWarnings:
		s.Warnings = append(s.Warnings, "further warnings omitted")
	}
}

// ImportStats is the result of one orchestrator run.
type ImportStats struct {
	Entities        []*EntityStats   `json:"entities"`
	Escalations     []Escalation     `json:"escalations,omitempty"`
	FieldRejections []FieldRejection `json:"field_rejections,omitempty"`
}

// Entity returns the stats for kind, or nil if its sheet was absent.
func (s *ImportStats) Entity(kind string) *EntityStats {
	if s == nil {
		return nil
	}
	for _, e := range s.Entities {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}

// Totals sums outcomes across every entity.
func (s *ImportStats) Totals() (imported, skipped, rejected int) {
	if s == nil {
		return 0, 0, 0
	}
	for _, e := range s.Entities {
		imported += e.Imported
		skipped += e.SkippedExisting
		rejected += e.Rejected
	}
	return imported, skipped, rejected
}

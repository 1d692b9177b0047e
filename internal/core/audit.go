package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImport                 AuditAction = "import"
	ActionExport                 AuditAction = "export"
	ActionBackup                 AuditAction = "backup"
	ActionPrivilegeEscalation    AuditAction = "privilege_escalation"
	ActionFieldSecurityRejection AuditAction = "field_security_rejection"
)

// AuditOutcome is the decision an audit event records.
type AuditOutcome string

const (
	AuditAccepted  AuditOutcome = "accepted"
	AuditRejected  AuditOutcome = "rejected"
	AuditCompleted AuditOutcome = "completed"
	AuditFailed    AuditOutcome = "failed"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEvent is one append-only ledger entry.
type AuditEvent struct {
	ID        string         `json:"id"`
	ImportID  string         `json:"import_id,omitempty"`
	Action    AuditAction    `json:"action"`
	Stage     Stage          `json:"stage,omitempty"`
	Outcome   AuditOutcome   `json:"outcome"`
	Kind      ErrorKind      `json:"kind,omitempty"`
	Severity  AuditSeverity  `json:"severity"`
	AdminID   string         `json:"admin_id,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Evidence  string         `json:"evidence,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditFilter narrows a ledger query. Zero fields match everything.
type AuditFilter struct {
	Action   AuditAction
	Outcome  AuditOutcome
	AdminID  string
	ImportID string
	Since    time.Time
	Limit    int
}

// DefaultAuditLimit caps ledger queries that set no limit.
const DefaultAuditLimit = 100

// MaxAuditLimit is the largest page a ledger query returns.
const MaxAuditLimit = 1000

// Ledger is the append-only audit trail.
type Ledger interface {
	Record(ctx context.Context, ev AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// determineSeverity returns the appropriate severity for an event.
func determineSeverity(ev AuditEvent) AuditSeverity {
	switch {
	case ev.Action == ActionPrivilegeEscalation:
		return SeverityCritical
	case ev.Kind == KindSecurityRejection || ev.Action == ActionFieldSecurityRejection:
		return SeverityHigh
	case ev.Kind == KindStorageFailure:
		return SeverityHigh
	case ev.Outcome == AuditRejected || ev.Outcome == AuditFailed:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// StampEvent fills the fields every event carries: id, time, client
// address and agent from ctx, and severity. Ledgers call it on Record.
func StampEvent(ctx context.Context, ev AuditEvent) AuditEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	info := ClientInfoFrom(ctx)
	if ev.IPAddress == "" {
		ev.IPAddress = info.IPAddress
	}
	if ev.UserAgent == "" {
		ev.UserAgent = info.UserAgent
	}
	if ev.Severity == "" {
		ev.Severity = determineSeverity(ev)
	}
	return ev
}

// EffectiveLimit is the page size a query with this filter returns.
func (f AuditFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultAuditLimit
	case f.Limit > MaxAuditLimit:
		return MaxAuditLimit
	}
	return f.Limit
}

// PgLedger stores audit events in the audit_events table, which a trigger
// keeps append-only.
type PgLedger struct {
	pool *pgxpool.Pool
}

// NewPgLedger returns a ledger over pool.
func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

// Record appends ev.
func (l *PgLedger) Record(ctx context.Context, ev AuditEvent) error {
	ev = StampEvent(ctx, ev)

	var details []byte
	if ev.Details != nil {
		var err error
		details, err = json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO audit_events
			(id, import_id, action, stage, outcome, kind, severity, admin_id,
			 ip_address, user_agent, reason, evidence, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		toPgUUID(ev.ID), toPgUUID(ev.ImportID), string(ev.Action), string(ev.Stage),
		string(ev.Outcome), string(ev.Kind), string(ev.Severity), ev.AdminID,
		ev.IPAddress, ev.UserAgent, ev.Reason, ev.Evidence, details, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// List returns matching events, newest first.
func (l *PgLedger) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.Outcome != "" {
		add("outcome = $%d", string(filter.Outcome))
	}
	if filter.AdminID != "" {
		add("admin_id = $%d", filter.AdminID)
	}
	if filter.ImportID != "" {
		add("import_id = $%d", toPgUUID(filter.ImportID))
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}

	query := `SELECT id, import_id, action, stage, outcome, kind, severity, admin_id,
		ip_address, user_agent, reason, evidence, details, created_at
		FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanAuditEvent)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func scanAuditEvent(row pgx.CollectableRow) (AuditEvent, error) {
	var (
		ev                                AuditEvent
		id, importID                      pgtype.UUID
		action, stage, outcome, kind, sev string
		details                           []byte
	)
	err := row.Scan(&id, &importID, &action, &stage, &outcome, &kind, &sev, &ev.AdminID,
		&ev.IPAddress, &ev.UserAgent, &ev.Reason, &ev.Evidence, &details, &ev.CreatedAt)
	if err != nil {
		return ev, err
	}
	ev.ID = uuidToString(id)
	ev.ImportID = uuidToString(importID)
	ev.Action = AuditAction(action)
	ev.Stage = Stage(stage)
	ev.Outcome = AuditOutcome(outcome)
	ev.Kind = ErrorKind(kind)
	ev.Severity = AuditSeverity(sev)
	if details != nil {
		_ = json.Unmarshal(details, &ev.Details)
	}
	return ev, nil
}

func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

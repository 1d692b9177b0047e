package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/stateport/internal/config"
	"github.com/JonMunkholm/stateport/internal/session"
	"github.com/JonMunkholm/stateport/internal/workbook"
)

// unzipXMLSizeLimit bounds a single decompressed worksheet part.
const unzipXMLSizeLimit = 16 << 20

// Service runs the import and export pipelines and records every decision in
// the audit ledger.
type Service struct {
	store    Store
	ledger   Ledger
	gate     *Gate
	scanner  *Scanner
	importer *Importer
	exporter *Exporter
	quota    *ImportRateLimiter
	slots    *ImportLimiter
	aliases  workbook.AliasTable
	maxRows  int
	limits   workbook.Limits
	logger   *slog.Logger
}

// NewService wires the pipeline stages from cfg.
func NewService(store Store, ledger Ledger, counters session.CounterStore, cfg config.ImportConfig, logger *slog.Logger) (*Service, error) {
	policy, err := ParseAdminRowPolicy(cfg.AdminRowPolicy)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	aliases := workbook.DefaultAliases()
	scanner := NewScanner(cfg.ScanPrefixBytes)

	return &Service{
		store:    store,
		ledger:   ledger,
		gate:     NewGate(cfg),
		scanner:  scanner,
		importer: NewImporter(scanner, policy, logger),
		exporter: NewExporter(store, aliases, logger),
		quota:    NewImportRateLimiter(counters, cfg.QuotaMax, cfg.QuotaWindow),
		slots:    NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		aliases:  aliases,
		maxRows:  cfg.MaxRows,
		limits:   workbook.Limits{UnzipSizeLimit: cfg.UnzipSizeLimit, UnzipXMLSizeLimit: unzipXMLSizeLimit},
		logger:   logger,
	}, nil
}

// importRun carries the per-request audit context through the stages.
type importRun struct {
	id       string
	req      *ImportRequest
	log      *slog.Logger
	warnings []string
}

func (s *Service) newRun(req *ImportRequest) *importRun {
	id := uuid.NewString()
	return &importRun{
		id:  id,
		req: req,
		log: s.logger.With("import_id", id, "admin_id", req.Principal.ID, "channel", req.Channel),
	}
}

// Import runs the full pipeline on one uploaded workbook. A rejection at any
// stage returns a *PipelineError before any entity write. Row-level issues
// are reported in the result, which is returned alongside a nil error.
func (s *Service) Import(ctx context.Context, req *ImportRequest) (*ImportResult, error) {
	start := time.Now()
	run := s.newRun(req)

	if err := s.check(ctx, run, s.gate.CheckAccess(req)); err != nil {
		return nil, err
	}

	v, err := s.quota.Check(ctx, req.Principal.ID)
	if err != nil {
		return nil, s.fail(ctx, run, &PipelineError{Kind: KindStorageFailure, Stage: StageRateLimit, Reason: ReasonStorageFailure, Err: err})
	}
	if err := s.check(ctx, run, v); err != nil {
		return nil, err
	}

	shape, v := s.gate.CheckShape(req)
	if err := s.check(ctx, run, v); err != nil {
		return nil, err
	}

	if err := s.check(ctx, run, s.scanner.Scan(req.Data)); err != nil {
		return nil, err
	}

	if err := s.slots.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			return nil, s.check(ctx, run, Reject(StageRateLimit, KindRateLimited, ReasonTooManyImports,
				fmt.Sprintf("%d imports running", s.slots.ActiveCount())))
		}
		return nil, s.fail(ctx, run, &PipelineError{Kind: KindRateLimited, Stage: StageRateLimit, Reason: ReasonTooManyImports, Err: err})
	}
	defer s.slots.Release()

	wb, err := workbook.Open(req.Data, shape.Format, s.limits)
	if err != nil {
		return nil, s.check(ctx, run, Reject(StageStructure, KindMalformedInput, ReasonCorruptFile, truncate(err.Error(), 200)))
	}
	defer wb.Close()

	structure, v := ValidateStructure(wb, s.aliases, Kinds(), s.maxRows)
	if err := s.check(ctx, run, v); err != nil {
		return nil, err
	}

	if err := s.quota.Increment(ctx, req.Principal.ID); err != nil {
		run.log.Warn("import quota not counted", "error", err)
	}

	var stats *ImportStats
	err = s.store.InTx(ctx, func(tx EntityStore) error {
		var runErr error
		stats, runErr = s.importer.Run(ctx, tx, structure)
		return runErr
	})
	if err != nil {
		var pe *PipelineError
		if !errors.As(err, &pe) {
			pe = storageFailure(StageImport, err)
		}
		return nil, s.fail(ctx, run, pe)
	}

	result := &ImportResult{
		ImportID:  run.id,
		Filename:  shape.Filename,
		Format:    shape.Format,
		Stats:     stats,
		Warnings:  run.warnings,
		Duration:  time.Since(start),
		Committed: true,
	}
	s.recordOutcomes(ctx, run, result)
	return result, nil
}

// check audits a verdict and converts a rejection into an error.
func (s *Service) check(ctx context.Context, run *importRun, v Verdict) error {
	ev := AuditEvent{
		ImportID: run.id,
		Action:   ActionImport,
		Stage:    v.Stage,
		AdminID:  run.req.Principal.ID,
	}
	if v.Accepted {
		run.warnings = append(run.warnings, v.Warnings...)
		ev.Outcome = AuditAccepted
		if len(v.Warnings) > 0 {
			ev.Details = map[string]any{"warnings": v.Warnings}
		}
		s.record(ctx, run.log, ev)
		run.log.Info("stage accepted", "stage", v.Stage, "warnings", len(v.Warnings))
		return nil
	}

	ev.Outcome = AuditRejected
	ev.Kind = v.Kind
	ev.Reason = v.Reason
	ev.Evidence = truncate(v.Evidence, 500)
	ev.Details = map[string]any{"filename": truncate(run.req.Filename, 255), "size": len(run.req.Data)}
	s.record(ctx, run.log, ev)
	run.log.Warn("stage rejected", "stage", v.Stage, "kind", v.Kind, "reason", v.Reason, "evidence", ev.Evidence)
	return v.Err()
}

// fail audits a run that stopped on an error. The internal error goes to
// the log only.
func (s *Service) fail(ctx context.Context, run *importRun, pe *PipelineError) error {
	s.record(ctx, run.log, AuditEvent{
		ImportID: run.id,
		Action:   ActionImport,
		Stage:    pe.Stage,
		Outcome:  AuditFailed,
		Kind:     pe.Kind,
		Reason:   pe.Reason,
		AdminID:  run.req.Principal.ID,
	})
	run.log.Error("import failed", "stage", pe.Stage, "error", pe.Err)
	return pe
}

// recordOutcomes writes the escalation events, the aggregated field security
// event and the import summary.
func (s *Service) recordOutcomes(ctx context.Context, run *importRun, result *ImportResult) {
	stats := result.Stats
	for _, esc := range stats.Escalations {
		s.record(ctx, run.log, AuditEvent{
			ImportID: run.id,
			Action:   ActionPrivilegeEscalation,
			Stage:    StageImport,
			Outcome:  escalationOutcome(esc.Outcome),
			AdminID:  run.req.Principal.ID,
			Reason:   fmt.Sprintf("row requests admin role for %q", esc.Username),
			Details: map[string]any{
				"username": esc.Username,
				"sheet":    esc.Sheet,
				"line":     esc.Line,
				"policy":   string(esc.Policy),
				"outcome":  string(esc.Outcome),
			},
		})
		run.log.Warn("admin role requested by import row",
			"username", esc.Username, "policy", esc.Policy, "outcome", esc.Outcome)
	}

	if n := len(stats.FieldRejections); n > 0 {
		s.record(ctx, run.log, AuditEvent{
			ImportID: run.id,
			Action:   ActionFieldSecurityRejection,
			Stage:    StageImport,
			Outcome:  AuditRejected,
			Kind:     KindSecurityRejection,
			AdminID:  run.req.Principal.ID,
			Reason:   fmt.Sprintf("%d row(s) rejected by cell content scan", n),
			Details:  map[string]any{"rows": stats.FieldRejections},
		})
	}

	imported, skipped, rejected := stats.Totals()
	s.record(ctx, run.log, AuditEvent{
		ImportID: run.id,
		Action:   ActionImport,
		Stage:    StageImport,
		Outcome:  AuditCompleted,
		AdminID:  run.req.Principal.ID,
		Details: map[string]any{
			"filename":    result.Filename,
			"format":      string(result.Format),
			"duration_ms": result.Duration.Milliseconds(),
			"warnings":    result.Warnings,
			"stats":       stats,
		},
	})
	run.log.Info("import completed",
		"imported", imported,
		"skipped_existing", skipped,
		"rejected", rejected,
		"duration_ms", result.Duration.Milliseconds(),
	)
}

// escalationOutcome is accepted only when the row was written; a rejected
// or skipped row granted nothing.
func escalationOutcome(o RowOutcome) AuditOutcome {
	if o == OutcomeImported {
		return AuditAccepted
	}
	return AuditRejected
}

// record appends to the ledger. A ledger failure is logged, not returned:
// the decision it describes has already been made.
func (s *Service) record(ctx context.Context, log *slog.Logger, ev AuditEvent) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(context.WithoutCancel(ctx), ev); err != nil {
		log.Error("audit event not recorded", "action", ev.Action, "stage", ev.Stage, "outcome", ev.Outcome, "error", err)
	}
}

// RejectRequest audits a rejection decided outside the pipeline, such as
// an upload body over the size limit, and returns it as an error. The
// access check still runs first so an outsider is reported as such.
func (s *Service) RejectRequest(ctx context.Context, req *ImportRequest, v Verdict) error {
	run := s.newRun(req)
	if err := s.check(ctx, run, s.gate.CheckAccess(req)); err != nil {
		return err
	}
	return s.check(ctx, run, v)
}

// Export builds a snapshot of every entity table for an admin.
func (s *Service) Export(ctx context.Context, p Principal) (*Snapshot, error) {
	log := s.logger.With("admin_id", p.ID)
	if !p.IsAdmin() {
		v := Reject(StageExport, KindAccessDenied, ReasonNotAdmin, fmt.Sprintf("principal %q role %q", p.ID, p.Role))
		s.record(ctx, log, AuditEvent{Action: ActionExport, Stage: StageExport, Outcome: AuditRejected,
			Kind: v.Kind, Reason: v.Reason, Evidence: v.Evidence, AdminID: p.ID})
		log.Warn("export rejected", "reason", v.Reason)
		return nil, v.Err()
	}

	start := time.Now()
	snap, err := s.exporter.Build(ctx)
	if err != nil {
		s.record(ctx, log, AuditEvent{Action: ActionExport, Stage: StageExport, Outcome: AuditFailed,
			Kind: KindStorageFailure, Reason: ReasonStorageFailure, AdminID: p.ID})
		log.Error("export failed", "error", err)
		return nil, err
	}

	s.record(ctx, log, AuditEvent{
		Action:  ActionExport,
		Stage:   StageExport,
		Outcome: AuditCompleted,
		AdminID: p.ID,
		Details: map[string]any{
			"filename":    snap.Filename,
			"bytes":       len(snap.Data),
			"counts":      snap.Counts,
			"duration_ms": time.Since(start).Milliseconds(),
		},
	})
	log.Info("export completed", "filename", snap.Filename, "bytes", len(snap.Data))
	return snap, nil
}

// AuditLog returns recent ledger entries to an admin.
func (s *Service) AuditLog(ctx context.Context, p Principal, filter AuditFilter) ([]AuditEvent, error) {
	if !p.IsAdmin() {
		return nil, Reject(StageAccess, KindAccessDenied, ReasonNotAdmin, "").Err()
	}
	if s.ledger == nil {
		return nil, nil
	}
	events, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, &PipelineError{Kind: KindStorageFailure, Stage: StageAccess, Reason: ReasonStorageFailure, Err: err}
	}
	return events, nil
}

// ImportStatus reports import slot usage.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.slots.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.slots.WaitForDrain(ctx)
}

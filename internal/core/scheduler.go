package core

// scheduler.go runs the optional periodic backup: an export snapshot shipped
// to object storage. It is long-running and stops with its context. A failed
// run is logged and audited; the next tick tries again.

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/stateport/internal/archive"
)

// SystemPrincipal is the actor recorded for scheduled work.
const SystemPrincipal = "system:backup"

const snapshotContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StartBackupScheduler exports a snapshot to arch every interval until ctx
// is cancelled. The first backup runs one interval after start.
func (s *Service) StartBackupScheduler(ctx context.Context, arch archive.Archiver, interval time.Duration) {
	if arch == nil || interval <= 0 {
		return
	}
	slog.Info("backup scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Backup(ctx, arch); err != nil {
				slog.Error("backup failed", "error", err)
			}
		}
	}
}

// Backup builds one snapshot and stores it through arch.
func (s *Service) Backup(ctx context.Context, arch archive.Archiver) error {
	log := s.logger.With("admin_id", SystemPrincipal)
	start := time.Now()

	snap, err := s.exporter.Build(ctx)
	if err == nil {
		err = arch.Put(ctx, snap.Filename, snap.Data, snapshotContentType)
	}
	if err != nil {
		s.record(ctx, log, AuditEvent{
			Action:  ActionBackup,
			Stage:   StageBackup,
			Outcome: AuditFailed,
			Kind:    KindStorageFailure,
			Reason:  ReasonStorageFailure,
			AdminID: SystemPrincipal,
		})
		return err
	}

	s.record(ctx, log, AuditEvent{
		Action:  ActionBackup,
		Stage:   StageBackup,
		Outcome: AuditCompleted,
		AdminID: SystemPrincipal,
		Details: map[string]any{
			"object":      snap.Filename,
			"bytes":       len(snap.Data),
			"counts":      snap.Counts,
			"duration_ms": time.Since(start).Milliseconds(),
		},
	})
	log.Info("backup stored", "object", snap.Filename, "bytes", len(snap.Data),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

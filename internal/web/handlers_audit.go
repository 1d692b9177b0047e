package web

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/stateport/internal/core"
)

// parseAuditFilter reads action, outcome, admin, import, since and limit
// from the query string. since accepts RFC 3339 or a plain date.
func parseAuditFilter(r *http.Request) core.AuditFilter {
	q := r.URL.Query()
	f := core.AuditFilter{
		Action:   core.AuditAction(q.Get("action")),
		Outcome:  core.AuditOutcome(q.Get("outcome")),
		AdminID:  q.Get("admin_id"),
		ImportID: q.Get("import_id"),
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = t
		} else if t, err := time.Parse("2006-01-02", v); err == nil {
			f.Since = t
		}
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

// handleAuditLog returns ledger entries as JSON, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if wantsCSV(r) {
		s.handleAuditLogExport(w, r)
		return
	}
	ctx, principal := requestContext(r)

	events, err := s.service.AuditLog(ctx, principal, parseAuditFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if events == nil {
		events = []core.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// handleAuditLogExport downloads ledger entries as CSV.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	ctx, principal := requestContext(r)

	events, err := s.service.AuditLog(ctx, principal, parseAuditFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(filename))

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"Timestamp", "Action", "Stage", "Outcome", "Severity", "Kind",
		"Admin ID", "Import ID", "IP Address", "Reason", "Evidence", "Details",
	})
	for _, ev := range events {
		details := ""
		if len(ev.Details) > 0 {
			if b, err := json.Marshal(ev.Details); err == nil {
				details = string(b)
			}
		}
		cw.Write([]string{
			ev.CreatedAt.UTC().Format(time.RFC3339),
			string(ev.Action),
			string(ev.Stage),
			string(ev.Outcome),
			string(ev.Severity),
			string(ev.Kind),
			ev.AdminID,
			ev.ImportID,
			ev.IPAddress,
			csvSafe(ev.Reason),
			csvSafe(ev.Evidence),
			csvSafe(details),
		})
	}
	cw.Flush()
}

// csvSafe prefixes values a spreadsheet would evaluate as formulas.
func csvSafe(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

package core

import (
	"strings"
	"time"

	"github.com/JonMunkholm/stateport/internal/workbook"
)

// RoleAdmin is the role value that grants admin capability.
const RoleAdmin = "admin"

// Principal is the authenticated caller, supplied by the auth layer.
type Principal struct {
	ID       string
	Username string
	Role     string
}

// IsAdmin reports whether the principal holds admin capability.
func (p Principal) IsAdmin() bool {
	return p.ID != "" && strings.EqualFold(p.Role, RoleAdmin)
}

// Channel identifies how an import request reached the pipeline.
type Channel string

const (
	// ChannelConsole is the browser admin console; its origin is checked.
	ChannelConsole Channel = "console"
	// ChannelCLI is the operator command line, which has no browser origin.
	ChannelCLI Channel = "cli"
)

// ImportRequest is one uploaded workbook. It is owned by a single pipeline
// run and dropped once the run finishes.
type ImportRequest struct {
	Data      []byte
	Filename  string
	MIMEType  string
	Principal Principal
	Origin    string
	Referer   string
	Channel   Channel
}

// Stage names a pipeline step. Audit events and verdicts carry it.
type Stage string

const (
	StageAccess    Stage = "access"
	StageRateLimit Stage = "rate_limit"
	StageShape     Stage = "shape"
	StageScan      Stage = "scan"
	StageStructure Stage = "structure"
	StageImport    Stage = "import"
	StageExport    Stage = "export"
	StageBackup    Stage = "backup"
)

// Verdict is the immutable result of one validation stage.
type Verdict struct {
	Stage    Stage
	Accepted bool
	Kind     ErrorKind
	Reason   string
	Evidence string
	Warnings []string
}

// Accept returns an accepting verdict for stage.
func Accept(stage Stage, warnings ...string) Verdict {
	return Verdict{Stage: stage, Accepted: true, Warnings: warnings}
}

// Reject returns a rejecting verdict.
func Reject(stage Stage, kind ErrorKind, reason, evidence string) Verdict {
	return Verdict{Stage: stage, Kind: kind, Reason: reason, Evidence: evidence}
}

// Err converts a rejection into a *PipelineError. It is nil for an
// accepting verdict.
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return &PipelineError{Kind: v.Kind, Stage: v.Stage, Reason: v.Reason, Evidence: v.Evidence}
}

// ShapeReport describes a file that passed the signature and shape checks.
type ShapeReport struct {
	Filename  string
	Extension string
	Format    workbook.Format
	Size      int
}

// ImportResult is returned to the caller of a completed import.
type ImportResult struct {
	ImportID  string          `json:"import_id"`
	Filename  string          `json:"filename"`
	Format    workbook.Format `json:"format"`
	Stats     *ImportStats    `json:"stats"`
	Warnings  []string        `json:"warnings,omitempty"`
	Duration  time.Duration   `json:"duration_ns"`
	Committed bool            `json:"committed"`
}

package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a pipeline run stopped or a row was set aside.
type ErrorKind string

const (
	KindAccessDenied            ErrorKind = "access_denied"
	KindMalformedInput          ErrorKind = "malformed_input"
	KindSecurityRejection       ErrorKind = "security_rejection"
	KindStructuralLimitExceeded ErrorKind = "structural_limit_exceeded"
	KindRateLimited             ErrorKind = "rate_limited"
	KindRowLevelIssue           ErrorKind = "row_level_issue"
	KindStorageFailure          ErrorKind = "storage_failure"
)

// Rejection reasons. They are stable strings: MapError keys user messages
// off them and audit consumers filter on them.
const (
	ReasonNotAdmin          = "admin capability required"
	ReasonOriginNotAllowed  = "request origin not allowed"
	ReasonNoFile            = "no file provided"
	ReasonEmptyFile         = "empty file"
	ReasonBadExtension      = "unsupported file extension"
	ReasonBadMIME           = "unsupported content type"
	ReasonFileTooLarge      = "file too large"
	ReasonBadFilename       = "invalid filename"
	ReasonSignatureMismatch = "file signature mismatch"
	ReasonMaliciousContent  = "malicious content detected"
	ReasonCorruptFile       = "corrupt file"
	ReasonNoSheets          = "workbook has no sheets"
	ReasonRowLimit          = "row limit exceeded"
	ReasonQuotaExceeded     = "import quota exceeded"
	ReasonTooManyImports    = "too many concurrent imports"
	ReasonStorageFailure    = "storage failure"
)

// PipelineError is a request-level failure. Every kind except
// KindStorageFailure is raised before any entity write happens.
type PipelineError struct {
	Kind     ErrorKind
	Stage    Stage
	Reason   string
	Evidence string
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *PipelineError in err's chain, or "" when
// there is none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// storageFailure wraps a transaction-fatal store error.
func storageFailure(stage Stage, err error) *PipelineError {
	return &PipelineError{Kind: KindStorageFailure, Stage: stage, Reason: ReasonStorageFailure, Err: err}
}

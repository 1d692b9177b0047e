package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "not admin", err: Reject(StageAccess, KindAccessDenied, ReasonNotAdmin, "").Err(), wantCode: "AUTH001"},
		{name: "origin", err: Reject(StageAccess, KindAccessDenied, ReasonOriginNotAllowed, "x").Err(), wantCode: "AUTH002"},
		{name: "too large", err: Reject(StageShape, KindMalformedInput, ReasonFileTooLarge, "").Err(), wantCode: "FILE001"},
		{name: "signature", err: Reject(StageShape, KindMalformedInput, ReasonSignatureMismatch, "").Err(), wantCode: "FILE007"},
		{name: "corrupt", err: Reject(StageStructure, KindMalformedInput, ReasonCorruptFile, "").Err(), wantCode: "FILE008"},
		{name: "malicious", err: Reject(StageScan, KindSecurityRejection, ReasonMaliciousContent, "").Err(), wantCode: "SEC001"},
		{name: "row limit", err: Reject(StageStructure, KindStructuralLimitExceeded, ReasonRowLimit, "").Err(), wantCode: "LIM001"},
		{name: "quota", err: Reject(StageRateLimit, KindRateLimited, ReasonQuotaExceeded, "").Err(), wantCode: "RATE001"},
		{name: "wrapped slot timeout", err: fmt.Errorf("acquire: %w", ErrTooManyImports), wantCode: "LIM002"},
		{name: "storage generic", err: storageFailure(StageImport, errors.New("insert users: ERROR: relation missing")), wantCode: "DB001"},
		{name: "storage connection", err: storageFailure(StageImport, errors.New("read tcp: connection reset by peer")), wantCode: "DB005"},
		{name: "plain connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB004"},
		{name: "case insensitive", err: errors.New("DEADLOCK detected"), wantCode: "DB007"},
		{name: "unknown", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestMapError_StorageFailureHidesDetail(t *testing.T) {
	err := storageFailure(StageImport, errors.New(`insert users: duplicate key value violates unique constraint "users_pkey"`))
	msg := MapError(err)

	assert.Equal(t, "DB001", msg.Code)
	assert.NotContains(t, msg.Message, "users_pkey")
	assert.NotContains(t, msg.Action, "users_pkey")
}

func TestMapError_EveryReasonHasMessage(t *testing.T) {
	reasons := []string{
		ReasonNotAdmin, ReasonOriginNotAllowed, ReasonNoFile, ReasonEmptyFile,
		ReasonBadExtension, ReasonBadMIME, ReasonFileTooLarge, ReasonBadFilename,
		ReasonSignatureMismatch, ReasonMaliciousContent, ReasonCorruptFile,
		ReasonNoSheets, ReasonRowLimit, ReasonQuotaExceeded, ReasonTooManyImports,
	}
	seen := make(map[string]string)
	for _, r := range reasons {
		msg, ok := reasonMessages[r]
		if assert.True(t, ok, r) {
			assert.NotEmpty(t, msg.Message, r)
			assert.NotEmpty(t, msg.Action, r)
			if prev, dup := seen[msg.Code]; dup {
				t.Errorf("code %s used by %q and %q", msg.Code, prev, r)
			}
			seen[msg.Code] = r
		}
	}
}

func TestFormatUserError(t *testing.T) {
	assert.Equal(t, "", FormatUserError(nil))
	assert.Equal(t,
		"No file was selected (Code: FILE004). Choose an exported workbook to import",
		FormatUserError(Reject(StageShape, KindMalformedInput, ReasonNoFile, "").Err()))
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.False(t, IsUserFacing(errors.New("boom")))
	assert.True(t, IsUserFacing(Reject(StageAccess, KindAccessDenied, ReasonNotAdmin, "").Err()))
	assert.Equal(t, "SEC002", FieldRejectionMessage().Code)
}

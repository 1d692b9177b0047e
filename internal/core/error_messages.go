package core

// error_messages.go maps pipeline errors to user-facing messages with codes
// for support reference. Admins quote the code; support looks it up here.
//
// # Access (AUTH001-AUTH099)
//
//	AUTH001 - Admin capability required
//	AUTH002 - Request did not come from the admin console
//
// # File (FILE001-FILE099)
//
//	FILE001 - File exceeds the size limit
//	FILE002 - Extension is not .xlsx or .xls
//	FILE003 - Declared content type is not a spreadsheet
//	FILE004 - No file attached
//	FILE005 - Empty file
//	FILE006 - Filename contains disallowed characters
//	FILE007 - Content is not a spreadsheet container
//	FILE008 - Spreadsheet could not be parsed
//	FILE009 - Workbook has no sheets
//
// # Security (SEC001-SEC099)
//
//	SEC001 - Malicious content found in the file
//	SEC002 - Malicious content found in a cell (row-level)
//
// # Limits (LIM001-LIM099)
//
//	LIM001 - Too many rows across recognised sheets
//	LIM002 - Too many imports running at once
//
// # Rate limiting (RATE001-RATE099)
//
//	RATE001 - Per-admin import quota used up
//	RATE002 - Too many HTTP requests from this address
//
// # Database (DB001-DB099)
//
// Storage failures roll the import back. Their message never carries the
// underlying error text.
//
//	DB001 - Import rolled back
//	DB004 - Database unreachable
//	DB005 - Database connection interrupted
//	DB006 - Database timeout
//	DB007 - Database deadlock
//
// # Default (ERR000)
//
// Fallback when nothing matches; the technical error is in the server log.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// reasonMessages keys messages off the stable Reason strings carried by
// *PipelineError.
var reasonMessages = map[string]UserMessage{
	ReasonNotAdmin: {
		Message: "Only administrators can import or export data",
		Action:  "Sign in with an administrator account",
		Code:    "AUTH001",
	},
	ReasonOriginNotAllowed: {
		Message: "Imports must be started from the admin console",
		Action:  "Open the admin console and upload the file there",
		Code:    "AUTH002",
	},
	ReasonFileTooLarge: {
		Message: "File exceeds the maximum size of 20 MiB",
		Action:  "Split the data across smaller workbooks",
		Code:    "FILE001",
	},
	ReasonBadExtension: {
		Message: "Only .xlsx and .xls files can be imported",
		Action:  "Save the workbook in Excel format and try again",
		Code:    "FILE002",
	},
	ReasonBadMIME: {
		Message: "The file was not sent as a spreadsheet",
		Action:  "Upload the workbook directly rather than through another tool",
		Code:    "FILE003",
	},
	ReasonNoFile: {
		Message: "No file was selected",
		Action:  "Choose an exported workbook to import",
		Code:    "FILE004",
	},
	ReasonEmptyFile: {
		Message: "The uploaded file is empty",
		Action:  "Check the file and upload it again",
		Code:    "FILE005",
	},
	ReasonBadFilename: {
		Message: "The file name contains characters that are not allowed",
		Action:  "Rename the file using letters, digits, spaces, dashes or underscores",
		Code:    "FILE006",
	},
	ReasonSignatureMismatch: {
		Message: "The file content is not a spreadsheet",
		Action:  "Re-export the workbook from Excel and try again",
		Code:    "FILE007",
	},
	ReasonCorruptFile: {
		Message: "The spreadsheet could not be read",
		Action:  "Open and re-save the file in Excel, then try again",
		Code:    "FILE008",
	},
	ReasonNoSheets: {
		Message: "The workbook has no sheets",
		Action:  "Import a workbook produced by the export function",
		Code:    "FILE009",
	},
	ReasonMaliciousContent: {
		Message: "The file contains content that looks malicious",
		Action:  "Remove scripts, queries or commands from the workbook",
		Code:    "SEC001",
	},
	ReasonRowLimit: {
		Message: "The workbook has more rows than a single import allows",
		Action:  "Split the data across several workbooks",
		Code:    "LIM001",
	},
	ReasonTooManyImports: {
		Message: "Other imports are still running",
		Action:  "Wait a moment and try again",
		Code:    "LIM002",
	},
	ReasonQuotaExceeded: {
		Message: "You have reached the import limit for now",
		Action:  "Wait for the quota window to reset before importing again",
		Code:    "RATE001",
	},
}

// fieldRejectionMessage describes SEC002 row issues in import summaries.
var fieldRejectionMessage = UserMessage{
	Message: "A cell contains content that looks malicious; the row was skipped",
	Action:  "Review the listed rows and remove the offending text",
	Code:    "SEC002",
}

// storageMessage is used for every storage failure not matched below.
var storageMessage = UserMessage{
	Message: "The import could not be saved and was rolled back",
	Action:  "No data was changed. Please try again later",
	Code:    "DB001",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to messages.
// The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "No data was changed. Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "No data was changed. Try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "No data was changed. Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "too many requests",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-facing message. Pipeline errors
// map by reason; storage failures map to a generic database message chosen
// by the pattern table; anything else falls back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		if pe.Kind == KindStorageFailure {
			if msg, ok := matchPattern(err); ok && strings.HasPrefix(msg.Code, "DB") {
				return msg
			}
			return storageMessage
		}
		if msg, ok := reasonMessages[pe.Reason]; ok {
			return msg
		}
	}
	if errors.Is(err, ErrTooManyImports) {
		return reasonMessages[ReasonTooManyImports]
	}

	if msg, ok := matchPattern(err); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// FieldRejectionMessage is the message shown next to rows skipped by the
// cell content scan.
func FieldRejectionMessage() UserMessage {
	return fieldRejectionMessage
}

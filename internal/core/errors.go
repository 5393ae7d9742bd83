package core

// errors.go defines the hard-failure taxonomy of the import pipeline and the
// mapping from technical errors to user-friendly messages.
//
// Row-level problems never appear here: they are data, carried in
// ValidationOutcome.Errors and RowOutcome.Status. Only file-level and
// transport-level problems become Go errors. Each user message carries a code
// users can quote to support staff:
//
//	FILE001 - empty file or no decodable rows
//	FILE002 - file exceeds the size limit
//	SUB001  - every row failed validation; nothing to submit
//	SUB002  - another import is already submitting
//	SUB003  - the attempt was superseded by a newer file selection
//	SRV001  - creation service unreachable or timed out
//	SRV002  - creation service returned a malformed or failed response
//	ERR000  - fallback for anything unmatched
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so more specific patterns come first.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValidRows is returned when every decoded row failed validation, so
// there is nothing to submit. Terminal for the attempt; requires a new file.
var ErrNoValidRows = errors.New("no valid rows to submit")

// ErrSubmissionInFlight is returned when a new attempt is started while a
// previous attempt is still submitting.
var ErrSubmissionInFlight = errors.New("another import is still submitting")

// ErrAttemptSuperseded is returned when a submission finishes for an attempt
// that was replaced by a newer file selection; its result is discarded.
var ErrAttemptSuperseded = errors.New("import attempt superseded")

// ParseError is a file-level failure: the file was unreadable or produced
// zero decodable rows. Reported once, never per row.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse import file: " + e.Reason
}

// TransportError means the batch call itself failed: the service was
// unreachable, returned a non-success status, or sent a malformed response.
// The entire batch is unsubmitted and no row outcomes exist.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("creation service: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"no rows found", UserMessage{
		Message: "The file has no importable rows",
		Action:  "Make sure the file has a header line followed by at least one data row",
		Code:    "FILE001",
	}},
	{"parse import file", UserMessage{
		Message: "The file could not be read",
		Action:  "Ensure the file is comma-separated UTF-8 text and try again",
		Code:    "FILE001",
	}},
	{"file too large", UserMessage{
		Message: "The file exceeds the size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE002",
	}},
	{"no valid rows", UserMessage{
		Message: "Every row failed validation, so nothing was submitted",
		Action:  "Fix the reported row errors and upload the file again",
		Code:    "SUB001",
	}},
	{"still submitting", UserMessage{
		Message: "A previous import is still being submitted",
		Action:  "Wait for it to finish before starting a new import",
		Code:    "SUB002",
	}},
	{"superseded", UserMessage{
		Message: "This import was replaced by a newer file selection",
		Action:  "Use the most recent upload instead",
		Code:    "SUB003",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "The link service did not respond in time",
		Action:  "No links were created; submit the batch again",
		Code:    "SRV001",
	}},
	{"connection refused", UserMessage{
		Message: "The link service is unreachable",
		Action:  "No links were created; try again in a few moments",
		Code:    "SRV001",
	}},
	{"creation service", UserMessage{
		Message: "The link service rejected the batch",
		Action:  "No links were created; submit the batch again",
		Code:    "SRV002",
	}},
}

// defaultUserMessage is the fallback when no pattern matches.
var defaultUserMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultUserMessage
}

// Package core implements the bulk short-link import pipeline.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport layer. It can be used by web handlers, CLI
// tools, or tests without modification.
//
// # Pipeline
//
// Data flows one way through five stages:
//
//	raw bytes -> ParseLine -> DecodeFile -> Validator -> Submitter -> Reconcile
//
//  1. [ParseLine] splits one line into fields, honoring double-quote escaping.
//  2. [DecodeFile] skips the header, drops blank and short lines, and maps
//     ordered fields onto [CandidateRecord] values with stable row numbers.
//  3. [Validator.Validate] evaluates the full business-rule set per record,
//     accumulating errors (blocking) and warnings (non-blocking).
//  4. [Submitter.Submit] shapes the valid subset into [SubmissionItem] values
//     and makes exactly one batch call to the Creation Service.
//  5. [Reconcile] merges the per-row results back onto row identity, and
//     [ExportOutcomes] renders the result report as CSV.
//
// # Attempts
//
// [Service] coordinates the pipeline per upload attempt and enforces the
// attempt state machine:
//
//	Idle -> Parsed -> Validated -> (Blocked | Submitting) -> Reconciled
//
// Attempts are serialized: a new attempt cannot start while a submission is
// in flight, and an attempt superseded by a newer file selection has its
// submission result discarded rather than merged.
//
// # Error Handling
//
// Row-level problems are data, not errors: they live in
// [ValidationOutcome.Errors] and [RowOutcome.Status]. Only file-level and
// transport-level problems are returned as Go errors ([*ParseError],
// [ErrNoValidRows], [*TransportError]). Technical errors are mapped to
// user-friendly messages with support codes via [MapError].
package core

package core

import "context"

// RawRow is one parsed line of the source file: the ordered field values plus
// the 1-based position of the line in the file, header excluded. Row numbers
// are stable references back to the source and may be non-contiguous when
// blank lines were dropped.
type RawRow struct {
	RowNumber int
	Fields    []string
}

// CandidateRecord holds the decoded fields of one row, all carried as text
// pending validation. Never mutated after decoding.
type CandidateRecord struct {
	RowNumber       int
	Title           string
	Description     string
	PreferredCode   string
	TargetURL       string
	Secret          string
	MaxUses         string
	ActivateAt      string
	DeactivateAt    string
	InactiveMessage string
}

// HasSchedule reports whether at least one scheduling field is supplied.
func (r CandidateRecord) HasSchedule() bool {
	return r.ActivateAt != "" || r.DeactivateAt != ""
}

// ValidationOutcome is the result of validating one record.
// Invariant: Valid == (len(Errors) == 0). Warnings never affect validity.
type ValidationOutcome struct {
	RowNumber int             `json:"rowNumber"`
	Valid     bool            `json:"valid"`
	Errors    []string        `json:"errors,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Record    CandidateRecord `json:"-"`
}

// SubmissionItem is the subset of a valid record reshaped for the Creation
// Service: numeric and timestamp fields coerced to native types, optional
// fields omitted rather than empty-stringed. RowNumber is the correlation key.
type SubmissionItem struct {
	RowNumber       int    `json:"rowNumber"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	PreferredCode   string `json:"preferredCode,omitempty"`
	TargetURL       string `json:"targetUrl"`
	Secret          string `json:"secret,omitempty"`
	MaxUses         int    `json:"maxUses,omitempty"`
	ActivateAt      int64  `json:"activateAt,omitempty"`   // epoch milliseconds
	DeactivateAt    int64  `json:"deactivateAt,omitempty"` // epoch milliseconds
	InactiveMessage string `json:"inactiveMessage,omitempty"`
}

// OutcomeStatus is the per-row result reported by the Creation Service.
type OutcomeStatus string

const (
	// StatusSuccess means the link was created and AssignedCode is populated.
	StatusSuccess OutcomeStatus = "success"
	// StatusFailed means a server-side rejection, e.g. a constraint violation.
	StatusFailed OutcomeStatus = "failed"
	// StatusSkipped means the record was valid but its preferred code was
	// already taken at submission time. Code uniqueness is a race against
	// concurrent submissions and is resolved authoritatively by the service,
	// which is why it is never checked client-side.
	StatusSkipped OutcomeStatus = "skipped"
)

// Known reports whether s is one of the three defined statuses.
func (s OutcomeStatus) Known() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// RowOutcome is the final per-row result after submission, or a locally
// synthesized entry for a row that never reached submission.
type RowOutcome struct {
	RowNumber    int           `json:"rowNumber"`
	Status       OutcomeStatus `json:"status"`
	AssignedCode string        `json:"assignedCode,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// RowResult is one per-row entry of the Creation Service response.
type RowResult struct {
	RowNumber    int           `json:"rowNumber"`
	Status       OutcomeStatus `json:"status"`
	AssignedCode string        `json:"shortCode"`
	Message      string        `json:"message"`
}

// Summary holds aggregate outcome counts for one batch.
type Summary struct {
	Success int `json:"successCount"`
	Failed  int `json:"failedCount"`
	Skipped int `json:"skippedCount"`
}

// BatchResult is the Creation Service's response to one batch submission.
type BatchResult struct {
	Results []RowResult
	Summary Summary
}

// CreationService is the external collaborator that owns link persistence.
// CreateBatch must be called at most once per upload attempt; it blocks until
// the service responds or errors. A returned error means the entire batch is
// unsubmitted.
type CreationService interface {
	CreateBatch(ctx context.Context, workspaceID string, items []SubmissionItem) (*BatchResult, error)
}

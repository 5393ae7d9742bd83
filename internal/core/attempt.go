package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// attemptRetention is how long finished attempts stay retrievable for result
// export before they are dropped.
var attemptRetention = 30 * time.Minute

// Phase is the current stage of an upload attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseParsed     Phase = "parsed"
	PhaseValidated  Phase = "validated"
	PhaseBlocked    Phase = "blocked"    // zero valid rows; terminal for the attempt
	PhaseSubmitting Phase = "submitting"
	PhaseReconciled Phase = "reconciled"
)

// Attempt owns all state for one file's trip through the pipeline. Each
// attempt has its own collections, so no state is shared across attempts.
type Attempt struct {
	ID          string
	WorkspaceID string
	FileName    string
	Phase       Phase

	Records     []CandidateRecord
	Outcomes    []ValidationOutcome
	RowOutcomes []RowOutcome
	Summary     Summary

	StartedAt time.Time
	Duration  time.Duration

	superseded bool
}

// ValidCount returns the number of rows that passed validation.
func (a *Attempt) ValidCount() int {
	n := 0
	for _, out := range a.Outcomes {
		if out.Valid {
			n++
		}
	}
	return n
}

// Service coordinates upload attempts against the Creation Service.
//
// Attempts are serialized: at most one may be submitting at a time, and
// beginning a new attempt supersedes any attempt that has not started
// submitting. A superseded attempt's submission result is discarded.
type Service struct {
	creation  CreationService
	validator *Validator

	mu       sync.Mutex
	current  *Attempt
	attempts map[string]*Attempt
}

// NewService creates a Service submitting batches to creation.
func NewService(creation CreationService) *Service {
	return &Service{
		creation:  creation,
		validator: NewValidator(),
		attempts:  make(map[string]*Attempt),
	}
}

// Begin parses, decodes, and validates one file, producing a new current
// attempt in the Validated phase.
//
// A file with zero decodable rows fails with a *ParseError. Beginning a new
// attempt while another is submitting fails with ErrSubmissionInFlight;
// otherwise any previous attempt is superseded and its eventual submission
// result will be discarded.
func (s *Service) Begin(fileName string, data []byte) (*Attempt, error) {
	records := DecodeFile(data)
	if len(records) == 0 {
		return nil, &ParseError{Reason: "no rows found"}
	}

	attempt := &Attempt{
		ID:        uuid.New().String(),
		FileName:  fileName,
		Phase:     PhaseParsed,
		Records:   records,
		StartedAt: time.Now(),
	}
	attempt.Outcomes = s.validator.ValidateAll(records)
	attempt.Phase = PhaseValidated

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Phase == PhaseSubmitting {
		return nil, ErrSubmissionInFlight
	}
	if s.current != nil {
		s.current.superseded = true
	}
	s.current = attempt
	s.attempts[attempt.ID] = attempt

	return attempt, nil
}

// Submit submits the attempt's valid rows as one batch and reconciles the
// response into row outcomes.
//
// With zero valid rows the attempt moves to Blocked and ErrNoValidRows is
// returned without contacting the service. On transport failure the attempt
// returns to Validated so the batch can be re-submitted as a unit; no row
// outcomes are produced. A superseded attempt is refused up front, and a
// response that arrives after the attempt was superseded is discarded.
func (s *Service) Submit(ctx context.Context, attempt *Attempt, workspaceID string) error {
	s.mu.Lock()
	if attempt.superseded {
		s.mu.Unlock()
		return ErrAttemptSuperseded
	}
	if attempt.Phase != PhaseValidated {
		s.mu.Unlock()
		return &ParseError{Reason: "attempt is not ready to submit (phase " + string(attempt.Phase) + ")"}
	}
	if attempt.ValidCount() == 0 {
		attempt.Phase = PhaseBlocked
		s.mu.Unlock()
		return ErrNoValidRows
	}
	attempt.Phase = PhaseSubmitting
	attempt.WorkspaceID = workspaceID
	s.mu.Unlock()

	submitter := &Submitter{Creation: s.creation}
	result, err := submitter.Submit(ctx, workspaceID, attempt.Outcomes)

	s.mu.Lock()
	defer s.mu.Unlock()

	if attempt.superseded {
		return ErrAttemptSuperseded
	}
	if err != nil {
		attempt.Phase = PhaseValidated
		return err
	}

	merged, err := Reconcile(result.Results, attempt.Outcomes)
	if err != nil {
		attempt.Phase = PhaseValidated
		return err
	}

	attempt.RowOutcomes = Report(merged, attempt.Outcomes)
	attempt.Summary = Summarize(merged)
	attempt.Phase = PhaseReconciled
	attempt.Duration = time.Since(attempt.StartedAt)

	s.cleanup(attempt.ID, attemptRetention)
	return nil
}

// Run drives one file through the whole pipeline: Begin then Submit.
// The returned attempt is non-nil whenever Begin succeeded, even if the
// submission itself failed, so callers can show per-row validation results.
func (s *Service) Run(ctx context.Context, workspaceID, fileName string, data []byte) (*Attempt, error) {
	attempt, err := s.Begin(fileName, data)
	if err != nil {
		return nil, err
	}
	return attempt, s.Submit(ctx, attempt, workspaceID)
}

// Get returns a retained attempt by ID.
func (s *Service) Get(attemptID string) (*Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	return a, ok
}

// cleanup drops the attempt from the retention map after the given delay.
// Must be called with s.mu held.
func (s *Service) cleanup(attemptID string, after time.Duration) {
	go func() {
		time.Sleep(after)
		s.mu.Lock()
		delete(s.attempts, attemptID)
		if s.current != nil && s.current.ID == attemptID {
			s.current = nil
		}
		s.mu.Unlock()
	}()
}

package core

import (
	"context"
	"errors"
	"testing"
)

const attemptTestFile = testHeader + "\n" +
	"Good one,,,https://example.com/1\n" +
	",missing title,,https://example.com/2\n" +
	"Good two,,,https://example.com/3\n"

func serviceResultFor(items []SubmissionItem) *BatchResult {
	res := &BatchResult{}
	for _, item := range items {
		res.Results = append(res.Results, RowResult{
			RowNumber:    item.RowNumber,
			Status:       StatusSuccess,
			AssignedCode: "code-" + item.Title,
		})
		res.Summary.Success++
	}
	return res
}

// scriptedCreation answers each batch with a generated success result, or
// blocks/fails when configured.
type scriptedCreation struct {
	calls   int
	err     error
	release chan struct{} // when non-nil, CreateBatch blocks until closed
}

func (c *scriptedCreation) CreateBatch(_ context.Context, _ string, items []SubmissionItem) (*BatchResult, error) {
	c.calls++
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return serviceResultFor(items), nil
}

func TestService_RunHappyPath(t *testing.T) {
	creation := &scriptedCreation{}
	svc := NewService(creation)

	attempt, err := svc.Run(context.Background(), "ws-1", "links.csv", []byte(attemptTestFile))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if attempt.Phase != PhaseReconciled {
		t.Errorf("Phase = %q, want %q", attempt.Phase, PhaseReconciled)
	}
	if creation.calls != 1 {
		t.Errorf("service called %d times, want 1", creation.calls)
	}
	if attempt.Summary != (Summary{Success: 2}) {
		t.Errorf("Summary = %+v, want 2 successes", attempt.Summary)
	}
	// The report covers all three input rows, including the invalid one.
	if len(attempt.RowOutcomes) != 3 {
		t.Errorf("report has %d rows, want 3", len(attempt.RowOutcomes))
	}
}

func TestService_BeginNoRows(t *testing.T) {
	svc := NewService(&scriptedCreation{})

	_, err := svc.Begin("empty.csv", []byte(testHeader+"\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if msg := MapError(err); msg.Code != "FILE001" {
		t.Errorf("MapError code = %q, want FILE001", msg.Code)
	}
}

func TestService_AllRowsInvalidBlocks(t *testing.T) {
	creation := &scriptedCreation{}
	svc := NewService(creation)

	file := testHeader + "\n,no title,,not-a-url\n"
	attempt, err := svc.Begin("bad.csv", []byte(file))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	err = svc.Submit(context.Background(), attempt, "ws-1")
	if !errors.Is(err, ErrNoValidRows) {
		t.Fatalf("err = %v, want ErrNoValidRows", err)
	}
	if attempt.Phase != PhaseBlocked {
		t.Errorf("Phase = %q, want %q", attempt.Phase, PhaseBlocked)
	}
	if creation.calls != 0 {
		t.Errorf("service called %d times, want 0", creation.calls)
	}
}

func TestService_TransportFailureKeepsAttemptRetryable(t *testing.T) {
	creation := &scriptedCreation{err: &TransportError{Op: "create batch", Err: errors.New("connection refused")}}
	svc := NewService(creation)

	attempt, err := svc.Begin("links.csv", []byte(attemptTestFile))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	err = svc.Submit(context.Background(), attempt, "ws-1")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if attempt.Phase != PhaseValidated {
		t.Errorf("Phase = %q, want %q for re-submission", attempt.Phase, PhaseValidated)
	}
	if len(attempt.RowOutcomes) != 0 {
		t.Errorf("RowOutcomes = %v, want none after transport failure", attempt.RowOutcomes)
	}

	// Re-invoking the submitter retries the whole batch as a unit.
	creation.err = nil
	if err := svc.Submit(context.Background(), attempt, "ws-1"); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if attempt.Phase != PhaseReconciled || creation.calls != 2 {
		t.Errorf("after retry: phase %q, %d calls; want reconciled after 2 calls", attempt.Phase, creation.calls)
	}
}

func TestService_BeginRefusedWhileSubmitting(t *testing.T) {
	creation := &scriptedCreation{release: make(chan struct{})}
	svc := NewService(creation)

	attempt, err := svc.Begin("links.csv", []byte(attemptTestFile))
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Submit(context.Background(), attempt, "ws-1") }()

	// Wait until the submission is actually in flight.
	for {
		svc.mu.Lock()
		inFlight := attempt.Phase == PhaseSubmitting
		svc.mu.Unlock()
		if inFlight {
			break
		}
	}

	if _, err := svc.Begin("other.csv", []byte(attemptTestFile)); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("Begin() during submission = %v, want ErrSubmissionInFlight", err)
	}

	close(creation.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestService_SupersededAttemptDiscarded(t *testing.T) {
	creation := &scriptedCreation{}
	svc := NewService(creation)

	first, err := svc.Begin("first.csv", []byte(attemptTestFile))
	if err != nil {
		t.Fatalf("Begin(first) error = %v", err)
	}
	second, err := svc.Begin("second.csv", []byte(attemptTestFile))
	if err != nil {
		t.Fatalf("Begin(second) error = %v", err)
	}

	// Submitting the stale attempt is refused and nothing is merged.
	if err := svc.Submit(context.Background(), first, "ws-1"); !errors.Is(err, ErrAttemptSuperseded) {
		t.Fatalf("Submit(first) = %v, want ErrAttemptSuperseded", err)
	}
	if creation.calls != 0 {
		t.Errorf("service called %d times for a superseded attempt, want 0", creation.calls)
	}
	if len(first.RowOutcomes) != 0 {
		t.Errorf("superseded attempt gained outcomes: %v", first.RowOutcomes)
	}

	// The current attempt still works.
	if err := svc.Submit(context.Background(), second, "ws-1"); err != nil {
		t.Fatalf("Submit(second) error = %v", err)
	}
	if second.Phase != PhaseReconciled {
		t.Errorf("second attempt phase = %q, want %q", second.Phase, PhaseReconciled)
	}
}

func TestService_GetRetainsFinishedAttempts(t *testing.T) {
	svc := NewService(&scriptedCreation{})

	attempt, err := svc.Run(context.Background(), "ws-1", "links.csv", []byte(attemptTestFile))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, ok := svc.Get(attempt.ID)
	if !ok || got.ID != attempt.ID {
		t.Errorf("Get(%q) = %v, %v; want the finished attempt", attempt.ID, got, ok)
	}
	if _, ok := svc.Get("nope"); ok {
		t.Error("Get(unknown) = true, want false")
	}
}

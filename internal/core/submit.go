package core

import (
	"context"
	"strconv"
)

// DefaultInactiveMessage is applied when a record schedules activation but
// supplies no message of its own.
const DefaultInactiveMessage = "This link is not active right now."

// Submitter shapes the valid subset of an attempt into a batch submission and
// issues exactly one call to the Creation Service.
type Submitter struct {
	Creation CreationService
}

// Submit filters outcomes to the valid subset and submits it as one batch.
//
// If no outcome is valid it fails fast with ErrNoValidRows and never contacts
// the service. If the call itself fails, the whole batch is unsubmitted: the
// error is returned as-is (a *TransportError from the client) and no row
// outcomes exist.
func (s *Submitter) Submit(ctx context.Context, workspaceID string, outcomes []ValidationOutcome) (*BatchResult, error) {
	items := BuildSubmission(outcomes)
	if len(items) == 0 {
		return nil, ErrNoValidRows
	}

	return s.Creation.CreateBatch(ctx, workspaceID, items)
}

// BuildSubmission converts each valid outcome into a SubmissionItem,
// preserving row numbers as the correlation key. Validation has already
// vetted the fields, so coercion failures cannot occur here; records are
// built in input order.
func BuildSubmission(outcomes []ValidationOutcome) []SubmissionItem {
	var items []SubmissionItem
	for _, out := range outcomes {
		if !out.Valid {
			continue
		}
		items = append(items, buildItem(out.Record))
	}
	return items
}

func buildItem(rec CandidateRecord) SubmissionItem {
	item := SubmissionItem{
		RowNumber:       rec.RowNumber,
		Title:           rec.Title,
		Description:     rec.Description,
		PreferredCode:   rec.PreferredCode,
		TargetURL:       rec.TargetURL,
		Secret:          rec.Secret,
		InactiveMessage: rec.InactiveMessage,
	}

	if rec.MaxUses != "" {
		item.MaxUses, _ = strconv.Atoi(rec.MaxUses)
	}

	if rec.HasSchedule() {
		if t, err := parseSchedule(rec.ActivateAt); err == nil {
			item.ActivateAt = t.UnixMilli()
		}
		if t, err := parseSchedule(rec.DeactivateAt); err == nil {
			item.DeactivateAt = t.UnixMilli()
		}
		if item.InactiveMessage == "" {
			item.InactiveMessage = DefaultInactiveMessage
		}
	}

	return item
}

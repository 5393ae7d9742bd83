package core

// validate.go evaluates the business-rule set for one candidate record.
//
// Every applicable rule runs independently with no short-circuiting, so a
// record can carry several errors and warnings at once. Validation is
// stateless and order-independent across records: cross-row concerns like
// short-code uniqueness are owned by the Creation Service, which reports a
// collision as a skipped outcome rather than a validation error.

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"
	"unicode"
)

// Field length limits.
const (
	MaxTitleLen           = 255
	MaxDescriptionLen     = 1024
	MaxInactiveMessageLen = 512
)

// shortCodeRegex is the short-identifier format: alphanumeric plus dot,
// underscore, and hyphen, 5 to 20 characters.
var shortCodeRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{5,20}$`)

// scheduleLayouts are the accepted ISO local date-time formats, in the
// zone of the machine running the import.
var scheduleLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// Validator evaluates the rule set against candidate records.
type Validator struct {
	// Now supplies validation time for the "strictly in the future" schedule
	// checks. Defaults to time.Now.
	Now func() time.Time
}

// NewValidator returns a Validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{Now: time.Now}
}

// ValidateAll validates each record independently, one outcome per record.
func (v *Validator) ValidateAll(records []CandidateRecord) []ValidationOutcome {
	outcomes := make([]ValidationOutcome, len(records))
	for i, rec := range records {
		outcomes[i] = v.Validate(rec)
	}
	return outcomes
}

// Validate runs the full rule set against one record.
func (v *Validator) Validate(rec CandidateRecord) ValidationOutcome {
	out := ValidationOutcome{RowNumber: rec.RowNumber, Record: rec}
	fail := func(format string, args ...any) {
		out.Errors = append(out.Errors, fmt.Sprintf(format, args...))
	}

	if rec.Title == "" {
		fail("title is required")
	} else if len(rec.Title) > MaxTitleLen {
		fail("title must be at most %d characters", MaxTitleLen)
	}

	if len(rec.Description) > MaxDescriptionLen {
		fail("description must be at most %d characters", MaxDescriptionLen)
	}

	if rec.PreferredCode == "" {
		out.Warnings = append(out.Warnings, "no preferred code supplied; a short code will be auto-generated")
	} else if !shortCodeRegex.MatchString(rec.PreferredCode) {
		fail("preferred code must be 5-20 characters of letters, digits, '.', '_' or '-'")
	}

	if rec.TargetURL == "" {
		fail("target URL is required")
	} else if !isHTTPURL(rec.TargetURL) {
		fail("target URL must be an absolute http or https URL")
	}

	if rec.Secret != "" && !isStrongSecret(rec.Secret) {
		fail("secret must be at least 8 characters with an upper-case letter, a lower-case letter, a digit, and a symbol")
	}

	if rec.MaxUses != "" {
		if n, err := strconv.Atoi(rec.MaxUses); err != nil || n <= 0 {
			fail("max uses must be a positive integer")
		}
	}

	if rec.HasSchedule() {
		v.validateSchedule(rec, &out)
	}

	if len(rec.InactiveMessage) > MaxInactiveMessageLen {
		fail("inactive message must be at most %d characters", MaxInactiveMessageLen)
	}

	out.Valid = len(out.Errors) == 0
	return out
}

// validateSchedule runs the four scheduling checks. Each check is
// independent, so one bad pair of timestamps can stack several errors.
func (v *Validator) validateSchedule(rec CandidateRecord, out *ValidationOutcome) {
	now := v.Now()
	activate, activateErr := parseSchedule(rec.ActivateAt)
	deactivate, deactivateErr := parseSchedule(rec.DeactivateAt)

	if rec.ActivateAt != "" && activateErr != nil {
		out.Errors = append(out.Errors, "activate-at is not a valid date-time (use YYYY-MM-DDTHH:MM)")
	}
	if rec.DeactivateAt != "" && deactivateErr != nil {
		out.Errors = append(out.Errors, "deactivate-at is not a valid date-time (use YYYY-MM-DDTHH:MM)")
	}

	// Paired-or-neither.
	if rec.ActivateAt == "" {
		out.Errors = append(out.Errors, "activate-at is required when deactivate-at is set")
	}
	if rec.DeactivateAt == "" {
		out.Errors = append(out.Errors, "deactivate-at is required when activate-at is set")
	}

	if rec.ActivateAt != "" && activateErr == nil && !activate.After(now) {
		out.Errors = append(out.Errors, "activate-at must be in the future")
	}
	if rec.DeactivateAt != "" && deactivateErr == nil && !deactivate.After(now) {
		out.Errors = append(out.Errors, "deactivate-at must be in the future")
	}

	if activateErr == nil && deactivateErr == nil &&
		rec.ActivateAt != "" && rec.DeactivateAt != "" &&
		!activate.Before(deactivate) {
		out.Errors = append(out.Errors, "activate-at must be before deactivate-at")
	}
}

// parseSchedule parses an ISO local date-time in the machine's zone.
func parseSchedule(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range scheduleLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// isHTTPURL reports whether s parses as an absolute http(s) URL with a host.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isStrongSecret enforces the password-strength policy: at least 8 characters
// containing upper, lower, digit, and symbol.
func isStrongSecret(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

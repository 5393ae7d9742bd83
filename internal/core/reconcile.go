package core

// reconcile.go merges the Creation Service's per-row results back onto the
// original input rows and renders the result report.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
)

// Reconcile merges service results onto row identity.
//
// Every valid (submitted) row must appear exactly once in the response; a
// response with an unknown, duplicated, or missing row number is malformed
// and reported as a *TransportError, since the true fate of the batch is
// then unknowable. Outcomes are returned ordered by row number.
func Reconcile(results []RowResult, outcomes []ValidationOutcome) ([]RowOutcome, error) {
	submitted := make(map[int]bool)
	for _, out := range outcomes {
		if out.Valid {
			submitted[out.RowNumber] = true
		}
	}

	seen := make(map[int]bool, len(results))
	merged := make([]RowOutcome, 0, len(results))
	for _, res := range results {
		if !submitted[res.RowNumber] {
			return nil, &TransportError{Op: "reconcile response", Err: fmt.Errorf("result for unknown row %d", res.RowNumber)}
		}
		if seen[res.RowNumber] {
			return nil, &TransportError{Op: "reconcile response", Err: fmt.Errorf("duplicate result for row %d", res.RowNumber)}
		}
		if !res.Status.Known() {
			return nil, &TransportError{Op: "reconcile response", Err: fmt.Errorf("unknown status %q for row %d", res.Status, res.RowNumber)}
		}
		seen[res.RowNumber] = true

		merged = append(merged, RowOutcome{
			RowNumber:    res.RowNumber,
			Status:       res.Status,
			AssignedCode: res.AssignedCode,
			Message:      res.Message,
		})
	}

	if len(seen) != len(submitted) {
		return nil, &TransportError{Op: "reconcile response", Err: fmt.Errorf("response covers %d of %d submitted rows", len(seen), len(submitted))}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].RowNumber < merged[j].RowNumber })
	return merged, nil
}

// Summarize tallies outcome statuses. Counts are always derived by tallying,
// never tracked incrementally.
func Summarize(rows []RowOutcome) Summary {
	var s Summary
	for _, row := range rows {
		switch row.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Report extends reconciled outcomes with locally synthesized entries for the
// rows validation excluded from submission, so the exported report covers
// every input row exactly once. Synthesized entries carry the row's first
// validation error as the message. Ordered by row number.
func Report(merged []RowOutcome, outcomes []ValidationOutcome) []RowOutcome {
	report := make([]RowOutcome, len(merged))
	copy(report, merged)

	for _, out := range outcomes {
		if out.Valid {
			continue
		}
		msg := "failed validation"
		if len(out.Errors) > 0 {
			msg = out.Errors[0]
		}
		report = append(report, RowOutcome{
			RowNumber: out.RowNumber,
			Status:    StatusFailed,
			Message:   msg,
		})
	}

	sort.Slice(report, func(i, j int) bool { return report[i].RowNumber < report[j].RowNumber })
	return report
}

// ExportOutcomes renders the result report as delimited text with the header
// Row,Status,ShortCode,Message, one line per outcome in input order.
func ExportOutcomes(rows []RowOutcome) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"Row", "Status", "ShortCode", "Message"})
	for _, row := range rows {
		_ = w.Write([]string{
			strconv.Itoa(row.RowNumber),
			string(row.Status),
			row.AssignedCode,
			row.Message,
		})
	}
	w.Flush()

	return buf.Bytes()
}

package core

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Recognized columns in fixed order. Line 1 of the file is the header and is
// never decoded; it documents this order for the person filling the template.
var Columns = []string{
	"Title", "Description", "PreferredCode", "TargetURL", "Secret",
	"MaxUses", "ActivateAt", "DeactivateAt", "InactiveMessage",
}

// minFields is the smallest field count a line must parse into to be decoded:
// the two required fields plus the two leading optional ones. Shorter lines
// are dropped, not reported.
const minFields = 4

// DecodeFile converts the full file content into candidate records.
//
// The header line is skipped. Blank lines are dropped but still consume row
// numbers, so RowNumber is always the 1-based position of the line in the
// original file with the header excluded. A file with fewer than two
// non-blank lines yields zero records; the caller decides how to report that.
func DecodeFile(data []byte) []CandidateRecord {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = sanitizeUTF8(data)

	var records []CandidateRecord
	for _, row := range rawRows(string(data)) {
		rec, ok := decodeRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// rawRows splits content into lines and keeps the decodable data rows.
func rawRows(content string) []RawRow {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var rows []RawRow
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, RawRow{RowNumber: i, Fields: ParseLine(line)})
	}
	return rows
}

// decodeRow maps ordered field values onto a record. Fields are trimmed of
// surrounding whitespace; missing trailing fields default to empty.
func decodeRow(row RawRow) (CandidateRecord, bool) {
	if len(row.Fields) < minFields {
		return CandidateRecord{}, false
	}

	at := func(i int) string {
		if i < len(row.Fields) {
			return strings.TrimSpace(row.Fields[i])
		}
		return ""
	}

	return CandidateRecord{
		RowNumber:       row.RowNumber,
		Title:           at(0),
		Description:     at(1),
		PreferredCode:   at(2),
		TargetURL:       at(3),
		Secret:          at(4),
		MaxUses:         at(5),
		ActivateAt:      at(6),
		DeactivateAt:    at(7),
		InactiveMessage: at(8),
	}, true
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode replacement
// character so user-supplied files saved in legacy encodings cannot poison
// downstream processing.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

package core

// parser.go splits single lines of delimited text into field values.
//
// encoding/csv is deliberately not used here: it consumes whole streams and
// treats a newline inside an open quote as field content, while the import
// format is strictly line-scoped and tolerant of malformed trailing quotes.
// The scanner below is a pure function from one line to its field list.

import "strings"

// ParseLine splits one line into ordered field values.
//
// A field may be wrapped in double quotes; two consecutive double quotes
// inside a quoted span decode to one literal quote. The comma is only a
// separator outside an open quote. End of line flushes the accumulator as the
// final field regardless of quote state, so an unterminated quote is
// tolerated rather than rejected.
func ParseLine(line string) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				// Escaped quote inside a quoted span.
				field.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}

	fields = append(fields, field.String())
	return fields
}

// QuoteField encodes a single value for the delimited export format, wrapping
// it in double quotes when it contains a comma, quote, or surrounding
// whitespace. QuoteField and ParseLine round-trip exactly.
func QuoteField(s string) string {
	if !strings.ContainsAny(s, `",`) && s == strings.TrimSpace(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

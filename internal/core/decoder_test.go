package core

import (
	"strings"
	"testing"
)

const testHeader = "Title,Description,PreferredCode,TargetURL,Secret,MaxUses,ActivateAt,DeactivateAt,InactiveMessage"

func TestDecodeFile_HeaderOnly(t *testing.T) {
	records := DecodeFile([]byte(testHeader + "\n"))
	if len(records) != 0 {
		t.Fatalf("DecodeFile(header only) = %d records, want 0", len(records))
	}
}

func TestDecodeFile_EmptyFile(t *testing.T) {
	if got := DecodeFile(nil); len(got) != 0 {
		t.Fatalf("DecodeFile(nil) = %d records, want 0", len(got))
	}
	if got := DecodeFile([]byte("\n\n  \n")); len(got) != 0 {
		t.Fatalf("DecodeFile(blank lines) = %d records, want 0", len(got))
	}
}

func TestDecodeFile_RowNumbering(t *testing.T) {
	// Blank lines are dropped but still consume row numbers, so references
	// back to the source file stay stable.
	file := testHeader + "\n" +
		"First,,,https://example.com/1\n" +
		"\n" +
		"   \n" +
		"Second,,,https://example.com/2\n"

	records := DecodeFile([]byte(file))
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].RowNumber != 1 || records[1].RowNumber != 4 {
		t.Errorf("row numbers = %d, %d, want 1, 4", records[0].RowNumber, records[1].RowNumber)
	}
}

func TestDecodeFile_ShortLinesDropped(t *testing.T) {
	file := testHeader + "\n" +
		"only,three,fields\n" +
		"Kept,,,https://example.com\n"

	records := DecodeFile([]byte(file))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Title != "Kept" {
		t.Errorf("Title = %q, want %q", records[0].Title, "Kept")
	}
	if records[0].RowNumber != 2 {
		t.Errorf("RowNumber = %d, want 2", records[0].RowNumber)
	}
}

func TestDecodeFile_FieldMapping(t *testing.T) {
	file := testHeader + "\n" +
		`  Promo  ,"A, quoted description",promo5,https://example.com,Aa1!aaaa,10,2099-01-02T03:04,2099-02-03T04:05,See you later` + "\n"

	records := DecodeFile([]byte(file))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	want := CandidateRecord{
		RowNumber:       1,
		Title:           "Promo",
		Description:     "A, quoted description",
		PreferredCode:   "promo5",
		TargetURL:       "https://example.com",
		Secret:          "Aa1!aaaa",
		MaxUses:         "10",
		ActivateAt:      "2099-01-02T03:04",
		DeactivateAt:    "2099-02-03T04:05",
		InactiveMessage: "See you later",
	}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
}

func TestDecodeFile_MissingTrailingFieldsDefaultEmpty(t *testing.T) {
	file := testHeader + "\nMinimal,,,https://example.com\n"

	records := DecodeFile([]byte(file))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	for name, got := range map[string]string{
		"Secret":          rec.Secret,
		"MaxUses":         rec.MaxUses,
		"ActivateAt":      rec.ActivateAt,
		"DeactivateAt":    rec.DeactivateAt,
		"InactiveMessage": rec.InactiveMessage,
	} {
		if got != "" {
			t.Errorf("%s = %q, want empty", name, got)
		}
	}
}

func TestDecodeFile_CRLFAndBOM(t *testing.T) {
	file := "\xEF\xBB\xBF" + testHeader + "\r\n" +
		"Windows,,,https://example.com\r\n"

	records := DecodeFile([]byte(file))
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Title != "Windows" {
		t.Errorf("Title = %q, want %q", records[0].Title, "Windows")
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid passthrough", "hello 世界", "hello 世界"},
		{"invalid byte replaced", "caf\xe9", "caf�"},
		{"mixed valid and invalid", "a\x80b", "a�b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(sanitizeUTF8([]byte(tt.input)))
			if got != tt.want {
				t.Errorf("sanitizeUTF8(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeFile_HeaderNeverDecoded(t *testing.T) {
	// Even a header that looks like data is skipped.
	file := "Title,Description,PreferredCode,TargetURL\nRow1,,,https://example.com\n"
	records := DecodeFile([]byte(file))
	if len(records) != 1 || records[0].Title != "Row1" {
		t.Fatalf("records = %+v, want exactly the one data row", records)
	}
	if strings.Contains(records[0].Title, "Title") {
		t.Error("header line was decoded as a record")
	}
}

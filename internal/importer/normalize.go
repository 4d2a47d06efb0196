package importer

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// normalizeName canonicalizes sheet names and header cells for matching:
// lower-cased, punctuation treated as word breaks, whitespace collapsed.
// "Compliance & Reporting" and "compliance reporting" land on the same key.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			// Punctuation separates words: "E-mail" matches "e mail".
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// sanitizeCell strips control and non-printable characters. Spreadsheets
// exported through several tools accumulate zero-width and control junk
// that breaks header matching.
func sanitizeCell(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

// parseMoney strips currency symbols, thousands separators and everything
// else that is not part of a number. Returns nil for empty or non-numeric
// content.
func parseMoney(s string) *float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// dateLayouts covers the formats partner spreadsheets actually use.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"01/02/2006 15:04",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

// excelEpoch is day zero of the 1900 date system, offset for Excel's
// fictitious 1900-02-29.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseDate turns a cell into a timestamp. Tries known layouts first, then
// Excel serial numbers. Unparsable content yields nil, never an error: the
// source data is hand-edited and a bad date must not sink the row.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}

	// Excel serial date: days since the 1900 epoch, fraction is time of day.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 59 && serial < 300000 {
		t := excelEpoch.Add(time.Duration(serial * 24 * float64(time.Hour)))
		return &t
	}

	return nil
}

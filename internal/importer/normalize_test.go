package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Partner ID":        "partner id",
		"  E-mail  ":        "e mail",
		"Deliverable_No.":   "deliverable no",
		"BUDGET (EUR)":      "budget eur",
		"Contact   Person":  "contact person",
		"":                  "",
		"Financial Summary": "financial summary",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeName(in), "input %q", in)
	}
}

func TestParseMoney(t *testing.T) {
	v := parseMoney("€1,250,000.50")
	require.NotNil(t, v)
	require.InDelta(t, 1250000.50, *v, 0.001)

	v = parseMoney("  $ 99 ")
	require.NotNil(t, v)
	require.InDelta(t, 99, *v, 0.001)

	v = parseMoney("-450.25")
	require.NotNil(t, v)
	require.InDelta(t, -450.25, *v, 0.001)

	require.Nil(t, parseMoney(""))
	require.Nil(t, parseMoney("-"))
	require.Nil(t, parseMoney("n/a"))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2026-03-31", "31/03/2026", "31.03.2026", "31 Mar 2026"} {
		got := parseDate(in)
		require.NotNil(t, got, "input %q", in)
		require.Equal(t, want, *got, "input %q", in)
	}

	require.Nil(t, parseDate(""))
	require.Nil(t, parseDate("TBD"))
}

func TestParseDateExcelSerial(t *testing.T) {
	// Serial 45747 is 2025-03-31 against the 1899-12-30 epoch.
	got := parseDate("45747")
	require.NotNil(t, got)
	require.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), *got)

	// Small and huge numbers are not dates.
	require.Nil(t, parseDate("42"))
	require.Nil(t, parseDate("4000000"))
}

func TestDetectHeaderRejectsBanner(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	rows := [][]string{
		{string(long)},
		{},
		{"Partner ID", "Name", "Type"},
		{"P-01", "Acme", "SME"},
	}
	idx, header, ok := detectHeader(rows)
	require.True(t, ok)
	require.Equal(t, 2, idx)
	require.Equal(t, []string{"Partner ID", "Name", "Type"}, header)
}

func TestDetectHeaderGivesUpOnNoise(t *testing.T) {
	_, _, ok := detectHeader([][]string{{}, {""}, {"only"}})
	require.False(t, ok)
}

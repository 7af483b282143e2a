package models

import "testing"

func TestFormatDocumentNumber(t *testing.T) {
	cases := []struct {
		series   string
		period   string
		n        int
		expected string
	}{
		{SeriesPayoutBatch, "202401", 1, "PB-202401-0001"},
		{SeriesPayoutBatch, "202401", 42, "PB-202401-0042"},
		{SeriesSettlement, "202312", 999, "ST-202312-0999"},
		{SeriesSettlement, "202312", 1000, "ST-202312-1000"},
		{SeriesReconciliation, "202506", 12345, "RC-202506-12345"},
	}
	for _, tc := range cases {
		got := FormatDocumentNumber(tc.series, tc.period, tc.n)
		if got != tc.expected {
			t.Fatalf("FormatDocumentNumber(%s, %s, %d) expected %s, got %s",
				tc.series, tc.period, tc.n, tc.expected, got)
		}
	}
}

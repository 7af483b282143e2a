package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateCommissionAmount_Percentage(t *testing.T) {
	cases := []struct {
		base     string
		rate     string
		expected string
	}{
		{"500", "10", "50"},
		{"500", "0", "0"},
		{"0", "10", "0"},
		{"123.45", "12.5", "15.43125"},
		{"1000", "100", "1000"},
	}
	for _, tc := range cases {
		base := decimal.RequireFromString(tc.base)
		rate := decimal.RequireFromString(tc.rate)
		got := CalculateCommissionAmount(base, rate, CalculationTypePercentage)
		if !got.Equal(decimal.RequireFromString(tc.expected)) {
			t.Fatalf("CalculateCommissionAmount(%s, %s%%) expected %s, got %s",
				tc.base, tc.rate, tc.expected, got)
		}
	}
}

func TestCalculateCommissionAmount_FixedIgnoresBase(t *testing.T) {
	base := decimal.RequireFromString("99999")
	rate := decimal.RequireFromString("25.5")
	got := CalculateCommissionAmount(base, rate, CalculationTypeFixed)
	if !got.Equal(rate) {
		t.Fatalf("fixed commission expected %s, got %s", rate, got)
	}
}

func TestEnumValidity(t *testing.T) {
	if !CommissionStatusApproved.Valid() {
		t.Fatal("Approved should be a valid commission status")
	}
	if CommissionStatus("Unknown").Valid() {
		t.Fatal("Unknown should not be a valid commission status")
	}
	if !PayoutBatchStatusProcessing.Valid() {
		t.Fatal("Processing should be a valid batch status")
	}
	if PaymentMethod("Cheque").Valid() {
		t.Fatal("Cheque should not be a valid payment method")
	}
	if !SettlementEntityTypeDriver.Valid() {
		t.Fatal("Driver should be a valid settlement entity type")
	}
	if !ReconciliationIssueTypeAmountMismatch.Valid() {
		t.Fatal("AmountMismatch should be a valid issue type")
	}
}

package models

import (
	"testing"
	"time"
)

func TestPayoutStatisticsCacheKey(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := payoutStatisticsCacheKey(nil, nil); got != "payout-statistics" {
		t.Fatalf("unbounded key: %s", got)
	}

	fromOnly := payoutStatisticsCacheKey(&at, nil)
	toOnly := payoutStatisticsCacheKey(nil, &at)
	if fromOnly == toOnly {
		t.Fatalf("from-only and to-only windows share key %s", fromOnly)
	}
	if fromOnly != "payout-statistics:from=2024-03-01T00:00:00Z" {
		t.Fatalf("from-only key: %s", fromOnly)
	}
	if toOnly != "payout-statistics:to=2024-03-01T00:00:00Z" {
		t.Fatalf("to-only key: %s", toOnly)
	}

	both := payoutStatisticsCacheKey(&at, &at)
	if both != "payout-statistics:from=2024-03-01T00:00:00Z:to=2024-03-01T00:00:00Z" {
		t.Fatalf("bounded key: %s", both)
	}
}

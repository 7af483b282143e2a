package models

import (
	"context"
	"fmt"

	"github.com/swifteats/finance_backend/config"
)

// ConsistencyIssue is one violated ledger invariant found by a sweep.
type ConsistencyIssue struct {
	Check   string `json:"check"`
	Entity  string `json:"entity"`
	Id      int    `json:"id"`
	Details string `json:"details"`
}

type batchTotalsRow struct {
	Id          int    `json:"id"`
	BatchNumber string `json:"batch_number"`
	TotalAmount string `json:"total_amount"`
	ItemsSum    string `json:"items_sum"`
	ItemsCount  int    `json:"items_count"`
	ActualItems int    `json:"actual_items"`
	TotalsDrift bool   `json:"totals_drift"`
	CountsDrift bool   `json:"counts_drift"`
}

// RunConsistencyChecks sweeps the ledger for invariant violations: batch
// totals that drifted from their items, paid commissions without a batch
// link, and items pointing at commissions outside their batch. Read-only;
// findings go to the caller, fixing is manual.
func RunConsistencyChecks(ctx context.Context) ([]*ConsistencyIssue, error) {
	db := config.GetDB()
	var issues []*ConsistencyIssue

	var batchRows []*batchTotalsRow
	err := db.WithContext(ctx).Raw(`
		SELECT b.id,
		       b.batch_number,
		       b.total_amount,
		       COALESCE(SUM(i.amount), 0) AS items_sum,
		       b.items_count,
		       COUNT(i.id) AS actual_items,
		       b.total_amount <> COALESCE(SUM(i.amount), 0) AS totals_drift,
		       b.items_count <> COUNT(i.id) AS counts_drift
		FROM payout_batches b
		LEFT JOIN payout_items i ON i.payout_batch_id = b.id
		WHERE b.status <> 'Cancelled'
		GROUP BY b.id, b.batch_number, b.total_amount, b.items_count
		HAVING totals_drift OR counts_drift`).Scan(&batchRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range batchRows {
		if row.TotalsDrift {
			issues = append(issues, &ConsistencyIssue{
				Check:   "batch_total_matches_items",
				Entity:  "payout_batch",
				Id:      row.Id,
				Details: fmt.Sprintf("%s total %s but items sum to %s", row.BatchNumber, row.TotalAmount, row.ItemsSum),
			})
		}
		if row.CountsDrift {
			issues = append(issues, &ConsistencyIssue{
				Check:   "batch_count_matches_items",
				Entity:  "payout_batch",
				Id:      row.Id,
				Details: fmt.Sprintf("%s records %d items but has %d", row.BatchNumber, row.ItemsCount, row.ActualItems),
			})
		}
	}

	var orphanPaid []int
	err = db.WithContext(ctx).Raw(`
		SELECT id FROM commissions
		WHERE status = 'Paid' AND payout_batch_id IS NULL`).Scan(&orphanPaid).Error
	if err != nil {
		return nil, err
	}
	for _, id := range orphanPaid {
		issues = append(issues, &ConsistencyIssue{
			Check:   "paid_commission_has_batch",
			Entity:  "commission",
			Id:      id,
			Details: "commission is Paid but linked to no payout batch",
		})
	}

	var straying []int
	err = db.WithContext(ctx).Raw(`
		SELECT i.id
		FROM payout_items i
		JOIN commissions c ON c.id = i.commission_id
		WHERE c.payout_batch_id IS NOT NULL AND c.payout_batch_id <> i.payout_batch_id`).Scan(&straying).Error
	if err != nil {
		return nil, err
	}
	for _, id := range straying {
		issues = append(issues, &ConsistencyIssue{
			Check:   "item_commission_same_batch",
			Entity:  "payout_item",
			Id:      id,
			Details: "item's source commission is claimed by a different batch",
		})
	}

	var abandoned []int
	err = db.WithContext(ctx).Raw(`
		SELECT i.id
		FROM payout_items i
		JOIN commissions c ON c.id = i.commission_id
		WHERE i.status IN ('Pending', 'Processed')
		  AND (c.status = 'Cancelled' OR c.payout_batch_id IS NULL)`).Scan(&abandoned).Error
	if err != nil {
		return nil, err
	}
	for _, id := range abandoned {
		issues = append(issues, &ConsistencyIssue{
			Check:   "live_item_has_live_commission",
			Entity:  "payout_item",
			Id:      id,
			Details: "item is still live but its source commission was cancelled or unlinked",
		})
	}

	return issues, nil
}

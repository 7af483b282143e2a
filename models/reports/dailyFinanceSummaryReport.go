package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
)

type DailyFinanceSummary struct {
	Day                 time.Time       `json:"day"`
	OrdersCount         int64           `json:"orders_count"`
	GrossRevenue        decimal.Decimal `json:"gross_revenue"`
	Refunds             decimal.Decimal `json:"refunds"`
	PlatformFees        decimal.Decimal `json:"platform_fees"`
	CommissionsAccrued  decimal.Decimal `json:"commissions_accrued"`
	CommissionsPaid     decimal.Decimal `json:"commissions_paid"`
	PayoutsCompleted    decimal.Decimal `json:"payouts_completed"`
}

// GetDailyFinanceSummary rolls the ledger up per day over [fromDate, toDate].
// Days with no activity at all are absent from the result.
func GetDailyFinanceSummary(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*DailyFinanceSummary, error) {

	db := config.GetDB()

	var results []*DailyFinanceSummary

	query := db.WithContext(ctx).Raw(`
			SELECT
				d.day,
				COALESCE(o.orders_count, 0) AS orders_count,
				COALESCE(o.gross_revenue, 0) AS gross_revenue,
				COALESCE(o.refunds, 0) AS refunds,
				COALESCE(o.platform_fees, 0) AS platform_fees,
				COALESCE(c.commissions_accrued, 0) AS commissions_accrued,
				COALESCE(c.commissions_paid, 0) AS commissions_paid,
				COALESCE(p.payouts_completed, 0) AS payouts_completed
			FROM (
				SELECT DISTINCT DATE(delivered_at) AS day
				FROM orders
				WHERE status = 'Delivered' AND delivered_at >= ? AND delivered_at <= ?
				UNION
				SELECT DISTINCT DATE(created_at)
				FROM commissions
				WHERE created_at >= ? AND created_at <= ?
				UNION
				SELECT DISTINCT DATE(processed_at)
				FROM payout_batches
				WHERE status = 'Completed' AND processed_at >= ? AND processed_at <= ?
			) AS d
			LEFT JOIN (
				SELECT DATE(delivered_at) AS day,
					COUNT(id) AS orders_count,
					SUM(total_amount) AS gross_revenue,
					SUM(refund_total) AS refunds,
					SUM(platform_fee) AS platform_fees
				FROM orders
				WHERE status = 'Delivered' AND delivered_at >= ? AND delivered_at <= ?
				GROUP BY DATE(delivered_at)
			) AS o ON o.day = d.day
			LEFT JOIN (
				SELECT DATE(created_at) AS day,
					SUM(amount) AS commissions_accrued,
					SUM(CASE WHEN status = 'Paid' THEN amount ELSE 0 END) AS commissions_paid
				FROM commissions
				WHERE created_at >= ? AND created_at <= ?
				GROUP BY DATE(created_at)
			) AS c ON c.day = d.day
			LEFT JOIN (
				SELECT DATE(processed_at) AS day,
					SUM(total_amount) AS payouts_completed
				FROM payout_batches
				WHERE status = 'Completed' AND processed_at >= ? AND processed_at <= ?
				GROUP BY DATE(processed_at)
			) AS p ON p.day = d.day
			ORDER BY d.day;
		`,
		fromDate, toDate, fromDate, toDate, fromDate, toDate,
		fromDate, toDate, fromDate, toDate, fromDate, toDate,
	)

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

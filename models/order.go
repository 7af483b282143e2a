package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/utils"
	"gorm.io/gorm"
)

// Order is the read side of the order subsystem. The finance pipeline
// consumes delivered orders (price, delivery fee, platform share) and never
// mutates them; order creation/fulfilment lives upstream.
type Order struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OrderNumber string          `gorm:"size:50;index" json:"order_number"`
	VendorId    int             `gorm:"index;not null" json:"vendor_id"`
	DriverId    int             `gorm:"index" json:"driver_id"`
	CustomerId  int             `gorm:"index" json:"customer_id"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delivery_fee"`
	Tip         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tip"`
	PlatformFee decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"platform_fee"`
	RefundTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"refund_total"`
	Status      OrderStatus     `gorm:"type:enum('Pending','Preparing','OnTheWay','Delivered','Cancelled');default:'Pending'" json:"status"`
	DeliveredAt *time.Time      `json:"delivered_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	return utils.FetchModel[Order](ctx, id)
}

// deliveredOrdersQuery scopes orders to Delivered status for the entity and
// period. Used by the settlement calculator inside its transaction.
func deliveredOrdersQuery(tx *gorm.DB, ctx context.Context, entityType SettlementEntityType, entityId int, periodStart time.Time, periodEnd time.Time) *gorm.DB {
	dbCtx := tx.WithContext(ctx).Model(&Order{}).
		Where("status = ?", OrderStatusDelivered).
		Where("delivered_at BETWEEN ? AND ?", periodStart, periodEnd)
	switch entityType {
	case SettlementEntityTypeVendor:
		dbCtx = dbCtx.Where("vendor_id = ?", entityId)
	case SettlementEntityTypeDriver:
		dbCtx = dbCtx.Where("driver_id = ?", entityId)
	case SettlementEntityTypeMarketer:
		// marketers earn from commissions, not orders; matches nothing here
		dbCtx = dbCtx.Where("1 = 0")
	}
	return dbCtx
}

type OrderTotals struct {
	OrdersCount  int64           `json:"orders_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalRefunds decimal.Decimal `json:"total_refunds"`
}

// GetOrderTotals aggregates delivered orders in a window. Feeds the
// reconciliation engine's system totals.
func GetOrderTotals(ctx context.Context, from time.Time, to time.Time) (*OrderTotals, error) {
	db := config.GetDB()
	var totals OrderTotals
	err := db.WithContext(ctx).Raw(`
		SELECT
			COUNT(id) AS orders_count,
			COALESCE(SUM(total_amount), 0) AS total_revenue,
			COALESCE(SUM(refund_total), 0) AS total_refunds
		FROM orders
		WHERE status = 'Delivered' AND delivered_at BETWEEN ? AND ?
	`, from, to).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

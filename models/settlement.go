package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/utils"
)

// SettlementBreakdown itemizes the revenue side of a settlement.
type SettlementBreakdown struct {
	DeliveryFees decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delivery_fees"`
	Tips         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tips"`
	Bonuses      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bonuses"`
	Penalties    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"penalties"`
	Adjustments  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"adjustments"`
}

// Settlement is one entity's net payable for a period. NetAmount is fixed at
// creation from the orders it covers and never recomputed.
type Settlement struct {
	ID               int                  `gorm:"primary_key" json:"id"`
	SettlementNumber string               `gorm:"size:20;uniqueIndex;not null" json:"settlement_number"`
	EntityId         int                  `gorm:"index;not null" json:"entity_id" binding:"required"`
	EntityType       SettlementEntityType `gorm:"type:enum('Vendor','Driver','Marketer');not null" json:"entity_type" binding:"required"`
	PeriodStart      time.Time            `gorm:"not null" json:"period_start"`
	PeriodEnd        time.Time            `gorm:"not null" json:"period_end"`
	TotalRevenue     decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	TotalCommission  decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_commission"`
	TotalDeductions  decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_deductions"`
	NetAmount        decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"net_amount"`
	OrdersCount      int                  `gorm:"default:0" json:"orders_count"`
	OrderIdsJSON     string               `gorm:"column:order_ids;type:text" json:"-"`
	OrderIds         []int                `gorm:"-" json:"order_ids"`
	Breakdown        SettlementBreakdown  `gorm:"embedded;embeddedPrefix:breakdown_" json:"breakdown"`
	Status           SettlementStatus     `gorm:"type:enum('Draft','PendingApproval','Approved','Paid','Cancelled');default:'Draft';index" json:"status"`
	PayoutBatchId    *int                 `gorm:"index" json:"payout_batch_id"`
	ApprovedBy       int                  `json:"approved_by"`
	ApprovedAt       *time.Time           `json:"approved_at"`
	PaidAt           *time.Time           `json:"paid_at"`
	Notes            string               `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSettlement struct {
	EntityId    int                  `json:"entity_id" validate:"required"`
	EntityType  SettlementEntityType `json:"entity_type" validate:"required,oneof=Vendor Driver Marketer"`
	PeriodStart time.Time            `json:"period_start" validate:"required"`
	PeriodEnd   time.Time            `json:"period_end" validate:"required"`
	// OrderIds, when supplied, restricts the settlement to those orders
	// (still filtered to Delivered status).
	OrderIds []int `json:"order_ids"`
	Notes    string `json:"notes"`
}

func (s *Settlement) decodeOrderIds() {
	if s.OrderIdsJSON == "" {
		s.OrderIds = nil
		return
	}
	_ = json.Unmarshal([]byte(s.OrderIdsJSON), &s.OrderIds)
}

func CreateSettlement(ctx context.Context, input *NewSettlement) (*Settlement, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if input.PeriodEnd.Before(input.PeriodStart) {
		return nil, utils.NewBadRequest("period end is before period start")
	}
	if input.EntityType == SettlementEntityTypeMarketer {
		return nil, utils.NewBadRequest("marketer settlements are not supported yet")
	}

	db := config.GetDB()
	tx := db.Begin()

	// order lookup, number generation and the insert share one transaction:
	// a settlement can never reference an inconsistent order snapshot.
	dbCtx := deliveredOrdersQuery(tx, ctx, input.EntityType, input.EntityId, input.PeriodStart, input.PeriodEnd)
	if len(input.OrderIds) > 0 {
		dbCtx = dbCtx.Where("id IN ?", utils.UniqueSlice(input.OrderIds))
	}
	var orders []*Order
	if err := dbCtx.Find(&orders).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(orders) == 0 {
		tx.Rollback()
		return nil, utils.NewBadRequest("no completed orders in period")
	}

	totalRevenue := decimal.Zero
	totalCommission := decimal.Zero
	totalDeductions := decimal.Zero
	breakdown := SettlementBreakdown{
		DeliveryFees: decimal.Zero,
		Tips:         decimal.Zero,
		Bonuses:      decimal.Zero,
		Penalties:    decimal.Zero,
		Adjustments:  decimal.Zero,
	}
	orderIds := make([]int, 0, len(orders))

	switch input.EntityType {
	case SettlementEntityTypeVendor:
		for _, order := range orders {
			totalRevenue = totalRevenue.Add(order.TotalAmount)
			totalCommission = totalCommission.Add(order.PlatformFee)
			orderIds = append(orderIds, order.ID)
		}
	case SettlementEntityTypeDriver:
		for _, order := range orders {
			totalRevenue = totalRevenue.Add(order.DeliveryFee).Add(order.Tip)
			breakdown.DeliveryFees = breakdown.DeliveryFees.Add(order.DeliveryFee)
			breakdown.Tips = breakdown.Tips.Add(order.Tip)
			orderIds = append(orderIds, order.ID)
		}
		// Driver-side commission is not supported yet: the formula is not
		// defined upstream. Kept at zero on purpose; do not treat zero as a
		// final answer.
	}

	netAmount := totalRevenue.Sub(totalCommission).Sub(totalDeductions)

	settlementNumber, err := NextDocumentNumber(tx, ctx, SeriesSettlement, time.Now())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	orderIdsJSON, err := json.Marshal(orderIds)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	settlement := Settlement{
		SettlementNumber: settlementNumber,
		EntityId:         input.EntityId,
		EntityType:       input.EntityType,
		PeriodStart:      input.PeriodStart,
		PeriodEnd:        input.PeriodEnd,
		TotalRevenue:     totalRevenue,
		TotalCommission:  totalCommission,
		TotalDeductions:  totalDeductions,
		NetAmount:        netAmount,
		OrdersCount:      len(orders),
		OrderIdsJSON:     string(orderIdsJSON),
		Breakdown:        breakdown,
		Status:           SettlementStatusDraft,
		Notes:            input.Notes,
	}

	if err := tx.WithContext(ctx).Create(&settlement).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	description := fmt.Sprintf("Settlement %s created for %s %d, net %s.", settlementNumber, settlement.EntityType, settlement.EntityId, netAmount)
	if err := createHistory(tx.WithContext(ctx), "*CREATE*", settlement.ID, "settlements", nil, settlement, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	settlement.OrderIds = orderIds
	return &settlement, nil
}

func ApproveSettlement(ctx context.Context, id int, note string) (*Settlement, error) {

	settlement, err := utils.FetchModel[Settlement](ctx, id)
	if err != nil {
		return nil, err
	}
	if settlement.Status != SettlementStatusDraft && settlement.Status != SettlementStatusPendingApproval {
		return nil, utils.NewInvalidState("settlement", id, string(settlement.Status), "Draft or PendingApproval")
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()
	notes := settlement.Notes
	if note != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += note
	}

	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&Settlement{}).
		Where("id = ? AND status IN ?", id, []SettlementStatus{SettlementStatusDraft, SettlementStatusPendingApproval}).
		Updates(map[string]interface{}{
			"Status":     SettlementStatusApproved,
			"ApprovedBy": userId,
			"ApprovedAt": now,
			"Notes":      notes,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("settlement", id)
	}

	before := settlement.Status
	settlement.Status = SettlementStatusApproved
	settlement.ApprovedBy = userId
	settlement.ApprovedAt = &now
	settlement.Notes = notes
	if err := createHistory(tx.WithContext(ctx), "*APPROVE*", id, "settlements", before, settlement.Status, "settlement approved"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	settlement.decodeOrderIds()
	return settlement, nil
}

// LinkSettlementToPayoutBatch marks an approved settlement as paid through a
// batch. This is the only path from a settlement to actual money movement.
func LinkSettlementToPayoutBatch(ctx context.Context, id int, batchId int) (*Settlement, error) {

	settlement, err := utils.FetchModel[Settlement](ctx, id)
	if err != nil {
		return nil, err
	}
	if settlement.Status != SettlementStatusApproved {
		return nil, utils.NewInvalidState("settlement", id, string(settlement.Status), string(SettlementStatusApproved))
	}
	if err := utils.ValidateResourceId[PayoutBatch](ctx, batchId); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&Settlement{}).
		Where("id = ? AND status = ?", id, SettlementStatusApproved).
		Updates(map[string]interface{}{
			"Status":        SettlementStatusPaid,
			"PayoutBatchId": batchId,
			"PaidAt":        now,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("settlement", id)
	}

	before := settlement.Status
	settlement.Status = SettlementStatusPaid
	settlement.PayoutBatchId = &batchId
	settlement.PaidAt = &now
	if err := createHistory(tx.WithContext(ctx), "*PAY*", id, "settlements", before, settlement.Status, fmt.Sprintf("settlement paid via batch %d", batchId)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	settlement.decodeOrderIds()
	return settlement, nil
}

func CancelSettlement(ctx context.Context, id int, reason string) (*Settlement, error) {

	settlement, err := utils.FetchModel[Settlement](ctx, id)
	if err != nil {
		return nil, err
	}
	if settlement.Status == SettlementStatusPaid {
		return nil, utils.NewInvalidState("settlement", id, string(settlement.Status), "unpaid")
	}

	notes := settlement.Notes
	if reason != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += "Cancelled: " + reason
	}

	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&Settlement{}).
		Where("id = ? AND status <> ?", id, SettlementStatusPaid).
		Updates(map[string]interface{}{
			"Status": SettlementStatusCancelled,
			"Notes":  notes,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("settlement", id)
	}

	before := settlement.Status
	settlement.Status = SettlementStatusCancelled
	settlement.Notes = notes
	if err := createHistory(tx.WithContext(ctx), "*CANCEL*", id, "settlements", before, settlement.Status, "settlement cancelled"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	settlement.decodeOrderIds()
	return settlement, nil
}

func GetSettlement(ctx context.Context, id int) (*Settlement, error) {
	settlement, err := utils.FetchModel[Settlement](ctx, id)
	if err != nil {
		return nil, err
	}
	settlement.decodeOrderIds()
	return settlement, nil
}

func GetSettlements(ctx context.Context, status *SettlementStatus, entityType *SettlementEntityType, entityId *int, limit int) ([]*Settlement, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if entityType != nil && *entityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", *entityType)
	}
	if entityId != nil && *entityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", *entityId)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*Settlement
	if err := dbCtx.Order("id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	for _, s := range results {
		s.decodeOrderIds()
	}
	return results, nil
}

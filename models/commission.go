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

// Commission is a single amount owed to one beneficiary, derived from one
// triggering entity. Amount is snapshotted at creation and never recomputed.
type Commission struct {
	ID              int                  `gorm:"primary_key" json:"id"`
	SourceId        int                  `gorm:"index;not null" json:"source_id" binding:"required"`
	SourceType      CommissionSourceType `gorm:"type:enum('Order','Vendor','Driver','Marketer');not null" json:"source_type" binding:"required"`
	BeneficiaryId   int                  `gorm:"index;not null" json:"beneficiary_id" binding:"required"`
	BeneficiaryType BeneficiaryType      `gorm:"type:enum('Driver','Vendor','Marketer','Company');not null;index:idx_commission_beneficiary" json:"beneficiary_type" binding:"required"`
	BaseAmount      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"base_amount"`
	Rate            decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"rate"`
	CalculationType CalculationType      `gorm:"type:enum('Percentage','Fixed');not null" json:"calculation_type"`
	Amount          decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Status          CommissionStatus     `gorm:"type:enum('Pending','Approved','Paid','Cancelled');default:'Pending';index" json:"status"`
	PayoutBatchId   *int                 `gorm:"index" json:"payout_batch_id"`
	Metadata        string               `gorm:"type:text" json:"metadata"`
	Notes           string               `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCommission struct {
	SourceId        int                    `json:"source_id" validate:"required"`
	SourceType      CommissionSourceType   `json:"source_type" validate:"required,oneof=Order Vendor Driver Marketer"`
	BeneficiaryId   int                    `json:"beneficiary_id" validate:"required"`
	BeneficiaryType BeneficiaryType        `json:"beneficiary_type" validate:"required,oneof=Driver Vendor Marketer Company"`
	BaseAmount      decimal.Decimal        `json:"base_amount"`
	Rate            decimal.Decimal        `json:"rate"`
	CalculationType CalculationType        `json:"calculation_type" validate:"required,oneof=Percentage Fixed"`
	Metadata        map[string]interface{} `json:"metadata"`
	Notes           string                 `json:"notes"`
}

// CalculateCommissionAmount snapshots the owed amount:
// percentage rates apply to the base, fixed rates are the amount itself.
func CalculateCommissionAmount(baseAmount decimal.Decimal, rate decimal.Decimal, calculationType CalculationType) decimal.Decimal {
	if calculationType == CalculationTypePercentage {
		return baseAmount.Mul(rate).Div(decimal.NewFromInt(100))
	}
	return rate
}

func CreateCommission(ctx context.Context, input *NewCommission) (*Commission, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if input.CalculationType == CalculationTypePercentage && input.Rate.IsNegative() {
		return nil, utils.NewBadRequest("rate must not be negative")
	}

	metadata := ""
	if input.Metadata != nil {
		b, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = string(b)
	}

	commission := Commission{
		SourceId:        input.SourceId,
		SourceType:      input.SourceType,
		BeneficiaryId:   input.BeneficiaryId,
		BeneficiaryType: input.BeneficiaryType,
		BaseAmount:      input.BaseAmount,
		Rate:            input.Rate,
		CalculationType: input.CalculationType,
		Amount:          CalculateCommissionAmount(input.BaseAmount, input.Rate, input.CalculationType),
		Status:          CommissionStatusPending,
		Metadata:        metadata,
		Notes:           input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&commission).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	description := fmt.Sprintf("Commission of %s created for %s %d.", commission.Amount, commission.BeneficiaryType, commission.BeneficiaryId)
	if err := createHistory(tx.WithContext(ctx), "*CREATE*", commission.ID, "commissions", nil, commission, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &commission, nil
}

func ApproveCommission(ctx context.Context, id int) (*Commission, error) {

	commission, err := utils.FetchModel[Commission](ctx, id)
	if err != nil {
		return nil, err
	}
	if commission.Status != CommissionStatusPending {
		return nil, utils.NewInvalidState("commission", id, string(commission.Status), string(CommissionStatusPending))
	}

	db := config.GetDB()
	tx := db.Begin()

	// conditional update: a concurrent approve/cancel loses the race cleanly
	result := tx.WithContext(ctx).Model(&Commission{}).
		Where("id = ? AND status = ?", id, CommissionStatusPending).
		Update("status", CommissionStatusApproved)
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("commission", id)
	}

	before := commission.Status
	commission.Status = CommissionStatusApproved
	if err := createHistory(tx.WithContext(ctx), "*APPROVE*", id, "commissions", before, commission.Status, "commission approved"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return commission, nil
}

func CancelCommission(ctx context.Context, id int, reason string) (*Commission, error) {

	commission, err := utils.FetchModel[Commission](ctx, id)
	if err != nil {
		return nil, err
	}
	if commission.Status == CommissionStatusPaid {
		return nil, utils.NewInvalidState("commission", id, string(commission.Status), "unpaid")
	}

	notes := commission.Notes
	if reason != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += "Cancelled: " + reason
	}

	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&Commission{}).
		Where("id = ? AND status <> ?", id, CommissionStatusPaid).
		Updates(map[string]interface{}{
			"Status":        CommissionStatusCancelled,
			"PayoutBatchId": nil,
			"Notes":         notes,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("commission", id)
	}

	// A claimed commission leaves a Pending item behind in its batch; fail
	// it so batch completion cannot pay out against a cancelled commission.
	if err := tx.WithContext(ctx).Model(&PayoutItem{}).
		Where("commission_id = ? AND status = ?", id, PayoutItemStatusPending).
		Update("status", PayoutItemStatusFailed).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	before := commission.Status
	commission.Status = CommissionStatusCancelled
	commission.PayoutBatchId = nil
	commission.Notes = notes
	if err := createHistory(tx.WithContext(ctx), "*CANCEL*", id, "commissions", before, commission.Status, "commission cancelled"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return commission, nil
}

func GetCommission(ctx context.Context, id int) (*Commission, error) {
	return utils.FetchModel[Commission](ctx, id)
}

func GetCommissions(ctx context.Context, status *CommissionStatus, beneficiaryType *BeneficiaryType, beneficiaryId *int, limit int) ([]*Commission, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if beneficiaryType != nil && *beneficiaryType != "" {
		dbCtx = dbCtx.Where("beneficiary_type = ?", *beneficiaryType)
	}
	if beneficiaryId != nil && *beneficiaryId > 0 {
		dbCtx = dbCtx.Where("beneficiary_id = ?", *beneficiaryId)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*Commission
	if err := dbCtx.Order("id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type CommissionStatusTotal struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type CommissionStatistics struct {
	Pending  CommissionStatusTotal `json:"pending"`
	Approved CommissionStatusTotal `json:"approved"`
	Paid     CommissionStatusTotal `json:"paid"`
}

// GetCommissionStatistics aggregates a beneficiary's commissions by status.
// Always computed from the ledger, never cached.
func GetCommissionStatistics(ctx context.Context, beneficiaryType BeneficiaryType, beneficiaryId int) (*CommissionStatistics, error) {

	if !beneficiaryType.Valid() {
		return nil, utils.NewBadRequest("invalid beneficiary type")
	}

	type statusRow struct {
		Status CommissionStatus
		Count  int64
		Total  decimal.Decimal
	}
	var rows []statusRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(`
		SELECT status, COUNT(id) AS count, COALESCE(SUM(amount), 0) AS total
		FROM commissions
		WHERE beneficiary_type = ? AND beneficiary_id = ?
		GROUP BY status
	`, beneficiaryType, beneficiaryId).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := CommissionStatistics{
		Pending:  CommissionStatusTotal{Total: decimal.Zero},
		Approved: CommissionStatusTotal{Total: decimal.Zero},
		Paid:     CommissionStatusTotal{Total: decimal.Zero},
	}
	for _, row := range rows {
		switch row.Status {
		case CommissionStatusPending:
			stats.Pending = CommissionStatusTotal{Count: row.Count, Total: row.Total}
		case CommissionStatusApproved:
			stats.Approved = CommissionStatusTotal{Count: row.Count, Total: row.Total}
		case CommissionStatusPaid:
			stats.Paid = CommissionStatusTotal{Count: row.Count, Total: row.Total}
		}
	}
	return &stats, nil
}

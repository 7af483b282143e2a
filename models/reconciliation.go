package models

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/utils"
)

// Reconciliation compares what the ledger thinks happened over a period
// against what the bank statement says. System totals are snapshotted at
// creation; actual totals arrive later from statement ingestion.
type Reconciliation struct {
	ID                   int                      `gorm:"primary_key" json:"id"`
	ReconciliationNumber string                   `gorm:"size:20;uniqueIndex;not null" json:"reconciliation_number"`
	PeriodType           ReconciliationPeriodType `gorm:"type:enum('Daily','Weekly','Monthly','Custom');not null" json:"period_type"`
	PeriodStart          time.Time                `gorm:"index;not null" json:"period_start"`
	PeriodEnd            time.Time                `gorm:"not null" json:"period_end"`
	Status               ReconciliationStatus     `gorm:"type:enum('Pending','InProgress','Completed','Failed','RequiresAttention');default:'Pending';index" json:"status"`
	OrdersCount          int64                    `json:"orders_count"`
	SystemRevenue        decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"system_revenue"`
	SystemCommissions    decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"system_commissions"`
	SystemPayouts        decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"system_payouts"`
	SystemRefunds        decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"system_refunds"`
	ActualDeposits       decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"actual_deposits"`
	ActualWithdrawals    decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"actual_withdrawals"`
	ActualFees           decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"actual_fees"`
	RevenueDifference    decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"revenue_difference"`
	PayoutDifference     decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"payout_difference"`
	Issues               []*ReconciliationIssue   `gorm:"foreignKey:ReconciliationId" json:"issues"`
	CompletedAt          *time.Time               `json:"completed_at"`
	CreatedBy            int                      `json:"created_by"`
	Notes                string                   `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReconciliationIssue is one discrepancy found during a run. Position is the
// issue's index within its parent, assigned in arrival order; the resolve
// endpoint addresses issues by it.
type ReconciliationIssue struct {
	ID               int                     `gorm:"primary_key" json:"id"`
	ReconciliationId int                     `gorm:"index;not null" json:"reconciliation_id"`
	Position         int                     `gorm:"not null" json:"position"`
	Type             ReconciliationIssueType `gorm:"type:enum('MissingTransaction','AmountMismatch','Duplicate','Other');not null" json:"type"`
	Description      string                  `gorm:"type:text" json:"description"`
	Amount           decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Resolved         bool                    `gorm:"default:false" json:"resolved"`
	Resolution       string                  `gorm:"type:text" json:"resolution"`
	ResolvedBy       int                     `json:"resolved_by"`
	ResolvedAt       *time.Time              `json:"resolved_at"`
	CreatedAt        time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReconciliation struct {
	PeriodType  ReconciliationPeriodType `json:"period_type" validate:"required,oneof=Daily Weekly Monthly Custom"`
	PeriodStart time.Time                `json:"period_start" validate:"required"`
	PeriodEnd   time.Time                `json:"period_end" validate:"required"`
	Notes       string                   `json:"notes"`
}

// discrepancyThreshold is the absolute difference above which AddActualTotals
// raises an AmountMismatch issue automatically. Overridable per deployment.
func discrepancyThreshold() decimal.Decimal {
	if raw := os.Getenv("RECONCILIATION_DISCREPANCY_THRESHOLD"); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil && parsed.IsPositive() {
			return parsed
		}
	}
	return decimal.NewFromInt(100)
}

// CreateReconciliation snapshots the system's view of the period: delivered
// order revenue and refunds, commissions in Approved or Paid, and payout
// batch totals in Processing or Completed.
func CreateReconciliation(ctx context.Context, input *NewReconciliation) (*Reconciliation, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, utils.NewBadRequest("period end must be after period start")
	}

	orderTotals, err := GetOrderTotals(ctx, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var commissionTotal decimal.NullDecimal
	err = db.WithContext(ctx).Raw(`
		SELECT SUM(amount)
		FROM commissions
		WHERE status IN ? AND created_at >= ? AND created_at <= ?`,
		[]CommissionStatus{CommissionStatusApproved, CommissionStatusPaid},
		input.PeriodStart, input.PeriodEnd).Scan(&commissionTotal).Error
	if err != nil {
		return nil, err
	}

	var payoutTotal decimal.NullDecimal
	err = db.WithContext(ctx).Raw(`
		SELECT SUM(total_amount)
		FROM payout_batches
		WHERE status IN ? AND created_at >= ? AND created_at <= ?`,
		[]PayoutBatchStatus{PayoutBatchStatusProcessing, PayoutBatchStatusCompleted},
		input.PeriodStart, input.PeriodEnd).Scan(&payoutTotal).Error
	if err != nil {
		return nil, err
	}

	createdBy, _ := utils.GetUserIdFromContext(ctx)
	tx := db.Begin()

	reconciliationNumber, err := NextDocumentNumber(tx, ctx, SeriesReconciliation, time.Now())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	reconciliation := Reconciliation{
		ReconciliationNumber: reconciliationNumber,
		PeriodType:           input.PeriodType,
		PeriodStart:          input.PeriodStart,
		PeriodEnd:            input.PeriodEnd,
		Status:               ReconciliationStatusPending,
		OrdersCount:          orderTotals.OrdersCount,
		SystemRevenue:        orderTotals.TotalRevenue,
		SystemCommissions:    commissionTotal.Decimal,
		SystemPayouts:        payoutTotal.Decimal,
		SystemRefunds:        orderTotals.TotalRefunds,
		CreatedBy:            createdBy,
		Notes:                input.Notes,
	}
	if err := tx.WithContext(ctx).Create(&reconciliation).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	description := fmt.Sprintf("Reconciliation %s created for %s to %s.",
		reconciliationNumber, input.PeriodStart.Format("2006-01-02"), input.PeriodEnd.Format("2006-01-02"))
	if err := createHistory(tx.WithContext(ctx), "*CREATE*", reconciliation.ID, "reconciliations", nil, reconciliation, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &reconciliation, nil
}

type ActualTotalsInput struct {
	ActualDeposits    decimal.Decimal `json:"actual_deposits"`
	ActualWithdrawals decimal.Decimal `json:"actual_withdrawals"`
	ActualFees        decimal.Decimal `json:"actual_fees"`
}

// AddActualTotals records the bank statement's numbers and computes both
// differences. A difference whose magnitude exceeds the deployment threshold
// raises an AmountMismatch issue and parks the run in RequiresAttention;
// otherwise the run moves to InProgress.
func AddActualTotals(ctx context.Context, id int, input *ActualTotalsInput) (*Reconciliation, error) {

	reconciliation, err := utils.FetchModel[Reconciliation](ctx, id, "Issues")
	if err != nil {
		return nil, err
	}
	if reconciliation.Status != ReconciliationStatusPending {
		return nil, utils.NewInvalidState("reconciliation", id, string(reconciliation.Status), string(ReconciliationStatusPending))
	}

	revenueDifference := input.ActualDeposits.Sub(reconciliation.SystemRevenue)
	payoutDifference := input.ActualWithdrawals.Sub(reconciliation.SystemPayouts)

	threshold := discrepancyThreshold()
	var issues []*ReconciliationIssue
	position := len(reconciliation.Issues)
	if revenueDifference.Abs().GreaterThan(threshold) {
		issues = append(issues, &ReconciliationIssue{
			ReconciliationId: id,
			Position:         position,
			Type:             ReconciliationIssueTypeAmountMismatch,
			Description:      fmt.Sprintf("revenue difference %s exceeds threshold %s", revenueDifference, threshold),
			Amount:           revenueDifference.Abs(),
		})
		position++
	}
	if payoutDifference.Abs().GreaterThan(threshold) {
		issues = append(issues, &ReconciliationIssue{
			ReconciliationId: id,
			Position:         position,
			Type:             ReconciliationIssueTypeAmountMismatch,
			Description:      fmt.Sprintf("payout difference %s exceeds threshold %s", payoutDifference, threshold),
			Amount:           payoutDifference.Abs(),
		})
	}

	status := ReconciliationStatusInProgress
	if len(issues) > 0 {
		status = ReconciliationStatusRequiresAttention
	}

	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&Reconciliation{}).
		Where("id = ? AND status = ?", id, ReconciliationStatusPending).
		Updates(map[string]interface{}{
			"ActualDeposits":    input.ActualDeposits,
			"ActualWithdrawals": input.ActualWithdrawals,
			"ActualFees":        input.ActualFees,
			"RevenueDifference": revenueDifference,
			"PayoutDifference":  payoutDifference,
			"Status":            status,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("reconciliation", id)
	}

	if len(issues) > 0 {
		if err := tx.WithContext(ctx).Create(&issues).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	before := reconciliation.Status
	reconciliation.ActualDeposits = input.ActualDeposits
	reconciliation.ActualWithdrawals = input.ActualWithdrawals
	reconciliation.ActualFees = input.ActualFees
	reconciliation.RevenueDifference = revenueDifference
	reconciliation.PayoutDifference = payoutDifference
	reconciliation.Status = status
	reconciliation.Issues = append(reconciliation.Issues, issues...)
	description := fmt.Sprintf("actual totals recorded, %d issues raised", len(issues))
	if err := createHistory(tx.WithContext(ctx), "*UPDATE*", id, "reconciliations", before, status, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return reconciliation, nil
}

type NewReconciliationIssue struct {
	Type        ReconciliationIssueType `json:"type" validate:"required,oneof=MissingTransaction AmountMismatch Duplicate Other"`
	Description string                  `json:"description" validate:"required"`
	Amount      decimal.Decimal         `json:"amount"`
}

// AddReconciliationIssue attaches a manually-found discrepancy. Any open
// issue forces the run into RequiresAttention.
func AddReconciliationIssue(ctx context.Context, id int, input *NewReconciliationIssue) (*Reconciliation, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	reconciliation, err := utils.FetchModel[Reconciliation](ctx, id, "Issues")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	// Lock the parent row: a resolver may be flipping the run to Completed
	// concurrently, and the next Position must be assigned under the lock.
	var lockedStatus string
	if err := tx.WithContext(ctx).Raw(
		"SELECT status FROM reconciliations WHERE id = ? FOR UPDATE", id).
		Scan(&lockedStatus).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if ReconciliationStatus(lockedStatus) == ReconciliationStatusCompleted {
		tx.Rollback()
		return nil, utils.NewInvalidState("reconciliation", id, lockedStatus, "not Completed")
	}

	var issueCount int64
	if err := tx.WithContext(ctx).Model(&ReconciliationIssue{}).
		Where("reconciliation_id = ?", id).
		Count(&issueCount).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	issue := ReconciliationIssue{
		ReconciliationId: id,
		Position:         int(issueCount),
		Type:             input.Type,
		Description:      input.Description,
		Amount:           input.Amount,
	}

	if err := tx.WithContext(ctx).Create(&issue).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	result := tx.WithContext(ctx).Model(&Reconciliation{}).
		Where("id = ? AND status <> ?", id, ReconciliationStatusCompleted).
		Update("status", ReconciliationStatusRequiresAttention)
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("reconciliation", id)
	}

	if err := createHistory(tx.WithContext(ctx), "*UPDATE*", id, "reconciliations", nil, issue, "issue recorded: "+input.Description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	reconciliation.Status = ReconciliationStatusRequiresAttention
	reconciliation.Issues = append(reconciliation.Issues, &issue)
	return reconciliation, nil
}

type ResolveIssueInput struct {
	Resolution string `json:"resolution" validate:"required"`
}

// ResolveReconciliationIssue marks the issue at the given position resolved.
// Resolving the last open issue is the only path to Completed.
func ResolveReconciliationIssue(ctx context.Context, id int, position int, input *ResolveIssueInput) (*Reconciliation, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	reconciliation, err := utils.FetchModel[Reconciliation](ctx, id, "Issues")
	if err != nil {
		return nil, err
	}

	var target *ReconciliationIssue
	for _, issue := range reconciliation.Issues {
		if issue.Position == position {
			target = issue
			break
		}
	}
	if target == nil {
		return nil, utils.NewBadRequest("no issue at index " + strconv.Itoa(position))
	}
	if target.Resolved {
		return nil, utils.NewBadRequest("issue at index " + strconv.Itoa(position) + " is already resolved")
	}

	resolvedBy, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()

	db := config.GetDB()
	tx := db.Begin()

	// Lock the parent row first. Two resolvers of the last two open issues
	// would otherwise each see the other's issue still open and neither
	// would flip the run to Completed; the lock serializes them so the
	// open-issue count below is authoritative.
	var lockedStatus string
	if err := tx.WithContext(ctx).Raw(
		"SELECT status FROM reconciliations WHERE id = ? FOR UPDATE", id).
		Scan(&lockedStatus).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	result := tx.WithContext(ctx).Model(&ReconciliationIssue{}).
		Where("id = ? AND resolved = false", target.ID).
		Updates(map[string]interface{}{
			"Resolved":   true,
			"Resolution": input.Resolution,
			"ResolvedBy": resolvedBy,
			"ResolvedAt": now,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("reconciliation issue", target.ID)
	}

	target.Resolved = true
	target.Resolution = input.Resolution
	target.ResolvedBy = resolvedBy
	target.ResolvedAt = &now

	var openCount int64
	if err := tx.WithContext(ctx).Model(&ReconciliationIssue{}).
		Where("reconciliation_id = ? AND resolved = false", id).
		Count(&openCount).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if openCount == 0 {
		completion := tx.WithContext(ctx).Model(&Reconciliation{}).
			Where("id = ? AND status <> ?", id, ReconciliationStatusCompleted).
			Updates(map[string]interface{}{
				"Status":      ReconciliationStatusCompleted,
				"CompletedAt": now,
			})
		if completion.Error != nil {
			tx.Rollback()
			return nil, completion.Error
		}
		reconciliation.Status = ReconciliationStatusCompleted
		reconciliation.CompletedAt = &now
	}

	description := fmt.Sprintf("issue %d resolved: %s", position, input.Resolution)
	if err := createHistory(tx.WithContext(ctx), "*UPDATE*", id, "reconciliations", nil, target, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return reconciliation, nil
}

func GetReconciliation(ctx context.Context, id int) (*Reconciliation, error) {
	return utils.FetchModel[Reconciliation](ctx, id, "Issues")
}

func GetReconciliations(ctx context.Context, status *ReconciliationStatus, limit int) ([]*Reconciliation, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*Reconciliation
	if err := dbCtx.Preload("Issues").Order("id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

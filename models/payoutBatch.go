package models

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/utils"
)

// PayoutBatch is one disbursement run. TotalAmount always equals the sum of
// its items' amounts and ItemsCount their count; both are fixed at creation
// inside the same transaction that claims the commissions.
type PayoutBatch struct {
	ID            int               `gorm:"primary_key" json:"id"`
	BatchNumber   string            `gorm:"size:20;uniqueIndex;not null" json:"batch_number"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	ItemsCount    int               `gorm:"default:0" json:"items_count"`
	Status        PayoutBatchStatus `gorm:"type:enum('Pending','Processing','Completed','Failed','Cancelled');default:'Pending';index" json:"status"`
	PaymentMethod PaymentMethod     `gorm:"type:enum('BankTransfer','MobileMoney','Cash');not null" json:"payment_method"`
	BankReference string            `gorm:"size:100" json:"bank_reference"`
	ScheduledFor  *time.Time        `json:"scheduled_for"`
	ApprovedBy    int               `json:"approved_by"`
	ApprovedAt    *time.Time        `json:"approved_at"`
	ProcessedAt   *time.Time        `json:"processed_at"`
	CreatedBy     int               `json:"created_by"`
	Notes         string            `gorm:"type:text" json:"notes"`
	Items         []*PayoutItem     `gorm:"foreignKey:PayoutBatchId" json:"items"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// PayoutItem is one recipient's portion of a batch; exactly one exists per
// commission claimed into the batch.
type PayoutItem struct {
	ID                int              `gorm:"primary_key" json:"id"`
	PayoutBatchId     int              `gorm:"index;not null" json:"payout_batch_id"`
	RecipientId       int              `gorm:"index;not null" json:"recipient_id"`
	RecipientType     BeneficiaryType  `gorm:"type:enum('Driver','Vendor','Marketer','Company');not null" json:"recipient_type"`
	Amount            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Status            PayoutItemStatus `gorm:"type:enum('Pending','Processed','Failed','Refunded');default:'Pending';index" json:"status"`
	Type              PayoutItemType   `gorm:"type:enum('Commission','Refund','Withdrawal','Other');default:'Commission'" json:"type"`
	BankName          string           `gorm:"size:100" json:"bank_name"`
	BankAccountName   string           `gorm:"size:100" json:"bank_account_name"`
	BankAccountNumber string           `gorm:"size:50" json:"bank_account_number"`
	TransactionId     string           `gorm:"size:100" json:"transaction_id"`
	ProcessedAt       *time.Time       `json:"processed_at"`
	CommissionId      int              `gorm:"index;not null" json:"commission_id"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayoutBatch struct {
	CommissionIds []int         `json:"commission_ids" validate:"required,min=1"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=BankTransfer MobileMoney Cash"`
	ScheduledFor  *time.Time    `json:"scheduled_for"`
	Notes         string        `json:"notes"`
}

// CreatePayoutBatchFromCommissions claims approved, unbatched commissions
// into a new batch. The claim is a single conditional UPDATE on the
// batch-link column, so two racing calls over overlapping commission sets
// can never both claim the same commission; commissions that lost the race
// (or were never eligible) are excluded silently.
func CreatePayoutBatchFromCommissions(ctx context.Context, input *NewPayoutBatch) (*PayoutBatch, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	// best-effort lock to reduce claim contention; correctness never
	// depends on it, the conditional UPDATE below is the authority
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "lock:payout-batch-create", 10*time.Second, nil)
		if err == nil {
			defer lock.Release(ctx)
		} else if err != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "payoutBatch.go", "CreatePayoutBatchFromCommissions", "redislock", nil, err)
		}
	}

	createdBy, _ := utils.GetUserIdFromContext(ctx)
	commissionIds := utils.UniqueSlice(input.CommissionIds)

	db := config.GetDB()
	tx := db.Begin()

	batchNumber, err := NextDocumentNumber(tx, ctx, SeriesPayoutBatch, time.Now())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	batch := PayoutBatch{
		BatchNumber:   batchNumber,
		Status:        PayoutBatchStatusPending,
		PaymentMethod: input.PaymentMethod,
		ScheduledFor:  input.ScheduledFor,
		CreatedBy:     createdBy,
		Notes:         input.Notes,
		TotalAmount:   decimal.Zero,
	}
	if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// the claim: only approved commissions with no existing batch link
	claim := tx.WithContext(ctx).Model(&Commission{}).
		Where("id IN ? AND status = ? AND payout_batch_id IS NULL", commissionIds, CommissionStatusApproved).
		Update("payout_batch_id", batch.ID)
	if claim.Error != nil {
		tx.Rollback()
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewBadRequest("no eligible commissions (approved and unbatched) in selection")
	}

	var claimed []*Commission
	if err := tx.WithContext(ctx).Where("payout_batch_id = ?", batch.ID).Order("id").Find(&claimed).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	totalAmount := decimal.Zero
	items := make([]*PayoutItem, 0, len(claimed))
	for _, commission := range claimed {
		items = append(items, &PayoutItem{
			PayoutBatchId: batch.ID,
			RecipientId:   commission.BeneficiaryId,
			RecipientType: commission.BeneficiaryType,
			Amount:        commission.Amount,
			Status:        PayoutItemStatusPending,
			Type:          PayoutItemTypeCommission,
			CommissionId:  commission.ID,
		})
		totalAmount = totalAmount.Add(commission.Amount)
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&batch).Updates(map[string]interface{}{
		"TotalAmount": totalAmount,
		"ItemsCount":  len(items),
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	batch.TotalAmount = totalAmount
	batch.ItemsCount = len(items)
	batch.Items = items

	description := fmt.Sprintf("Payout batch %s created with %d items totalling %s.", batchNumber, len(items), totalAmount)
	if err := createHistory(tx.WithContext(ctx), "*CREATE*", batch.ID, "payout_batches", nil, batch, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &batch, nil
}

type ApprovePayoutBatchInput struct {
	BankReference string `json:"bank_reference" validate:"required"`
	Notes         string `json:"notes"`
}

func ApprovePayoutBatch(ctx context.Context, id int, input *ApprovePayoutBatchInput) (*PayoutBatch, error) {

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	batch, err := utils.FetchModel[PayoutBatch](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if batch.Status != PayoutBatchStatusPending {
		return nil, utils.NewInvalidState("payout batch", id, string(batch.Status), string(PayoutBatchStatusPending))
	}

	approvedBy, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()
	notes := batch.Notes
	if input.Notes != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += input.Notes
	}

	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&PayoutBatch{}).
		Where("id = ? AND status = ?", id, PayoutBatchStatusPending).
		Updates(map[string]interface{}{
			"Status":        PayoutBatchStatusProcessing,
			"BankReference": input.BankReference,
			"ApprovedBy":    approvedBy,
			"ApprovedAt":    now,
			"Notes":         notes,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("payout batch", id)
	}

	before := batch.Status
	batch.Status = PayoutBatchStatusProcessing
	batch.BankReference = input.BankReference
	batch.ApprovedBy = approvedBy
	batch.ApprovedAt = &now
	batch.Notes = notes
	if err := createHistory(tx.WithContext(ctx), "*APPROVE*", id, "payout_batches", before, batch.Status, "payout batch approved, bank reference "+input.BankReference); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return batch, nil
}

// CompletePayoutBatchResult reports what a completion call actually covered.
// Items without a transaction id stay Pending; callers must poll for them.
type CompletePayoutBatchResult struct {
	Batch          *PayoutBatch `json:"batch"`
	ProcessedCount int          `json:"processed_count"`
	PendingCount   int          `json:"pending_count"`
}

// CompletePayoutBatch marks every item present in transactionIds as
// processed and its source commission as paid. The batch transitions to
// Completed even when some items received no transaction id; the pending
// count in the result makes that visible to the caller.
func CompletePayoutBatch(ctx context.Context, id int, transactionIds map[int]string) (*CompletePayoutBatchResult, error) {

	batch, err := utils.FetchModel[PayoutBatch](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if batch.Status != PayoutBatchStatusProcessing {
		return nil, utils.NewInvalidState("payout batch", id, string(batch.Status), string(PayoutBatchStatusProcessing))
	}

	now := time.Now().UTC()
	db := config.GetDB()
	tx := db.Begin()

	processedCount := 0
	pendingCount := 0
	for _, item := range batch.Items {
		transactionId, covered := transactionIds[item.ID]
		if !covered || transactionId == "" {
			if item.Status == PayoutItemStatusPending {
				pendingCount++
			}
			continue
		}
		if item.Status != PayoutItemStatusPending {
			continue
		}

		itemResult := tx.WithContext(ctx).Model(&PayoutItem{}).
			Where("id = ? AND payout_batch_id = ? AND status = ?", item.ID, id, PayoutItemStatusPending).
			Updates(map[string]interface{}{
				"Status":        PayoutItemStatusProcessed,
				"TransactionId": transactionId,
				"ProcessedAt":   now,
			})
		if itemResult.Error != nil {
			tx.Rollback()
			return nil, itemResult.Error
		}
		if itemResult.RowsAffected == 0 {
			// The item was failed underneath us (its commission was
			// cancelled after the batch was fetched); leave it alone.
			item.Status = PayoutItemStatusFailed
			continue
		}
		if err := tx.WithContext(ctx).Model(&Commission{}).
			Where("id = ? AND payout_batch_id = ? AND status = ?", item.CommissionId, id, CommissionStatusApproved).
			Update("status", CommissionStatusPaid).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		item.Status = PayoutItemStatusProcessed
		item.TransactionId = transactionId
		item.ProcessedAt = &now
		processedCount++
	}

	result := tx.WithContext(ctx).Model(&PayoutBatch{}).
		Where("id = ? AND status = ?", id, PayoutBatchStatusProcessing).
		Updates(map[string]interface{}{
			"Status":      PayoutBatchStatusCompleted,
			"ProcessedAt": now,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("payout batch", id)
	}

	before := batch.Status
	batch.Status = PayoutBatchStatusCompleted
	batch.ProcessedAt = &now
	description := fmt.Sprintf("payout batch completed: %d processed, %d left pending", processedCount, pendingCount)
	if err := createHistory(tx.WithContext(ctx), "*COMPLETE*", id, "payout_batches", before, batch.Status, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &CompletePayoutBatchResult{
		Batch:          batch,
		ProcessedCount: processedCount,
		PendingCount:   pendingCount,
	}, nil
}

// CancelPayoutBatch releases every claimed commission back to the unbatched
// pool and fails the batch's items. Forbidden once the batch completed.
func CancelPayoutBatch(ctx context.Context, id int, reason string) (*PayoutBatch, error) {

	batch, err := utils.FetchModel[PayoutBatch](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if batch.Status == PayoutBatchStatusCompleted {
		return nil, utils.NewInvalidState("payout batch", id, string(batch.Status), "Pending or Processing")
	}

	notes := batch.Notes
	if reason != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += "Cancelled: " + reason
	}

	db := config.GetDB()
	tx := db.Begin()

	result := tx.WithContext(ctx).Model(&PayoutBatch{}).
		Where("id = ? AND status <> ?", id, PayoutBatchStatusCompleted).
		Updates(map[string]interface{}{
			"Status": PayoutBatchStatusCancelled,
			"Notes":  notes,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.NewConcurrencyConflict("payout batch", id)
	}

	if err := tx.WithContext(ctx).Model(&PayoutItem{}).
		Where("payout_batch_id = ? AND status = ?", id, PayoutItemStatusPending).
		Update("status", PayoutItemStatusFailed).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// release unpaid commissions back to the pool
	if err := tx.WithContext(ctx).Model(&Commission{}).
		Where("payout_batch_id = ? AND status <> ?", id, CommissionStatusPaid).
		Update("payout_batch_id", nil).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	before := batch.Status
	batch.Status = PayoutBatchStatusCancelled
	batch.Notes = notes
	for _, item := range batch.Items {
		if item.Status == PayoutItemStatusPending {
			item.Status = PayoutItemStatusFailed
		}
	}
	if err := createHistory(tx.WithContext(ctx), "*CANCEL*", id, "payout_batches", before, batch.Status, "payout batch cancelled"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return batch, nil
}

func GetPayoutBatch(ctx context.Context, id int) (*PayoutBatch, error) {
	return utils.FetchModel[PayoutBatch](ctx, id, "Items")
}

func GetPayoutBatches(ctx context.Context, status *PayoutBatchStatus, limit int) ([]*PayoutBatch, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*PayoutBatch
	if err := dbCtx.Preload("Items").Order("id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type PayoutStatusTotal struct {
	Status      PayoutBatchStatus `json:"status"`
	Count       int64             `json:"count"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

// payoutStatisticsCacheKey labels each window bound so a from-only window
// can never share a cache entry with a to-only window on the same instant.
func payoutStatisticsCacheKey(from *time.Time, to *time.Time) string {
	key := "payout-statistics"
	if from != nil {
		key += ":from=" + from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		key += ":to=" + to.UTC().Format(time.RFC3339)
	}
	return key
}

// GetPayoutStatistics aggregates batches by status over an optional window.
// Results are cached briefly; this feeds dashboards, not money movement.
func GetPayoutStatistics(ctx context.Context, from *time.Time, to *time.Time) ([]*PayoutStatusTotal, error) {
	cacheKey := payoutStatisticsCacheKey(from, to)
	var cached []*PayoutStatusTotal
	if found, err := config.GetRedisObject(cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&PayoutBatch{}).
		Select("status, COUNT(id) AS count, COALESCE(SUM(total_amount), 0) AS total_amount").
		Group("status")
	if from != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("created_at <= ?", *to)
	}
	var rows []*PayoutStatusTotal
	if err := dbCtx.Scan(&rows).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(cacheKey, rows, 30*time.Second); err != nil {
		config.LogError(config.GetLogger(), "payoutBatch.go", "GetPayoutStatistics", "cache", nil, err)
	}
	return rows, nil
}

package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/models"
	"github.com/swifteats/finance_backend/utils"
)

// setupFinanceTest boots fresh MySQL + Redis containers, wires env for the
// config.Connect* helpers, migrates the schema and returns a context with
// actor fields set (model functions write History rows).
func setupFinanceTest(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "finance_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	return ctx
}

func seedDeliveredOrder(t *testing.T, ctx context.Context, vendorId int, total string) *models.Order {
	t.Helper()
	db := config.GetDB()
	deliveredAt := time.Now().UTC().Add(-time.Hour)
	totalAmount := decimal.RequireFromString(total)
	order := models.Order{
		OrderNumber: fmt.Sprintf("T-%d", time.Now().UnixNano()),
		VendorId:    vendorId,
		DriverId:    1,
		CustomerId:  1,
		TotalAmount: totalAmount,
		DeliveryFee: decimal.RequireFromString("30"),
		Tip:         decimal.RequireFromString("5"),
		PlatformFee: totalAmount.Mul(decimal.RequireFromString("0.1")),
		Status:      models.OrderStatusDelivered,
		DeliveredAt: &deliveredAt,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return &order
}

func createApprovedCommission(t *testing.T, ctx context.Context, orderId int, vendorId int, base string, rate string) *models.Commission {
	t.Helper()
	commission, err := models.CreateCommission(ctx, &models.NewCommission{
		SourceId:        orderId,
		SourceType:      models.CommissionSourceTypeOrder,
		BeneficiaryId:   vendorId,
		BeneficiaryType: models.BeneficiaryTypeVendor,
		BaseAmount:      decimal.RequireFromString(base),
		Rate:            decimal.RequireFromString(rate),
		CalculationType: models.CalculationTypePercentage,
	})
	if err != nil {
		t.Fatalf("CreateCommission: %v", err)
	}
	approved, err := models.ApproveCommission(ctx, commission.ID)
	if err != nil {
		t.Fatalf("ApproveCommission: %v", err)
	}
	return approved
}

func TestPayoutPipelineEndToEnd(t *testing.T) {
	ctx := setupFinanceTest(t)

	order := seedDeliveredOrder(t, ctx, 7, "500")

	commission, err := models.CreateCommission(ctx, &models.NewCommission{
		SourceId:        order.ID,
		SourceType:      models.CommissionSourceTypeOrder,
		BeneficiaryId:   7,
		BeneficiaryType: models.BeneficiaryTypeVendor,
		BaseAmount:      decimal.RequireFromString("500"),
		Rate:            decimal.RequireFromString("10"),
		CalculationType: models.CalculationTypePercentage,
	})
	if err != nil {
		t.Fatalf("CreateCommission: %v", err)
	}
	if !commission.Amount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("commission amount expected 50, got %s", commission.Amount)
	}
	if commission.Status != models.CommissionStatusPending {
		t.Fatalf("new commission expected Pending, got %s", commission.Status)
	}

	// approving twice must conflict, not double-apply
	if _, err := models.ApproveCommission(ctx, commission.ID); err != nil {
		t.Fatalf("ApproveCommission: %v", err)
	}
	if _, err := models.ApproveCommission(ctx, commission.ID); err == nil {
		t.Fatal("second approval should fail")
	}

	batch, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{commission.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("CreatePayoutBatchFromCommissions: %v", err)
	}
	expectedNumber := "PB-" + time.Now().UTC().Format("200601") + "-0001"
	if batch.BatchNumber != expectedNumber {
		t.Fatalf("batch number expected %s, got %s", expectedNumber, batch.BatchNumber)
	}
	if !batch.TotalAmount.Equal(decimal.RequireFromString("50")) || batch.ItemsCount != 1 {
		t.Fatalf("batch totals expected 50/1, got %s/%d", batch.TotalAmount, batch.ItemsCount)
	}
	if len(batch.Items) != 1 || batch.Items[0].RecipientId != 7 {
		t.Fatalf("expected one item for recipient 7, got %+v", batch.Items)
	}

	approvedBatch, err := models.ApprovePayoutBatch(ctx, batch.ID, &models.ApprovePayoutBatchInput{BankReference: "REF1"})
	if err != nil {
		t.Fatalf("ApprovePayoutBatch: %v", err)
	}
	if approvedBatch.Status != models.PayoutBatchStatusProcessing || approvedBatch.BankReference != "REF1" {
		t.Fatalf("batch expected Processing/REF1, got %s/%s", approvedBatch.Status, approvedBatch.BankReference)
	}

	result, err := models.CompletePayoutBatch(ctx, batch.ID, map[int]string{batch.Items[0].ID: "TXN1"})
	if err != nil {
		t.Fatalf("CompletePayoutBatch: %v", err)
	}
	if result.Batch.Status != models.PayoutBatchStatusCompleted {
		t.Fatalf("batch expected Completed, got %s", result.Batch.Status)
	}
	if result.ProcessedCount != 1 || result.PendingCount != 0 {
		t.Fatalf("expected 1 processed / 0 pending, got %d/%d", result.ProcessedCount, result.PendingCount)
	}

	reloaded, err := models.GetPayoutBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetPayoutBatch: %v", err)
	}
	if reloaded.Items[0].Status != models.PayoutItemStatusProcessed || reloaded.Items[0].TransactionId != "TXN1" {
		t.Fatalf("item expected Processed/TXN1, got %s/%s", reloaded.Items[0].Status, reloaded.Items[0].TransactionId)
	}

	paidCommission, err := models.GetCommission(ctx, commission.ID)
	if err != nil {
		t.Fatalf("GetCommission: %v", err)
	}
	if paidCommission.Status != models.CommissionStatusPaid {
		t.Fatalf("commission expected Paid, got %s", paidCommission.Status)
	}
	if paidCommission.PayoutBatchId == nil || *paidCommission.PayoutBatchId != batch.ID {
		t.Fatalf("commission expected linked to batch %d, got %v", batch.ID, paidCommission.PayoutBatchId)
	}
}

func TestPayoutBatchExcludesAlreadyClaimedCommissions(t *testing.T) {
	ctx := setupFinanceTest(t)

	order := seedDeliveredOrder(t, ctx, 3, "1000")
	first := createApprovedCommission(t, ctx, order.ID, 3, "1000", "10")
	second := createApprovedCommission(t, ctx, order.ID, 3, "1000", "5")

	batchA, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{first.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("batch A: %v", err)
	}

	// batch B asks for both; the already-claimed one must be silently skipped
	batchB, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{first.ID, second.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("batch B: %v", err)
	}
	if batchB.ItemsCount != 1 {
		t.Fatalf("batch B expected to claim 1 commission, claimed %d", batchB.ItemsCount)
	}
	if batchB.Items[0].CommissionId != second.ID {
		t.Fatalf("batch B expected commission %d, got %d", second.ID, batchB.Items[0].CommissionId)
	}
	if !batchB.TotalAmount.Equal(second.Amount) {
		t.Fatalf("batch B total expected %s, got %s", second.Amount, batchB.TotalAmount)
	}

	// nothing eligible left
	if _, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{first.ID, second.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	}); !utils.IsBadRequest(err) {
		t.Fatalf("expected bad request for fully-claimed selection, got %v", err)
	}

	if batchA.BatchNumber == batchB.BatchNumber {
		t.Fatalf("batch numbers must be unique, both got %s", batchA.BatchNumber)
	}
}

func TestPartialBatchCompletionLeavesItemsPending(t *testing.T) {
	ctx := setupFinanceTest(t)

	order := seedDeliveredOrder(t, ctx, 4, "800")
	first := createApprovedCommission(t, ctx, order.ID, 4, "800", "10")
	second := createApprovedCommission(t, ctx, order.ID, 4, "800", "5")

	batch, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{first.ID, second.ID},
		PaymentMethod: models.PaymentMethodMobileMoney,
	})
	if err != nil {
		t.Fatalf("CreatePayoutBatchFromCommissions: %v", err)
	}
	if _, err := models.ApprovePayoutBatch(ctx, batch.ID, &models.ApprovePayoutBatchInput{BankReference: "REF2"}); err != nil {
		t.Fatalf("ApprovePayoutBatch: %v", err)
	}

	var coveredItemId, uncoveredCommissionId int
	for _, item := range batch.Items {
		if item.CommissionId == first.ID {
			coveredItemId = item.ID
		} else {
			uncoveredCommissionId = item.CommissionId
		}
	}

	result, err := models.CompletePayoutBatch(ctx, batch.ID, map[int]string{coveredItemId: "TXN-A"})
	if err != nil {
		t.Fatalf("CompletePayoutBatch: %v", err)
	}
	if result.Batch.Status != models.PayoutBatchStatusCompleted {
		t.Fatalf("batch expected Completed, got %s", result.Batch.Status)
	}
	if result.ProcessedCount != 1 || result.PendingCount != 1 {
		t.Fatalf("expected 1 processed / 1 pending, got %d/%d", result.ProcessedCount, result.PendingCount)
	}

	uncovered, err := models.GetCommission(ctx, uncoveredCommissionId)
	if err != nil {
		t.Fatalf("GetCommission: %v", err)
	}
	if uncovered.Status != models.CommissionStatusApproved {
		t.Fatalf("uncovered commission expected Approved, got %s", uncovered.Status)
	}
}

func TestCancelPayoutBatchReleasesCommissions(t *testing.T) {
	ctx := setupFinanceTest(t)

	order := seedDeliveredOrder(t, ctx, 5, "600")
	commission := createApprovedCommission(t, ctx, order.ID, 5, "600", "10")

	batch, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{commission.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("CreatePayoutBatchFromCommissions: %v", err)
	}

	cancelled, err := models.CancelPayoutBatch(ctx, batch.ID, "bank rejected the file")
	if err != nil {
		t.Fatalf("CancelPayoutBatch: %v", err)
	}
	if cancelled.Status != models.PayoutBatchStatusCancelled {
		t.Fatalf("batch expected Cancelled, got %s", cancelled.Status)
	}
	if !strings.Contains(cancelled.Notes, "bank rejected the file") {
		t.Fatalf("cancel reason missing from notes: %q", cancelled.Notes)
	}

	released, err := models.GetCommission(ctx, commission.ID)
	if err != nil {
		t.Fatalf("GetCommission: %v", err)
	}
	if released.PayoutBatchId != nil {
		t.Fatalf("commission should be released, still linked to %d", *released.PayoutBatchId)
	}
	if released.Status != models.CommissionStatusApproved {
		t.Fatalf("released commission expected Approved, got %s", released.Status)
	}

	// released commission is claimable again
	rebatch, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{commission.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("re-batch after cancel: %v", err)
	}
	if rebatch.ItemsCount != 1 {
		t.Fatalf("re-batch expected 1 item, got %d", rebatch.ItemsCount)
	}

	reloaded, err := models.GetPayoutBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetPayoutBatch: %v", err)
	}
	for _, item := range reloaded.Items {
		if item.Status != models.PayoutItemStatusFailed {
			t.Fatalf("cancelled batch item expected Failed, got %s", item.Status)
		}
	}
}

func TestCancelClaimedCommissionFailsItsPayoutItem(t *testing.T) {
	ctx := setupFinanceTest(t)

	order1 := seedDeliveredOrder(t, ctx, 1, "500")
	order2 := seedDeliveredOrder(t, ctx, 2, "800")
	cancelled := createApprovedCommission(t, ctx, order1.ID, 1, "500", "10")
	surviving := createApprovedCommission(t, ctx, order2.ID, 2, "800", "10")

	batch, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{cancelled.ID, surviving.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("CreatePayoutBatchFromCommissions: %v", err)
	}
	if _, err := models.ApprovePayoutBatch(ctx, batch.ID, &models.ApprovePayoutBatchInput{BankReference: "REF-CXL"}); err != nil {
		t.Fatalf("ApprovePayoutBatch: %v", err)
	}

	// Cancelling a claimed commission must fail its item so completion
	// cannot pay out against it.
	if _, err := models.CancelCommission(ctx, cancelled.ID, "vendor dispute upheld"); err != nil {
		t.Fatalf("CancelCommission: %v", err)
	}

	transactionIds := map[int]string{}
	var cancelledItemId, survivingItemId int
	for _, item := range batch.Items {
		if item.CommissionId == cancelled.ID {
			cancelledItemId = item.ID
			transactionIds[item.ID] = "TXN-DEAD"
		} else {
			survivingItemId = item.ID
			transactionIds[item.ID] = "TXN-LIVE"
		}
	}

	result, err := models.CompletePayoutBatch(ctx, batch.ID, transactionIds)
	if err != nil {
		t.Fatalf("CompletePayoutBatch: %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Fatalf("expected 1 processed item, got %d", result.ProcessedCount)
	}

	finalBatch, err := models.GetPayoutBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetPayoutBatch: %v", err)
	}
	for _, item := range finalBatch.Items {
		switch item.ID {
		case cancelledItemId:
			if item.Status != models.PayoutItemStatusFailed {
				t.Fatalf("cancelled commission's item expected Failed, got %s", item.Status)
			}
			if item.TransactionId == "TXN-DEAD" {
				t.Fatal("cancelled commission's item must not carry a transaction id")
			}
		case survivingItemId:
			if item.Status != models.PayoutItemStatusProcessed || item.TransactionId != "TXN-LIVE" {
				t.Fatalf("surviving item expected Processed/TXN-LIVE, got %s/%s", item.Status, item.TransactionId)
			}
		}
	}

	after, err := models.GetCommission(ctx, cancelled.ID)
	if err != nil {
		t.Fatalf("GetCommission: %v", err)
	}
	if after.Status != models.CommissionStatusCancelled || after.PayoutBatchId != nil {
		t.Fatalf("expected cancelled and unlinked commission, got %s", after.Status)
	}

	issues, err := models.RunConsistencyChecks(ctx)
	if err != nil {
		t.Fatalf("RunConsistencyChecks: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected a clean sweep after the failed item, got %+v", issues)
	}
}

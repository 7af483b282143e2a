package models_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/models"
	"github.com/swifteats/finance_backend/utils"
)

func TestVendorSettlementLifecycle(t *testing.T) {
	ctx := setupFinanceTest(t)

	seedDeliveredOrder(t, ctx, 9, "1000")
	seedDeliveredOrder(t, ctx, 9, "500")
	// another vendor's order must not leak into the settlement
	seedDeliveredOrder(t, ctx, 10, "9999")

	periodStart := time.Now().UTC().Add(-24 * time.Hour)
	periodEnd := time.Now().UTC()

	settlement, err := models.CreateSettlement(ctx, &models.NewSettlement{
		EntityId:    9,
		EntityType:  models.SettlementEntityTypeVendor,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	expectedNumber := "ST-" + time.Now().UTC().Format("200601") + "-0001"
	if settlement.SettlementNumber != expectedNumber {
		t.Fatalf("settlement number expected %s, got %s", expectedNumber, settlement.SettlementNumber)
	}
	if settlement.Status != models.SettlementStatusDraft {
		t.Fatalf("new settlement expected Draft, got %s", settlement.Status)
	}
	if settlement.OrdersCount != 2 {
		t.Fatalf("expected 2 orders, got %d", settlement.OrdersCount)
	}
	// revenue 1500, platform fees 10% = 150, net 1350
	if !settlement.TotalRevenue.Equal(decimal.RequireFromString("1500")) {
		t.Fatalf("revenue expected 1500, got %s", settlement.TotalRevenue)
	}
	if !settlement.TotalCommission.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("commission expected 150, got %s", settlement.TotalCommission)
	}
	if !settlement.NetAmount.Equal(settlement.TotalRevenue.Sub(settlement.TotalCommission).Sub(settlement.TotalDeductions)) {
		t.Fatalf("net amount invariant broken: %s", settlement.NetAmount)
	}

	// empty period is rejected outright
	if _, err := models.CreateSettlement(ctx, &models.NewSettlement{
		EntityId:    9,
		EntityType:  models.SettlementEntityTypeVendor,
		PeriodStart: periodStart.Add(-48 * time.Hour),
		PeriodEnd:   periodStart.Add(-47 * time.Hour),
	}); !utils.IsBadRequest(err) {
		t.Fatalf("expected bad request for empty period, got %v", err)
	}

	// marketer settlements are not supported
	if _, err := models.CreateSettlement(ctx, &models.NewSettlement{
		EntityId:    1,
		EntityType:  models.SettlementEntityTypeMarketer,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}); !utils.IsBadRequest(err) {
		t.Fatalf("expected bad request for marketer settlement, got %v", err)
	}

	approved, err := models.ApproveSettlement(ctx, settlement.ID, "checked against weekly report")
	if err != nil {
		t.Fatalf("ApproveSettlement: %v", err)
	}
	if approved.Status != models.SettlementStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("settlement expected Approved with timestamp, got %s", approved.Status)
	}

	// linking requires a real batch
	if _, err := models.LinkSettlementToPayoutBatch(ctx, settlement.ID, 424242); err == nil {
		t.Fatal("linking to a missing batch should fail")
	}

	order := seedDeliveredOrder(t, ctx, 9, "100")
	commission := createApprovedCommission(t, ctx, order.ID, 9, "100", "10")
	batch, err := models.CreatePayoutBatchFromCommissions(ctx, &models.NewPayoutBatch{
		CommissionIds: []int{commission.ID},
		PaymentMethod: models.PaymentMethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("CreatePayoutBatchFromCommissions: %v", err)
	}

	paid, err := models.LinkSettlementToPayoutBatch(ctx, settlement.ID, batch.ID)
	if err != nil {
		t.Fatalf("LinkSettlementToPayoutBatch: %v", err)
	}
	if paid.Status != models.SettlementStatusPaid || paid.PaidAt == nil {
		t.Fatalf("settlement expected Paid with timestamp, got %s", paid.Status)
	}

	// paid settlements cannot be cancelled
	if _, err := models.CancelSettlement(ctx, settlement.ID, "too late"); !utils.IsInvalidState(err) {
		t.Fatalf("expected invalid state cancelling a paid settlement, got %v", err)
	}
}

func TestDriverSettlementBreakdown(t *testing.T) {
	ctx := setupFinanceTest(t)

	seedDeliveredOrder(t, ctx, 2, "400")

	settlement, err := models.CreateSettlement(ctx, &models.NewSettlement{
		EntityId:    1, // seedDeliveredOrder assigns driver 1
		EntityType:  models.SettlementEntityTypeDriver,
		PeriodStart: time.Now().UTC().Add(-24 * time.Hour),
		PeriodEnd:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	// delivery fee 30 + tip 5 per seeded order
	if !settlement.TotalRevenue.Equal(decimal.RequireFromString("35")) {
		t.Fatalf("driver revenue expected 35, got %s", settlement.TotalRevenue)
	}
	if !settlement.Breakdown.DeliveryFees.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("breakdown delivery fees expected 30, got %s", settlement.Breakdown.DeliveryFees)
	}
	if !settlement.Breakdown.Tips.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("breakdown tips expected 5, got %s", settlement.Breakdown.Tips)
	}
	// driver commission deduction is not charged yet
	if !settlement.TotalCommission.IsZero() {
		t.Fatalf("driver commission expected 0, got %s", settlement.TotalCommission)
	}
	if !settlement.NetAmount.Equal(settlement.TotalRevenue) {
		t.Fatalf("driver net expected %s, got %s", settlement.TotalRevenue, settlement.NetAmount)
	}
}

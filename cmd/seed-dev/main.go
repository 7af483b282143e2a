package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/models"
	"github.com/swifteats/finance_backend/utils"
)

// Dev seeding: delivered orders over the past week plus pending commissions
// for them, enough to exercise settlements, batching and reconciliation
// locally. Never point this at production.
func main() {
	orderCount := flag.Int("orders", 50, "How many delivered orders to seed")
	vendorCount := flag.Int("vendors", 5, "How many distinct vendors to spread orders over")
	driverCount := flag.Int("drivers", 8, "How many distinct drivers to spread orders over")
	seed := flag.Int64("seed", 1, "RNG seed for reproducible datasets")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = context.WithValue(ctx, utils.ContextKeyUserId, 0)
	ctx = context.WithValue(ctx, utils.ContextKeyUserName, "SeedDev")

	rng := rand.New(rand.NewSource(*seed))
	db := config.GetDB()
	now := time.Now().UTC()

	commissionRate := decimal.NewFromInt(10)

	for i := 0; i < *orderCount; i++ {
		deliveredAt := now.Add(-time.Duration(rng.Intn(7*24)) * time.Hour)
		total := decimal.NewFromInt(int64(1000 + rng.Intn(20000))).Div(decimal.NewFromInt(10))
		deliveryFee := decimal.NewFromInt(int64(100 + rng.Intn(400))).Div(decimal.NewFromInt(10))
		tip := decimal.NewFromInt(int64(rng.Intn(100))).Div(decimal.NewFromInt(10))
		platformFee := total.Mul(commissionRate).Div(decimal.NewFromInt(100)).Round(4)

		order := models.Order{
			OrderNumber: fmt.Sprintf("DEV-%06d", i+1),
			VendorId:    1 + rng.Intn(*vendorCount),
			DriverId:    1 + rng.Intn(*driverCount),
			CustomerId:  1 + rng.Intn(100),
			TotalAmount: total,
			DeliveryFee: deliveryFee,
			Tip:         tip,
			PlatformFee: platformFee,
			Status:      models.OrderStatusDelivered,
			DeliveredAt: &deliveredAt,
		}
		if err := db.WithContext(ctx).Create(&order).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed order %d: %v\n", i+1, err)
			os.Exit(1)
		}

		_, err := models.CreateCommission(ctx, &models.NewCommission{
			SourceType:      models.CommissionSourceTypeOrder,
			SourceId:        order.ID,
			BeneficiaryType: models.BeneficiaryTypeVendor,
			BeneficiaryId:   order.VendorId,
			BaseAmount:      total,
			Rate:            commissionRate,
			CalculationType: models.CalculationTypePercentage,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed commission for order %d: %v\n", order.ID, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Seeded %d delivered orders with pending commissions across %d vendors and %d drivers\n",
		*orderCount, *vendorCount, *driverCount)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/swifteats/finance_backend/config"
	"github.com/swifteats/finance_backend/models"
	"github.com/swifteats/finance_backend/utils"
)

// Scheduled job: open a reconciliation for the previous day (or the given
// range) so finance can key in the bank statement when it arrives.
func main() {
	periodType := flag.String("period-type", "Daily", "Period type: Daily, Weekly, Monthly or Custom")
	from := flag.String("from", "", "Optional: period start (YYYY-MM-DD). Defaults to yesterday.")
	to := flag.String("to", "", "Optional: period end (YYYY-MM-DD). Defaults to today.")
	notes := flag.String("notes", "", "Optional: notes to attach to the run")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	// History rows expect actor fields.
	ctx = context.WithValue(ctx, utils.ContextKeyUserId, 0)
	ctx = context.WithValue(ctx, utils.ContextKeyUserName, "RunReconciliation")

	parsedType := models.ReconciliationPeriodType(strings.TrimSpace(*periodType))
	if !parsedType.Valid() {
		fmt.Fprintf(os.Stderr, "invalid period type %q\n", *periodType)
		os.Exit(1)
	}

	now := time.Now().UTC()
	periodEnd := now.Truncate(24 * time.Hour)
	periodStart := periodEnd.Add(-24 * time.Hour)
	if strings.TrimSpace(*from) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*from))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid from date: %v\n", err)
			os.Exit(1)
		}
		periodStart = parsed
	}
	if strings.TrimSpace(*to) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*to))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid to date: %v\n", err)
			os.Exit(1)
		}
		periodEnd = parsed
	}

	reconciliation, err := models.CreateReconciliation(ctx, &models.NewReconciliation{
		PeriodType:  parsedType,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Notes:       *notes,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create reconciliation: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created reconciliation %s (%s) for %s to %s: orders=%d revenue=%s commissions=%s payouts=%s\n",
		reconciliation.ReconciliationNumber, reconciliation.PeriodType,
		periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"),
		reconciliation.OrdersCount, reconciliation.SystemRevenue,
		reconciliation.SystemCommissions, reconciliation.SystemPayouts)
}

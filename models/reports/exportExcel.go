package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportDailyFinanceSummaryExcel streams the daily summary for the given
// range as an xlsx attachment.
func ExportDailyFinanceSummaryExcel(ctx context.Context, w http.ResponseWriter, fromDate time.Time, toDate time.Time) error {

	data, err := GetDailyFinanceSummary(ctx, fromDate, toDate)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Day")
	f.SetCellValue("Sheet1", "B1", "Orders")
	f.SetCellValue("Sheet1", "C1", "GrossRevenue")
	f.SetCellValue("Sheet1", "D1", "Refunds")
	f.SetCellValue("Sheet1", "E1", "PlatformFees")
	f.SetCellValue("Sheet1", "F1", "CommissionsAccrued")
	f.SetCellValue("Sheet1", "G1", "CommissionsPaid")
	f.SetCellValue("Sheet1", "H1", "PayoutsCompleted")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue("Sheet1", "A"+row, d.Day.Format("2006-01-02"))
		f.SetCellValue("Sheet1", "B"+row, d.OrdersCount)
		f.SetCellValue("Sheet1", "C"+row, d.GrossRevenue.InexactFloat64())
		f.SetCellValue("Sheet1", "D"+row, d.Refunds.InexactFloat64())
		f.SetCellValue("Sheet1", "E"+row, d.PlatformFees.InexactFloat64())
		f.SetCellValue("Sheet1", "F"+row, d.CommissionsAccrued.InexactFloat64())
		f.SetCellValue("Sheet1", "G"+row, d.CommissionsPaid.InexactFloat64())
		f.SetCellValue("Sheet1", "H"+row, d.PayoutsCompleted.InexactFloat64())
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=daily-finance-summary.xlsx")
	return f.Write(w)
}

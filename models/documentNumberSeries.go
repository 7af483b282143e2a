package models

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	SeriesPayoutBatch    = "PB"
	SeriesSettlement     = "ST"
	SeriesReconciliation = "RC"
)

// DocumentNumberSeries holds one atomically-incremented counter per
// (series, calendar month). Numbers reset each month and never repeat within
// one, even under concurrent creation: the reserving INSERT .. ON DUPLICATE
// KEY UPDATE takes a row lock that is held until the caller's transaction
// commits.
type DocumentNumberSeries struct {
	Series     string    `gorm:"primaryKey;size:10;autoIncrement:false" json:"series"`
	Period     string    `gorm:"primaryKey;size:6;autoIncrement:false" json:"period"` // YYYYMM
	LastNumber int       `gorm:"not null" json:"last_number"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NextDocumentNumber reserves the next sequence number for the series in the
// month containing at, inside the caller's transaction. Must be called with
// a tx from db.Begin(); rolling back releases the reservation.
func NextDocumentNumber(tx *gorm.DB, ctx context.Context, series string, at time.Time) (string, error) {
	period := at.UTC().Format("200601")

	err := tx.WithContext(ctx).Exec(`
		INSERT INTO document_number_series (series, period, last_number, updated_at)
		VALUES (?, ?, 1, NOW())
		ON DUPLICATE KEY UPDATE last_number = last_number + 1, updated_at = NOW()
	`, series, period).Error
	if err != nil {
		return "", err
	}

	var lastNumber int
	err = tx.WithContext(ctx).Raw(`
		SELECT last_number FROM document_number_series WHERE series = ? AND period = ?
	`, series, period).Scan(&lastNumber).Error
	if err != nil {
		return "", err
	}

	return FormatDocumentNumber(series, period, lastNumber), nil
}

// FormatDocumentNumber renders e.g. ("PB", "202609", 12) as "PB-202609-0012".
func FormatDocumentNumber(series string, period string, n int) string {
	return fmt.Sprintf("%s-%s-%04d", series, period, n)
}

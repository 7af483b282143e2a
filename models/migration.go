package models

import (
	"log"

	"github.com/swifteats/finance_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Order{},
		&Commission{},
		&Settlement{},
		&PayoutBatch{}, &PayoutItem{},
		&Reconciliation{}, &ReconciliationIssue{},
		&DocumentNumberSeries{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

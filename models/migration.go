package models

import (
	"log"

	"github.com/goldenfork/ledger_backend/config"
)

// MigrateTable runs schema migration explicitly. It is called from the server
// startup and the migrate command before any traffic is served, never as a
// side effect of a request.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Account{},
		&JournalEntry{},
		&JournalLine{},
		&LedgerEntry{},
		&SupplierInvoice{},
		&SalaryRecord{},
		&ReconciliationReport{},
	)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

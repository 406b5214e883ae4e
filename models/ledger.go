package models

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is the denormalized per-line projection the reports read.
// It is derived from posted journal lines only and carries no truth of its
// own: reconciliation rebuilds it from the journal.
type LedgerEntry struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	AccountID   string          `gorm:"column:account_id;size:20;index:idx_ledger_account_date;not null" json:"account_id"`
	Date        time.Time       `gorm:"type:date;index:idx_ledger_account_date;not null" json:"date"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"credit"`
	Description string          `gorm:"size:500" json:"description"`
	JournalID   uint            `gorm:"index;not null" json:"journal_id"`
	LineID      uint            `gorm:"uniqueIndex;not null" json:"line_id"`
	BranchCode  *string         `gorm:"size:20;index" json:"branch_code"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// applyLedgerProjection writes one ledger row per journal line, in the same
// transaction as the posting. line_id is unique so a replay cannot double-book.
func applyLedgerProjection(tx *gorm.DB, ctx context.Context, entry *JournalEntry, lines []JournalLine) error {
	rows := make([]LedgerEntry, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, ledgerRowForLine(entry, &line))
	}
	if len(rows) == 0 {
		return nil
	}
	err := tx.WithContext(ctx).Create(&rows).Error
	return wrapDuplicateKey(err, "ledger line")
}

func ledgerRowForLine(entry *JournalEntry, line *JournalLine) LedgerEntry {
	return LedgerEntry{
		AccountID:   line.AccountID,
		Date:        line.LineDate,
		Debit:       line.Debit,
		Credit:      line.Credit,
		Description: fmt.Sprintf("JE %s L%d %s", entry.EntryNumber, line.LineNo, line.Description),
		JournalID:   entry.ID,
		LineID:      line.ID,
		BranchCode:  entry.BranchCode,
	}
}

// CreditNormal reports whether balances of this type grow on the credit side.
func CreditNormal(accountType AccountType) bool {
	switch accountType {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeTax:
		return true
	}
	return false
}

// AccountDebitCreditAsOf sums posted journal lines for one account up to and
// including asof. The journal is the source of truth here, not the ledger.
func AccountDebitCreditAsOf(ctx context.Context, code string, asof time.Time) (decimal.Decimal, decimal.Decimal, error) {

	db := config.GetDB()

	var row struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	err := db.WithContext(ctx).Model(&JournalLine{}).
		Select("COALESCE(SUM(journal_lines.debit), 0) AS debit, COALESCE(SUM(journal_lines.credit), 0) AS credit").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.journal_id").
		Where("journal_entries.status = ?", JournalStatusPosted).
		Where("journal_lines.account_id = ?", codeKey(code)).
		Where("journal_lines.line_date <= ?", asof.Format(dateLayout)).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return row.Debit, row.Credit, nil
}

// AccountBalanceAsOf applies the sign convention: credit-normal types report
// credit minus debit, the rest debit minus credit.
func AccountBalanceAsOf(ctx context.Context, code string, asof time.Time) (decimal.Decimal, error) {
	acc, err := GetAccount(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	debit, credit, err := AccountDebitCreditAsOf(ctx, acc.Code, asof)
	if err != nil {
		return decimal.Zero, err
	}
	if CreditNormal(acc.Type) {
		return credit.Sub(debit), nil
	}
	return debit.Sub(credit), nil
}

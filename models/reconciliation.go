package models

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("goldenfork-ledger")

// ReconciliationReport is one persisted finding of a reconciliation run.
// Rows share a correlation id so one run can be read back as a unit.
type ReconciliationReport struct {
	ID            uint            `gorm:"primary_key" json:"id"`
	CorrelationID string          `gorm:"index;size:40;not null" json:"correlation_id"`
	RunAt         time.Time       `gorm:"index;not null" json:"run_at"`
	AccountID     string          `gorm:"column:account_id;size:20;index;not null" json:"account_id"`
	Date          time.Time       `gorm:"type:date;not null" json:"date"`
	Finding       string          `gorm:"type:enum('mismatch','missing_in_ledger','extra_in_ledger');size:20;not null" json:"finding"`
	JournalDebit  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"journal_debit"`
	JournalCredit decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"journal_credit"`
	LedgerDebit   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"ledger_debit"`
	LedgerCredit  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"ledger_credit"`
	Fixed         bool            `gorm:"not null;default:false" json:"fixed"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type reconKey struct {
	AccountID string
	Date      string
}

type reconSums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// ReconciliationSummary is the caller-facing result of one run.
type ReconciliationSummary struct {
	CorrelationID   string `json:"correlation_id"`
	KeysChecked     int    `json:"keys_checked"`
	Matches         int    `json:"matches"`
	Mismatches      int    `json:"mismatches"`
	MissingInLedger int    `json:"missing_in_ledger"`
	ExtraInLedger   int    `json:"extra_in_ledger"`
	RowsInserted    int    `json:"rows_inserted"`
	Fixed           bool   `json:"fixed"`
}

func (s *ReconciliationSummary) Clean() bool {
	return s.Mismatches == 0 && s.MissingInLedger == 0 && s.ExtraInLedger == 0
}

func aggregateJournalByAccountDate(ctx context.Context) (map[reconKey]reconSums, error) {
	db := config.GetDB()
	var rows []struct {
		AccountID string
		Date      time.Time
		Debit     decimal.Decimal
		Credit    decimal.Decimal
	}
	err := db.WithContext(ctx).Model(&JournalLine{}).
		Select("journal_lines.account_id, journal_lines.line_date AS date, SUM(journal_lines.debit) AS debit, SUM(journal_lines.credit) AS credit").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.journal_id").
		Where("journal_entries.status = ?", JournalStatusPosted).
		Group("journal_lines.account_id, journal_lines.line_date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[reconKey]reconSums, len(rows))
	for _, r := range rows {
		out[reconKey{AccountID: r.AccountID, Date: r.Date.Format(dateLayout)}] = reconSums{Debit: r.Debit, Credit: r.Credit}
	}
	return out, nil
}

func aggregateLedgerByAccountDate(ctx context.Context) (map[reconKey]reconSums, error) {
	db := config.GetDB()
	var rows []struct {
		AccountID string
		Date      time.Time
		Debit     decimal.Decimal
		Credit    decimal.Decimal
	}
	err := db.WithContext(ctx).Model(&LedgerEntry{}).
		Select("account_id, date, SUM(debit) AS debit, SUM(credit) AS credit").
		Group("account_id, date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[reconKey]reconSums, len(rows))
	for _, r := range rows {
		out[reconKey{AccountID: r.AccountID, Date: r.Date.Format(dateLayout)}] = reconSums{Debit: r.Debit, Credit: r.Credit}
	}
	return out, nil
}

// Reconcile compares the journal and the ledger projection aggregated by
// (account, date). With fix set it re-derives missing ledger rows from posted
// journal lines. Extra ledger rows are reported, never deleted: deletions go
// through a human. The run is guarded by a distributed lock so overlapping
// runs cannot double-insert.
func Reconcile(ctx context.Context, fix bool) (*ReconciliationSummary, error) {

	logger := config.GetLogger()

	ctx, span := tracer.Start(ctx, "ledger.reconcile")
	defer span.End()

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "ledger:reconcile", 5*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return nil, NewValidationError("a reconciliation run is already in progress")
		}
		if err == nil {
			defer lock.Release(context.WithoutCancel(ctx))
		}
	}

	journal, err := aggregateJournalByAccountDate(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := aggregateLedgerByAccountDate(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ReconciliationSummary{
		CorrelationID: uuid.NewString(),
		Fixed:         fix,
	}
	runAt := time.Now()
	var findings []ReconciliationReport
	var fixKeys []reconKey

	for key, j := range journal {
		summary.KeysChecked++
		l, ok := ledger[key]
		date, _ := time.Parse(dateLayout, key.Date)
		switch {
		case !ok:
			summary.MissingInLedger++
			findings = append(findings, ReconciliationReport{
				CorrelationID: summary.CorrelationID, RunAt: runAt,
				AccountID: key.AccountID, Date: date, Finding: "missing_in_ledger",
				JournalDebit: j.Debit, JournalCredit: j.Credit,
				LedgerDebit: decimal.Zero, LedgerCredit: decimal.Zero,
				Fixed: fix,
			})
			fixKeys = append(fixKeys, key)
		case !j.Debit.Equal(l.Debit) || !j.Credit.Equal(l.Credit):
			summary.Mismatches++
			findings = append(findings, ReconciliationReport{
				CorrelationID: summary.CorrelationID, RunAt: runAt,
				AccountID: key.AccountID, Date: date, Finding: "mismatch",
				JournalDebit: j.Debit, JournalCredit: j.Credit,
				LedgerDebit: l.Debit, LedgerCredit: l.Credit,
				Fixed: fix,
			})
			fixKeys = append(fixKeys, key)
		default:
			summary.Matches++
		}
	}
	for key, l := range ledger {
		if _, ok := journal[key]; ok {
			continue
		}
		summary.ExtraInLedger++
		date, _ := time.Parse(dateLayout, key.Date)
		findings = append(findings, ReconciliationReport{
			CorrelationID: summary.CorrelationID, RunAt: runAt,
			AccountID: key.AccountID, Date: date, Finding: "extra_in_ledger",
			JournalDebit: decimal.Zero, JournalCredit: decimal.Zero,
			LedgerDebit: l.Debit, LedgerCredit: l.Credit,
			Fixed: false,
		})
	}

	if fix && len(fixKeys) > 0 {
		inserted, err := insertMissingLedgerRows(ctx, fixKeys)
		if err != nil {
			return nil, err
		}
		summary.RowsInserted = inserted
	}

	if len(findings) > 0 {
		db := config.GetDB()
		if err := db.WithContext(ctx).Create(&findings).Error; err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"module":         "reconciliation",
			"correlation_id": summary.CorrelationID,
			"mismatches":     summary.Mismatches,
			"missing":        summary.MissingInLedger,
			"extra":          summary.ExtraInLedger,
		}).Warn("ledger drift detected")
	}
	return summary, nil
}

// insertMissingLedgerRows re-derives ledger rows from posted journal lines
// for the drifted keys. The unique line_id makes the insert idempotent: lines
// already projected are skipped, existing rows are never modified.
func insertMissingLedgerRows(ctx context.Context, keys []reconKey) (int, error) {

	db := config.GetDB()
	inserted := 0

	for _, key := range keys {
		var lines []JournalLine
		err := db.WithContext(ctx).Model(&JournalLine{}).
			Joins("JOIN journal_entries ON journal_entries.id = journal_lines.journal_id").
			Where("journal_entries.status = ?", JournalStatusPosted).
			Where("journal_lines.account_id = ? AND journal_lines.line_date = ?", key.AccountID, key.Date).
			Find(&lines).Error
		if err != nil {
			return inserted, err
		}
		for i := range lines {
			var exists int64
			if err := db.WithContext(ctx).Model(&LedgerEntry{}).
				Where("line_id = ?", lines[i].ID).Count(&exists).Error; err != nil {
				return inserted, err
			}
			if exists > 0 {
				continue
			}
			entry, err := utils.FetchModel[JournalEntry](ctx, lines[i].JournalID)
			if err != nil {
				return inserted, err
			}
			row := ledgerRowForLine(entry, &lines[i])
			if err := db.WithContext(ctx).Create(&row).Error; err != nil {
				return inserted, fmt.Errorf("insert ledger row for line %d: %w", lines[i].ID, err)
			}
			inserted++
		}
	}
	return inserted, nil
}

// GetReconciliationRun reads back the persisted findings of one run.
// "latest" resolves to the most recent run that produced findings.
func GetReconciliationRun(ctx context.Context, correlationID string) ([]*ReconciliationReport, error) {
	if correlationID == "latest" {
		var last ReconciliationReport
		err := config.GetDB().WithContext(ctx).Order("run_at DESC, id DESC").First(&last).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		correlationID = last.CorrelationID
	}
	findings, err := utils.FetchAllModelsWhere[ReconciliationReport](ctx, "correlation_id = ?", correlationID)
	if err != nil {
		return nil, err
	}
	if len(findings) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return findings, nil
}

// CheckDrift is the read-only probe used by the admin surface: it reconciles
// without fixing and returns a typed error when drift exists.
func CheckDrift(ctx context.Context) (*ReconciliationSummary, error) {
	summary, err := Reconcile(ctx, false)
	if err != nil {
		return nil, err
	}
	if !summary.Clean() {
		return summary, &ReconciliationDriftError{
			Mismatches:    summary.Mismatches + summary.MissingInLedger,
			ExtraInLedger: summary.ExtraInLedger,
		}
	}
	return summary, nil
}

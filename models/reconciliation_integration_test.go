package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/goldenfork/ledger_backend/models/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileCleanAfterPosting(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-01-15", "1000.00"))
	require.NoError(t, err)

	summary, err := models.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.True(t, summary.Clean())
	assert.Equal(t, 2, summary.KeysChecked)
	assert.Equal(t, 2, summary.Matches)
}

func TestReconcileDetectsAndFixesMissingLedgerRows(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	entry, err := models.PostJournal(ctx, salesEntry("2025-01-15", "1000.00"))
	require.NoError(t, err)

	// simulate drift: drop the projection for one account
	db := config.GetDB()
	require.NoError(t, db.Where("account_id = ?", "1111").Delete(&models.LedgerEntry{}).Error)

	summary, err := models.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.False(t, summary.Clean())
	assert.Equal(t, 1, summary.MissingInLedger)

	// findings are persisted with the run's correlation id
	var findings []models.ReconciliationReport
	require.NoError(t, db.Where("correlation_id = ?", summary.CorrelationID).Find(&findings).Error)
	require.Len(t, findings, 1)
	assert.Equal(t, "missing_in_ledger", findings[0].Finding)
	assert.Equal(t, "1111", findings[0].AccountID)

	fixed, err := models.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed.RowsInserted)

	after, err := models.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.True(t, after.Clean())

	// auto-fix is idempotent
	again, err := models.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, again.RowsInserted)

	// the re-derived row carries the original line description
	var row models.LedgerEntry
	require.NoError(t, db.Where("account_id = ?", "1111").First(&row).Error)
	assert.Equal(t, entry.ID, row.JournalID)
	assert.Contains(t, row.Description, "JE "+entry.EntryNumber)
}

func TestReconcileNeverDeletesExtraLedgerRows(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-01-15", "1000.00"))
	require.NoError(t, err)

	// an orphan row someone inserted by hand
	db := config.GetDB()
	orphanDate, _ := time.Parse("2006-01-02", "2025-01-20")
	orphan := models.LedgerEntry{
		AccountID: "1112",
		Date:      orphanDate,
		Debit:     d("55.00"),
		LineID:    999999,
	}
	require.NoError(t, db.Create(&orphan).Error)

	summary, err := models.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExtraInLedger)

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Where("account_id = ?", "1112").Count(&count).Error)
	assert.Equal(t, int64(1), count, "extra rows are reported, not deleted")
}

func TestBalanceSheetIdentity(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-01-15", "1000.00"))
	require.NoError(t, err)
	_, err = models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-01-16",
		Kind: models.TransactionKindPurchase,
		Lines: []*models.NewJournalLine{
			{AccountID: "1161", Debit: d("400.00")},
			{AccountID: "2111", Credit: d("400.00")},
		},
	})
	require.NoError(t, err)

	asof, _ := time.Parse("2006-01-02", "2025-01-31")
	bs, err := reports.BalanceSheet(ctx, asof)
	require.NoError(t, err)

	assert.True(t, bs.TotalAssets.Equal(d("1400.00")), "assets %s", bs.TotalAssets)
	assert.True(t, bs.TotalLiabilities.Equal(d("400.00")))
	assert.True(t, bs.Equity.Equal(bs.TotalAssets.Sub(bs.TotalLiabilities)))
}

func TestIncomeStatementPrefersRollforwardAndSurfacesSource(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	// revenue 1000
	_, err := models.PostJournal(ctx, salesEntry("2025-01-10", "1000.00"))
	require.NoError(t, err)

	// purchase invoice drives the rollforward
	_, err = models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber:  "INV-100",
		InvoiceKind:    models.InvoiceKindPurchase,
		SupplierName:   "Acme",
		Date:           "2025-01-05",
		TotalBeforeTax: d("300.00"),
		Total:          d("345.00"),
		TaxAmount:      d("45.00"),
	})
	require.NoError(t, err)

	// journal COGS of 250 diverges from the rollforward's 300
	_, err = models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-01-20",
		Kind: models.TransactionKindManual,
		Lines: []*models.NewJournalLine{
			{AccountID: "5110", Debit: d("250.00")},
			{AccountID: "1161", Credit: d("250.00")},
		},
	})
	require.NoError(t, err)

	from, _ := time.Parse("2006-01-02", "2025-01-01")
	to, _ := time.Parse("2006-01-02", "2025-01-31")
	is, err := reports.IncomeStatement(ctx, from, to, nil)
	require.NoError(t, err)

	assert.Equal(t, "rollforward", is.CogsSource)
	assert.True(t, is.CogsBreakdown.Purchases.Equal(d("300.00")))
	assert.True(t, is.CogsBreakdown.Journal.Equal(d("250.00")))
	assert.True(t, is.Revenue.Equal(d("1000.00")))
	assert.True(t, is.GrossProfit.Equal(is.Revenue.Sub(is.Cogs)))

	// other income and expenses are carried as explicit zeros, so net
	// before tax articulates straight from operating profit
	assert.True(t, is.OtherIncome.IsZero())
	assert.True(t, is.OtherExpenses.IsZero())
	assert.True(t, is.NetBeforeTax.Equal(is.OperatingProfit.Add(is.OtherIncome).Sub(is.OtherExpenses)))
	assert.True(t, is.NetAfterTax.Equal(is.NetBeforeTax.Sub(is.Tax)))
}

func TestIncomeStatementFiltersPurchasesByBranch(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	city := "CT"
	pier := "PI"
	_, err := models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber:  "INV-200",
		InvoiceKind:    models.InvoiceKindPurchase,
		SupplierName:   "Acme",
		Date:           "2025-01-05",
		TotalBeforeTax: d("300.00"),
		Total:          d("300.00"),
		BranchCode:     &city,
	})
	require.NoError(t, err)
	_, err = models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber:  "INV-201",
		InvoiceKind:    models.InvoiceKindPurchase,
		SupplierName:   "Acme",
		Date:           "2025-01-06",
		TotalBeforeTax: d("200.00"),
		Total:          d("200.00"),
		BranchCode:     &pier,
	})
	require.NoError(t, err)

	from, _ := time.Parse("2006-01-02", "2025-01-01")
	to, _ := time.Parse("2006-01-02", "2025-01-31")

	all, err := reports.IncomeStatement(ctx, from, to, nil)
	require.NoError(t, err)
	assert.True(t, all.CogsBreakdown.Purchases.Equal(d("500.00")))

	cityOnly, err := reports.IncomeStatement(ctx, from, to, &city)
	require.NoError(t, err)
	assert.True(t, cityOnly.CogsBreakdown.Purchases.Equal(d("300.00")),
		"branch purchases, got %s", cityOnly.CogsBreakdown.Purchases)
}

func TestAccountStatementRunningBalance(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-01-10", "500.00"))
	require.NoError(t, err)
	_, err = models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-02-05",
		Kind: models.TransactionKindExpense,
		Lines: []*models.NewJournalLine{
			{AccountID: "5210", Debit: d("120.00")},
			{AccountID: "1111", Credit: d("120.00")},
		},
	})
	require.NoError(t, err)

	from, _ := time.Parse("2006-01-02", "2025-02-01")
	to, _ := time.Parse("2006-01-02", "2025-02-28")
	stmt, err := reports.AccountStatement(ctx, "1111", from, to)
	require.NoError(t, err)

	assert.True(t, stmt.OpeningBalance.Equal(d("500.00")), "january sale is the opening, got %s", stmt.OpeningBalance)
	require.Len(t, stmt.Lines, 1)
	assert.True(t, stmt.Lines[0].Credit.Equal(d("120.00")))
	assert.True(t, stmt.ClosingBalance.Equal(d("380.00")))
}

func TestDeactivateAccountCascadesAndBlocksPosting(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	// deactivating the cash parent takes the drawers down with it
	_, err := models.SetAccountActive(ctx, "1110", false)
	require.NoError(t, err)

	child, err := models.GetAccount(ctx, "1111")
	require.NoError(t, err)
	require.NotNil(t, child.Active)
	assert.False(t, *child.Active)

	_, err = models.PostJournal(ctx, salesEntry("2025-01-15", "100.00"))
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "inactive")

	_, err = models.SetAccountActive(ctx, "1110", true)
	require.NoError(t, err)
	_, err = models.PostJournal(ctx, salesEntry("2025-01-15", "100.00"))
	assert.NoError(t, err)
}

func TestAddSubAccountGeneratesNextCode(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	account, err := models.AddSubAccount(ctx, &models.NewSubAccount{
		ParentCode: "1120",
		NameAr:     "بنك جديد",
		NameEn:     "New Bank",
	})
	require.NoError(t, err)
	assert.Equal(t, "1124", account.Code)
	assert.Equal(t, models.AccountTypeAsset, account.Type)
	require.NotNil(t, account.ParentAccountCode)
	assert.Equal(t, "1120", *account.ParentAccountCode)

	// the generated code is a usable leaf right away
	_, err = models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-01-15",
		Kind: models.TransactionKindManual,
		Lines: []*models.NewJournalLine{
			{AccountID: account.Code, Debit: d("10.00")},
			{AccountID: "4111", Credit: d("10.00")},
		},
	})
	assert.NoError(t, err)
}

func TestPayrollRunIsSettledInFull(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.CreateSalaryRecord(ctx, &models.NewSalaryRecord{
		Year: 2025, Month: 8, EmployeeName: "Ali", TotalSalary: d("3000.00"),
	})
	require.NoError(t, err)
	_, err = models.CreateSalaryRecord(ctx, &models.NewSalaryRecord{
		Year: 2025, Month: 8, EmployeeName: "Omar", TotalSalary: d("2000.00"),
	})
	require.NoError(t, err)

	// accrue the run
	_, err = models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-08-31",
		Kind: models.TransactionKindSalary,
		Lines: []*models.NewJournalLine{
			{AccountID: "5310", Debit: d("5000.00")},
			{AccountID: "2121", Credit: d("5000.00")},
		},
	})
	require.NoError(t, err)

	// partial settlement is rejected
	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind: models.QuickTxnPayLiability, Date: "2025-09-01",
		Amount: d("4000.00"), LiabilityCode: "2121", Year: 2025, Month: 8,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be settled in full")

	// a month with no salary rows is not found
	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind: models.QuickTxnPayLiability, Date: "2025-09-01",
		Amount: d("5000.00"), LiabilityCode: "2121", Year: 2025, Month: 9,
	})
	require.Error(t, err)
	assert.True(t, models.IsNotFoundError(err))

	result, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind: models.QuickTxnPayLiability, Date: "2025-09-01",
		Amount: d("5000.00"), LiabilityCode: "2121", Year: 2025, Month: 8,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Entry)

	db := config.GetDB()
	var unpaid int64
	require.NoError(t, db.Model(&models.SalaryRecord{}).
		Where("year = ? AND month = ? AND status <> ?", 2025, 8, models.InvoiceStatusPaid).
		Count(&unpaid).Error)
	assert.Equal(t, int64(0), unpaid, "every salary row is marked paid")

	// paying the same run again finds nothing outstanding
	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind: models.QuickTxnPayLiability, Date: "2025-09-02",
		Amount: d("5000.00"), LiabilityCode: "2121", Year: 2025, Month: 8,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outstanding dues")
}

func TestReconciliationRunReadBack(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-01-15", "1000.00"))
	require.NoError(t, err)

	db := config.GetDB()
	require.NoError(t, db.Where("account_id = ?", "1111").Delete(&models.LedgerEntry{}).Error)

	summary, err := models.Reconcile(ctx, true)
	require.NoError(t, err)

	findings, err := models.GetReconciliationRun(ctx, summary.CorrelationID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "missing_in_ledger", findings[0].Finding)
	assert.True(t, findings[0].Fixed)

	_, err = models.GetReconciliationRun(ctx, "no-such-run")
	require.Error(t, err)
	assert.True(t, models.IsNotFoundError(err))

	// after the fix the drift probe is clean
	probe, err := models.CheckDrift(ctx)
	require.NoError(t, err)
	assert.True(t, probe.Clean())
}

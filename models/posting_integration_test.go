package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/goldenfork/ledger_backend/models"
	"github.com/goldenfork/ledger_backend/models/reports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func salesEntry(date, amount string) *models.NewJournalEntry {
	return &models.NewJournalEntry{
		Date: date,
		Kind: models.TransactionKindSales,
		Lines: []*models.NewJournalLine{
			{AccountID: "1111", Debit: d(amount)},
			{AccountID: "4111", Credit: d(amount)},
		},
	}
}

func TestPostSalesEntryUpdatesTrialBalance(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	entry, err := models.PostJournal(ctx, salesEntry("2025-01-15", "1000.00"))
	require.NoError(t, err)
	assert.Equal(t, models.JournalStatusPosted, entry.Status)
	assert.Equal(t, "JE-0001", entry.EntryNumber)
	require.Len(t, entry.Lines, 2)

	asof, _ := time.Parse("2006-01-02", "2025-01-15")
	tb, err := reports.TrialBalance(ctx, asof)
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.True(t, tb.TotalDebit.Equal(d("1000.00")), "total debit %s", tb.TotalDebit)
	assert.True(t, tb.TotalCredit.Equal(d("1000.00")))

	var cashRow, revenueRow, assetsRoot *reports.TrialBalanceRow
	for i := range tb.Rows {
		switch tb.Rows[i].Code {
		case "1111":
			cashRow = &tb.Rows[i]
		case "4111":
			revenueRow = &tb.Rows[i]
		case "1000":
			assetsRoot = &tb.Rows[i]
		}
	}
	require.NotNil(t, cashRow)
	require.NotNil(t, revenueRow)
	require.NotNil(t, assetsRoot, "aggregate rows carry descendant sums")
	assert.True(t, cashRow.Debit.Equal(d("1000.00")))
	assert.True(t, revenueRow.Credit.Equal(d("1000.00")))
	assert.True(t, assetsRoot.Debit.Equal(d("1000.00")))

	// before the entry date nothing shows
	before, _ := time.Parse("2006-01-02", "2025-01-14")
	tbBefore, err := reports.TrialBalance(ctx, before)
	require.NoError(t, err)
	assert.True(t, tbBefore.TotalDebit.IsZero())
}

func TestPostRejectsAggregateAccount(t *testing.T) {
	setupIntegration(t)

	_, err := models.PostJournal(context.Background(), &models.NewJournalEntry{
		Date: "2025-01-15",
		Kind: models.TransactionKindManual,
		Lines: []*models.NewJournalLine{
			{AccountID: "1000", Debit: d("100.00")},
			{AccountID: "4111", Credit: d("100.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "is aggregate, cannot post")
}

func TestPostRejectsUnbalancedEntryWithExactDifference(t *testing.T) {
	setupIntegration(t)

	_, err := models.PostJournal(context.Background(), &models.NewJournalEntry{
		Date: "2025-01-15",
		Kind: models.TransactionKindManual,
		Lines: []*models.NewJournalLine{
			{AccountID: "1111", Debit: d("100.00")},
			{AccountID: "4111", Credit: d("90.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "difference 10.00")
}

func TestPostRejectsUnknownAccount(t *testing.T) {
	setupIntegration(t)

	_, err := models.PostJournal(context.Background(), &models.NewJournalEntry{
		Date: "2025-01-15",
		Kind: models.TransactionKindManual,
		Lines: []*models.NewJournalLine{
			{AccountID: "9999", Debit: d("10.00")},
			{AccountID: "4111", Credit: d("10.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, models.IsNotFoundError(err))
}

func TestRoleValidationOnSalesKind(t *testing.T) {
	setupIntegration(t)

	// an expense account may not take the debit side of a sales entry
	_, err := models.PostJournal(context.Background(), &models.NewJournalEntry{
		Date: "2025-02-01",
		Kind: models.TransactionKindSales,
		Lines: []*models.NewJournalLine{
			{AccountID: "5210", Debit: d("100.00")},
			{AccountID: "4111", Credit: d("100.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "not allowed on the debit side")
}

func TestEntryNumbersAreSequential(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	first, err := models.PostJournal(ctx, salesEntry("2025-01-10", "10.00"))
	require.NoError(t, err)
	second, err := models.PostJournal(ctx, salesEntry("2025-01-11", "20.00"))
	require.NoError(t, err)

	assert.Equal(t, "JE-0001", first.EntryNumber)
	assert.Equal(t, "JE-0002", second.EntryNumber)
}

func TestReverseJournal(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	entry, err := models.PostJournal(ctx, salesEntry("2025-03-01", "250.00"))
	require.NoError(t, err)

	date := "2025-03-05"
	reversal, err := models.ReverseJournal(ctx, entry.EntryNumber, &models.ReverseJournalInput{Date: &date})
	require.NoError(t, err)
	require.Len(t, reversal.Lines, 2)
	assert.True(t, reversal.Lines[0].Credit.Equal(d("250.00")), "sides swapped")
	assert.True(t, reversal.Lines[1].Debit.Equal(d("250.00")))

	// reversing twice is rejected
	_, err = models.ReverseJournal(ctx, entry.EntryNumber, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))

	asof, _ := time.Parse("2006-01-02", "2025-03-31")
	balance, err := models.AccountBalanceAsOf(ctx, "1111", asof)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "reversal nets to zero, got %s", balance)
}

func TestBatchPostingIsPartialSuccess(t *testing.T) {
	setupIntegration(t)

	result, err := models.PostJournalBatch(context.Background(), []*models.NewJournalEntry{
		salesEntry("2025-01-15", "100.00"),
		{
			Date: "2025-01-15",
			Kind: models.TransactionKindManual,
			Lines: []*models.NewJournalLine{
				{AccountID: "1111", Debit: d("50.00")},
				{AccountID: "4111", Credit: d("40.00")},
			},
		},
		salesEntry("2025-01-16", "200.00"),
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Reason, "not balanced")
}

func TestPayLiabilityRejectsOverpayment(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	// accrue 500.00 of salaries onto 2121
	_, err := models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-04-01",
		Kind: models.TransactionKindSalary,
		Lines: []*models.NewJournalLine{
			{AccountID: "5310", Debit: d("500.00")},
			{AccountID: "2121", Credit: d("500.00")},
		},
	})
	require.NoError(t, err)

	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:          models.QuickTxnPayLiability,
		Date:          "2025-04-10",
		Amount:        d("500.01"),
		LiabilityCode: "2121",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "exceeds outstanding balance")

	result, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:          models.QuickTxnPayLiability,
		Date:          "2025-04-10",
		Amount:        d("500.00"),
		LiabilityCode: "2121",
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Entry)

	asof, _ := time.Parse("2006-01-02", "2025-04-30")
	balance, err := models.AccountBalanceAsOf(ctx, "2121", asof)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "liability settled, got %s", balance)
}

func TestSupplierPaymentWithNoDuesIsRejected(t *testing.T) {
	setupIntegration(t)

	_, err := models.BuildQuickTransaction(context.Background(), &models.NewQuickTransaction{
		Kind:         models.QuickTxnSupplierPayment,
		Date:         "2025-05-01",
		Amount:       d("10.00"),
		SupplierName: "Acme",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "no outstanding dues")
}

func TestSupplierPaymentAllocatesFIFO(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	older, err := models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber: "INV-001",
		InvoiceKind:   models.InvoiceKindPurchase,
		SupplierName:  "Acme",
		Date:          "2025-05-01",
		Total:         d("300.00"),
	})
	require.NoError(t, err)
	newer, err := models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber: "INV-002",
		InvoiceKind:   models.InvoiceKindPurchase,
		SupplierName:  "Acme",
		Date:          "2025-05-10",
		Total:         d("200.00"),
	})
	require.NoError(t, err)

	result, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:         models.QuickTxnSupplierPayment,
		Date:         "2025-05-20",
		Amount:       d("350.00"),
		SupplierName: "Acme",
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)

	// oldest invoice settles first
	assert.Equal(t, older.InvoiceNumber, result.Allocations[0].InvoiceNumber)
	assert.True(t, result.Allocations[0].Applied.Equal(d("300.00")))
	assert.Equal(t, models.InvoiceStatusPaid, result.Allocations[0].Status)
	assert.Equal(t, newer.InvoiceNumber, result.Allocations[1].InvoiceNumber)
	assert.True(t, result.Allocations[1].Applied.Equal(d("50.00")))
	assert.Equal(t, models.InvoiceStatusPartial, result.Allocations[1].Status)

	// overpaying the rest is rejected
	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:         models.QuickTxnSupplierPayment,
		Date:         "2025-05-21",
		Amount:       d("150.01"),
		SupplierName: "Acme",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds outstanding balance")
}

func TestCollectionRequiresReceivableBalance(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:             models.QuickTxnCollection,
		Date:             "2025-06-01",
		Amount:           d("100.00"),
		CollectionSource: "customer",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))

	// book a receivable, then collect it
	_, err = models.PostJournal(ctx, &models.NewJournalEntry{
		Date: "2025-06-01",
		Kind: models.TransactionKindSales,
		Lines: []*models.NewJournalLine{
			{AccountID: "1141", Debit: d("100.00")},
			{AccountID: "4111", Credit: d("100.00")},
		},
	})
	require.NoError(t, err)

	result, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:             models.QuickTxnCollection,
		Date:             "2025-06-02",
		Amount:           d("100.00"),
		CollectionSource: "customer",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Entry)

	asof, _ := time.Parse("2006-01-02", "2025-06-30")
	balance, err := models.AccountBalanceAsOf(ctx, "1141", asof)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestBankDepositAndOwnerDraw(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-07-01", "1000.00"))
	require.NoError(t, err)

	deposit, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:   models.QuickTxnBankDeposit,
		Date:   "2025-07-02",
		Amount: d("600.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1121", deposit.Entry.Lines[0].AccountID)
	assert.Equal(t, "1111", deposit.Entry.Lines[1].AccountID)

	draw, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:   models.QuickTxnOwnerDraw,
		Date:   "2025-07-03",
		Amount: d("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "3310", draw.Entry.Lines[0].AccountID)
	assert.Equal(t, "1111", draw.Entry.Lines[1].AccountID)

	asof, _ := time.Parse("2006-01-02", "2025-07-31")
	cash, err := models.AccountBalanceAsOf(ctx, "1111", asof)
	require.NoError(t, err)
	assert.True(t, cash.Equal(d("300.00")), "cash after deposit and draw, got %s", cash)
}

func TestQuickTransactionEntryNumbersUseOwnSequence(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-07-01", "1000.00"))
	require.NoError(t, err)

	result, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:   models.QuickTxnBankDeposit,
		Date:   "2025-07-02",
		Amount: d("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "JE-QTX-0001", result.Entry.EntryNumber)
}

func TestSupplierPaymentWithOverlappingInvoiceNumbers(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	// INV-1 is a substring of INV-10, so allocation must go by invoice
	// linkage, not by what the line descriptions happen to contain
	older, err := models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber: "INV-10",
		InvoiceKind:   models.InvoiceKindPurchase,
		SupplierName:  "Bravo",
		Date:          "2025-05-01",
		Total:         d("200.00"),
	})
	require.NoError(t, err)
	newer, err := models.CreateSupplierInvoice(ctx, &models.NewSupplierInvoice{
		InvoiceNumber: "INV-1",
		InvoiceKind:   models.InvoiceKindPurchase,
		SupplierName:  "Bravo",
		Date:          "2025-05-10",
		Total:         d("100.00"),
	})
	require.NoError(t, err)

	first, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:         models.QuickTxnSupplierPayment,
		Date:         "2025-05-20",
		Amount:       d("200.00"),
		SupplierName: "Bravo",
	})
	require.NoError(t, err)
	require.Len(t, first.Allocations, 1)
	assert.Equal(t, older.InvoiceNumber, first.Allocations[0].InvoiceNumber)
	require.NotNil(t, first.Entry.Lines[0].InvoiceID)
	assert.Equal(t, older.ID, *first.Entry.Lines[0].InvoiceID)

	// INV-1 is still fully outstanding after INV-10 was settled
	second, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:         models.QuickTxnSupplierPayment,
		Date:         "2025-05-21",
		Amount:       d("100.00"),
		SupplierName: "Bravo",
	})
	require.NoError(t, err)
	require.Len(t, second.Allocations, 1)
	assert.Equal(t, newer.InvoiceNumber, second.Allocations[0].InvoiceNumber)
	assert.True(t, second.Allocations[0].Applied.Equal(d("100.00")))
	assert.Equal(t, models.InvoiceStatusPaid, second.Allocations[0].Status)
}

func TestSimpleTransfersRequireSourceBalance(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	// nothing in the drawer yet
	_, err := models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:   models.QuickTxnOwnerDraw,
		Date:   "2025-07-01",
		Amount: d("10.00"),
	})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Contains(t, err.Error(), "no available balance")

	_, err = models.PostJournal(ctx, salesEntry("2025-07-01", "100.00"))
	require.NoError(t, err)

	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:   models.QuickTxnBankDeposit,
		Date:   "2025-07-02",
		Amount: d("100.02"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds available balance")

	_, err = models.BuildQuickTransaction(ctx, &models.NewQuickTransaction{
		Kind:   models.QuickTxnBankDeposit,
		Date:   "2025-07-02",
		Amount: d("100.00"),
	})
	require.NoError(t, err)
}

func TestConcurrentQuickTransactionsGetDistinctNumbers(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-07-01", "1000.00"))
	require.NoError(t, err)

	// different party scopes, same entry-number sequence
	inputs := []*models.NewQuickTransaction{
		{Kind: models.QuickTxnBankDeposit, Date: "2025-07-02", Amount: d("100.00")},
		{Kind: models.QuickTxnOwnerDraw, Date: "2025-07-02", Amount: d("100.00")},
	}
	type outcome struct {
		number string
		err    error
	}
	results := make(chan outcome, len(inputs))
	for _, input := range inputs {
		go func(input *models.NewQuickTransaction) {
			result, err := models.BuildQuickTransaction(ctx, input)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			results <- outcome{number: result.Entry.EntryNumber}
		}(input)
	}

	numbers := map[string]bool{}
	for range inputs {
		got := <-results
		require.NoError(t, got.err)
		numbers[got.number] = true
	}
	assert.Len(t, numbers, len(inputs))
}

func TestQuickTransactionBatchIsPartialSuccess(t *testing.T) {
	setupIntegration(t)
	ctx := context.Background()

	_, err := models.PostJournal(ctx, salesEntry("2025-07-01", "1000.00"))
	require.NoError(t, err)

	result, err := models.BuildQuickTransactionBatch(ctx, []*models.NewQuickTransaction{
		{Kind: models.QuickTxnBankDeposit, Date: "2025-07-02", Amount: d("600.00")},
		{Kind: models.QuickTxnSupplierPayment, Date: "2025-07-02", Amount: d("10.00"), SupplierName: "Nobody"},
		{Kind: models.QuickTxnOwnerDraw, Date: "2025-07-03", Amount: d("100.00")},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Reason, "no outstanding dues")
}

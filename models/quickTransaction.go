package models

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenfork/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// outstandingTolerance absorbs sub-cent residue when deciding whether an
// invoice or payroll run is settled.
var outstandingTolerance = decimal.NewFromFloat(0.01)

// payrollTolerance is wider: payroll runs are settled in one shot and the
// imported totals carry two-cent rounding.
var payrollTolerance = decimal.NewFromFloat(0.02)

// payableLiabilityCodes are the only accounts pay_liability may settle.
var payableLiabilityCodes = map[string]bool{
	"2121": true, "2122": true, "2141": true, "2131": true, "2135": true,
	"2112": true, "2113": true, "2114": true, "2115": true, "2116": true,
}

var collectionSourceCodes = map[string]string{
	"customer":         AccountCodeCustomerAR,
	"employee_advance": AccountCodeEmployeeAdvance,
	"other_receivable": AccountCodeOtherAR,
}

type NewQuickTransaction struct {
	Kind        QuickTransactionKind `json:"kind" binding:"required,oneof=supplier_payment pay_liability collection bank_deposit capital_injection owner_draw"`
	Date        string               `json:"date" binding:"required,datetime=2006-01-02"`
	Amount      decimal.Decimal      `json:"amount" binding:"required"`
	Method      string               `json:"method"`
	BranchCode  *string              `json:"branch_code"`
	Description string               `json:"description"`

	// supplier_payment
	SupplierName string `json:"supplier_name"`

	// pay_liability
	LiabilityCode string `json:"liability_code"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`

	// collection
	CollectionSource string `json:"collection_source"`

	// capital_injection
	CashCode   string `json:"cash_code"`
	EquityCode string `json:"equity_code"`
}

type QuickTransactionResult struct {
	Entry       *JournalEntry       `json:"entry"`
	Allocations []InvoiceAllocation `json:"allocations,omitempty"`
}

// InvoiceAllocation records how much of a supplier payment landed on one invoice.
type InvoiceAllocation struct {
	InvoiceNumber string          `json:"invoice_number"`
	Applied       decimal.Decimal `json:"applied"`
	Status        InvoiceStatus   `json:"status"`
}

// BuildQuickTransaction turns a high-level business action into one posted
// journal entry. Each kind runs under an advisory lock scoped to its party so
// two concurrent payments cannot both pass the outstanding-balance check.
func BuildQuickTransaction(ctx context.Context, input *NewQuickTransaction) (*QuickTransactionResult, error) {

	date, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		return nil, NewValidationError("invalid date %q, want YYYY-MM-DD", input.Date)
	}
	if !input.Amount.IsPositive() {
		return nil, NewValidationError("amount must be positive")
	}

	switch input.Kind {
	case QuickTxnSupplierPayment:
		return buildSupplierPayment(ctx, input, date)
	case QuickTxnPayLiability:
		return buildPayLiability(ctx, input, date)
	case QuickTxnCollection:
		return buildCollection(ctx, input, date)
	case QuickTxnBankDeposit:
		return buildSimpleTransfer(ctx, input, date, AccountCodeBankMain, AccountCodeMainCash, "bank deposit")
	case QuickTxnCapitalInjection:
		return buildCapitalInjection(ctx, input, date)
	case QuickTxnOwnerDraw:
		return buildSimpleTransfer(ctx, input, date, AccountCodeOwnerDraws, resolveMethodAccount(input.Method), "owner draw")
	default:
		return nil, NewValidationError("unknown quick transaction kind %s", input.Kind)
	}
}

type QuickTransactionBatchResult struct {
	Created []*QuickTransactionResult `json:"created"`
	Errors  []BatchError              `json:"errors"`
}

// BuildQuickTransactionBatch runs each transaction independently, same
// partial-success contract as journal batch posting.
func BuildQuickTransactionBatch(ctx context.Context, inputs []*NewQuickTransaction) (*QuickTransactionBatchResult, error) {
	result := &QuickTransactionBatchResult{Created: []*QuickTransactionResult{}, Errors: []BatchError{}}
	for i, input := range inputs {
		one, err := BuildQuickTransaction(ctx, input)
		if err != nil {
			if IsValidationError(err) || IsNotFoundError(err) || IsIntegrityConflict(err) {
				result.Errors = append(result.Errors, BatchError{Index: i, Reason: err.Error()})
				continue
			}
			return nil, err
		}
		result.Created = append(result.Created, one)
	}
	return result, nil
}

func buildSupplierPayment(ctx context.Context, input *NewQuickTransaction, date time.Time) (*QuickTransactionResult, error) {

	if input.SupplierName == "" {
		return nil, NewValidationError("supplier_name is required")
	}

	settlementCode := resolveMethodAccount(input.Method)
	result := &QuickTransactionResult{}

	scope := fmt.Sprintf("supplier_payment:%s", input.SupplierName)
	err := withPostingLock(ctx, []string{scope, "entry_number"}, func(tx *gorm.DB) error {

		invoices, err := supplierOpenInvoices(tx, ctx, input.SupplierName)
		if err != nil {
			return err
		}

		type open struct {
			invoice   *SupplierInvoice
			paid      decimal.Decimal
			remaining decimal.Decimal
		}
		opens := make([]open, 0, len(invoices))
		totalOutstanding := decimal.Zero
		for i := range invoices {
			inv := &invoices[i]
			paid, err := invoicePaidFromJournal(tx, ctx, inv)
			if err != nil {
				return err
			}
			remaining := inv.Total.Sub(paid)
			if remaining.GreaterThan(decimal.Zero) {
				opens = append(opens, open{invoice: inv, paid: paid, remaining: remaining})
				totalOutstanding = totalOutstanding.Add(remaining)
			}
		}

		if totalOutstanding.LessThan(outstandingTolerance) {
			return NewValidationError("supplier %s has no outstanding dues", input.SupplierName)
		}
		if input.Amount.GreaterThan(totalOutstanding.Add(outstandingTolerance)) {
			return NewValidationError("amount %s exceeds outstanding balance %s",
				input.Amount.StringFixed(2), totalOutstanding.StringFixed(2))
		}

		// FIFO over open invoices, one payables debit line per allocation.
		lines := make([]JournalLine, 0, len(opens)+1)
		left := input.Amount
		lineNo := 0
		for _, o := range opens {
			if !left.IsPositive() {
				break
			}
			applied := decimal.Min(left, o.remaining)
			left = left.Sub(applied)
			lineNo++
			lines = append(lines, JournalLine{
				LineNo:      lineNo,
				AccountID:   AccountCodeSupplierAP,
				Debit:       applied,
				Credit:      decimal.Zero,
				Description: fmt.Sprintf("payment %s invoice %s", input.SupplierName, o.invoice.InvoiceNumber),
				LineDate:    date,
				InvoiceID:   &o.invoice.ID,
			})

			newPaid := o.paid.Add(applied)
			status := InvoiceStatusPartial
			if o.invoice.Total.Sub(newPaid).LessThanOrEqual(outstandingTolerance) {
				status = InvoiceStatusPaid
			}
			if err := tx.WithContext(ctx).Model(o.invoice).Updates(map[string]any{
				"paid_amount": newPaid,
				"status":      status,
			}).Error; err != nil {
				return err
			}
			result.Allocations = append(result.Allocations, InvoiceAllocation{
				InvoiceNumber: o.invoice.InvoiceNumber,
				Applied:       applied,
				Status:        status,
			})
		}

		lines = append(lines, JournalLine{
			LineNo:      lineNo + 1,
			AccountID:   settlementCode,
			Debit:       decimal.Zero,
			Credit:      input.Amount,
			Description: fmt.Sprintf("payment to %s", input.SupplierName),
			LineDate:    date,
		})

		entry, err := postGeneratedEntry(tx, ctx, input, date,
			fmt.Sprintf("supplier payment %s", input.SupplierName), lines)
		if err != nil {
			return err
		}
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildPayLiability(ctx context.Context, input *NewQuickTransaction, date time.Time) (*QuickTransactionResult, error) {

	code := codeKey(input.LiabilityCode)
	if !payableLiabilityCodes[code] {
		return nil, NewValidationError("liability_code %s is not payable here", input.LiabilityCode)
	}
	settlementCode := resolveMethodAccount(input.Method)
	result := &QuickTransactionResult{}

	scope := fmt.Sprintf("pay_liability:%s", code)
	err := withPostingLock(ctx, []string{scope, "entry_number"}, func(tx *gorm.DB) error {

		if code == AccountCodeAccruedSalaries && input.Year != 0 && input.Month != 0 {
			// payroll run: settled in exactly one payment
			if err := utils.ValidateResourceWhere[SalaryRecord](ctx, "year = ? AND month = ?", input.Year, input.Month); err != nil {
				return err
			}
			total, paid, err := payrollRunTotals(tx, ctx, input.Year, input.Month)
			if err != nil {
				return err
			}
			remaining := total.Sub(paid)
			if remaining.LessThan(outstandingTolerance) {
				return NewValidationError("payroll %d-%02d has no outstanding dues", input.Year, input.Month)
			}
			if input.Amount.Sub(remaining).Abs().GreaterThan(payrollTolerance) {
				return NewValidationError("payroll %d-%02d must be settled in full: outstanding %s, got %s",
					input.Year, input.Month, remaining.StringFixed(2), input.Amount.StringFixed(2))
			}
			if err := markPayrollRunPaid(tx, ctx, input.Year, input.Month); err != nil {
				return err
			}
		} else {
			balance, err := AccountBalanceAsOf(ctx, code, date)
			if err != nil {
				return err
			}
			if !balance.IsPositive() {
				return NewValidationError("account %s has no outstanding dues", code)
			}
			if input.Amount.GreaterThan(balance.Add(outstandingTolerance)) {
				return NewValidationError("amount %s exceeds outstanding balance %s",
					input.Amount.StringFixed(2), balance.StringFixed(2))
			}
		}

		lines := transferLines(code, settlementCode, input.Amount, date, input.Description)
		entry, err := postGeneratedEntry(tx, ctx, input, date, "liability payment "+code, lines)
		if err != nil {
			return err
		}
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildCollection(ctx context.Context, input *NewQuickTransaction, date time.Time) (*QuickTransactionResult, error) {

	sourceCode, ok := collectionSourceCodes[input.CollectionSource]
	if !ok {
		return nil, NewValidationError("collection_source must be one of customer, employee_advance, other_receivable")
	}
	settlementCode := resolveMethodAccount(input.Method)
	result := &QuickTransactionResult{}

	scope := fmt.Sprintf("collection:%s", sourceCode)
	err := withPostingLock(ctx, []string{scope, "entry_number"}, func(tx *gorm.DB) error {

		balance, err := AccountBalanceAsOf(ctx, sourceCode, date)
		if err != nil {
			return err
		}
		if !balance.IsPositive() {
			return NewValidationError("account %s has no outstanding balance to collect", sourceCode)
		}
		if input.Amount.GreaterThan(balance.Add(outstandingTolerance)) {
			return NewValidationError("amount %s exceeds outstanding balance %s",
				input.Amount.StringFixed(2), balance.StringFixed(2))
		}

		lines := transferLines(settlementCode, sourceCode, input.Amount, date, input.Description)
		entry, err := postGeneratedEntry(tx, ctx, input, date, "collection from "+sourceCode, lines)
		if err != nil {
			return err
		}
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildCapitalInjection(ctx context.Context, input *NewQuickTransaction, date time.Time) (*QuickTransactionResult, error) {

	cashCode := codeKey(input.CashCode)
	if cashCode == "" {
		cashCode = AccountCodeMainCash
	}
	if cashCode != AccountCodeMainCash && cashCode != AccountCodeBankMain {
		return nil, NewValidationError("cash_code must be %s or %s", AccountCodeMainCash, AccountCodeBankMain)
	}
	equityCode := codeKey(input.EquityCode)
	if equityCode == "" {
		equityCode = AccountCodeRetainedEarn
	}
	if equityCode != AccountCodeRetainedEarn && equityCode != AccountCodeCurrentYear {
		return nil, NewValidationError("equity_code must be %s or %s", AccountCodeRetainedEarn, AccountCodeCurrentYear)
	}

	result := &QuickTransactionResult{}
	err := withPostingLock(ctx, []string{"capital_injection", "entry_number"}, func(tx *gorm.DB) error {
		lines := transferLines(cashCode, equityCode, input.Amount, date, input.Description)
		entry, err := postGeneratedEntry(tx, ctx, input, date, "capital injection", lines)
		if err != nil {
			return err
		}
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildSimpleTransfer(ctx context.Context, input *NewQuickTransaction, date time.Time,
	debitCode, creditCode, what string) (*QuickTransactionResult, error) {

	result := &QuickTransactionResult{}
	err := withPostingLock(ctx, []string{string(input.Kind), "entry_number"}, func(tx *gorm.DB) error {

		balance, err := AccountBalanceAsOf(ctx, creditCode, date)
		if err != nil {
			return err
		}
		if !balance.IsPositive() {
			return NewValidationError("account %s has no available balance", creditCode)
		}
		if input.Amount.GreaterThan(balance.Add(outstandingTolerance)) {
			return NewValidationError("amount %s exceeds available balance %s",
				input.Amount.StringFixed(2), balance.StringFixed(2))
		}

		lines := transferLines(debitCode, creditCode, input.Amount, date, input.Description)
		entry, err := postGeneratedEntry(tx, ctx, input, date, what, lines)
		if err != nil {
			return err
		}
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func transferLines(debitCode, creditCode string, amount decimal.Decimal, date time.Time, description string) []JournalLine {
	return []JournalLine{
		{LineNo: 1, AccountID: debitCode, Debit: amount, Credit: decimal.Zero, Description: description, LineDate: date},
		{LineNo: 2, AccountID: creditCode, Debit: decimal.Zero, Credit: amount, Description: description, LineDate: date},
	}
}

// postGeneratedEntry posts machine-built lines inside the caller's
// transaction, so invoice and payroll updates commit atomically with the
// entry. The caller's lock set must include entry_number, held until the
// transaction commits. The accounts involved are still required to be
// active leaves.
func postGeneratedEntry(tx *gorm.DB, ctx context.Context, input *NewQuickTransaction,
	date time.Time, description string, lines []JournalLine) (*JournalEntry, error) {

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i := range lines {
		if _, err := ValidateAccountRole(ctx, lines[i].AccountID, TransactionKindPayment, LineRoleDebit, input.Method); err != nil {
			return nil, err
		}
		totalDebit = totalDebit.Add(lines[i].Debit)
		totalCredit = totalCredit.Add(lines[i].Credit)
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(BalanceTolerance) {
		return nil, NewValidationError("entry not balanced: debit %s, credit %s, difference %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2),
			totalDebit.Sub(totalCredit).Abs().StringFixed(2))
	}

	if input.Description != "" {
		description = input.Description
	}
	entryInput := &NewJournalEntry{
		Date:        input.Date,
		BranchCode:  input.BranchCode,
		Description: description,
		Kind:        TransactionKindPayment,
		Method:      input.Method,
	}

	return postJournalInTx(tx, ctx, entryInput, entryNumberQtxPrefix, date, lines, totalDebit, totalCredit)
}

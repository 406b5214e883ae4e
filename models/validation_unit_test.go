package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMethodAccount(t *testing.T) {
	bankMethods := []string{"BANK", "TRANSFER", "CARD", "VISA", "MASTERCARD", "POS", "WALLET", "CHEQUE", "bank", " transfer "}
	for _, m := range bankMethods {
		assert.Equal(t, AccountCodeBankMain, resolveMethodAccount(m), "method %q", m)
	}
	cashMethods := []string{"CASH", "", "OTHER"}
	for _, m := range cashMethods {
		assert.Equal(t, AccountCodeMainCash, resolveMethodAccount(m), "method %q", m)
	}
}

func TestLineRole(t *testing.T) {
	role, keep, err := lineRole(decimal.NewFromInt(100), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, LineRoleDebit, role)

	role, keep, err = lineRole(decimal.Zero, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, LineRoleCredit, role)

	_, keep, err = lineRole(decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.False(t, keep)

	_, _, err = lineRole(decimal.NewFromInt(10), decimal.NewFromInt(10))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "either debit or credit")

	_, _, err = lineRole(decimal.NewFromInt(-1), decimal.Zero)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestValidateBalanced(t *testing.T) {
	lines := []*NewJournalLine{
		{AccountID: "1111", Debit: decimal.NewFromInt(100)},
		{AccountID: "4111", Credit: decimal.NewFromInt(100)},
	}
	debit, credit, err := ValidateBalanced(lines)
	require.NoError(t, err)
	assert.True(t, debit.Equal(decimal.NewFromInt(100)))
	assert.True(t, credit.Equal(decimal.NewFromInt(100)))
}

func TestValidateBalancedWithinTolerance(t *testing.T) {
	lines := []*NewJournalLine{
		{AccountID: "1111", Debit: decimal.NewFromFloat(100.00)},
		{AccountID: "4111", Credit: decimal.NewFromFloat(99.99)},
	}
	_, _, err := ValidateBalanced(lines)
	assert.NoError(t, err)
}

func TestValidateBalancedReportsExactImbalance(t *testing.T) {
	lines := []*NewJournalLine{
		{AccountID: "1111", Debit: decimal.NewFromFloat(100.00)},
		{AccountID: "4111", Credit: decimal.NewFromFloat(90.00)},
	}
	_, _, err := ValidateBalanced(lines)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "debit 100.00")
	assert.Contains(t, err.Error(), "credit 90.00")
	assert.Contains(t, err.Error(), "difference 10.00")
}

func TestCreditNormal(t *testing.T) {
	assert.True(t, CreditNormal(AccountTypeLiability))
	assert.True(t, CreditNormal(AccountTypeEquity))
	assert.True(t, CreditNormal(AccountTypeRevenue))
	assert.True(t, CreditNormal(AccountTypeTax))
	assert.False(t, CreditNormal(AccountTypeAsset))
	assert.False(t, CreditNormal(AccountTypeExpense))
	assert.False(t, CreditNormal(AccountTypeCogs))
}

func TestLedgerRowDescription(t *testing.T) {
	entry := &JournalEntry{ID: 7, EntryNumber: "JE-0042"}
	line := &JournalLine{ID: 31, LineNo: 2, AccountID: "1111",
		Debit: decimal.NewFromInt(50), Description: "cash side"}

	row := ledgerRowForLine(entry, line)
	assert.Equal(t, "JE JE-0042 L2 cash side", row.Description)
	assert.Equal(t, uint(7), row.JournalID)
	assert.Equal(t, uint(31), row.LineID)
	assert.Equal(t, "1111", row.AccountID)
}

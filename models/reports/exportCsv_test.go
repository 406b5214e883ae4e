package reports

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceSheetCSVHasSectionsAndTotals(t *testing.T) {
	report := &BalanceSheetReport{
		AsOf: "2025-01-31",
		CurrentAssets: []BalanceSheetLine{
			{Code: "1111", Name: "Main Cash", Balance: decimal.NewFromInt(400)},
			{Code: "1121", Name: "Main Bank", Balance: decimal.NewFromInt(600)},
		},
		TotalAssets: decimal.NewFromInt(1000),
		CurrentLiabilities: []BalanceSheetLine{
			{Code: "2111", Name: "Suppliers", Balance: decimal.NewFromInt(400)},
		},
		TotalLiabilities: decimal.NewFromInt(400),
		Equity:           decimal.NewFromInt(600),
	}

	data, err := BalanceSheetCSV(report)
	require.NoError(t, err)

	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Section,Code,Name,Balance", lines[0])
	assert.Contains(t, out, "Current Assets,1111,Main Cash,400.00")
	assert.Contains(t, out, "Current Liabilities,2111,Suppliers,400.00")
	assert.Contains(t, out, ",,Total Assets,1000.00")
	assert.Contains(t, out, ",,Total Liabilities,400.00")
	assert.Contains(t, out, ",,Equity,600.00")
}

func TestIncomeStatementCSVCarriesNetRows(t *testing.T) {
	report := &IncomeStatementReport{
		Revenue:         decimal.NewFromInt(1000),
		Cogs:            decimal.NewFromInt(300),
		CogsSource:      "journal",
		GrossProfit:     decimal.NewFromInt(700),
		OperatingProfit: decimal.NewFromInt(500),
		NetBeforeTax:    decimal.NewFromInt(500),
		Tax:             decimal.NewFromInt(50),
		NetAfterTax:     decimal.NewFromInt(450),
	}

	data, err := IncomeStatementCSV(report)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "Other Income,0.00")
	assert.Contains(t, out, "Other Expenses,0.00")
	assert.Contains(t, out, "Net Before Tax,500.00")
	assert.Contains(t, out, "Net After Tax,450.00")
}

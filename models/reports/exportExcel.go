package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TrialBalanceXLSX renders the trial balance as a workbook, one row per
// account with indentation by level and a totals row.
func TrialBalanceXLSX(report *TrialBalanceReport) ([]byte, error) {

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Trial Balance"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := []any{"Code", "Name", "Type", "Debit", "Credit"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	rowNum := 2
	for _, row := range report.Rows {
		indent := ""
		for i := 1; i < row.Level; i++ {
			indent += "  "
		}
		debit, _ := row.Debit.Float64()
		credit, _ := row.Credit.Float64()
		cells := []any{row.Code, indent + row.Name, string(row.Type), debit, credit}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &cells); err != nil {
			return nil, err
		}
		rowNum++
	}

	totalDebit, _ := report.TotalDebit.Float64()
	totalCredit, _ := report.TotalCredit.Float64()
	totals := []any{"", "Total", "", totalDebit, totalCredit}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &totals); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BalanceSheetXLSX renders the balance sheet with asset and liability
// sections and the derived equity line.
func BalanceSheetXLSX(report *BalanceSheetReport) ([]byte, error) {

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Balance Sheet"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	rowNum := 1
	writeRow := func(cells []any) error {
		err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &cells)
		rowNum++
		return err
	}
	writeSection := func(title string, lines []BalanceSheetLine) error {
		if err := writeRow([]any{title}); err != nil {
			return err
		}
		for _, line := range lines {
			balance, _ := line.Balance.Float64()
			if err := writeRow([]any{line.Code, line.Name, balance}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow([]any{"As of", report.AsOf}); err != nil {
		return nil, err
	}
	if err := writeSection("Current Assets", report.CurrentAssets); err != nil {
		return nil, err
	}
	if err := writeSection("Non-current Assets", report.NonCurrentAssets); err != nil {
		return nil, err
	}
	totalAssets, _ := report.TotalAssets.Float64()
	if err := writeRow([]any{"", "Total Assets", totalAssets}); err != nil {
		return nil, err
	}
	if err := writeSection("Current Liabilities", report.CurrentLiabilities); err != nil {
		return nil, err
	}
	if err := writeSection("Non-current Liabilities", report.NonCurrentLiabilities); err != nil {
		return nil, err
	}
	totalLiabilities, _ := report.TotalLiabilities.Float64()
	if err := writeRow([]any{"", "Total Liabilities", totalLiabilities}); err != nil {
		return nil, err
	}
	equity, _ := report.Equity.Float64()
	if err := writeRow([]any{"", "Equity", equity}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IncomeStatementXLSX renders the P&L summary plus the COGS breakdown.
func IncomeStatementXLSX(report *IncomeStatementReport) ([]byte, error) {

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Income Statement"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	toF := func(d interface{ Float64() (float64, bool) }) float64 {
		v, _ := d.Float64()
		return v
	}
	rows := [][]any{
		{"Period", report.From + " .. " + report.To},
		{"Revenue", toF(report.Revenue)},
		{"COGS", toF(report.Cogs)},
		{"COGS Source", report.CogsSource},
		{"Gross Profit", toF(report.GrossProfit)},
		{"Operating Expenses", toF(report.OperatingExpenses)},
		{"Operating Profit", toF(report.OperatingProfit)},
		{"Other Income", toF(report.OtherIncome)},
		{"Other Expenses", toF(report.OtherExpenses)},
		{"Net Before Tax", toF(report.NetBeforeTax)},
		{"VAT Out", toF(report.VatOut)},
		{"VAT In", toF(report.VatIn)},
		{"Tax", toF(report.Tax)},
		{"Net After Tax", toF(report.NetAfterTax)},
		{},
		{"COGS Breakdown"},
		{"Opening Inventory", toF(report.CogsBreakdown.Opening)},
		{"Purchases", toF(report.CogsBreakdown.Purchases)},
		{"Closing Inventory", toF(report.CogsBreakdown.Closing)},
		{"Waste", toF(report.CogsBreakdown.Waste)},
		{"Computed", toF(report.CogsBreakdown.Computed)},
		{"Journal", toF(report.CogsBreakdown.Journal)},
	}
	for i, cells := range rows {
		row := cells
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package reports

import (
	"bytes"
	"encoding/csv"
)

// IncomeStatementCSV renders the P&L summary rows the way the finance side
// expects to paste them into a sheet.
func IncomeStatementCSV(report *IncomeStatementReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Item", "Amount"},
		{"Revenue", report.Revenue.StringFixed(2)},
		{"COGS", report.Cogs.StringFixed(2)},
		{"COGS Source", report.CogsSource},
		{"Gross Profit", report.GrossProfit.StringFixed(2)},
		{"Operating Expenses", report.OperatingExpenses.StringFixed(2)},
		{"Operating Profit", report.OperatingProfit.StringFixed(2)},
		{"Other Income", report.OtherIncome.StringFixed(2)},
		{"Other Expenses", report.OtherExpenses.StringFixed(2)},
		{"Net Before Tax", report.NetBeforeTax.StringFixed(2)},
		{"Tax", report.Tax.StringFixed(2)},
		{"Net After Tax", report.NetAfterTax.StringFixed(2)},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func TrialBalanceCSV(report *TrialBalanceReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Code", "Name", "Type", "Debit", "Credit"}); err != nil {
		return nil, err
	}
	for _, row := range report.Rows {
		if err := w.Write([]string{
			row.Code, row.Name, string(row.Type),
			row.Debit.StringFixed(2), row.Credit.StringFixed(2),
		}); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"", "Total", "",
		report.TotalDebit.StringFixed(2), report.TotalCredit.StringFixed(2)}); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func BalanceSheetCSV(report *BalanceSheetReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Section", "Code", "Name", "Balance"}); err != nil {
		return nil, err
	}
	writeSection := func(title string, lines []BalanceSheetLine) error {
		for _, line := range lines {
			if err := w.Write([]string{title, line.Code, line.Name,
				line.Balance.StringFixed(2)}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeSection("Current Assets", report.CurrentAssets); err != nil {
		return nil, err
	}
	if err := writeSection("Non-current Assets", report.NonCurrentAssets); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"", "", "Total Assets", report.TotalAssets.StringFixed(2)}); err != nil {
		return nil, err
	}
	if err := writeSection("Current Liabilities", report.CurrentLiabilities); err != nil {
		return nil, err
	}
	if err := writeSection("Non-current Liabilities", report.NonCurrentLiabilities); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"", "", "Total Liabilities", report.TotalLiabilities.StringFixed(2)}); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"", "", "Equity", report.Equity.StringFixed(2)}); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func AccountStatementCSV(report *AccountStatementReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Date", "Entry", "Description", "Debit", "Credit", "Balance"}); err != nil {
		return nil, err
	}
	if err := w.Write([]string{report.From, "", "Opening Balance", "", "",
		report.OpeningBalance.StringFixed(2)}); err != nil {
		return nil, err
	}
	for _, line := range report.Lines {
		if err := w.Write([]string{
			line.Date, line.EntryNumber, line.Description,
			line.Debit.StringFixed(2), line.Credit.StringFixed(2), line.Balance.StringFixed(2),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

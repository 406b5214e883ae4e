package reports

import (
	"context"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/shopspring/decimal"
)

type AccountStatementLine struct {
	Date        string          `json:"date"`
	EntryNumber string          `json:"entry_number"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

type AccountStatementReport struct {
	AccountCode    string                 `json:"account_code"`
	AccountName    string                 `json:"account_name"`
	AccountType    models.AccountType     `json:"account_type"`
	From           string                 `json:"from"`
	To             string                 `json:"to"`
	OpeningBalance decimal.Decimal        `json:"opening_balance"`
	ClosingBalance decimal.Decimal        `json:"closing_balance"`
	Lines          []AccountStatementLine `json:"lines"`
}

// AccountStatement lists one account's posted movements in a period with an
// opening balance and a running balance per line. Statements are not cached:
// they are drill-down views and must reflect the latest posting.
func AccountStatement(ctx context.Context, code string, from, to time.Time) (*AccountStatementReport, error) {

	started := time.Now()
	defer logSlowReport("account_statement", started, code)

	acc, err := models.GetAccount(ctx, code)
	if err != nil {
		return nil, err
	}

	openingDebit, openingCredit, err := models.AccountDebitCreditAsOf(ctx, acc.Code, from.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	opening := openingDebit.Sub(openingCredit)
	if models.CreditNormal(acc.Type) {
		opening = openingCredit.Sub(openingDebit)
	}

	db := config.GetDB()
	type row struct {
		LineDate    time.Time
		EntryNumber string
		Description string
		Debit       decimal.Decimal
		Credit      decimal.Decimal
	}
	var rows []row
	err = db.WithContext(ctx).Raw(`
		SELECT jl.line_date, je.entry_number, jl.description, jl.debit, jl.credit
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.journal_id
		WHERE je.status = 'posted'
		  AND jl.account_id = ?
		  AND jl.line_date BETWEEN ? AND ?
		ORDER BY jl.line_date, jl.id`,
		acc.Code, from.Format("2006-01-02"), to.Format("2006-01-02")).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := &AccountStatementReport{
		AccountCode:    acc.Code,
		AccountName:    acc.Name,
		AccountType:    acc.Type,
		From:           from.Format("2006-01-02"),
		To:             to.Format("2006-01-02"),
		OpeningBalance: opening,
	}
	running := opening
	for _, r := range rows {
		if models.CreditNormal(acc.Type) {
			running = running.Add(r.Credit).Sub(r.Debit)
		} else {
			running = running.Add(r.Debit).Sub(r.Credit)
		}
		report.Lines = append(report.Lines, AccountStatementLine{
			Date:        r.LineDate.Format("2006-01-02"),
			EntryNumber: r.EntryNumber,
			Description: r.Description,
			Debit:       r.Debit,
			Credit:      r.Credit,
			Balance:     running,
		})
	}
	report.ClosingBalance = running
	return report, nil
}

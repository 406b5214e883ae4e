package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/shopspring/decimal"
)

type BalanceSheetLine struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceSheetReport struct {
	AsOf                  string             `json:"as_of"`
	CurrentAssets         []BalanceSheetLine `json:"current_assets"`
	NonCurrentAssets      []BalanceSheetLine `json:"non_current_assets"`
	TotalAssets           decimal.Decimal    `json:"total_assets"`
	CurrentLiabilities    []BalanceSheetLine `json:"current_liabilities"`
	NonCurrentLiabilities []BalanceSheetLine `json:"non_current_liabilities"`
	TotalLiabilities      decimal.Decimal    `json:"total_liabilities"`
	Equity                decimal.Decimal    `json:"equity"`
}

// BalanceSheet reports leaf asset and liability balances as of a date.
// Equity is derived as assets minus liabilities rather than summed from
// equity accounts, so the statement always articulates with the P&L.
func BalanceSheet(ctx context.Context, asof time.Time) (*BalanceSheetReport, error) {

	started := time.Now()
	defer logSlowReport("balance_sheet", started, asof.Format("2006-01-02"))

	key := fmt.Sprintf("report:balance_sheet:%s", asof.Format("2006-01-02"))
	return cachedReport(key, func() (*BalanceSheetReport, error) {
		return buildBalanceSheet(ctx, asof)
	})
}

func buildBalanceSheet(ctx context.Context, asof time.Time) (*BalanceSheetReport, error) {

	db := config.GetDB()

	type row struct {
		Code   string
		Name   string
		Type   models.AccountType
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT a.code, a.name, a.type,
		       COALESCE(SUM(jl.debit), 0) AS debit, COALESCE(SUM(jl.credit), 0) AS credit
		FROM accounts a
		JOIN journal_lines jl ON jl.account_id = a.code
		JOIN journal_entries je ON je.id = jl.journal_id
		WHERE je.status = 'posted' AND jl.line_date <= ?
		  AND a.type IN ('ASSET', 'LIABILITY', 'TAX')
		GROUP BY a.code, a.name, a.type
		ORDER BY a.code`, asof.Format("2006-01-02")).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := &BalanceSheetReport{AsOf: asof.Format("2006-01-02")}
	for _, r := range rows {
		if r.Type == models.AccountTypeAsset {
			balance := r.Debit.Sub(r.Credit)
			if balance.IsZero() {
				continue
			}
			line := BalanceSheetLine{Code: r.Code, Name: r.Name, Balance: balance}
			if strings.HasPrefix(r.Code, "12") {
				report.NonCurrentAssets = append(report.NonCurrentAssets, line)
			} else {
				report.CurrentAssets = append(report.CurrentAssets, line)
			}
			report.TotalAssets = report.TotalAssets.Add(balance)
			continue
		}
		balance := r.Credit.Sub(r.Debit)
		if balance.IsZero() {
			continue
		}
		line := BalanceSheetLine{Code: r.Code, Name: r.Name, Balance: balance}
		if strings.HasPrefix(r.Code, "22") {
			report.NonCurrentLiabilities = append(report.NonCurrentLiabilities, line)
		} else {
			report.CurrentLiabilities = append(report.CurrentLiabilities, line)
		}
		report.TotalLiabilities = report.TotalLiabilities.Add(balance)
	}

	report.Equity = report.TotalAssets.Sub(report.TotalLiabilities)
	return report, nil
}

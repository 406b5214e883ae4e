package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/shopspring/decimal"
)

type TrialBalanceRow struct {
	Code   string             `json:"code"`
	Name   string             `json:"name"`
	Type   models.AccountType `json:"type"`
	Level  int                `json:"level"`
	Leaf   bool               `json:"leaf"`
	Debit  decimal.Decimal    `json:"debit"`
	Credit decimal.Decimal    `json:"credit"`
}

type TrialBalanceReport struct {
	AsOf        string            `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

var typeOrder = map[models.AccountType]int{
	models.AccountTypeAsset:     0,
	models.AccountTypeLiability: 1,
	models.AccountTypeEquity:    2,
	models.AccountTypeRevenue:   3,
	models.AccountTypeExpense:   4,
	models.AccountTypeCogs:      5,
	models.AccountTypeTax:       6,
}

// TrialBalance lists every account with its posted debit/credit sums up to
// asof. Aggregate accounts carry the recursive sum of their descendant
// leaves, so each level of the tree balances on its own.
func TrialBalance(ctx context.Context, asof time.Time) (*TrialBalanceReport, error) {

	started := time.Now()
	defer logSlowReport("trial_balance", started, asof.Format("2006-01-02"))

	key := fmt.Sprintf("report:trial_balance:%s", asof.Format("2006-01-02"))
	return cachedReport(key, func() (*TrialBalanceReport, error) {
		return buildTrialBalance(ctx, asof)
	})
}

func buildTrialBalance(ctx context.Context, asof time.Time) (*TrialBalanceReport, error) {

	db := config.GetDB()

	var accounts []models.Account
	if err := db.WithContext(ctx).Order("code").Find(&accounts).Error; err != nil {
		return nil, err
	}

	byCode := make(map[string]*models.Account, len(accounts))
	childCount := make(map[string]int)
	for i := range accounts {
		byCode[accounts[i].Code] = &accounts[i]
		if accounts[i].ParentAccountCode != nil {
			childCount[*accounts[i].ParentAccountCode]++
		}
	}

	type sumRow struct {
		AccountID string
		Debit     decimal.Decimal
		Credit    decimal.Decimal
	}
	var sums []sumRow
	err := db.WithContext(ctx).Raw(`
		SELECT jl.account_id, COALESCE(SUM(jl.debit), 0) AS debit, COALESCE(SUM(jl.credit), 0) AS credit
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.journal_id
		WHERE je.status = 'posted' AND jl.line_date <= ?
		GROUP BY jl.account_id`, asof.Format("2006-01-02")).Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	debits := make(map[string]decimal.Decimal)
	credits := make(map[string]decimal.Decimal)
	for _, s := range sums {
		// roll leaf sums up through the parent chain
		code := s.AccountID
		for code != "" {
			debits[code] = debits[code].Add(s.Debit)
			credits[code] = credits[code].Add(s.Credit)
			acc, ok := byCode[code]
			if !ok || acc.ParentAccountCode == nil {
				break
			}
			code = *acc.ParentAccountCode
		}
	}

	report := &TrialBalanceReport{AsOf: asof.Format("2006-01-02")}
	for i := range accounts {
		acc := &accounts[i]
		debit := debits[acc.Code]
		credit := credits[acc.Code]
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		leaf := childCount[acc.Code] == 0
		report.Rows = append(report.Rows, TrialBalanceRow{
			Code:   acc.Code,
			Name:   acc.Name,
			Type:   acc.Type,
			Level:  acc.Level,
			Leaf:   leaf,
			Debit:  debit,
			Credit: credit,
		})
		if leaf {
			report.TotalDebit = report.TotalDebit.Add(debit)
			report.TotalCredit = report.TotalCredit.Add(credit)
		}
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if typeOrder[a.Type] != typeOrder[b.Type] {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		return a.Code < b.Code
	})
	report.Balanced = report.TotalDebit.Sub(report.TotalCredit).Abs().
		LessThanOrEqual(models.BalanceTolerance)
	return report, nil
}

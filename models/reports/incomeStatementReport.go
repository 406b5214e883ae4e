package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type IncomeStatementLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CogsBreakdown surfaces both COGS derivations so divergence is visible
// instead of silently picking one.
type CogsBreakdown struct {
	Opening   decimal.Decimal `json:"opening"`
	Purchases decimal.Decimal `json:"purchases"`
	Closing   decimal.Decimal `json:"closing"`
	Waste     decimal.Decimal `json:"waste"`
	Computed  decimal.Decimal `json:"computed"`
	Journal   decimal.Decimal `json:"journal"`
}

type IncomeStatementReport struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	BranchCode *string `json:"branch_code"`

	Revenue      decimal.Decimal       `json:"revenue"`
	RevenueLines []IncomeStatementLine `json:"revenue_lines"`

	Cogs          decimal.Decimal       `json:"cogs"`
	CogsSource    string                `json:"cogs_source"`
	CogsBreakdown CogsBreakdown         `json:"cogs_breakdown"`
	CogsLines     []IncomeStatementLine `json:"cogs_lines"`

	GrossProfit decimal.Decimal `json:"gross_profit"`

	OperatingExpenses decimal.Decimal       `json:"operating_expenses"`
	OpexLines         []IncomeStatementLine `json:"opex_lines"`

	OperatingProfit decimal.Decimal `json:"operating_profit"`

	OtherIncome   decimal.Decimal `json:"other_income"`
	OtherExpenses decimal.Decimal `json:"other_expenses"`
	NetBeforeTax  decimal.Decimal `json:"net_before_tax"`

	VatOut decimal.Decimal `json:"vat_out"`
	VatIn  decimal.Decimal `json:"vat_in"`
	Tax    decimal.Decimal `json:"tax"`

	NetAfterTax decimal.Decimal `json:"net_after_tax"`
}

// IncomeStatement builds the P&L for a period, optionally filtered to one
// branch. COGS is derived two ways: the inventory rollforward (opening +
// purchases - closing + waste) and the posted COGS journal lines. The
// rollforward is preferred when positive, the report always says which
// source won, and a divergence between the two is logged.
func IncomeStatement(ctx context.Context, from, to time.Time, branchCode *string) (*IncomeStatementReport, error) {

	started := time.Now()
	params := fmt.Sprintf("%s..%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	defer logSlowReport("income_statement", started, params)

	branch := ""
	if branchCode != nil {
		branch = *branchCode
	}
	key := fmt.Sprintf("report:income_statement:%s:%s:%s",
		from.Format("2006-01-02"), to.Format("2006-01-02"), branch)
	return cachedReport(key, func() (*IncomeStatementReport, error) {
		return buildIncomeStatement(ctx, from, to, branchCode)
	})
}

func buildIncomeStatement(ctx context.Context, from, to time.Time, branchCode *string) (*IncomeStatementReport, error) {

	report := &IncomeStatementReport{
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		BranchCode: branchCode,
	}

	revenueLines, err := sumLinesByType(ctx, []models.AccountType{models.AccountTypeRevenue}, true, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	report.RevenueLines = revenueLines
	for _, l := range revenueLines {
		report.Revenue = report.Revenue.Add(l.Amount)
	}

	cogsLines, err := sumLinesByType(ctx, []models.AccountType{models.AccountTypeCogs}, false, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	report.CogsLines = cogsLines
	cogsJournal := decimal.Zero
	for _, l := range cogsLines {
		cogsJournal = cogsJournal.Add(l.Amount)
	}

	opexLines, err := sumLinesByType(ctx, []models.AccountType{models.AccountTypeExpense}, false, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	report.OpexLines = opexLines
	for _, l := range opexLines {
		report.OperatingExpenses = report.OperatingExpenses.Add(l.Amount)
	}

	breakdown, err := cogsRollforward(ctx, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	breakdown.Journal = cogsJournal
	report.CogsBreakdown = *breakdown

	if breakdown.Computed.IsPositive() {
		report.Cogs = breakdown.Computed
		report.CogsSource = "rollforward"
	} else {
		report.Cogs = cogsJournal
		report.CogsSource = "journal"
	}
	if divergence := breakdown.Computed.Sub(cogsJournal).Abs(); breakdown.Computed.IsPositive() &&
		divergence.GreaterThan(models.BalanceTolerance) {
		config.GetLogger().WithFields(logrus.Fields{
			"module":      "reports",
			"report":      "income_statement",
			"rollforward": breakdown.Computed.StringFixed(2),
			"journal":     cogsJournal.StringFixed(2),
			"divergence":  divergence.StringFixed(2),
		}).Warn("cogs sources diverge")
	}

	report.GrossProfit = report.Revenue.Sub(report.Cogs)
	report.OperatingProfit = report.GrossProfit.Sub(report.OperatingExpenses)
	report.NetBeforeTax = report.OperatingProfit.Add(report.OtherIncome).Sub(report.OtherExpenses)

	vatOut, err := sumAccountInPeriod(ctx, models.AccountCodeOutputVAT, true, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	vatIn, err := sumAccountInPeriod(ctx, models.AccountCodeInputVAT, false, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	report.VatOut = vatOut
	report.VatIn = vatIn
	if net := vatOut.Sub(vatIn); net.IsPositive() {
		report.Tax = net
	}

	report.NetAfterTax = report.NetBeforeTax.Sub(report.Tax)
	return report, nil
}

// sumLinesByType sums posted journal lines per account for the given types.
// creditSide picks credit-debit (revenue) vs debit-credit (cost) orientation.
func sumLinesByType(ctx context.Context, types []models.AccountType, creditSide bool,
	from, to time.Time, branchCode *string) ([]IncomeStatementLine, error) {

	db := config.GetDB()

	amountExpr := "COALESCE(SUM(jl.debit - jl.credit), 0)"
	if creditSide {
		amountExpr = "COALESCE(SUM(jl.credit - jl.debit), 0)"
	}
	query := `
		SELECT a.code, a.name, ` + amountExpr + ` AS amount
		FROM accounts a
		JOIN journal_lines jl ON jl.account_id = a.code
		JOIN journal_entries je ON je.id = jl.journal_id
		WHERE je.status = 'posted'
		  AND jl.line_date BETWEEN ? AND ?
		  AND a.type IN ?`
	args := []any{from.Format("2006-01-02"), to.Format("2006-01-02"), typeStrings(types)}
	if branchCode != nil && *branchCode != "" {
		query += " AND je.branch_code = ?"
		args = append(args, *branchCode)
	}
	query += " GROUP BY a.code, a.name ORDER BY a.code"

	var lines []IncomeStatementLine
	err := db.WithContext(ctx).Raw(query, args...).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	out := lines[:0]
	for _, l := range lines {
		if !l.Amount.IsZero() {
			out = append(out, l)
		}
	}
	return out, nil
}

func sumAccountInPeriod(ctx context.Context, code string, creditSide bool,
	from, to time.Time, branchCode *string) (decimal.Decimal, error) {

	db := config.GetDB()

	amountExpr := "COALESCE(SUM(jl.debit - jl.credit), 0)"
	if creditSide {
		amountExpr = "COALESCE(SUM(jl.credit - jl.debit), 0)"
	}
	query := `
		SELECT ` + amountExpr + `
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.journal_id
		WHERE je.status = 'posted'
		  AND jl.account_id = ?
		  AND jl.line_date BETWEEN ? AND ?`
	args := []any{code, from.Format("2006-01-02"), to.Format("2006-01-02")}
	if branchCode != nil && *branchCode != "" {
		query += " AND je.branch_code = ?"
		args = append(args, *branchCode)
	}

	var amount decimal.Decimal
	err := db.WithContext(ctx).Raw(query, args...).Scan(&amount).Error
	return amount, err
}

// cogsRollforward derives cost of goods from inventory movement: opening
// stock plus period purchases minus closing stock, plus recorded waste.
func cogsRollforward(ctx context.Context, from, to time.Time, branchCode *string) (*CogsBreakdown, error) {

	db := config.GetDB()
	breakdown := &CogsBreakdown{}

	openingDate := from.AddDate(0, 0, -1)
	for _, code := range models.InventoryCodes() {
		opening, err := models.AccountBalanceAsOf(ctx, code, openingDate)
		if err != nil && !models.IsNotFoundError(err) {
			return nil, err
		}
		closing, err := models.AccountBalanceAsOf(ctx, code, to)
		if err != nil && !models.IsNotFoundError(err) {
			return nil, err
		}
		breakdown.Opening = breakdown.Opening.Add(opening)
		breakdown.Closing = breakdown.Closing.Add(closing)
	}

	query := `
		SELECT COALESCE(SUM(total_before_tax - discount_amount), 0)
		FROM supplier_invoices
		WHERE invoice_kind = 'purchase' AND date BETWEEN ? AND ?`
	args := []any{from.Format("2006-01-02"), to.Format("2006-01-02")}
	if branchCode != nil && *branchCode != "" {
		query += " AND branch_code = ?"
		args = append(args, *branchCode)
	}
	err := db.WithContext(ctx).Raw(query, args...).Scan(&breakdown.Purchases).Error
	if err != nil {
		return nil, err
	}

	waste, err := sumAccountInPeriod(ctx, models.AccountCodeMaterialWaste, false, from, to, branchCode)
	if err != nil {
		return nil, err
	}
	breakdown.Waste = waste

	computed := breakdown.Opening.Add(breakdown.Purchases).Sub(breakdown.Closing)
	if computed.IsNegative() {
		computed = decimal.Zero
	}
	if waste.IsPositive() {
		computed = computed.Add(waste)
	}
	breakdown.Computed = computed
	return breakdown, nil
}

func typeStrings(types []models.AccountType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

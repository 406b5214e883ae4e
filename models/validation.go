package models

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceTolerance absorbs rounding on per-line tax splits. Anything beyond
// one cent is a rejected entry.
var BalanceTolerance = decimal.NewFromFloat(0.01)

var bankLikeMethods = map[string]bool{
	"BANK": true, "CARD": true, "VISA": true, "MASTERCARD": true, "TRANSFER": true,
}

var methodAccountBank = map[string]bool{
	"BANK": true, "TRANSFER": true, "CARD": true, "VISA": true,
	"MASTERCARD": true, "POS": true, "WALLET": true, "CHEQUE": true,
}

// resolveMethodAccount maps a payment method to the settlement account code.
// Card, transfer and wallet settlements land on the main bank account, the
// rest is cash drawer.
func resolveMethodAccount(method string) string {
	if methodAccountBank[strings.ToUpper(strings.TrimSpace(method))] {
		return AccountCodeBankMain
	}
	return AccountCodeMainCash
}

// ValidateAccountRole checks that the account may take the given side of a
// transaction of this kind. The account must exist, be a leaf and be active.
func ValidateAccountRole(ctx context.Context, code string, kind TransactionKind, role LineRole, method string) (*Account, error) {

	acc, err := requireLeafAccount(ctx, code)
	if err != nil {
		return nil, err
	}
	if acc.Active != nil && !*acc.Active {
		return nil, NewValidationError("account %s is inactive", acc.Code)
	}

	switch kind {
	case TransactionKindExpense:
		if role == LineRoleDebit {
			if acc.Type != AccountTypeExpense && acc.Type != AccountTypeCogs {
				return nil, roleError(acc, kind, role)
			}
		} else {
			if bankLikeMethods[strings.ToUpper(strings.TrimSpace(method))] {
				if !IsBankCode(acc.Code) {
					return nil, roleError(acc, kind, role)
				}
			} else if !IsCashCode(acc.Code) {
				return nil, roleError(acc, kind, role)
			}
		}
	case TransactionKindSales:
		if role == LineRoleDebit {
			if acc.Type != AccountTypeAsset {
				return nil, roleError(acc, kind, role)
			}
		} else {
			if acc.Type != AccountTypeRevenue && acc.Type != AccountTypeTax {
				return nil, roleError(acc, kind, role)
			}
		}
	case TransactionKindPurchase:
		if role == LineRoleDebit {
			if acc.Type != AccountTypeAsset && acc.Type != AccountTypeExpense && acc.Type != AccountTypeCogs {
				return nil, roleError(acc, kind, role)
			}
		} else {
			if acc.Type != AccountTypeLiability && !IsCashCode(acc.Code) && !IsBankCode(acc.Code) {
				return nil, roleError(acc, kind, role)
			}
		}
	case TransactionKindSalary:
		if role == LineRoleDebit {
			if acc.Type != AccountTypeExpense {
				return nil, roleError(acc, kind, role)
			}
		} else {
			if acc.Type != AccountTypeLiability {
				return nil, roleError(acc, kind, role)
			}
		}
	case TransactionKindPayment, TransactionKindManual:
		// any leaf account
	default:
		return nil, NewValidationError("unknown transaction kind %s", kind)
	}
	return acc, nil
}

func roleError(acc *Account, kind TransactionKind, role LineRole) error {
	return NewValidationError("account %s (%s) is not allowed on the %s side of a %s transaction",
		acc.Code, acc.Type, role, kind)
}

// lineRole classifies one line by its amounts. Zero/zero lines are skipped,
// lines with both sides set are rejected, negative amounts are rejected.
func lineRole(debit, credit decimal.Decimal) (LineRole, bool, error) {
	if debit.IsNegative() || credit.IsNegative() {
		return "", false, NewValidationError("line amounts must not be negative")
	}
	debitSet := debit.IsPositive()
	creditSet := credit.IsPositive()
	switch {
	case debitSet && creditSet:
		return "", false, NewValidationError("either debit or credit must have a value, not both")
	case debitSet:
		return LineRoleDebit, true, nil
	case creditSet:
		return LineRoleCredit, true, nil
	default:
		return "", false, nil
	}
}

// ValidateBalanced sums both sides and rejects any imbalance above the
// tolerance. The message carries the exact totals so the caller can see the
// drift without re-adding the lines.
func ValidateBalanced(lines []*NewJournalLine) (decimal.Decimal, decimal.Decimal, error) {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	diff := totalDebit.Sub(totalCredit).Abs()
	if diff.GreaterThan(BalanceTolerance) {
		return totalDebit, totalCredit, NewValidationError(
			"entry not balanced: debit %s, credit %s, difference %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2), diff.StringFixed(2))
	}
	return totalDebit, totalCredit, nil
}

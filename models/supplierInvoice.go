package models

import (
	"context"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SupplierInvoice tracks purchase and expense invoices so supplier payments
// can be allocated FIFO against what is still outstanding.
type SupplierInvoice struct {
	ID             uint            `gorm:"primary_key" json:"id"`
	InvoiceNumber  string          `gorm:"uniqueIndex;size:60;not null" json:"invoice_number"`
	InvoiceKind    InvoiceKind     `gorm:"type:enum('purchase','expense');default:'purchase';size:10;not null" json:"invoice_kind"`
	SupplierName   string          `gorm:"index;size:191;not null" json:"supplier_name"`
	Date           time.Time       `gorm:"type:date;index;not null" json:"date"`
	TotalBeforeTax decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_before_tax"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"paid_amount"`
	Status         InvoiceStatus   `gorm:"type:enum('unpaid','partial','paid');default:'unpaid';index;size:10;not null" json:"status"`
	BranchCode     *string         `gorm:"size:20;index" json:"branch_code"`
	JournalID      *uint           `gorm:"index" json:"journal_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplierInvoice struct {
	InvoiceNumber  string          `json:"invoice_number" binding:"required"`
	InvoiceKind    InvoiceKind     `json:"invoice_kind" binding:"required,oneof=purchase expense"`
	SupplierName   string          `json:"supplier_name" binding:"required"`
	Date           string          `json:"date" binding:"required,datetime=2006-01-02"`
	TotalBeforeTax decimal.Decimal `json:"total_before_tax"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total" binding:"required"`
	BranchCode     *string         `json:"branch_code"`
}

func CreateSupplierInvoice(ctx context.Context, input *NewSupplierInvoice) (*SupplierInvoice, error) {

	db := config.GetDB()

	date, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		return nil, NewValidationError("invalid date %q, want YYYY-MM-DD", input.Date)
	}
	if !input.Total.IsPositive() {
		return nil, NewValidationError("invoice total must be positive")
	}

	invoice := SupplierInvoice{
		InvoiceNumber:  input.InvoiceNumber,
		InvoiceKind:    input.InvoiceKind,
		SupplierName:   input.SupplierName,
		Date:           date,
		TotalBeforeTax: input.TotalBeforeTax,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		Total:          input.Total,
		PaidAmount:     decimal.Zero,
		Status:         InvoiceStatusUnpaid,
		BranchCode:     input.BranchCode,
	}
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, wrapDuplicateKey(err, "invoice number")
	}
	return &invoice, nil
}

// supplierOpenInvoices lists a supplier's invoices ordered for FIFO
// allocation, oldest date first, id as tiebreak.
func supplierOpenInvoices(tx *gorm.DB, ctx context.Context, supplierName string) ([]SupplierInvoice, error) {
	var invoices []SupplierInvoice
	err := tx.WithContext(ctx).
		Where("supplier_name = ?", supplierName).
		Order("date, id").
		Find(&invoices).Error
	return invoices, err
}

// invoicePaidFromJournal derives what was already paid on one invoice from
// the supplier-payables lines of posted payment entries, linked by invoice_id.
// Reversals carry the same invoice_id with the sides swapped, so the sum is
// debit minus credit. The stored paid_amount is the fallback for rows
// imported before journal linkage.
func invoicePaidFromJournal(tx *gorm.DB, ctx context.Context, invoice *SupplierInvoice) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := tx.WithContext(ctx).Model(&JournalLine{}).
		Select("COALESCE(SUM(journal_lines.debit - journal_lines.credit), 0)").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.journal_id").
		Where("journal_entries.status = ?", JournalStatusPosted).
		Where("journal_lines.account_id = ?", AccountCodeSupplierAP).
		Where("journal_lines.invoice_id = ?", invoice.ID).
		Scan(&paid).Error
	if err != nil {
		return decimal.Zero, err
	}
	if paid.IsZero() && invoice.PaidAmount.IsPositive() {
		return invoice.PaidAmount, nil
	}
	return paid, nil
}

package models

import (
	"context"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalaryRecord is one employee row of a monthly payroll run. The run accrues
// onto 2121 when posted and is settled as one pay_liability transaction.
type SalaryRecord struct {
	ID           uint            `gorm:"primary_key" json:"id"`
	Year         int             `gorm:"index:idx_salary_period;not null" json:"year"`
	Month        int             `gorm:"index:idx_salary_period;not null" json:"month"`
	EmployeeName string          `gorm:"size:191;not null" json:"employee_name"`
	TotalSalary  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_salary"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"paid_amount"`
	Status       InvoiceStatus   `gorm:"type:enum('unpaid','partial','paid');default:'unpaid';index;size:10;not null" json:"status"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSalaryRecord struct {
	Year         int             `json:"year" binding:"required,min=2000"`
	Month        int             `json:"month" binding:"required,min=1,max=12"`
	EmployeeName string          `json:"employee_name" binding:"required"`
	TotalSalary  decimal.Decimal `json:"total_salary" binding:"required"`
}

func CreateSalaryRecord(ctx context.Context, input *NewSalaryRecord) (*SalaryRecord, error) {

	db := config.GetDB()

	if !input.TotalSalary.IsPositive() {
		return nil, NewValidationError("total_salary must be positive")
	}
	record := SalaryRecord{
		Year:         input.Year,
		Month:        input.Month,
		EmployeeName: input.EmployeeName,
		TotalSalary:  input.TotalSalary,
		PaidAmount:   decimal.Zero,
		Status:       InvoiceStatusUnpaid,
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// payrollRunTotals returns (run total, already paid) for one year/month.
func payrollRunTotals(tx *gorm.DB, ctx context.Context, year, month int) (decimal.Decimal, decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
		Paid  decimal.Decimal
	}
	err := tx.WithContext(ctx).Model(&SalaryRecord{}).
		Select("COALESCE(SUM(total_salary), 0) AS total, COALESCE(SUM(paid_amount), 0) AS paid").
		Where("year = ? AND month = ?", year, month).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return row.Total, row.Paid, nil
}

func markPayrollRunPaid(tx *gorm.DB, ctx context.Context, year, month int) error {
	return tx.WithContext(ctx).Model(&SalaryRecord{}).
		Where("year = ? AND month = ?", year, month).
		Updates(map[string]any{
			"paid_amount": gorm.Expr("total_salary"),
			"status":      InvoiceStatusPaid,
		}).Error
}

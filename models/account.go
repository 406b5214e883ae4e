package models

import (
	"context"
	"errors"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/utils"
	"gorm.io/gorm"
)

type Account struct {
	Code              string      `gorm:"primary_key;size:20" json:"code"`
	Name              string      `gorm:"index;size:191;not null" json:"name" binding:"required"`
	NameAr            string      `gorm:"size:191" json:"name_ar"`
	NameEn            string      `gorm:"size:191" json:"name_en"`
	Type              AccountType `gorm:"type:enum('ASSET','LIABILITY','EQUITY','REVENUE','EXPENSE','COGS','TAX');default:'EXPENSE';index;size:10;not null" json:"type" binding:"required"`
	ParentAccountCode *string     `gorm:"index;size:20" json:"parent_account_code"`
	Level             int         `gorm:"not null;default:1" json:"level"`
	Active            *bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSubAccount struct {
	ParentCode string `json:"parent_code" binding:"required"`
	NameAr     string `json:"name_ar" binding:"required"`
	NameEn     string `json:"name_en"`
}

func GetAccount(ctx context.Context, code string) (*Account, error) {
	return utils.FetchModelWhere[Account](ctx, "code = ?", codeKey(code))
}

func codeKey(code string) string {
	return normalizeCode(code)
}

// GetAccounts lists the chart, optionally filtered by name/code substring.
func GetAccounts(ctx context.Context, name *string, code *string) ([]*Account, error) {

	db := config.GetDB()
	var results []*Account

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR name_ar LIKE ? OR name_en LIKE ?",
			"%"+*name+"%", "%"+*name+"%", "%"+*name+"%")
	}
	if code != nil && len(*code) > 0 {
		dbCtx = dbCtx.Where("code LIKE ?", "%"+*code+"%")
	}
	err := dbCtx.Order("code").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// IsLeafAccount reports whether the account has no children.
// Only leaf accounts may appear on journal lines.
func IsLeafAccount(ctx context.Context, code string) (bool, error) {
	count, err := utils.ResourceCountWhere[Account](ctx, "parent_account_code = ?", codeKey(code))
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// SetAccountActive toggles an account and cascades to all children.
func SetAccountActive(ctx context.Context, code string, active bool) (*Account, error) {

	db := config.GetDB()
	var main Account

	err := db.WithContext(ctx).Where("code = ?", codeKey(code)).First(&main).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	tx := db.Begin()
	err = setChildAccountsActive(tx, ctx, &main, active)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &main, tx.Commit().Error
}

func setChildAccountsActive(tx *gorm.DB, ctx context.Context, main *Account, active bool) error {
	err := tx.WithContext(ctx).Model(&main).Updates(Account{
		Active: &active,
	}).Error
	if err != nil {
		return err
	}

	// find & update child accounts
	var children []*Account
	err = tx.WithContext(ctx).Where("parent_account_code = ?", main.Code).Find(&children).Error
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := setChildAccountsActive(tx, ctx, child, active); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAccount removes an account that has no children and no postings.
// Accounts with history are deactivated instead, never hard-deleted.
func DeleteAccount(ctx context.Context, code string) (*Account, error) {

	db := config.GetDB()

	result, err := utils.FetchModelWhere[Account](ctx, "code = ?", codeKey(code))
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Account{}).
		Where("parent_account_code = ?", result.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewValidationError("this account has child account(s)")
	}

	if err := db.WithContext(ctx).Model(&JournalLine{}).
		Where("account_id = ?", result.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewValidationError("this account has postings")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// requireLeafAccount fetches the account and rejects aggregates and unknown codes.
func requireLeafAccount(ctx context.Context, code string) (*Account, error) {
	acc, err := GetAccount(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	leaf, err := IsLeafAccount(ctx, acc.Code)
	if err != nil {
		return nil, err
	}
	if !leaf {
		return nil, NewValidationError("account %s is aggregate, cannot post", acc.Code)
	}
	return acc, nil
}

package utils

import (
	"context"
	"errors"

	"github.com/goldenfork/ledger_backend/config"
)

// check if a record matching the condition exists, return RecordNotFound Error
func ValidateResourceWhere[T any](ctx context.Context, condition string, values ...any) error {

	count, err := ResourceCountWhere[T](ctx, condition, values...)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, column string, value interface{}) error {
	count, err := ResourceCountWhere[T](ctx, column+" = ?", value)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records matching WHERE $condition
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

package utils

import (
	"context"

	"github.com/goldenfork/ledger_backend/config"
)

/* DB fetching */

// fetch model by primary key
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id any, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch one model matching a condition
// (may return RecordNotFound)
func FetchModelWhere[T any](ctx context.Context, condition string, values ...any) (*T, error) {

	db := config.GetDB()
	var result T
	err := db.WithContext(ctx).Where(condition, values...).First(&result).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models matching a condition
func FetchAllModelsWhere[T any](ctx context.Context, condition string, values ...any) ([]*T, error) {

	db := config.GetDB()
	var results []*T
	err := db.WithContext(ctx).Where(condition, values...).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

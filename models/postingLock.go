package models

import (
	"context"
	"fmt"

	"github.com/goldenfork/ledger_backend/config"
	"gorm.io/gorm"
)

// MySQL advisory locks are session-scoped, not transaction-scoped, so the
// locks must be taken and released on the same pinned connection that runs
// the posting transaction. withPostingLock pins one connection, acquires the
// scopes in order, runs fn in a transaction on that connection, and releases
// in reverse order only after the transaction has committed or rolled back.
// Callers that need more than one lock must list the scopes in the same
// order everywhere, party scope first, entry_number last.
func withPostingLock(ctx context.Context, scopes []string, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		acquired := make([]string, 0, len(scopes))
		defer func() {
			for i := len(acquired) - 1; i >= 0; i-- {
				releasePostingLock(conn, ctx, acquired[i])
			}
		}()
		for _, scope := range scopes {
			if err := acquirePostingLock(conn, ctx, scope); err != nil {
				return err
			}
			acquired = append(acquired, scope)
		}
		return conn.Transaction(fn)
	})
}

func acquirePostingLock(conn *gorm.DB, ctx context.Context, scope string) error {
	lockName := fmt.Sprintf("ledger:posting:%s", scope)
	var got int
	err := conn.WithContext(ctx).Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&got).Error
	if err != nil {
		return err
	}
	if got != 1 {
		return fmt.Errorf("could not acquire posting lock %s", lockName)
	}
	return nil
}

func releasePostingLock(conn *gorm.DB, ctx context.Context, scope string) {
	lockName := fmt.Sprintf("ledger:posting:%s", scope)
	var released int
	_ = conn.WithContext(ctx).Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error
}

package utils

import (
	"context"

	"github.com/goldenfork/ledger_backend/appctx"
)

var (
	ContextKeyActor         = appctx.ContextKeyActor
	ContextKeyBranchCode    = appctx.ContextKeyBranchCode
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetActorFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyActor)
}

func GetBranchCodeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyBranchCode)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetActorInContext(ctx context.Context, actor string) context.Context {
	return appctx.Set(ctx, ContextKeyActor, actor)
}

func SetBranchCodeInContext(ctx context.Context, branchCode string) context.Context {
	return appctx.Set(ctx, ContextKeyBranchCode, branchCode)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

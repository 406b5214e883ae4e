package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/goldenfork/ledger_backend/utils"
	"github.com/google/uuid"
)

// RequestContext propagates the correlation id, actor and branch from the
// request headers into the request context so model functions can log and
// stamp entries without touching gin.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		correlationId := c.GetHeader("x-correlation-id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("x-correlation-id", correlationId)

		if actor := c.GetHeader("x-actor"); actor != "" {
			ctx = utils.SetActorInContext(ctx, actor)
		}
		if branch := c.GetHeader("x-branch-code"); branch != "" {
			ctx = utils.SetBranchCodeInContext(ctx, branch)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

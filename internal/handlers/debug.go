package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/angga0x/ownchat/internal/observability"
	"github.com/angga0x/ownchat/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Record(c.Request.Context(), "audit_test", "info", "audit test",
			actorIDFromContext(c), observability.RequestIDFromRequest(c.Request))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func actorIDFromContext(c *gin.Context) *int {
	id := c.GetInt("userID")
	if id == 0 {
		return nil
	}
	return &id
}

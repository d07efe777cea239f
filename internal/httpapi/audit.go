package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"evolutech-console/internal/audit"
	"evolutech-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditEvents lists recent audit events. Query: type, actor_id, tenant_id, limit.
func (h *Handlers) AuditEvents(c *gin.Context) {
	f := audit.Filter{
		Type:     audit.EventType(strings.TrimSpace(c.Query("type"))),
		ActorID:  strings.TrimSpace(c.Query("actor_id")),
		TenantID: strings.TrimSpace(c.Query("tenant_id")),
	}
	if f.Type != "" && !f.Type.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	events, err := h.Audit.Recent(c.Request.Context(), f)
	if err != nil {
		logger.FromGin(c).ErrorContext(c.Request.Context(), "audit query failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

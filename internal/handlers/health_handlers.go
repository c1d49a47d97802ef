package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Ping is the handler for GET /ping. It reports the database as well.
func (h *Handlers) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "pong!", "database": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "pong!", "database": "ok"})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trip-service/internal/models"
	"trip-service/internal/telemetry"
	"trip-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, hub *ws.Hub, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/broadcast-test/:trip_id", func(c *gin.Context) {
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub not configured"})
			return
		}
		tripID, err := strconv.Atoi(c.Param("trip_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
			return
		}
		hub.BroadcastToTrip(tripID, models.Event{
			Type:    "debugPing",
			TripID:  tripID,
			Payload: gin.H{"request_id": requestIDFromContext(c)},
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

package ws

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"trip-service/internal/middleware"
	"trip-service/internal/observability"
	"trip-service/internal/repositories"
)

// TripWebSocketHandler handles trip room websocket connections.
type TripWebSocketHandler struct {
	hub      *Hub
	tripRepo repositories.TripRepository
	verifier *middleware.TokenVerifier
}

// NewTripWebSocketHandler constructs a TripWebSocketHandler.
func NewTripWebSocketHandler(hub *Hub, tripRepo repositories.TripRepository, verifier *middleware.TokenVerifier) *TripWebSocketHandler {
	return &TripWebSocketHandler{hub: hub, tripRepo: tripRepo, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in the trip room.
func (h *TripWebSocketHandler) Handle(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	ctx, span := otel.Tracer("trip-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := tokenUserID(c, h.verifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	trip, err := h.tripRepo.GetTrip(ctx, tripID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrTripNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "trip not found"})
		return
	}
	if trip.OrganizerID != userID {
		member, err := h.tripRepo.IsConfirmedParticipant(ctx, tripID, userID)
		if err != nil || !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for trip"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddTripClient(tripID, conn, info)

	observability.IncWSActive("trip")
	publishLifecycle(ctx, "trip", tripID, info, "ws_connect", "")

	// Keep connection alive and clean on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveTripClient(tripID, conn)
			observability.DecWSActive("trip")
			publishLifecycle(ctx, "trip", tripID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishLifecycle(ctx, "trip", tripID, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

// tokenUserID resolves the caller from the Authorization header or the
// token query parameter used by browser websocket clients.
func tokenUserID(c *gin.Context, verifier *middleware.TokenVerifier) (int, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return 0, errors.New("invalid token")
	}
	return verifier.Verify(parts[1])
}

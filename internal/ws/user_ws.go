package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"trip-service/internal/middleware"
	"trip-service/internal/observability"
)

// UserWebSocketHandler handles personal channel connections used for chat
// delivery and trip-list refresh events.
type UserWebSocketHandler struct {
	hub      *Hub
	verifier *middleware.TokenVerifier
}

// NewUserWebSocketHandler constructs a UserWebSocketHandler.
func NewUserWebSocketHandler(hub *Hub, verifier *middleware.TokenVerifier) *UserWebSocketHandler {
	return &UserWebSocketHandler{hub: hub, verifier: verifier}
}

// Handle upgrades the connection and registers the client on their channel.
func (h *UserWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("trip-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := tokenUserID(c, h.verifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
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
	h.hub.AddUserClient(userID, conn, info)

	observability.IncWSActive("user")
	publishLifecycle(ctx, "user", userID, info, "ws_connect", "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveUserClient(userID, conn)
			observability.DecWSActive("user")
			publishLifecycle(ctx, "user", userID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishLifecycle(ctx, "user", userID, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trip-service/internal/models"
	"trip-service/internal/observability"
)

// Hub maintains active websocket connections: trip rooms for clients on a
// trip page and user channels for personal delivery and trip-list refresh.
type Hub struct {
	tripRooms    map[int]map[*websocket.Conn]bool
	userConns    map[int]map[*websocket.Conn]bool
	tripConnInfo map[int]map[*websocket.Conn]ConnInfo
	userConnInfo map[int]map[*websocket.Conn]ConnInfo
	mu           sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		tripRooms:    make(map[int]map[*websocket.Conn]bool),
		userConns:    make(map[int]map[*websocket.Conn]bool),
		tripConnInfo: make(map[int]map[*websocket.Conn]ConnInfo),
		userConnInfo: make(map[int]map[*websocket.Conn]ConnInfo),
	}
}

// AddTripClient registers a websocket connection to a trip room.
func (h *Hub) AddTripClient(tripID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tripRooms[tripID]; !ok {
		h.tripRooms[tripID] = make(map[*websocket.Conn]bool)
	}
	h.tripRooms[tripID][conn] = true
	if _, ok := h.tripConnInfo[tripID]; !ok {
		h.tripConnInfo[tripID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.tripConnInfo[tripID][conn] = info
}

// RemoveTripClient removes a trip room connection.
func (h *Hub) RemoveTripClient(tripID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.tripRooms[tripID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.tripRooms, tripID)
		}
	}
	if infos, ok := h.tripConnInfo[tripID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.tripConnInfo, tripID)
		}
	}
}

// AddUserClient registers a websocket connection on a user's personal channel.
func (h *Hub) AddUserClient(userID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userConns[userID]; !ok {
		h.userConns[userID] = make(map[*websocket.Conn]bool)
	}
	h.userConns[userID][conn] = true
	if _, ok := h.userConnInfo[userID]; !ok {
		h.userConnInfo[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.userConnInfo[userID][conn] = info
}

// RemoveUserClient removes a user channel connection.
func (h *Hub) RemoveUserClient(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userConns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userConns, userID)
		}
	}
	if infos, ok := h.userConnInfo[userID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.userConnInfo, userID)
		}
	}
}

// BroadcastToTrip sends an event to every connection in a trip room.
// Delivery is best-effort: write failures evict the connection and are
// never surfaced to the caller.
func (h *Hub) BroadcastToTrip(tripID int, event models.Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.tripRooms[tripID]))
	for conn := range h.tripRooms[tripID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveTripClient(tripID, conn)
			h.publishWSError("trip", tripID, conn, err)
		}
	}
}

// SendToUser sends an event to every connection on a user's channel.
func (h *Hub) SendToUser(userID int, event models.Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.userConns[userID]))
	for conn := range h.userConns[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveUserClient(userID, conn)
			h.publishWSError("user", userID, conn, err)
		}
	}
}

// BroadcastGlobal fans an event out to every user channel; trip-list views
// subscribe there.
func (h *Hub) BroadcastGlobal(event models.Event) {
	h.mu.RLock()
	userIDs := make([]int, 0, len(h.userConns))
	for userID := range h.userConns {
		userIDs = append(userIDs, userID)
	}
	h.mu.RUnlock()

	for _, userID := range userIDs {
		h.SendToUser(userID, event)
	}
}

func (h *Hub) publishWSError(kind string, resourceID int, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, resourceID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind string, resourceID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "trip" {
		if infos, ok := h.tripConnInfo[resourceID]; ok {
			info, exists := infos[conn]
			return info, exists
		}
		return ConnInfo{}, false
	}
	if infos, ok := h.userConnInfo[resourceID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == "user" {
		return "ws_events.users"
	}
	return "ws_events.trips"
}

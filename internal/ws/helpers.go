package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trip-service/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

// publishLifecycle reports a ws connect/disconnect/error to the event
// publisher and metrics. Failures are counted, never propagated.
func publishLifecycle(ctx context.Context, kind string, resourceID int, info ConnInfo, event, reason string) {
	observability.IncWSEvent(kind, event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

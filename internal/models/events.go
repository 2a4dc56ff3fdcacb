package models

// Event names pushed over WebSocket connections.
const (
	EventNewMessage       = "newMessage"
	EventTypingStatus     = "typingStatus"
	EventUserJoined       = "userJoined"
	EventUserLeft         = "userLeft"
	EventItineraryUpdated = "itineraryUpdated"
	EventTripCreated      = "tripCreated"
	EventTripUpdated      = "tripUpdated"
	EventTripDeleted      = "tripDeleted"
	EventMessageDeleted   = "messageDeleted"
	EventQuestionAnswered = "questionAnswered"
)

// Event is the envelope broadcast to trip rooms, user channels and the
// global set.
type Event struct {
	Type    string `json:"type"`
	TripID  int    `json:"trip_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// TypingPayload carries a typing status change; receivers filter out
// their own user id.
type TypingPayload struct {
	UserID   int  `json:"user_id"`
	IsTyping bool `json:"is_typing"`
}

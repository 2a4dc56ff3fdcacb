package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Discussion is the single message thread attached to a trip.
type Discussion struct {
	ID        int       `db:"id" json:"id"`
	TripID    int       `db:"trip_id" json:"trip_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Discussion message types.
const (
	MessageTypeText            = "text"
	MessageTypeSystem          = "system"
	MessageTypeItineraryUpdate = "itinerary_update"
	MessageTypeUserJoined      = "user_joined"
	MessageTypeUserLeft        = "user_left"
)

// DiscussionMessage is one entry in a trip discussion. System-generated
// entries have a nil SenderID except join/leave, which are attributed to
// the acting user.
type DiscussionMessage struct {
	ID           int          `db:"id" json:"id"`
	DiscussionID int          `db:"discussion_id" json:"discussion_id"`
	SenderID     *int         `db:"sender_id" json:"sender_id,omitempty"`
	SenderName   string       `db:"sender_name" json:"sender_name,omitempty"`
	Content      string       `db:"content" json:"content"`
	Type         string       `db:"type" json:"type"`
	Metadata     *MessageMeta `db:"metadata" json:"metadata,omitempty"`
	Edited       bool         `db:"edited" json:"edited"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// UserActionMeta describes a join/leave system message.
type UserActionMeta struct {
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
}

// ItineraryChangeMeta describes an itinerary_update system message.
type ItineraryChangeMeta struct {
	UpdatedBy int `json:"updated_by"`
	DayCount  int `json:"day_count"`
}

// MessageMeta is a tagged union keyed by the message type: exactly one
// variant is set for system messages, none for plain text.
type MessageMeta struct {
	UserAction      *UserActionMeta      `json:"user_action,omitempty"`
	ItineraryChange *ItineraryChangeMeta `json:"itinerary_change,omitempty"`
}

// Value implements driver.Valuer.
func (m *MessageMeta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *MessageMeta) Scan(src any) error {
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("message meta: unsupported scan type")
	}
	return json.Unmarshal(b, m)
}

// Presence tracks a user's last-seen timestamp and typing flag per discussion.
type Presence struct {
	DiscussionID int       `db:"discussion_id" json:"discussion_id"`
	UserID       int       `db:"user_id" json:"user_id"`
	Typing       bool      `db:"typing" json:"typing"`
	LastSeenAt   time.Time `db:"last_seen_at" json:"last_seen_at"`
}

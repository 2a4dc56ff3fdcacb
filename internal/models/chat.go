package models

import "time"

// Chat kinds.
const (
	ChatKindDirect = "direct"
	ChatKindQA     = "qa"
)

// Chat is a direct conversation between two users or a trip-scoped Q&A
// thread. LastMessageID orders chat lists by recency.
type Chat struct {
	ID             int       `db:"id" json:"id"`
	Kind           string    `db:"kind" json:"kind"`
	TripID         *int      `db:"trip_id" json:"trip_id,omitempty"`
	LastMessageID  *int      `db:"last_message_id" json:"last_message_id,omitempty"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChatParticipant links a user to a chat with a role.
type ChatParticipant struct {
	ChatID int    `db:"chat_id" json:"chat_id"`
	UserID int    `db:"user_id" json:"user_id"`
	Role   string `db:"role" json:"role"`
}

// ChatSummary is the list view of a chat for one user.
type ChatSummary struct {
	Chat
	LastMessage *ChatMessage `json:"last_message,omitempty"`
}

// Chat message types.
const (
	ChatMessageText     = "text"
	ChatMessageQuestion = "question"
)

// ChatMessage is a message inside a chat. Deleted messages are tombstoned,
// not removed. Question messages carry at most one answer.
type ChatMessage struct {
	ID         int        `db:"id" json:"id"`
	ChatID     int        `db:"chat_id" json:"chat_id"`
	SenderID   int        `db:"sender_id" json:"sender_id"`
	Content    string     `db:"content" json:"content"`
	Type       string     `db:"type" json:"type"`
	Deleted    bool       `db:"deleted" json:"deleted"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	Answered   bool       `db:"answered" json:"answered"`
	Answer     *string    `db:"answer" json:"answer,omitempty"`
	AnsweredBy *int       `db:"answered_by" json:"answered_by,omitempty"`
	AnsweredAt *time.Time `db:"answered_at" json:"answered_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

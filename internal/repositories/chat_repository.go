package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"trip-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

const chatColumns = `id, kind, trip_id, pair_key, last_message_id, last_activity_at, created_at`

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrGetDirectChat(ctx context.Context, userID, otherID int) (models.Chat, error)
	EnsureTripQAChat(ctx context.Context, tripID int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error)
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
	Participants(ctx context.Context, chatID int) ([]models.ChatParticipant, error)
	AddParticipant(ctx context.Context, chatID, userID int, role string) error
	SetLastMessage(ctx context.Context, chatID, messageID int) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// pairKey builds the unordered participant-pair key for direct chats.
func pairKey(userID, otherID int) string {
	if otherID < userID {
		userID, otherID = otherID, userID
	}
	return fmt.Sprintf("%d:%d", userID, otherID)
}

// CreateOrGetDirectChat returns the direct chat for the unordered pair,
// creating it if absent. The pair_key unique constraint turns a losing
// concurrent insert into "return existing".
func (r *ChatRepo) CreateOrGetDirectChat(ctx context.Context, userID, otherID int) (models.Chat, error) {
	if userID == otherID {
		return models.Chat{}, errors.New("cannot create chat with self")
	}
	key := pairKey(userID, otherID)

	if _, err := r.db.ExecContext(ctx, `INSERT INTO chats (kind, pair_key) VALUES ($1, $2)
        ON CONFLICT (pair_key) DO NOTHING`, models.ChatKindDirect, key); err != nil {
		return models.Chat{}, err
	}

	var chat models.Chat
	if err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE pair_key=$1`, key); err != nil {
		return models.Chat{}, err
	}

	for _, id := range []int{userID, otherID} {
		if err := r.AddParticipant(ctx, chat.ID, id, "member"); err != nil {
			return models.Chat{}, err
		}
	}
	return chat, nil
}

// EnsureTripQAChat returns the trip's Q&A chat, creating it if absent.
func (r *ChatRepo) EnsureTripQAChat(ctx context.Context, tripID int) (models.Chat, error) {
	key := fmt.Sprintf("qa:%d", tripID)
	if _, err := r.db.ExecContext(ctx, `INSERT INTO chats (kind, trip_id, pair_key) VALUES ($1, $2, $3)
        ON CONFLICT (pair_key) DO NOTHING`, models.ChatKindQA, tripID, key); err != nil {
		return models.Chat{}, err
	}
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE pair_key=$1`, key)
	return chat, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// ListChats returns the user's chats ordered by last activity, newest first,
// each with its most recent message when present.
func (r *ChatRepo) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT c.id, c.kind, c.trip_id, c.pair_key, c.last_message_id, c.last_activity_at, c.created_at
        FROM chats c INNER JOIN chat_participants cp ON cp.chat_id = c.id
        WHERE cp.user_id=$1
        ORDER BY c.last_activity_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := models.ChatSummary{Chat: chat}
		if chat.LastMessageID != nil {
			var msg models.ChatMessage
			err := r.db.GetContext(ctx, &msg, `SELECT `+chatMessageColumns+` FROM chat_messages WHERE id=$1`, *chat.LastMessageID)
			if err == nil {
				summary.LastMessage = &msg
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
		}
		result = append(result, summary)
	}
	return result, nil
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}

// Participants lists chat members.
func (r *ChatRepo) Participants(ctx context.Context, chatID int) ([]models.ChatParticipant, error) {
	var participants []models.ChatParticipant
	err := r.db.SelectContext(ctx, &participants, `SELECT chat_id, user_id, role FROM chat_participants WHERE chat_id=$1`, chatID)
	return participants, err
}

// AddParticipant adds a member if not already present.
func (r *ChatRepo) AddParticipant(ctx context.Context, chatID, userID int, role string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)
        ON CONFLICT (chat_id, user_id) DO NOTHING`, chatID, userID, role)
	return err
}

// SetLastMessage updates the chat's recency pointer.
func (r *ChatRepo) SetLastMessage(ctx context.Context, chatID, messageID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chats SET last_message_id=$2, last_activity_at=NOW() WHERE id=$1`, chatID, messageID)
	return err
}

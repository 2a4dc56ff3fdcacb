package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trip-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAQuestion    = errors.New("message is not a question")
	ErrAlreadyAnswered = errors.New("question already answered")
)

const chatMessageColumns = `id, chat_id, sender_id, content, type, deleted, deleted_at,
    answered, answer, answered_by, answered_at, created_at`

// ChatMessageRepository defines interactions for chat messages.
type ChatMessageRepository interface {
	CreateMessage(ctx context.Context, chatID, senderID int, content, msgType string) (models.ChatMessage, error)
	ListMessages(ctx context.Context, chatID, offset, limit int) ([]models.ChatMessage, error)
	GetMessage(ctx context.Context, messageID int) (models.ChatMessage, error)
	SoftDeleteMessage(ctx context.Context, messageID, senderID int) error
	MarkAllRead(ctx context.Context, chatID, userID int) error
	ListQuestions(ctx context.Context, tripID int, answered *bool) ([]models.ChatMessage, error)
	AnswerQuestion(ctx context.Context, messageID, userID int, answer string) (models.ChatMessage, error)
}

// ChatMessageRepo is a sqlx-backed implementation.
type ChatMessageRepo struct {
	db *sqlx.DB
}

// NewChatMessageRepo constructs a ChatMessageRepo.
func NewChatMessageRepo(db *sqlx.DB) *ChatMessageRepo {
	return &ChatMessageRepo{db: db}
}

// CreateMessage persists a chat message.
func (r *ChatMessageRepo) CreateMessage(ctx context.Context, chatID, senderID int, content, msgType string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (chat_id, sender_id, content, type)
        VALUES ($1, $2, $3, $4) RETURNING `+chatMessageColumns, chatID, senderID, content, msgType).
		StructScan(&msg)
	return msg, err
}

// ListMessages pages newest-first, tombstones excluded. Callers reverse the
// page to chronological order before returning it.
func (r *ChatMessageRepo) ListMessages(ctx context.Context, chatID, offset, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+chatMessageColumns+` FROM chat_messages
        WHERE chat_id=$1 AND deleted = FALSE
        ORDER BY created_at DESC, id DESC
        OFFSET $2 LIMIT $3`, chatID, offset, limit)
	return msgs, err
}

// GetMessage retrieves a single message, tombstoned or not.
func (r *ChatMessageRepo) GetMessage(ctx context.Context, messageID int) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.GetContext(ctx, &msg, `SELECT `+chatMessageColumns+` FROM chat_messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage tombstones a message; only the sender may do so.
func (r *ChatMessageRepo) SoftDeleteMessage(ctx context.Context, messageID, senderID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_messages SET deleted = TRUE, deleted_at = NOW()
        WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkAllRead records a read receipt for every message in the chat the user
// did not author. Re-running is a no-op.
func (r *ChatMessageRepo) MarkAllRead(ctx context.Context, chatID, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id)
        SELECT id, $2 FROM chat_messages WHERE chat_id=$1 AND sender_id<>$2
        ON CONFLICT (message_id, user_id) DO NOTHING`, chatID, userID)
	return err
}

// ListQuestions returns question messages from a trip's Q&A chat.
func (r *ChatMessageRepo) ListQuestions(ctx context.Context, tripID int, answered *bool) ([]models.ChatMessage, error) {
	query := `SELECT m.id, m.chat_id, m.sender_id, m.content, m.type, m.deleted, m.deleted_at,
        m.answered, m.answer, m.answered_by, m.answered_at, m.created_at
        FROM chat_messages m INNER JOIN chats c ON c.id = m.chat_id
        WHERE c.trip_id=$1 AND c.kind=$2 AND m.type=$3 AND m.deleted = FALSE`
	args := []any{tripID, models.ChatKindQA, models.ChatMessageQuestion}
	if answered != nil {
		query += ` AND m.answered=$4`
		args = append(args, *answered)
	}
	query += ` ORDER BY m.created_at ASC`

	var msgs []models.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// AnswerQuestion records the single answer on a question message. The
// answered flag is flipped in the same statement, so a second answer under
// concurrency loses the conditional update and is rejected.
func (r *ChatMessageRepo) AnswerQuestion(ctx context.Context, messageID, userID int, answer string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `UPDATE chat_messages
        SET answered = TRUE, answer=$3, answered_by=$2, answered_at = NOW()
        WHERE id=$1 AND type=$4 AND answered = FALSE
        RETURNING `+chatMessageColumns, messageID, userID, answer, models.ChatMessageQuestion).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetMessage(ctx, messageID)
		if getErr != nil {
			return models.ChatMessage{}, getErr
		}
		if existing.Type != models.ChatMessageQuestion {
			return models.ChatMessage{}, ErrNotAQuestion
		}
		return models.ChatMessage{}, ErrAlreadyAnswered
	}
	return msg, err
}

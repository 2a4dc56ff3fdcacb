package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trip-service/internal/models"
)

var ErrDiscussionNotFound = errors.New("discussion not found")

// seedMessage opens every newly created discussion.
const seedMessage = "Trip discussion started! Plan your adventure together."

const discussionMessageColumns = `id, discussion_id, sender_id, sender_name, content, type, metadata, edited, created_at`

// NewDiscussionMessage is the input for appending a message to a discussion.
type NewDiscussionMessage struct {
	SenderID   *int
	SenderName string
	Content    string
	Type       string
	Metadata   *models.MessageMeta
}

// DiscussionRepository abstracts discussion persistence.
type DiscussionRepository interface {
	GetOrCreateForTrip(ctx context.Context, tripID int) (models.Discussion, error)
	GetForTrip(ctx context.Context, tripID int) (models.Discussion, error)
	ListMessages(ctx context.Context, discussionID, offset, limit int) ([]models.DiscussionMessage, error)
	CountMessages(ctx context.Context, discussionID int) (int, error)
	CreateMessage(ctx context.Context, discussionID int, msg NewDiscussionMessage) (models.DiscussionMessage, error)
	UpsertPresence(ctx context.Context, discussionID, userID int, typing bool) error
	ListPresence(ctx context.Context, discussionID int) ([]models.Presence, error)
}

// DiscussionRepo is a sqlx implementation of DiscussionRepository.
type DiscussionRepo struct {
	db *sqlx.DB
}

// NewDiscussionRepo constructs a DiscussionRepo.
func NewDiscussionRepo(db *sqlx.DB) *DiscussionRepo {
	return &DiscussionRepo{db: db}
}

// GetOrCreateForTrip returns the trip's discussion, creating it with the
// seeded system message on first access. The unique trip_id constraint
// makes concurrent first accesses converge on one discussion.
func (r *DiscussionRepo) GetOrCreateForTrip(ctx context.Context, tripID int) (models.Discussion, error) {
	discussion, err := r.GetForTrip(ctx, tripID)
	if err == nil {
		return discussion, nil
	}
	if !errors.Is(err, ErrDiscussionNotFound) {
		return models.Discussion{}, err
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO discussions (trip_id) VALUES ($1)
        ON CONFLICT (trip_id) DO NOTHING`, tripID)
	if err != nil {
		return models.Discussion{}, err
	}

	discussion, err = r.GetForTrip(ctx, tripID)
	if err != nil {
		return models.Discussion{}, err
	}

	if inserted, _ := res.RowsAffected(); inserted > 0 {
		if _, err := r.CreateMessage(ctx, discussion.ID, NewDiscussionMessage{
			Content: seedMessage,
			Type:    models.MessageTypeSystem,
		}); err != nil {
			return models.Discussion{}, err
		}
	}
	return discussion, nil
}

// GetForTrip fetches the discussion attached to a trip.
func (r *DiscussionRepo) GetForTrip(ctx context.Context, tripID int) (models.Discussion, error) {
	var discussion models.Discussion
	err := r.db.GetContext(ctx, &discussion, `SELECT id, trip_id, created_at FROM discussions WHERE trip_id=$1`, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Discussion{}, ErrDiscussionNotFound
	}
	return discussion, err
}

// ListMessages returns messages ordered by timestamp ascending.
func (r *DiscussionRepo) ListMessages(ctx context.Context, discussionID, offset, limit int) ([]models.DiscussionMessage, error) {
	var msgs []models.DiscussionMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+discussionMessageColumns+`
        FROM discussion_messages WHERE discussion_id=$1
        ORDER BY created_at ASC, id ASC
        OFFSET $2 LIMIT $3`, discussionID, offset, limit)
	return msgs, err
}

// CountMessages returns the thread length for pagination meta.
func (r *DiscussionRepo) CountMessages(ctx context.Context, discussionID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM discussion_messages WHERE discussion_id=$1`, discussionID)
	return count, err
}

// CreateMessage appends a message to the discussion.
func (r *DiscussionRepo) CreateMessage(ctx context.Context, discussionID int, msg NewDiscussionMessage) (models.DiscussionMessage, error) {
	var created models.DiscussionMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO discussion_messages
        (discussion_id, sender_id, sender_name, content, type, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+discussionMessageColumns,
		discussionID, msg.SenderID, msg.SenderName, msg.Content, msg.Type, msg.Metadata).
		StructScan(&created)
	return created, err
}

// UpsertPresence refreshes a user's last-seen timestamp and typing flag.
func (r *DiscussionRepo) UpsertPresence(ctx context.Context, discussionID, userID int, typing bool) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO discussion_presence (discussion_id, user_id, typing, last_seen_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (discussion_id, user_id) DO UPDATE SET typing = EXCLUDED.typing, last_seen_at = NOW()`,
		discussionID, userID, typing)
	return err
}

// ListPresence returns per-user presence entries for the discussion.
func (r *DiscussionRepo) ListPresence(ctx context.Context, discussionID int) ([]models.Presence, error) {
	var entries []models.Presence
	err := r.db.SelectContext(ctx, &entries, `SELECT discussion_id, user_id, typing, last_seen_at
        FROM discussion_presence WHERE discussion_id=$1 ORDER BY last_seen_at DESC`, discussionID)
	return entries, err
}

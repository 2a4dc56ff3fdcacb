package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trip-service/internal/models"
)

var ErrRatingNotFound = errors.New("rating not found")

// ratingHideReportThreshold is the report count at which a rating is
// hidden from normal reads.
const ratingHideReportThreshold = 5

const ratingColumns = `id, reviewer_id, target_type, target_id, score, review,
    helpful_count, report_count, hidden, created_at, updated_at`

// RatingRepository abstracts rating persistence.
type RatingRepository interface {
	UpsertRating(ctx context.Context, reviewerID int, targetType string, targetID, score int, review string) (models.Rating, error)
	GetRating(ctx context.Context, ratingID int) (models.Rating, error)
	ListVisible(ctx context.Context, targetType string, targetID, offset, limit int) ([]models.Rating, error)
	Stats(ctx context.Context, targetType string, targetID int) (models.RatingStats, error)
	VoteHelpful(ctx context.Context, ratingID, userID int) (models.Rating, error)
	Report(ctx context.Context, ratingID, userID int, reason string) (models.Rating, error)
	ListByReviewer(ctx context.Context, reviewerID int) ([]models.Rating, error)
}

// RatingRepo is a sqlx implementation of RatingRepository.
type RatingRepo struct {
	db *sqlx.DB
}

// NewRatingRepo constructs a RatingRepo.
func NewRatingRepo(db *sqlx.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

// UpsertRating creates the reviewer's rating for a target, or updates it in
// place when one already exists. The unique (reviewer, target) constraint
// guarantees a single persisted row per pair.
func (r *RatingRepo) UpsertRating(ctx context.Context, reviewerID int, targetType string, targetID, score int, review string) (models.Rating, error) {
	var rating models.Rating
	err := r.db.QueryRowxContext(ctx, `INSERT INTO ratings (reviewer_id, target_type, target_id, score, review)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (reviewer_id, target_type, target_id)
        DO UPDATE SET score = EXCLUDED.score, review = EXCLUDED.review, updated_at = NOW()
        RETURNING `+ratingColumns, reviewerID, targetType, targetID, score, review).
		StructScan(&rating)
	return rating, err
}

// GetRating fetches a rating by id.
func (r *RatingRepo) GetRating(ctx context.Context, ratingID int) (models.Rating, error) {
	var rating models.Rating
	err := r.db.GetContext(ctx, &rating, `SELECT `+ratingColumns+` FROM ratings WHERE id=$1`, ratingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Rating{}, ErrRatingNotFound
	}
	return rating, err
}

// ListVisible returns non-hidden ratings for a target, newest first.
func (r *RatingRepo) ListVisible(ctx context.Context, targetType string, targetID, offset, limit int) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.SelectContext(ctx, &ratings, `SELECT `+ratingColumns+` FROM ratings
        WHERE target_type=$1 AND target_id=$2 AND hidden = FALSE
        ORDER BY created_at DESC OFFSET $3 LIMIT $4`, targetType, targetID, offset, limit)
	return ratings, err
}

// Stats aggregates visible ratings: count, average rounded to one decimal,
// and the per-score distribution.
func (r *RatingRepo) Stats(ctx context.Context, targetType string, targetID int) (models.RatingStats, error) {
	var row struct {
		Count   int     `db:"count"`
		Average float64 `db:"average"`
		S1      int     `db:"s1"`
		S2      int     `db:"s2"`
		S3      int     `db:"s3"`
		S4      int     `db:"s4"`
		S5      int     `db:"s5"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT COUNT(*) AS count,
        COALESCE(ROUND(AVG(score)::numeric, 1), 0) AS average,
        COUNT(*) FILTER (WHERE score=1) AS s1,
        COUNT(*) FILTER (WHERE score=2) AS s2,
        COUNT(*) FILTER (WHERE score=3) AS s3,
        COUNT(*) FILTER (WHERE score=4) AS s4,
        COUNT(*) FILTER (WHERE score=5) AS s5
        FROM ratings WHERE target_type=$1 AND target_id=$2 AND hidden = FALSE`, targetType, targetID)
	if err != nil {
		return models.RatingStats{}, err
	}
	return models.RatingStats{
		Count:        row.Count,
		Average:      row.Average,
		Distribution: map[int]int{1: row.S1, 2: row.S2, 3: row.S3, 4: row.S4, 5: row.S5},
	}, nil
}

// VoteHelpful records one helpful vote per user per rating; repeat votes
// leave the counter unchanged.
func (r *RatingRepo) VoteHelpful(ctx context.Context, ratingID, userID int) (models.Rating, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO rating_votes (rating_id, user_id) VALUES ($1, $2)
        ON CONFLICT (rating_id, user_id) DO NOTHING`, ratingID, userID)
	if err != nil {
		return models.Rating{}, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Rating{}, err
	}
	if inserted == 0 {
		return r.GetRating(ctx, ratingID)
	}

	var rating models.Rating
	err = r.db.QueryRowxContext(ctx, `UPDATE ratings SET helpful_count = helpful_count + 1, updated_at = NOW()
        WHERE id=$1 RETURNING `+ratingColumns, ratingID).
		StructScan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Rating{}, ErrRatingNotFound
	}
	return rating, err
}

// Report records one report per user per rating and hides the rating once
// the report count reaches the threshold. Both happen in the same atomic
// update so concurrent reports cannot miss the flip.
func (r *RatingRepo) Report(ctx context.Context, ratingID, userID int, reason string) (models.Rating, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO rating_reports (rating_id, user_id, reason) VALUES ($1, $2, $3)
        ON CONFLICT (rating_id, user_id) DO NOTHING`, ratingID, userID, reason)
	if err != nil {
		return models.Rating{}, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Rating{}, err
	}
	if inserted == 0 {
		return r.GetRating(ctx, ratingID)
	}

	var rating models.Rating
	err = r.db.QueryRowxContext(ctx, `UPDATE ratings SET report_count = report_count + 1,
        hidden = (report_count + 1 >= $2), updated_at = NOW()
        WHERE id=$1 RETURNING `+ratingColumns, ratingID, ratingHideReportThreshold).
		StructScan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Rating{}, ErrRatingNotFound
	}
	return rating, err
}

// ListByReviewer returns ratings the user has authored, hidden included.
func (r *RatingRepo) ListByReviewer(ctx context.Context, reviewerID int) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.SelectContext(ctx, &ratings, `SELECT `+ratingColumns+` FROM ratings
        WHERE reviewer_id=$1 ORDER BY created_at DESC`, reviewerID)
	return ratings, err
}

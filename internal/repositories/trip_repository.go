package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trip-service/internal/models"
)

var (
	ErrTripNotFound   = errors.New("trip not found")
	ErrTripFull       = errors.New("trip is full")
	ErrAlreadyJoined  = errors.New("already joined")
	ErrNotParticipant = errors.New("not a participant")
)

const tripColumns = `id, organizer_id, name, destination, description, capacity, participant_count,
    is_public, approved, allow_discussions, allow_itinerary_edit, itinerary,
    last_activity_at, created_at, updated_at`

// TripRepository abstracts trip persistence.
type TripRepository interface {
	CreateTrip(ctx context.Context, trip models.Trip) (models.Trip, error)
	GetTrip(ctx context.Context, tripID int) (models.Trip, error)
	ListTrips(ctx context.Context, userID int) ([]models.Trip, error)
	UpdateTrip(ctx context.Context, trip models.Trip) (models.Trip, error)
	ApproveTrip(ctx context.Context, tripID int) error
	DeleteTrip(ctx context.Context, tripID int) error
	AddParticipant(ctx context.Context, tripID, userID int) (models.Trip, error)
	RemoveParticipant(ctx context.Context, tripID, userID int) (models.Trip, error)
	IsConfirmedParticipant(ctx context.Context, tripID, userID int) (bool, error)
	UpdateItinerary(ctx context.Context, tripID int, itinerary models.Itinerary) (models.Trip, error)
	TouchActivity(ctx context.Context, tripID int) error
}

// TripRepo is a sqlx implementation of TripRepository.
type TripRepo struct {
	db *sqlx.DB
}

// NewTripRepo constructs a TripRepo.
func NewTripRepo(db *sqlx.DB) *TripRepo {
	return &TripRepo{db: db}
}

// CreateTrip inserts the trip and registers the organizer as a confirmed
// participant in one transaction.
func (r *TripRepo) CreateTrip(ctx context.Context, trip models.Trip) (models.Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Trip{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var created models.Trip
	err = tx.QueryRowxContext(ctx, `INSERT INTO trips
        (organizer_id, name, destination, description, capacity, is_public, allow_discussions, allow_itinerary_edit, itinerary)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+tripColumns,
		trip.OrganizerID, trip.Name, trip.Destination, trip.Description, trip.Capacity,
		trip.IsPublic, trip.AllowDiscussions, trip.AllowItineraryEdit, trip.Itinerary).
		StructScan(&created)
	if err != nil {
		return models.Trip{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO trip_participants (trip_id, user_id, status) VALUES ($1, $2, $3)`,
		created.ID, trip.OrganizerID, models.ParticipantConfirmed); err != nil {
		return models.Trip{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Trip{}, err
	}
	return created, nil
}

// GetTrip fetches a trip by id.
func (r *TripRepo) GetTrip(ctx context.Context, tripID int) (models.Trip, error) {
	var trip models.Trip
	err := r.db.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, ErrTripNotFound
	}
	return trip, err
}

// ListTrips returns approved public trips plus the user's own trips.
func (r *TripRepo) ListTrips(ctx context.Context, userID int) ([]models.Trip, error) {
	var trips []models.Trip
	err := r.db.SelectContext(ctx, &trips, `SELECT DISTINCT t.id, t.organizer_id, t.name, t.destination, t.description,
        t.capacity, t.participant_count, t.is_public, t.approved, t.allow_discussions, t.allow_itinerary_edit,
        t.itinerary, t.last_activity_at, t.created_at, t.updated_at
        FROM trips t
        LEFT JOIN trip_participants tp ON tp.trip_id = t.id AND tp.user_id=$1
        WHERE (t.is_public AND t.approved) OR t.organizer_id=$1 OR tp.user_id IS NOT NULL
        ORDER BY t.last_activity_at DESC`, userID)
	return trips, err
}

// UpdateTrip persists mutable trip fields.
func (r *TripRepo) UpdateTrip(ctx context.Context, trip models.Trip) (models.Trip, error) {
	var updated models.Trip
	err := r.db.QueryRowxContext(ctx, `UPDATE trips SET
        name=$2, destination=$3, description=$4, capacity=$5, is_public=$6,
        allow_discussions=$7, allow_itinerary_edit=$8, updated_at=NOW()
        WHERE id=$1 RETURNING `+tripColumns,
		trip.ID, trip.Name, trip.Destination, trip.Description, trip.Capacity,
		trip.IsPublic, trip.AllowDiscussions, trip.AllowItineraryEdit).
		StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, ErrTripNotFound
	}
	return updated, err
}

// ApproveTrip marks a trip publicly visible.
func (r *TripRepo) ApproveTrip(ctx context.Context, tripID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE trips SET approved=TRUE, updated_at=NOW() WHERE id=$1`, tripID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrTripNotFound
	}
	return nil
}

// DeleteTrip removes a trip; its discussion and participants cascade.
func (r *TripRepo) DeleteTrip(ctx context.Context, tripID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id=$1`, tripID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrTripNotFound
	}
	return nil
}

// AddParticipant joins a user to a trip. The capacity check and the count
// bump ride on a single conditional UPDATE so concurrent joins cannot
// overfill the trip.
func (r *TripRepo) AddParticipant(ctx context.Context, tripID, userID int) (models.Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Trip{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO trip_participants (trip_id, user_id, status) VALUES ($1, $2, $3)
        ON CONFLICT (trip_id, user_id) DO NOTHING`, tripID, userID, models.ParticipantConfirmed)
	if err != nil {
		return models.Trip{}, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Trip{}, err
	}
	if inserted == 0 {
		err = ErrAlreadyJoined
		return models.Trip{}, err
	}

	var trip models.Trip
	err = tx.QueryRowxContext(ctx, `UPDATE trips SET participant_count = participant_count + 1, last_activity_at=NOW()
        WHERE id=$1 AND participant_count < capacity RETURNING `+tripColumns, tripID).
		StructScan(&trip)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the trip is gone or it is at capacity.
		var exists bool
		if checkErr := tx.QueryRowxContext(ctx, `SELECT EXISTS(SELECT 1 FROM trips WHERE id=$1)`, tripID).Scan(&exists); checkErr != nil {
			err = checkErr
			return models.Trip{}, err
		}
		if exists {
			err = ErrTripFull
		} else {
			err = ErrTripNotFound
		}
		return models.Trip{}, err
	}
	if err != nil {
		return models.Trip{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Trip{}, err
	}
	return trip, nil
}

// RemoveParticipant removes a user from a trip.
func (r *TripRepo) RemoveParticipant(ctx context.Context, tripID, userID int) (models.Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Trip{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM trip_participants WHERE trip_id=$1 AND user_id=$2`, tripID, userID)
	if err != nil {
		return models.Trip{}, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return models.Trip{}, err
	}
	if removed == 0 {
		err = ErrNotParticipant
		return models.Trip{}, err
	}

	var trip models.Trip
	err = tx.QueryRowxContext(ctx, `UPDATE trips SET participant_count = GREATEST(participant_count - 1, 0), last_activity_at=NOW()
        WHERE id=$1 RETURNING `+tripColumns, tripID).
		StructScan(&trip)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrTripNotFound
		return models.Trip{}, err
	}
	if err != nil {
		return models.Trip{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Trip{}, err
	}
	return trip, nil
}

// IsConfirmedParticipant checks trip membership.
func (r *TripRepo) IsConfirmedParticipant(ctx context.Context, tripID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM trip_participants
        WHERE trip_id=$1 AND user_id=$2 AND status=$3)`, tripID, userID, models.ParticipantConfirmed)
	return exists, err
}

// UpdateItinerary replaces the itinerary in one atomic field-set.
func (r *TripRepo) UpdateItinerary(ctx context.Context, tripID int, itinerary models.Itinerary) (models.Trip, error) {
	var trip models.Trip
	err := r.db.QueryRowxContext(ctx, `UPDATE trips SET itinerary=$2, last_activity_at=NOW(), updated_at=NOW()
        WHERE id=$1 RETURNING `+tripColumns, tripID, itinerary).
		StructScan(&trip)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, ErrTripNotFound
	}
	return trip, err
}

// TouchActivity refreshes the trip's last-activity timestamp.
func (r *TripRepo) TouchActivity(ctx context.Context, tripID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE trips SET last_activity_at=NOW() WHERE id=$1`, tripID)
	return err
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Trip represents a planned trip owned by its organizer.
type Trip struct {
	ID                 int       `db:"id" json:"id"`
	OrganizerID        int       `db:"organizer_id" json:"organizer_id"`
	Name               string    `db:"name" json:"name"`
	Destination        string    `db:"destination" json:"destination"`
	Description        string    `db:"description" json:"description"`
	Capacity           int       `db:"capacity" json:"capacity"`
	ParticipantCount   int       `db:"participant_count" json:"participant_count"`
	IsPublic           bool      `db:"is_public" json:"is_public"`
	Approved           bool      `db:"approved" json:"approved"`
	AllowDiscussions   bool      `db:"allow_discussions" json:"allow_discussions"`
	AllowItineraryEdit bool      `db:"allow_itinerary_edit" json:"allow_itinerary_edit"`
	Itinerary          Itinerary `db:"itinerary" json:"itinerary"`
	LastActivityAt     time.Time `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Participant statuses.
const (
	ParticipantPending   = "pending"
	ParticipantConfirmed = "confirmed"
)

// TripParticipant links a user to a trip.
type TripParticipant struct {
	TripID   int       `db:"trip_id" json:"trip_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	Status   string    `db:"status" json:"status"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// ItineraryActivity is a single activity within an itinerary day.
type ItineraryActivity struct {
	Title   string `json:"title"`
	AddedBy int    `json:"added_by"`
}

// ItineraryDay is an ordered day of activities.
type ItineraryDay struct {
	Title      string              `json:"title"`
	Activities []ItineraryActivity `json:"activities"`
}

// Itinerary is the ordered sequence of days stored as JSONB.
type Itinerary []ItineraryDay

// Value implements driver.Valuer.
func (it Itinerary) Value() (driver.Value, error) {
	if it == nil {
		return json.Marshal(Itinerary{})
	}
	return json.Marshal(it)
}

// Scan implements sql.Scanner.
func (it *Itinerary) Scan(src any) error {
	if src == nil {
		*it = Itinerary{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("itinerary: unsupported scan type")
	}
	return json.Unmarshal(b, it)
}

package models

import "time"

// Rating target types.
const (
	RatingTargetTrip  = "trip"
	RatingTargetGuide = "guide"
)

// Rating is one reviewer's score for a trip or guide. A rating collecting
// enough reports is hidden from normal reads.
type Rating struct {
	ID           int       `db:"id" json:"id"`
	ReviewerID   int       `db:"reviewer_id" json:"reviewer_id"`
	TargetType   string    `db:"target_type" json:"target_type"`
	TargetID     int       `db:"target_id" json:"target_id"`
	Score        int       `db:"score" json:"score"`
	Review       string    `db:"review" json:"review"`
	HelpfulCount int       `db:"helpful_count" json:"helpful_count"`
	ReportCount  int       `db:"report_count" json:"report_count"`
	Hidden       bool      `db:"hidden" json:"hidden"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RatingStats aggregates visible ratings for a target.
type RatingStats struct {
	Count        int         `db:"count" json:"count"`
	Average      float64     `db:"average" json:"average"`
	Distribution map[int]int `json:"distribution"`
}

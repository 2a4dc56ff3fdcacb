package auth

import "trip-service/internal/models"

// Policy decides admin and trip-management rights. It is constructed once
// in main and injected into handlers, so authorization is evaluated
// per-call against explicit state rather than ambient configuration.
type Policy struct {
	adminIDs map[int]bool
}

// NewPolicy constructs a Policy from the configured admin user ids.
func NewPolicy(adminIDs []int) *Policy {
	ids := make(map[int]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &Policy{adminIDs: ids}
}

// IsAdmin reports whether the user is a platform admin.
func (p *Policy) IsAdmin(userID int) bool {
	return p.adminIDs[userID]
}

// CanManageTrip reports whether the user may mutate or delete the trip.
func (p *Policy) CanManageTrip(trip models.Trip, userID int) bool {
	return trip.OrganizerID == userID || p.IsAdmin(userID)
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trip-service/internal/models"
)

func TestPolicyAdmin(t *testing.T) {
	policy := NewPolicy([]int{3, 9})

	require.True(t, policy.IsAdmin(3))
	require.True(t, policy.IsAdmin(9))
	require.False(t, policy.IsAdmin(1))
}

func TestCanManageTrip(t *testing.T) {
	policy := NewPolicy([]int{9})
	trip := models.Trip{ID: 5, OrganizerID: 2}

	require.True(t, policy.CanManageTrip(trip, 2), "organizer manages own trip")
	require.True(t, policy.CanManageTrip(trip, 9), "admin manages any trip")
	require.False(t, policy.CanManageTrip(trip, 4))
}

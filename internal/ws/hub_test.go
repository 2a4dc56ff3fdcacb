package ws

import "testing"

func TestHubAddAndRemoveTripClient(t *testing.T) {
	hub := NewHub()

	hub.AddTripClient(1, nil, ConnInfo{ConnID: "c1", UserID: 7})
	if len(hub.tripRooms) != 1 {
		t.Fatalf("expected trip room to be created")
	}
	if _, ok := hub.getConnInfo("trip", 1, nil); !ok {
		t.Fatalf("expected conn info to be tracked")
	}

	hub.RemoveTripClient(1, nil)
	if len(hub.tripRooms) != 0 {
		t.Fatalf("expected trip room to be removed")
	}
	if len(hub.tripConnInfo) != 0 {
		t.Fatalf("expected conn info to be removed")
	}
}

func TestHubAddAndRemoveUserClient(t *testing.T) {
	hub := NewHub()

	hub.AddUserClient(7, nil, ConnInfo{ConnID: "c2", UserID: 7})
	if len(hub.userConns) != 1 {
		t.Fatalf("expected user channel to be created")
	}

	hub.RemoveUserClient(7, nil)
	if len(hub.userConns) != 0 {
		t.Fatalf("expected user channel to be removed")
	}
}

func TestHubRemoveUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()

	hub.RemoveTripClient(99, nil)
	hub.RemoveUserClient(99, nil)

	if len(hub.tripRooms) != 0 || len(hub.userConns) != 0 {
		t.Fatalf("expected hub to stay empty")
	}
}

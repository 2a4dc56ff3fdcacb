package models

import "testing"

func TestOrderTransitions(t *testing.T) {
	allowed := []struct{ from, to string }{
		{OrderPending, OrderConfirmed},
		{OrderPending, OrderCancelled},
		{OrderConfirmed, OrderShipped},
		{OrderConfirmed, OrderCancelled},
		{OrderShipped, OrderDelivered},
		{OrderDelivered, OrderCompleted},
		{OrderDelivered, OrderRefunded},
		{OrderCancelled, OrderRefunded},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to string }{
		{OrderPending, OrderDelivered},
		{OrderPending, OrderShipped},
		{OrderShipped, OrderCancelled},
		{OrderCompleted, OrderRefunded},
		{OrderRefunded, OrderPending},
		{OrderCancelled, OrderConfirmed},
		{OrderDelivered, OrderDelivered},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

package model

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderPending, OrderDelivered, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderProcessing, OrderDelivered, false},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderProcessing, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s -> %s = %v; want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderProcessing} {
		if !s.Cancellable() {
			t.Errorf("%s should be cancellable", s)
		}
	}
	for _, s := range []OrderStatus{OrderShipped, OrderDelivered, OrderCancelled} {
		if s.Cancellable() {
			t.Errorf("%s should not be cancellable", s)
		}
	}
}

func TestDeliveryMethodValid(t *testing.T) {
	if !DeliveryPickup.Valid() || !DeliveryCourier.Valid() {
		t.Fatal("known methods must be valid")
	}
	if DeliveryMethod("drone").Valid() {
		t.Fatal("unknown method must be invalid")
	}
}

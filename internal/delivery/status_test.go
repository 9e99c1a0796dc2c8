package delivery

import (
	"testing"

	"marketplaceDelivery/models"
)

func TestMapStatus_TotalOverOrderStatuses(t *testing.T) {
	for _, s := range models.OrderStatuses {
		if got := MapStatus(s, nil); got == "" {
			t.Errorf("MapStatus(%q, nil) returned empty string", s)
		}
	}
}

func TestMapStatus_UnknownPassesThrough(t *testing.T) {
	for _, s := range []models.OrderStatus{"on_hold", "awaiting_payment", "x"} {
		if got := MapStatus(s, nil); got != string(s) {
			t.Errorf("MapStatus(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestMapStatus_Table(t *testing.T) {
	as := func(s models.AssignmentStatus) *models.AssignmentStatus { return &s }
	cases := []struct {
		order      models.OrderStatus
		assignment *models.AssignmentStatus
		want       string
	}{
		{models.OrderStatusConfirmed, nil, StatusPreparing},
		{models.OrderStatusPacked, nil, StatusReadyForPickup},
		{models.OrderStatusReadyForPickup, nil, StatusReadyForPickup},
		{models.OrderStatusAssignedToDelivery, nil, StatusAssigned},
		{models.OrderStatusAssignedToDelivery, as(models.AssignmentStatusAccepted), StatusAccepted},
		{models.OrderStatusPickedUp, as(models.AssignmentStatusPickedUp), StatusPickedUp},
		{models.OrderStatusOutForDelivery, as(models.AssignmentStatusPickedUp), StatusOutForDelivery},
		{models.OrderStatusShipped, nil, StatusOutForDelivery},
		{models.OrderStatusDelivered, as(models.AssignmentStatusDelivered), StatusDelivered},
		{models.OrderStatusCancelled, as(models.AssignmentStatusCancelled), StatusCancelled},
		{models.OrderStatusAssignedToDelivery, as(models.AssignmentStatusFailed), StatusFailed},
		{models.OrderStatusReadyForPickup, as(models.AssignmentStatusFailed), StatusReadyForPickup},
		{models.OrderStatusReturned, nil, StatusReturned},
		{"on_hold", as("mystery"), "on_hold"},
	}
	for _, c := range cases {
		if got := MapStatus(c.order, c.assignment); got != c.want {
			t.Errorf("MapStatus(%q, %v) = %q, want %q", c.order, c.assignment, got, c.want)
		}
	}
}

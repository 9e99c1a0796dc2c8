package repository

import (
	"context"
	"errors"
	"testing"

	"marketplaceDelivery/models"
)

func TestAllocateAssignment_OnePerOrder(t *testing.T) {
	f := newFixture(t, "proc_allocate")
	ctx := context.Background()
	o, _ := f.seedOrder(t, "a", models.OrderStatusConfirmed)
	p1 := f.seedPartner(t, "p1", true)
	p2 := f.seedPartner(t, "p2", true)

	a := newAssignment(o.ID, p1.ID)
	if err := f.assignments.AllocateAssignment(ctx, a, "vendor"); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a.ID == "" || a.Status != models.AssignmentStatusAssigned {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	got, _ := f.orders.GetByID(ctx, o.ID)
	if got.Status != models.OrderStatusAssignedToDelivery {
		t.Fatalf("order status = %s", got.Status)
	}

	// A second allocation is rejected: the order is no longer allocatable.
	if err := f.assignments.AllocateAssignment(ctx, newAssignment(o.ID, p2.ID), "vendor"); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("expected ErrStateChanged, got %v", err)
	}
	// Even with the order status rolled back, the unique index refuses a second active row.
	if _, err := f.db.Exec(`UPDATE orders SET status = 'confirmed' WHERE id = ?`, o.ID); err != nil {
		t.Fatalf("reset status: %v", err)
	}
	if err := f.assignments.AllocateAssignment(ctx, newAssignment(o.ID, p2.ID), "vendor"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := f.assignments.AllocateAssignment(ctx, newAssignment("missing", p2.ID), "vendor"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParkForPickup_IdempotentPerOrder(t *testing.T) {
	f := newFixture(t, "proc_park")
	ctx := context.Background()
	o, it := f.seedOrder(t, "a", models.OrderStatusPacked)

	first, err := f.assignments.ParkForPickup(ctx, &models.PendingDeliveryClaim{
		OrderID: o.ID, OrderItemID: &it.ID, Pincode: "560001", PickupOTP: "111111", DeliveryOTP: "222222",
	}, "vendor")
	if err != nil {
		t.Fatalf("park: %v", err)
	}
	second, err := f.assignments.ParkForPickup(ctx, &models.PendingDeliveryClaim{
		OrderID: o.ID, PickupOTP: "333333", DeliveryOTP: "444444",
	}, "vendor")
	if err != nil {
		t.Fatalf("park again: %v", err)
	}
	if second.PickupOTP != first.PickupOTP || second.DeliveryOTP != first.DeliveryOTP {
		t.Fatalf("OTPs regenerated on repeat: first=%+v second=%+v", first, second)
	}
	if first.Priority != models.PriorityNormal {
		t.Errorf("priority default = %q", first.Priority)
	}

	got, _ := f.orders.GetByID(ctx, o.ID)
	if got.Status != models.OrderStatusReadyForPickup {
		t.Fatalf("order status = %s", got.Status)
	}
	h, _ := f.orders.History(ctx, o.ID)
	if len(h) != 1 {
		t.Fatalf("expected one history row, got %+v", h)
	}
	stored, _ := f.claims.GetByOrder(ctx, o.ID)
	if stored == nil || stored.PickupOTP != "111111" || stored.ClaimedAt != nil || stored.OrderItemID == nil {
		t.Fatalf("unexpected stored claim: %+v", stored)
	}
}

func TestClaimReadyOrder_CompareAndSwap(t *testing.T) {
	f := newFixture(t, "proc_claim")
	ctx := context.Background()
	o, _ := f.seedOrder(t, "a", models.OrderStatusPacked)
	p1 := f.seedPartner(t, "p1", true)
	p2 := f.seedPartner(t, "p2", true)
	if _, err := f.assignments.ParkForPickup(ctx, &models.PendingDeliveryClaim{OrderID: o.ID, PickupOTP: "111111", DeliveryOTP: "222222"}, "vendor"); err != nil {
		t.Fatalf("park: %v", err)
	}

	a := newAssignment(o.ID, p1.ID)
	if err := f.assignments.ClaimReadyOrder(ctx, a, "p1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if a.Status != models.AssignmentStatusAccepted || a.AcceptedAt == nil {
		t.Fatalf("claimed assignment should start accepted: %+v", a)
	}
	if err := f.assignments.ClaimReadyOrder(ctx, newAssignment(o.ID, p2.ID), "p2"); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("second claim: expected ErrStateChanged, got %v", err)
	}
	c, _ := f.claims.GetByOrder(ctx, o.ID)
	if c.ClaimedAt == nil || c.ClaimedBy == nil || *c.ClaimedBy != p1.ID {
		t.Fatalf("claim row not marked: %+v", c)
	}
	active, _ := f.assignments.GetActiveByOrder(ctx, o.ID)
	if active == nil || active.DeliveryPartnerID != p1.ID {
		t.Fatalf("unexpected active assignment: %+v", active)
	}
	if err := f.assignments.ClaimReadyOrder(ctx, newAssignment("missing", p2.ID), "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyOTPs_TransitionOnce(t *testing.T) {
	f := newFixture(t, "proc_otp")
	ctx := context.Background()
	o, _ := f.seedOrder(t, "a", models.OrderStatusConfirmed)
	p := f.seedPartner(t, "p1", true)
	other := f.seedPartner(t, "p2", true)
	if err := f.assignments.AllocateAssignment(ctx, newAssignment(o.ID, p.ID), "vendor"); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if _, err := f.assignments.VerifyPickupOTP(ctx, o.ID, p.ID, "000000", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong pickup OTP: expected ErrNotFound, got %v", err)
	}
	if _, err := f.assignments.VerifyPickupOTP(ctx, o.ID, other.ID, "123456", "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong partner: expected ErrNotFound, got %v", err)
	}
	a, _ := f.assignments.GetActiveByOrder(ctx, o.ID)
	if a.Status != models.AssignmentStatusAssigned || a.PickupOTPVerified {
		t.Fatalf("rejected OTP must not change state: %+v", a)
	}

	a, err := f.assignments.VerifyPickupOTP(ctx, o.ID, p.ID, "123456", "p1")
	if err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if a.Status != models.AssignmentStatusPickedUp || !a.PickupOTPVerified || a.PickedUpAt == nil {
		t.Fatalf("unexpected assignment after pickup: %+v", a)
	}
	firstPickup := *a.PickedUpAt
	if _, err := f.assignments.VerifyPickupOTP(ctx, o.ID, p.ID, "123456", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat pickup: expected ErrNotFound, got %v", err)
	}
	again, _ := f.assignments.GetActiveByOrder(ctx, o.ID)
	if !again.PickedUpAt.Equal(firstPickup) {
		t.Fatalf("pickup timestamp rewritten: %v != %v", again.PickedUpAt, firstPickup)
	}

	if err := f.assignments.MarkOutForDelivery(ctx, o.ID, other.ID, "p2"); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("out for delivery by other partner: %v", err)
	}
	if err := f.assignments.MarkOutForDelivery(ctx, o.ID, p.ID, "p1"); err != nil {
		t.Fatalf("out for delivery: %v", err)
	}
	ord, _ := f.orders.GetByID(ctx, o.ID)
	if ord.Status != models.OrderStatusOutForDelivery || ord.ShippedAt == nil || ord.PickedUpAt == nil {
		t.Fatalf("unexpected order: %+v", ord)
	}

	if _, err := f.assignments.VerifyDeliveryOTP(ctx, o.ID, p.ID, "111111", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong delivery OTP: expected ErrNotFound, got %v", err)
	}
	a, err = f.assignments.VerifyDeliveryOTP(ctx, o.ID, p.ID, "654321", "p1")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if a.Status != models.AssignmentStatusDelivered || !a.DeliveryOTPVerified || a.DeliveredAt == nil {
		t.Fatalf("unexpected assignment after delivery: %+v", a)
	}
	if _, err := f.assignments.VerifyDeliveryOTP(ctx, o.ID, p.ID, "654321", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat delivery: expected ErrNotFound, got %v", err)
	}
	ord, _ = f.orders.GetByID(ctx, o.ID)
	if ord.Status != models.OrderStatusDelivered || ord.DeliveredAt == nil {
		t.Fatalf("order not delivered: %+v", ord)
	}
	pp, _ := f.partners.GetByID(ctx, p.ID)
	if pp.TotalDeliveries != 1 {
		t.Fatalf("total deliveries = %d", pp.TotalDeliveries)
	}
	h, _ := f.orders.History(ctx, o.ID)
	if len(h) != 4 {
		t.Fatalf("expected 4 history rows, got %+v", h)
	}
}

func TestAcceptAndCancelDelivery(t *testing.T) {
	f := newFixture(t, "proc_cancel")
	ctx := context.Background()
	o, _ := f.seedOrder(t, "a", models.OrderStatusConfirmed)
	p := f.seedPartner(t, "p1", true)
	if err := f.assignments.AllocateAssignment(ctx, newAssignment(o.ID, p.ID), "vendor"); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	a, err := f.assignments.AcceptAssignment(ctx, o.ID, p.ID)
	if err != nil || a.Status != models.AssignmentStatusAccepted || a.AcceptedAt == nil {
		t.Fatalf("accept: %v %+v", err, a)
	}
	if _, err := f.assignments.AcceptAssignment(ctx, o.ID, p.ID); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("repeat accept: expected ErrStateChanged, got %v", err)
	}

	c := &models.OrderCancellation{OrderID: o.ID, DeliveryPartnerID: p.ID, Reason: models.ReasonCustomerUnavailable, Details: "no answer"}
	if err := f.assignments.CancelDelivery(ctx, c, "p1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.assignments.CancelDelivery(ctx, &models.OrderCancellation{OrderID: o.ID, DeliveryPartnerID: p.ID, Reason: models.ReasonOther}, "p1"); !errors.Is(err, ErrStateChanged) {
		t.Fatalf("repeat cancel: expected ErrStateChanged, got %v", err)
	}

	rec, _ := f.cancels.GetByOrder(ctx, o.ID)
	if rec == nil || rec.Reason != models.ReasonCustomerUnavailable || rec.Details != "no answer" {
		t.Fatalf("unexpected cancellation record: %+v", rec)
	}
	ord, _ := f.orders.GetByID(ctx, o.ID)
	if ord.Status != models.OrderStatusCancelled || ord.CancelledAt == nil || ord.CancellationReason == nil {
		t.Fatalf("order not cancelled: %+v", ord)
	}
	if active, _ := f.assignments.GetActiveByOrder(ctx, o.ID); active != nil {
		t.Fatalf("expected no active assignment, got %+v", active)
	}
	latest, _ := f.assignments.GetLatestByOrder(ctx, o.ID)
	if latest == nil || latest.Status != models.AssignmentStatusCancelled {
		t.Fatalf("unexpected latest assignment: %+v", latest)
	}
}

package delivery

import (
	"context"
	"errors"
	"testing"

	"marketplaceDelivery/internal/testutil"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

func TestAvailableOrders(t *testing.T) {
	h := newHarness(t, testutil.OpenInMemoryDB(t, "q_available"))
	cust := h.seed.User(t, "meera", models.RoleCustomer)
	v := h.seed.Vendor(t, "Spare Hub")
	confirmed, _ := h.seed.Order(t, cust.ID, v.ID, models.OrderStatusConfirmed)
	ready, _ := h.seed.Order(t, "", v.ID, models.OrderStatusReadyForPickup)
	h.seed.Order(t, "", v.ID, models.OrderStatusDelivered)

	got, err := h.svc.AvailableOrders(h.ctx, AvailableOrdersInput{Pincode: "560001"})
	if err != nil {
		t.Fatalf("available orders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 available orders, got %d", len(got))
	}
	if got[0].OrderID != ready.ID || got[1].OrderID != confirmed.ID {
		t.Fatalf("parked order should come first: %+v", got)
	}
	if got[0].CustomerName != PlaceholderCustomer || got[1].CustomerName != "meera" {
		t.Fatalf("unexpected customer names: %q %q", got[0].CustomerName, got[1].CustomerName)
	}
	if got[1].VendorName != "Spare Hub" {
		t.Fatalf("vendor name not joined: %q", got[1].VendorName)
	}

	if got, _ := h.svc.AvailableOrders(h.ctx, AvailableOrdersInput{Pincode: "110001"}); len(got) != 0 {
		t.Fatalf("other pincode should be empty: %+v", got)
	}
	_, err = h.svc.AvailableOrders(h.ctx, AvailableOrdersInput{Pincode: "0123"})
	wantKind(t, err, KindValidation)

	p := h.seed.Partner(t, "p1", true, 12.97, 77.59)
	if _, err := h.svc.PickupReadyOrder(h.ctx, PickupReadyInput{OrderID: ready.ID, PartnerID: p.ID}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	got, _ = h.svc.AvailableOrders(h.ctx, AvailableOrdersInput{})
	if len(got) != 1 || got[0].OrderID != confirmed.ID {
		t.Fatalf("claimed order still listed: %+v", got)
	}
}

// brokenJoins fails the joined read paths so the bare ones serve the request.
type brokenJoins struct {
	repository.AssignmentRepositoryI
}

var errJoin = errors.New("no such table: vendors")

func (brokenJoins) ListAvailableOrders(context.Context, string, int) ([]repository.AvailableOrderRow, error) {
	return nil, errJoin
}

func (brokenJoins) ListPartnerAssignments(context.Context, string) ([]repository.PartnerAssignmentRow, error) {
	return nil, errJoin
}

func TestQueries_FallBackWhenJoinsFail(t *testing.T) {
	h := newHarness(t, testutil.OpenInMemoryDB(t, "q_fallback"))
	cust := h.seed.User(t, "meera", models.RoleCustomer)
	v := h.seed.Vendor(t, "Spare Hub")
	o, _ := h.seed.Order(t, cust.ID, v.ID, models.OrderStatusConfirmed)
	free, _ := h.seed.Order(t, "", v.ID, models.OrderStatusConfirmed)
	p := h.seed.Partner(t, "p1", true, 12.97, 77.59)
	if _, err := h.svc.CreateAssignmentFromOrder(h.ctx, CreateAssignmentInput{OrderID: o.ID}); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	h.repos.Assignments = brokenJoins{AssignmentRepositoryI: h.repos.Assignments}
	svc := NewService(h.repos, testConfig())

	avail, err := svc.AvailableOrders(h.ctx, AvailableOrdersInput{})
	if err != nil {
		t.Fatalf("available orders: %v", err)
	}
	if len(avail) != 1 || avail[0].OrderID != free.ID {
		t.Fatalf("unexpected list: %+v", avail)
	}
	if avail[0].CustomerName != PlaceholderCustomer || avail[0].VendorName != PlaceholderVendor {
		t.Fatalf("expected placeholders: %+v", avail[0])
	}

	mine, err := svc.MyOrders(h.ctx, p.ID)
	if err != nil {
		t.Fatalf("my orders: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected one delivery, got %d", len(mine))
	}
	m := mine[0]
	if m.OrderNumber != o.OrderNumber || m.OrderStatus != models.OrderStatusAssignedToDelivery || m.DeliveryStatus != StatusAssigned {
		t.Fatalf("order fields not looked up: %+v", m)
	}
	if m.VendorName != PlaceholderVendor || m.Address == nil || m.Address.Pincode != "560001" {
		t.Fatalf("unexpected display fields: %+v", m)
	}
}

func TestMyOrders(t *testing.T) {
	h := newHarness(t, testutil.OpenInMemoryDB(t, "q_mine"))
	cust := h.seed.User(t, "meera", models.RoleCustomer)
	v := h.seed.Vendor(t, "Spare Hub")
	o, _ := h.seed.Order(t, cust.ID, v.ID, models.OrderStatusPacked)
	p := h.seed.Partner(t, "p1", true, 12.97, 77.59)
	if _, err := h.svc.CreateAssignmentFromOrder(h.ctx, CreateAssignmentInput{OrderID: o.ID}); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	mine, err := h.svc.MyOrders(h.ctx, p.ID)
	if err != nil {
		t.Fatalf("my orders: %v", err)
	}
	if len(mine) != 1 || mine[0].VendorName != "Spare Hub" || mine[0].CustomerName != "meera" {
		t.Fatalf("unexpected deliveries: %+v", mine)
	}
	if mine[0].TotalAmount != 2499 || mine[0].Assignment.OrderID != o.ID {
		t.Fatalf("unexpected order fields: %+v", mine[0])
	}

	if mine, _ := h.svc.MyOrders(h.ctx, "nobody"); len(mine) != 0 {
		t.Fatalf("unknown partner should have no deliveries")
	}
	_, err = h.svc.MyOrders(h.ctx, "")
	wantKind(t, err, KindValidation)
}

package repository

import (
	"context"
	"errors"
	"testing"

	"marketplaceDelivery/models"
)

func TestOrderRepository_CreateAndGet(t *testing.T) {
	f := newFixture(t, "orderrepo_get")
	ctx := context.Background()
	o, _ := f.seedOrder(t, "a", models.OrderStatusConfirmed)

	if o.OrderNumber == "" {
		t.Fatalf("expected generated order number")
	}
	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %+v", err, got)
	}
	if got.Status != models.OrderStatusConfirmed {
		t.Errorf("status = %s", got.Status)
	}
	if got.DeliveryAddress.City != "Bengaluru" || got.DeliveryAddress.Lat == nil || *got.DeliveryAddress.Lat != 12.98 {
		t.Errorf("address not round-tripped: %+v", got.DeliveryAddress)
	}
	if got.PickedUpAt != nil || got.DeliveredAt != nil {
		t.Errorf("timestamps should be empty: %+v", got)
	}

	none, err := f.orders.GetByID(ctx, "missing")
	if err != nil || none != nil {
		t.Fatalf("expected nil for unknown order, got %+v err=%v", none, err)
	}
}

func TestOrderRepository_UpdateStatusRecordsHistory(t *testing.T) {
	f := newFixture(t, "orderrepo_history")
	ctx := context.Background()
	o, _ := f.seedOrder(t, "a", models.OrderStatusPending)

	if err := f.orders.UpdateStatus(ctx, o.ID, models.OrderStatusConfirmed, "admin"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	// Same status again writes no history row.
	if err := f.orders.UpdateStatus(ctx, o.ID, models.OrderStatusConfirmed, "admin"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	h, err := f.orders.History(ctx, o.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(h) != 1 || h[0].FromStatus != models.OrderStatusPending || h[0].ToStatus != models.OrderStatusConfirmed || h[0].Actor != "admin" {
		t.Fatalf("unexpected history: %+v", h)
	}
	if err := f.orders.UpdateStatus(ctx, "missing", models.OrderStatusConfirmed, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderItemRepository_StatusPaths(t *testing.T) {
	f := newFixture(t, "itemrepo_paths")
	ctx := context.Background()
	_, it := f.seedOrder(t, "a", models.OrderStatusProcessing)

	if err := f.items.UpdateStatus(ctx, it.ID, models.OrderStatusPacked); err != nil {
		t.Fatalf("targeted update: %v", err)
	}
	got, _ := f.items.GetByID(ctx, it.ID)
	if got.Status != models.OrderStatusPacked {
		t.Fatalf("targeted update not applied: %s", got.Status)
	}

	if err := f.items.UpdateStatusProc(ctx, it.ID, models.OrderStatusReadyForPickup); err != nil {
		t.Fatalf("procedure: %v", err)
	}
	got, _ = f.items.GetByID(ctx, it.ID)
	if got.Status != models.OrderStatusReadyForPickup {
		t.Fatalf("procedure not applied: %s", got.Status)
	}

	got.Status = models.OrderStatusPacked
	got.Notes = "rewrapped"
	if err := f.items.Upsert(ctx, got); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, _ := f.items.GetByID(ctx, it.ID)
	if again.Status != models.OrderStatusPacked || again.Notes != "rewrapped" || again.ProductName != "Screen" {
		t.Fatalf("upsert not applied: %+v", again)
	}

	if err := f.items.UpdateStatus(ctx, "missing", models.OrderStatusPacked); !errors.Is(err, ErrNotFound) {
		t.Fatalf("targeted update on missing item: %v", err)
	}
	if err := f.items.UpdateStatusProc(ctx, "missing", models.OrderStatusPacked); !errors.Is(err, ErrNotFound) {
		t.Fatalf("procedure on missing item: %v", err)
	}

	items, err := f.items.ListByOrder(ctx, it.OrderID)
	if err != nil || len(items) != 1 {
		t.Fatalf("list by order: %v %+v", err, items)
	}
}

func TestPartnerRepository_ListAvailableWithLoad(t *testing.T) {
	f := newFixture(t, "partnerrepo_load")
	ctx := context.Background()
	busy := f.seedPartner(t, "busy", true)
	idle := f.seedPartner(t, "idle", true)
	f.seedPartner(t, "off", false)

	o, _ := f.seedOrder(t, "a", models.OrderStatusConfirmed)
	if err := f.assignments.AllocateAssignment(ctx, newAssignment(o.ID, busy.ID), "test"); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	list, err := f.partners.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 available partners, got %d", len(list))
	}
	loads := map[string]int{}
	for _, ap := range list {
		loads[ap.Partner.ID] = ap.ActiveLoad
		if len(ap.Partner.ServicePincodes) != 1 || ap.Partner.ServicePincodes[0] != "560001" {
			t.Errorf("pincodes not round-tripped: %+v", ap.Partner.ServicePincodes)
		}
	}
	if loads[busy.ID] != 1 || loads[idle.ID] != 0 {
		t.Fatalf("unexpected loads: %+v", loads)
	}

	if err := f.partners.UpdateAvailability(ctx, idle.ID, false); err != nil {
		t.Fatalf("update availability: %v", err)
	}
	if err := f.partners.UpdateLocation(ctx, busy.ID, 12.9, 77.6); err != nil {
		t.Fatalf("update location: %v", err)
	}
	p, _ := f.partners.GetByUserID(ctx, busy.UserID)
	if p == nil || !p.HasLocation() || *p.CurrentLat != 12.9 {
		t.Fatalf("location not stored: %+v", p)
	}
	if err := f.partners.UpdateAvailability(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

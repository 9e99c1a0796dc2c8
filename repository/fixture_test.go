package repository

import (
	"context"
	"database/sql"
	"testing"

	"marketplaceDelivery/internal/db"
	"marketplaceDelivery/models"
)

type fixture struct {
	db          *sql.DB
	users       *UserRepository
	vendors     *VendorRepository
	orders      *OrderRepository
	items       *OrderItemRepository
	partners    *PartnerRepository
	assignments *AssignmentRepository
	claims      *ClaimRepository
	cancels     *CancellationRepository
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &fixture{
		db:          d,
		users:       NewUserRepository(d),
		vendors:     NewVendorRepository(d),
		orders:      NewOrderRepository(d),
		items:       NewOrderItemRepository(d),
		partners:    NewPartnerRepository(d),
		assignments: NewAssignmentRepository(d),
		claims:      NewClaimRepository(d),
		cancels:     NewCancellationRepository(d),
	}
}

func f64(v float64) *float64 { return &v }

// seedOrder creates a customer, a vendor and an order with one item in the given status.
func (f *fixture) seedOrder(t *testing.T, tag string, status models.OrderStatus) (*models.Order, *models.OrderItem) {
	t.Helper()
	ctx := context.Background()
	cust, err := f.users.Create(ctx, "cust-"+tag, models.RoleCustomer)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	v, err := f.vendors.Create(ctx, &models.Vendor{BusinessName: "Parts " + tag, Pincode: "560001", PickupLat: f64(12.97), PickupLng: f64(77.59)})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	o, err := f.orders.Create(ctx, &models.Order{
		CustomerID:  cust.ID,
		TotalAmount: 1200,
		Status:      status,
		DeliveryAddress: models.Address{
			FullName: "Asha", Line1: "1 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001",
			Lat: f64(12.98), Lng: f64(77.60),
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	it, err := f.items.Create(ctx, &models.OrderItem{OrderID: o.ID, VendorID: v.ID, ProductName: "Screen", Quantity: 1, UnitPrice: 1200, Status: status})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return o, it
}

func (f *fixture) seedPartner(t *testing.T, name string, available bool) *models.DeliveryPartner {
	t.Helper()
	ctx := context.Background()
	u, err := f.users.Create(ctx, name, models.RoleDeliveryPartner)
	if err != nil {
		t.Fatalf("create partner user: %v", err)
	}
	p, err := f.partners.Create(ctx, &models.DeliveryPartner{
		UserID: u.ID, Name: name, IsAvailable: available, IsActive: true, IsVerified: true,
		ServicePincodes: []string{"560001"}, Rating: 4.5,
	})
	if err != nil {
		t.Fatalf("create partner: %v", err)
	}
	return p
}

func newAssignment(orderID, partnerID string) *models.DeliveryAssignment {
	return &models.DeliveryAssignment{
		OrderID:           orderID,
		DeliveryPartnerID: partnerID,
		PickupOTP:         "123456",
		DeliveryOTP:       "654321",
		DeliveryFee:       35,
	}
}

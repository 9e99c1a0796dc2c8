package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"marketplaceDelivery/internal/db"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The DB is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// Shared cache so every pooled connection sees the same database.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// OpenFileDB opens a file-backed database in a temp dir. Use it when a test needs
// real concurrent writers.
func OpenFileDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// GenerateJWTHS256 returns a signed JWT string with minimal claims used by the app.
func GenerateJWTHS256(t *testing.T, secret, name, kind string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"name": name,
		"kind": kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

func Float(v float64) *float64 { return &v }

// Seeder creates marketplace rows for tests.
type Seeder struct {
	Users    *repository.UserRepository
	Vendors  *repository.VendorRepository
	Orders   *repository.OrderRepository
	Items    *repository.OrderItemRepository
	Partners *repository.PartnerRepository
}

func NewSeeder(d *sql.DB) *Seeder {
	return &Seeder{
		Users:    repository.NewUserRepository(d),
		Vendors:  repository.NewVendorRepository(d),
		Orders:   repository.NewOrderRepository(d),
		Items:    repository.NewOrderItemRepository(d),
		Partners: repository.NewPartnerRepository(d),
	}
}

func (s *Seeder) User(t *testing.T, username, role string) *models.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), username, role)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// Vendor creates a vendor in pincode 560001 with its pickup point in central Bengaluru.
func (s *Seeder) Vendor(t *testing.T, name string) *models.Vendor {
	t.Helper()
	v, err := s.Vendors.Create(context.Background(), &models.Vendor{
		BusinessName: name, Pincode: "560001", PickupLat: Float(12.9716), PickupLng: Float(77.5946),
	})
	if err != nil {
		t.Fatalf("create vendor %s: %v", name, err)
	}
	return v
}

// Order creates an order for customerID with one item sold by vendorID.
// An empty customerID creates an order without a customer.
func (s *Seeder) Order(t *testing.T, customerID, vendorID string, status models.OrderStatus) (*models.Order, *models.OrderItem) {
	t.Helper()
	ctx := context.Background()
	o, err := s.Orders.Create(ctx, &models.Order{
		CustomerID:  customerID,
		TotalAmount: 2499,
		Status:      status,
		DeliveryAddress: models.Address{
			FullName: "Ravi Kumar", Phone: "9800000000", Line1: "12 Residency Road",
			City: "Bengaluru", State: "Karnataka", Pincode: "560001",
			Lat: Float(12.9667), Lng: Float(77.6050),
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	it, err := s.Items.Create(ctx, &models.OrderItem{
		OrderID: o.ID, VendorID: vendorID, ProductName: "OLED display assembly", Quantity: 1, UnitPrice: 2499, Status: status,
	})
	if err != nil {
		t.Fatalf("create order item: %v", err)
	}
	return o, it
}

// Partner creates a user with the delivery_partner role and its partner row,
// serving pincode 560001 and located at (lat, lng).
func (s *Seeder) Partner(t *testing.T, username string, available bool, lat, lng float64) *models.DeliveryPartner {
	t.Helper()
	u := s.User(t, username, models.RoleDeliveryPartner)
	p, err := s.Partners.Create(context.Background(), &models.DeliveryPartner{
		UserID: u.ID, Name: username, Phone: "9000000000",
		IsAvailable: available, IsActive: true, IsVerified: true,
		CurrentLat: Float(lat), CurrentLng: Float(lng),
		ServicePincodes: []string{"560001"}, Rating: 4.2,
	})
	if err != nil {
		t.Fatalf("create partner %s: %v", username, err)
	}
	return p
}

package repository

import (
	"context"

	"marketplaceDelivery/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username, role string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, actor string) error
	History(ctx context.Context, orderID string) ([]models.OrderStatusEvent, error)
}

// OrderItemRepositoryI defines the item reads and the three item status write paths.
type OrderItemRepositoryI interface {
	GetByID(ctx context.Context, id string) (*models.OrderItem, error)
	ListByOrder(ctx context.Context, orderID string) ([]*models.OrderItem, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	UpdateStatusProc(ctx context.Context, id string, status models.OrderStatus) error
	Upsert(ctx context.Context, it *models.OrderItem) error
}

// VendorRepositoryI defines operations on Vendor entities.
type VendorRepositoryI interface {
	GetByID(ctx context.Context, id string) (*models.Vendor, error)
}

// PartnerRepositoryI defines operations on DeliveryPartner entities.
type PartnerRepositoryI interface {
	GetByID(ctx context.Context, id string) (*models.DeliveryPartner, error)
	GetByUserID(ctx context.Context, userID string) (*models.DeliveryPartner, error)
	ListAvailable(ctx context.Context) ([]AvailablePartner, error)
	UpdateAvailability(ctx context.Context, id string, available bool) error
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error
}

// ClaimRepositoryI defines reads of pending delivery claims.
type ClaimRepositoryI interface {
	GetByOrder(ctx context.Context, orderID string) (*models.PendingDeliveryClaim, error)
}

// CancellationRepositoryI defines reads of order cancellation records.
type CancellationRepositoryI interface {
	GetByOrder(ctx context.Context, orderID string) (*models.OrderCancellation, error)
}

// AssignmentRepositoryI defines assignment reads, the delivery procedures and the partner queries.
type AssignmentRepositoryI interface {
	GetActiveByOrder(ctx context.Context, orderID string) (*models.DeliveryAssignment, error)
	GetLatestByOrder(ctx context.Context, orderID string) (*models.DeliveryAssignment, error)
	ListActiveByPartner(ctx context.Context, partnerID string) ([]*models.DeliveryAssignment, error)

	AllocateAssignment(ctx context.Context, a *models.DeliveryAssignment, actor string) error
	ParkForPickup(ctx context.Context, c *models.PendingDeliveryClaim, actor string) (*models.PendingDeliveryClaim, error)
	ClaimReadyOrder(ctx context.Context, a *models.DeliveryAssignment, actor string) error
	AcceptAssignment(ctx context.Context, orderID, partnerID string) (*models.DeliveryAssignment, error)
	VerifyPickupOTP(ctx context.Context, orderID, partnerID, otp, actor string) (*models.DeliveryAssignment, error)
	VerifyDeliveryOTP(ctx context.Context, orderID, partnerID, otp, actor string) (*models.DeliveryAssignment, error)
	MarkOutForDelivery(ctx context.Context, orderID, partnerID, actor string) error
	CancelDelivery(ctx context.Context, c *models.OrderCancellation, actor string) error

	ListAvailableOrders(ctx context.Context, pincode string, limit int) ([]AvailableOrderRow, error)
	ListAvailableOrdersBare(ctx context.Context, pincode string, limit int) ([]AvailableOrderRow, error)
	ListPartnerAssignments(ctx context.Context, partnerID string) ([]PartnerAssignmentRow, error)
}

var (
	_ UserRepositoryI       = (*UserRepository)(nil)
	_ OrderRepositoryI      = (*OrderRepository)(nil)
	_ OrderItemRepositoryI  = (*OrderItemRepository)(nil)
	_ VendorRepositoryI     = (*VendorRepository)(nil)
	_ PartnerRepositoryI    = (*PartnerRepository)(nil)
	_ ClaimRepositoryI      = (*ClaimRepository)(nil)
	_ AssignmentRepositoryI = (*AssignmentRepository)(nil)

	_ CancellationRepositoryI = (*CancellationRepository)(nil)
)

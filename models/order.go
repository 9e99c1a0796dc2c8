package models

import "time"

// OrderStatus represents the stored progress of a marketplace order.
// The set is ordered by convention only; transitions are enforced by the reconciler.
type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusConfirmed          OrderStatus = "confirmed"
	OrderStatusProcessing         OrderStatus = "processing"
	OrderStatusPacked             OrderStatus = "packed"
	OrderStatusPickedUp           OrderStatus = "picked_up"
	OrderStatusShipped            OrderStatus = "shipped"
	OrderStatusOutForDelivery     OrderStatus = "out_for_delivery"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusCancelled          OrderStatus = "cancelled"
	OrderStatusReturned           OrderStatus = "returned"
	OrderStatusReadyForPickup     OrderStatus = "ready_for_pickup"
	OrderStatusAssignedToDelivery OrderStatus = "assigned_to_delivery"
)

// OrderStatuses lists every known order status.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPacked,
	OrderStatusPickedUp,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
	OrderStatusReadyForPickup,
	OrderStatusAssignedToDelivery,
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Address is the structured delivery address captured at checkout.
// It is stored as JSON in orders.delivery_address.
type Address struct {
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	Line1    string   `json:"line1"`
	Line2    string   `json:"line2,omitempty"`
	Landmark string   `json:"landmark,omitempty"`
	City     string   `json:"city"`
	State    string   `json:"state"`
	Pincode  string   `json:"pincode"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// Order is a customer order. Orders are never deleted, only status-flagged.
type Order struct {
	ID                 string      `db:"id" json:"id"`
	OrderNumber        string      `db:"order_number" json:"order_number"`
	CustomerID         string      `db:"customer_id" json:"customer_id"`
	CustomerName       string      `db:"customer_name" json:"customer_name"`
	TotalAmount        float64     `db:"total_amount" json:"total_amount"`
	Status             OrderStatus `db:"status" json:"status"`
	DeliveryAddress    Address     `db:"delivery_address" json:"delivery_address"`
	ShippedAt          *time.Time  `db:"shipped_at" json:"shipped_at,omitempty"`
	PickedUpAt         *time.Time  `db:"picked_up_at" json:"picked_up_at,omitempty"`
	DeliveredAt        *time.Time  `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt        *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason *string     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderStatusEvent records one status transition applied to an order.
type OrderStatusEvent struct {
	ID         string      `db:"id" json:"id"`
	OrderID    string      `db:"order_id" json:"order_id"`
	FromStatus OrderStatus `db:"from_status" json:"from_status"`
	ToStatus   OrderStatus `db:"to_status" json:"to_status"`
	Actor      string      `db:"actor" json:"actor"`
	Note       string      `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Allocatable reports whether an order in this status may still be handed to a delivery partner.
func (s OrderStatus) Allocatable() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusPacked, OrderStatusReadyForPickup:
		return true
	default:
		return false
	}
}

// AllocatableStatuses lists the statuses for which Allocatable is true.
var AllocatableStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPacked,
	OrderStatusReadyForPickup,
}

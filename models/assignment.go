package models

import "time"

// AssignmentStatus represents the progress of a delivery assignment.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusPickedUp  AssignmentStatus = "picked_up"
	AssignmentStatusDelivered AssignmentStatus = "delivered"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
	AssignmentStatusFailed    AssignmentStatus = "failed"
)

// IsActive reports whether an assignment in this status still blocks a new one for the order.
func (s AssignmentStatus) IsActive() bool {
	return s != AssignmentStatusCancelled && s != AssignmentStatusFailed
}

// IsTerminal reports whether the assignment can no longer change.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusDelivered || s == AssignmentStatusCancelled || s == AssignmentStatusFailed
}

// Priority is the urgency requested when an order is handed to delivery.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DeliveryAssignment links one order to one delivery partner.
// At most one active (non-cancelled, non-failed) assignment exists per order.
type DeliveryAssignment struct {
	ID                    string           `db:"id" json:"id"`
	OrderID               string           `db:"order_id" json:"order_id"`
	OrderItemID           *string          `db:"order_item_id" json:"order_item_id,omitempty"`
	DeliveryPartnerID     string           `db:"delivery_partner_id" json:"delivery_partner_id"`
	VendorID              *string          `db:"vendor_id" json:"vendor_id,omitempty"`
	Status                AssignmentStatus `db:"status" json:"status"`
	Priority              Priority         `db:"priority" json:"priority"`
	PickupOTP             string           `db:"pickup_otp" json:"-"`
	DeliveryOTP           string           `db:"delivery_otp" json:"-"`
	PickupOTPVerified     bool             `db:"pickup_otp_verified" json:"pickup_otp_verified"`
	PickupOTPVerifiedAt   *time.Time       `db:"pickup_otp_verified_at" json:"pickup_otp_verified_at,omitempty"`
	DeliveryOTPVerified   bool             `db:"delivery_otp_verified" json:"delivery_otp_verified"`
	DeliveryOTPVerifiedAt *time.Time       `db:"delivery_otp_verified_at" json:"delivery_otp_verified_at,omitempty"`
	DeliveryFee           float64          `db:"delivery_fee" json:"delivery_fee"`
	AssignedAt            time.Time        `db:"assigned_at" json:"assigned_at"`
	AcceptedAt            *time.Time       `db:"accepted_at" json:"accepted_at,omitempty"`
	PickedUpAt            *time.Time       `db:"picked_up_at" json:"picked_up_at,omitempty"`
	DeliveredAt           *time.Time       `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt           *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason    *string          `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	FailureReason         *string          `db:"failure_reason" json:"failure_reason,omitempty"`
}

// PendingDeliveryClaim holds the OTPs of an order parked in ready_for_pickup
// until a partner claims it. It is keyed by order id.
type PendingDeliveryClaim struct {
	OrderID     string     `db:"order_id" json:"order_id"`
	OrderItemID *string    `db:"order_item_id" json:"order_item_id,omitempty"`
	VendorID    *string    `db:"vendor_id" json:"vendor_id,omitempty"`
	Pincode     string     `db:"pincode" json:"pincode"`
	Priority    Priority   `db:"priority" json:"priority"`
	PickupOTP   string     `db:"pickup_otp" json:"-"`
	DeliveryOTP string     `db:"delivery_otp" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ClaimedAt   *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	ClaimedBy   *string    `db:"claimed_by" json:"claimed_by,omitempty"`
}

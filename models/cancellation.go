package models

import "time"

// CancellationReason is the closed set of reasons a delivery can be cancelled for.
type CancellationReason string

const (
	ReasonCustomerUnavailable CancellationReason = "customer_unavailable"
	ReasonIncorrectAddress    CancellationReason = "incorrect_address"
	ReasonDamagedProduct      CancellationReason = "damaged_product"
	ReasonCustomerRefused     CancellationReason = "customer_refused"
	ReasonDeliveryIssues      CancellationReason = "delivery_issues"
	ReasonPaymentIssues       CancellationReason = "payment_issues"
	ReasonVendorIssues        CancellationReason = "vendor_issues"
	ReasonWeather             CancellationReason = "weather"
	ReasonVehicleBreakdown    CancellationReason = "vehicle_breakdown"
	ReasonOther               CancellationReason = "other"
)

// Valid reports whether r belongs to the enumeration.
func (r CancellationReason) Valid() bool {
	switch r {
	case ReasonCustomerUnavailable, ReasonIncorrectAddress, ReasonDamagedProduct,
		ReasonCustomerRefused, ReasonDeliveryIssues, ReasonPaymentIssues,
		ReasonVendorIssues, ReasonWeather, ReasonVehicleBreakdown, ReasonOther:
		return true
	default:
		return false
	}
}

// OrderCancellation is written once per cancelled order and never mutated.
type OrderCancellation struct {
	ID                string             `db:"id" json:"id"`
	OrderID           string             `db:"order_id" json:"order_id"`
	DeliveryPartnerID string             `db:"delivery_partner_id" json:"delivery_partner_id"`
	Reason            CancellationReason `db:"reason" json:"reason"`
	Details           string             `db:"details" json:"details,omitempty"`
	CancelledAt       time.Time          `db:"cancelled_at" json:"cancelled_at"`
}

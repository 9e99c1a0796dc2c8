package models

// Role values stored in users.role.
const (
	RoleCustomer        = "customer"
	RoleVendor          = "vendor"
	RoleDeliveryPartner = "delivery_partner"
	RoleAdmin           = "admin"
)

// User is an authenticated marketplace account.
// It maps to the `users` table; Role defaults to "customer".
type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Role     string `db:"role" json:"role"`
}

// Vendor is a seller shop. Only the fields the delivery flow reads are modelled.
type Vendor struct {
	ID           string   `db:"id" json:"id"`
	UserID       string   `db:"user_id" json:"user_id"`
	BusinessName string   `db:"business_name" json:"business_name"`
	Pincode      string   `db:"pincode" json:"pincode"`
	PickupLat    *float64 `db:"pickup_lat" json:"pickup_lat,omitempty"`
	PickupLng    *float64 `db:"pickup_lng" json:"pickup_lng,omitempty"`
}

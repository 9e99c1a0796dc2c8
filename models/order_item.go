package models

import "time"

// OrderItem is one vendor's line on an order. Its status follows the vendor's
// fulfilment progress and uses the same vocabulary as OrderStatus.
type OrderItem struct {
	ID          string      `db:"id" json:"id"`
	OrderID     string      `db:"order_id" json:"order_id"`
	VendorID    string      `db:"vendor_id" json:"vendor_id"`
	ProductName string      `db:"product_name" json:"product_name"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitPrice   float64     `db:"unit_price" json:"unit_price"`
	Status      OrderStatus `db:"status" json:"status"`
	Notes       string      `db:"notes" json:"notes,omitempty"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

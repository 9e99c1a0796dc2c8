package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"marketplaceDelivery/models"

	"github.com/goccy/go-json"
)

// AvailableOrderRow is an unassigned order offered to partners. Display fields are nil
// when the joined customer or vendor row is missing.
type AvailableOrderRow struct {
	OrderID      string
	OrderNumber  string
	Status       models.OrderStatus
	TotalAmount  float64
	Pincode      string
	Address      models.Address
	CreatedAt    time.Time
	CustomerName *string
	VendorID     *string
	VendorName   *string
}

// PartnerAssignmentRow is an active assignment with the order and display fields
// the partner app needs. Order fields are nil when the order row cannot be joined.
type PartnerAssignmentRow struct {
	Assignment   *models.DeliveryAssignment
	OrderNumber  *string
	OrderStatus  *models.OrderStatus
	Address      *models.Address
	TotalAmount  *float64
	CustomerName *string
	VendorName   *string
}

const availableOrdersWhere = `WHERE o.status IN ('confirmed','ready_for_pickup')
  AND NOT EXISTS (SELECT 1 FROM delivery_assignments a WHERE a.order_id = o.id AND a.status NOT IN ('cancelled','failed'))
  AND (? = '' OR o.delivery_pincode = ?)
ORDER BY CASE o.status WHEN 'ready_for_pickup' THEN 0 ELSE 1 END, o.created_at ASC, o.id ASC
LIMIT ?`

// ListAvailableOrders returns confirmed or ready-for-pickup orders without an active
// assignment, optionally restricted to one delivery pincode, with customer and vendor
// display names joined in.
func (r *AssignmentRepository) ListAvailableOrders(ctx context.Context, pincode string, limit int) ([]AvailableOrderRow, error) {
	return r.listAvailable(ctx, `SELECT o.id, o.order_number, o.status, o.total_amount, o.delivery_pincode, o.delivery_address, o.created_at,
	COALESCE(NULLIF(o.customer_name, ''), u.username), v.id, v.business_name
FROM orders o
LEFT JOIN users u ON u.id = o.customer_id
LEFT JOIN vendors v ON v.id = (SELECT oi.vendor_id FROM order_items oi WHERE oi.order_id = o.id ORDER BY oi.id LIMIT 1)
`+availableOrdersWhere, pincode, limit, true)
}

// ListAvailableOrdersBare is ListAvailableOrders without the display joins.
func (r *AssignmentRepository) ListAvailableOrdersBare(ctx context.Context, pincode string, limit int) ([]AvailableOrderRow, error) {
	return r.listAvailable(ctx, `SELECT o.id, o.order_number, o.status, o.total_amount, o.delivery_pincode, o.delivery_address, o.created_at
FROM orders o
`+availableOrdersWhere, pincode, limit, false)
}

func (r *AssignmentRepository) listAvailable(ctx context.Context, q, pincode string, limit int, joined bool) ([]AvailableOrderRow, error) {
	if limit <= 0 {
		limit = 50
	}
	pincode = strings.TrimSpace(pincode)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, q, pincode, pincode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AvailableOrderRow
	for rows.Next() {
		var row AvailableOrderRow
		var status, addr string
		dest := []any{&row.OrderID, &row.OrderNumber, &status, &row.TotalAmount, &row.Pincode, &addr, &row.CreatedAt}
		var customer, vendorID, vendorName sql.NullString
		if joined {
			dest = append(dest, &customer, &vendorID, &vendorName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row.Status = models.OrderStatus(status)
		// A malformed address leaves the zero Address; the row is still listed.
		_ = json.Unmarshal([]byte(addr), &row.Address)
		row.CustomerName, row.VendorID, row.VendorName = stringPtr(customer), stringPtr(vendorID), stringPtr(vendorName)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListPartnerAssignments returns a partner's in-progress assignments joined with the
// order, customer and vendor, newest first.
func (r *AssignmentRepository) ListPartnerAssignments(ctx context.Context, partnerID string) ([]PartnerAssignmentRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+prefixColumns(assignmentColumns, "a.")+`,
	o.order_number, o.status, o.delivery_address, o.total_amount,
	COALESCE(NULLIF(o.customer_name, ''), u.username), v.business_name
FROM delivery_assignments a
LEFT JOIN orders o ON o.id = a.order_id
LEFT JOIN users u ON u.id = o.customer_id
LEFT JOIN vendors v ON v.id = COALESCE(a.vendor_id, (SELECT oi.vendor_id FROM order_items oi WHERE oi.order_id = a.order_id ORDER BY oi.id LIMIT 1))
WHERE a.delivery_partner_id = ? AND a.status IN ('assigned','accepted','picked_up')
ORDER BY a.assigned_at DESC, a.id`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PartnerAssignmentRow
	for rows.Next() {
		var number, status, addr, customer, vendor sql.NullString
		var total sql.NullFloat64
		a, err := scanAssignment(extendScanner{rows, []any{&number, &status, &addr, &total, &customer, &vendor}})
		if err != nil {
			return nil, err
		}
		row := PartnerAssignmentRow{
			Assignment:   a,
			OrderNumber:  stringPtr(number),
			TotalAmount:  floatPtr(total),
			CustomerName: stringPtr(customer),
			VendorName:   stringPtr(vendor),
		}
		if status.Valid {
			s := models.OrderStatus(status.String)
			row.OrderStatus = &s
		}
		if addr.Valid {
			var parsed models.Address
			if json.Unmarshal([]byte(addr.String), &parsed) == nil {
				row.Address = &parsed
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// extendScanner appends extra destinations to a row scan so a shared scan
// function can read joined columns that follow its own.
type extendScanner struct {
	s     rowScanner
	extra []any
}

func (e extendScanner) Scan(dest ...any) error {
	return e.s.Scan(append(dest, e.extra...)...)
}

func prefixColumns(cols, prefix string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

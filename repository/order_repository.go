package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplaceDelivery/models"

	"github.com/goccy/go-json"
)

// OrderRepository handles persistence of marketplace orders and their status history.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, customer_id, customer_name, total_amount, status, delivery_address,
	shipped_at, picked_up_at, delivered_at, cancelled_at, cancellation_reason, created_at, updated_at`

// Create inserts a new order. Status defaults to 'pending'; id and order number are generated when empty.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.ID == "" {
		o.ID = newID()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = "ORD-" + strings.ToUpper(strings.ReplaceAll(o.ID, "-", "")[:12])
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	addr, err := json.Marshal(o.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	now := nowUTC()
	o.CreatedAt, o.UpdatedAt = now, now

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var customerID any
	if o.CustomerID != "" {
		customerID = o.CustomerID
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO orders (id, order_number, customer_id, customer_name, total_amount, status, delivery_address, delivery_pincode, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.OrderNumber, customerID, nullString(o.CustomerName), o.TotalAmount, string(o.Status), string(addr),
		strings.TrimSpace(o.DeliveryAddress.Pincode), now, now)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID fetches an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// UpdateStatus sets the status of an order unconditionally and records the transition.
// Reconciler transitions use the conditional procedures on AssignmentRepository instead.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, actor string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var from string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&from); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), nowUTC(), id); err != nil {
			return err
		}
		return recordStatus(ctx, tx, id, models.OrderStatus(from), status, actor, "")
	})
}

// History returns the recorded status transitions of an order, oldest first.
func (r *OrderRepository) History(ctx context.Context, orderID string) ([]models.OrderStatusEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, order_id, from_status, to_status, actor, note, created_at FROM order_status_history WHERE order_id = ? ORDER BY created_at ASC, rowid ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.OrderStatusEvent
	for rows.Next() {
		var e models.OrderStatusEvent
		var from, to string
		if err := rows.Scan(&e.ID, &e.OrderID, &from, &to, &e.Actor, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromStatus, e.ToStatus = models.OrderStatus(from), models.OrderStatus(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*models.Order, error) {
	var o models.Order
	var status, addr string
	var customerID, customerName, reason sql.NullString
	var shipped, picked, delivered, cancelled sql.NullTime
	err := s.Scan(&o.ID, &o.OrderNumber, &customerID, &customerName, &o.TotalAmount, &status, &addr,
		&shipped, &picked, &delivered, &cancelled, &reason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.CustomerID = customerID.String
	o.CustomerName = customerName.String
	if addr != "" {
		if err := json.Unmarshal([]byte(addr), &o.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("decode address of order %s: %w", o.ID, err)
		}
	}
	o.ShippedAt = timePtr(shipped)
	o.PickedUpAt = timePtr(picked)
	o.DeliveredAt = timePtr(delivered)
	o.CancelledAt = timePtr(cancelled)
	o.CancellationReason = stringPtr(reason)
	return &o, nil
}

// recordStatus appends one history row. No row is written when the status did not change.
func recordStatus(ctx context.Context, tx *sql.Tx, orderID string, from, to models.OrderStatus, actor, note string) error {
	if from == to {
		return nil
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO order_status_history (id, order_id, from_status, to_status, actor, note, created_at) VALUES (?,?,?,?,?,?,?)`,
		newID(), orderID, string(from), string(to), actor, note, nowUTC())
	if err != nil {
		return fmt.Errorf("record status history: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

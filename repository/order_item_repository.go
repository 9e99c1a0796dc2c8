package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplaceDelivery/models"
)

// OrderItemRepository persists order line items. Item status is written through
// three independent paths so callers can fall back when one of them is unavailable.
type OrderItemRepository struct {
	db *sql.DB
}

func NewOrderItemRepository(db *sql.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

const orderItemColumns = `id, order_id, vendor_id, product_name, quantity, unit_price, status, notes, updated_at`

func (r *OrderItemRepository) Create(ctx context.Context, it *models.OrderItem) (*models.OrderItem, error) {
	if it == nil {
		return nil, errors.New("order item is nil")
	}
	if it.ID == "" {
		it.ID = newID()
	}
	if it.Status == "" {
		it.Status = models.OrderStatusPending
	}
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	it.UpdatedAt = nowUTC()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO order_items (`+orderItemColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		it.ID, it.OrderID, it.VendorID, it.ProductName, it.Quantity, it.UnitPrice, string(it.Status), it.Notes, it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *OrderItemRepository) GetByID(ctx context.Context, id string) (*models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	it, err := scanOrderItem(r.db.QueryRowContext(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}

func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateStatus is the targeted write: a single UPDATE of the status column.
func (r *OrderItemRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE order_items SET status = ?, updated_at = ? WHERE id = ?`, string(status), nowUTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatusProc runs the update_order_item_status procedure: the item status change
// and the parent order's updated_at touch commit together.
func (r *OrderItemRepository) UpdateStatusProc(ctx context.Context, id string, status models.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var orderID string
		if err := tx.QueryRowContext(ctx, `SELECT order_id FROM order_items WHERE id = ?`, id).Scan(&orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		now := nowUTC()
		if _, err := tx.ExecContext(ctx, `UPDATE order_items SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE orders SET updated_at = ? WHERE id = ?`, now, orderID)
		return err
	})
}

// Upsert writes the full item record, inserting it when absent.
func (r *OrderItemRepository) Upsert(ctx context.Context, it *models.OrderItem) error {
	if it == nil {
		return errors.New("order item is nil")
	}
	it.UpdatedAt = nowUTC()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO order_items (`+orderItemColumns+`) VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  order_id = excluded.order_id,
  vendor_id = excluded.vendor_id,
  product_name = excluded.product_name,
  quantity = excluded.quantity,
  unit_price = excluded.unit_price,
  status = excluded.status,
  notes = excluded.notes,
  updated_at = excluded.updated_at`,
		it.ID, it.OrderID, it.VendorID, it.ProductName, it.Quantity, it.UnitPrice, string(it.Status), it.Notes, it.UpdatedAt)
	return err
}

func scanOrderItem(s rowScanner) (*models.OrderItem, error) {
	var it models.OrderItem
	var status string
	if err := s.Scan(&it.ID, &it.OrderID, &it.VendorID, &it.ProductName, &it.Quantity, &it.UnitPrice, &status, &it.Notes, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Status = models.OrderStatus(status)
	return &it, nil
}

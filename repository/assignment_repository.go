package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplaceDelivery/internal/db"
	"marketplaceDelivery/models"
)

// AssignmentRepository reads delivery assignments and runs the transactional
// procedures that move an order through the delivery flow.
type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, order_id, order_item_id, delivery_partner_id, vendor_id, status, priority,
	pickup_otp, delivery_otp, pickup_otp_verified, pickup_otp_verified_at, delivery_otp_verified, delivery_otp_verified_at,
	delivery_fee, assigned_at, accepted_at, picked_up_at, delivered_at, cancelled_at, cancellation_reason, failure_reason`

const activeAssignmentPredicate = `status NOT IN ('cancelled','failed')`

func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.DeliveryAssignment, error) {
	return r.getOne(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments WHERE id = ?`, id)
}

// GetActiveByOrder returns the active assignment of an order, if any.
func (r *AssignmentRepository) GetActiveByOrder(ctx context.Context, orderID string) (*models.DeliveryAssignment, error) {
	return r.getOne(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments WHERE order_id = ? AND `+activeAssignmentPredicate, orderID)
}

// GetLatestByOrder returns the active assignment of an order or, when none is active,
// the most recently created one.
func (r *AssignmentRepository) GetLatestByOrder(ctx context.Context, orderID string) (*models.DeliveryAssignment, error) {
	return r.getOne(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments WHERE order_id = ?
ORDER BY CASE WHEN `+activeAssignmentPredicate+` THEN 0 ELSE 1 END, assigned_at DESC LIMIT 1`, orderID)
}

// ListActiveByPartner returns a partner's assignments that are still in progress, newest first.
func (r *AssignmentRepository) ListActiveByPartner(ctx context.Context, partnerID string) ([]*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments
WHERE delivery_partner_id = ? AND status IN ('assigned','accepted','picked_up') ORDER BY assigned_at DESC, id`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.DeliveryAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepository) getOne(ctx context.Context, q string, args ...any) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	a, err := scanAssignment(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAssignment(s rowScanner) (*models.DeliveryAssignment, error) {
	var a models.DeliveryAssignment
	var status, priority string
	var itemID, vendorID, cancelReason, failReason sql.NullString
	var pickupVerified, deliveryVerified int
	var pickupAt, deliveryAt, accepted, picked, delivered, cancelled sql.NullTime
	err := s.Scan(&a.ID, &a.OrderID, &itemID, &a.DeliveryPartnerID, &vendorID, &status, &priority,
		&a.PickupOTP, &a.DeliveryOTP, &pickupVerified, &pickupAt, &deliveryVerified, &deliveryAt,
		&a.DeliveryFee, &a.AssignedAt, &accepted, &picked, &delivered, &cancelled, &cancelReason, &failReason)
	if err != nil {
		return nil, err
	}
	a.Status = models.AssignmentStatus(status)
	a.Priority = models.Priority(priority)
	a.OrderItemID, a.VendorID = stringPtr(itemID), stringPtr(vendorID)
	a.PickupOTPVerified, a.DeliveryOTPVerified = pickupVerified == 1, deliveryVerified == 1
	a.PickupOTPVerifiedAt, a.DeliveryOTPVerifiedAt = timePtr(pickupAt), timePtr(deliveryAt)
	a.AcceptedAt, a.PickedUpAt = timePtr(accepted), timePtr(picked)
	a.DeliveredAt, a.CancelledAt = timePtr(delivered), timePtr(cancelled)
	a.CancellationReason, a.FailureReason = stringPtr(cancelReason), stringPtr(failReason)
	return &a, nil
}

func insertAssignment(ctx context.Context, tx *sql.Tx, a *models.DeliveryAssignment) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Priority == "" {
		a.Priority = models.PriorityNormal
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO delivery_assignments (id, order_id, order_item_id, delivery_partner_id, vendor_id, status, priority,
	pickup_otp, delivery_otp, delivery_fee, assigned_at, accepted_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.OrderID, nullable(a.OrderItemID), a.DeliveryPartnerID, nullable(a.VendorID), string(a.Status), string(a.Priority),
		a.PickupOTP, a.DeliveryOTP, a.DeliveryFee, a.AssignedAt, nullable(a.AcceptedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func orderStatusTx(ctx context.Context, tx *sql.Tx, orderID string) (models.OrderStatus, error) {
	var s string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return models.OrderStatus(s), nil
}

func getAssignmentTx(ctx context.Context, tx *sql.Tx, orderID, partnerID string) (*models.DeliveryAssignment, error) {
	return scanAssignment(tx.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments
WHERE order_id = ? AND delivery_partner_id = ? ORDER BY assigned_at DESC LIMIT 1`, orderID, partnerID))
}

// casOrderStatus moves an order from one status to another and records the transition.
// It returns ErrStateChanged when the order is no longer in from.
func casOrderStatus(ctx context.Context, tx *sql.Tx, orderID string, from, to models.OrderStatus, actor, note string) error {
	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), nowUTC(), orderID, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStateChanged
	}
	return recordStatus(ctx, tx, orderID, from, to, actor, note)
}

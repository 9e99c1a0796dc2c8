package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplaceDelivery/models"
)

const procTimeout = 5 * time.Second

// AllocateAssignment creates an assignment for an order that is still allocatable and moves
// the order to assigned_to_delivery in the same transaction. An open pending claim for the
// order is marked claimed by the chosen partner.
//
// Returns ErrNotFound for an unknown order, ErrStateChanged when the order is no longer
// allocatable and ErrConflict when the order already has an active assignment.
func (r *AssignmentRepository) AllocateAssignment(ctx context.Context, a *models.DeliveryAssignment, actor string) error {
	if a == nil {
		return errors.New("assignment is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		from, err := orderStatusTx(ctx, tx, a.OrderID)
		if err != nil {
			return err
		}
		if !from.Allocatable() {
			return ErrStateChanged
		}
		a.Status = models.AssignmentStatusAssigned
		a.AssignedAt = nowUTC()
		if err := insertAssignment(ctx, tx, a); err != nil {
			return err
		}
		if err := casOrderStatus(ctx, tx, a.OrderID, from, models.OrderStatusAssignedToDelivery, actor, "partner "+a.DeliveryPartnerID+" assigned"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE pending_delivery_claims SET claimed_at = ?, claimed_by = ? WHERE order_id = ? AND claimed_at IS NULL`,
			a.AssignedAt, a.DeliveryPartnerID, a.OrderID)
		return err
	})
}

// ParkForPickup moves an allocatable order to ready_for_pickup and stores its pending claim.
// The procedure is idempotent per order: when an open claim already exists it is kept
// unchanged, including its OTPs, and returned. A claim left behind by an earlier,
// since cancelled, assignment is reopened with the supplied values.
func (r *AssignmentRepository) ParkForPickup(ctx context.Context, c *models.PendingDeliveryClaim, actor string) (*models.PendingDeliveryClaim, error) {
	if c == nil {
		return nil, errors.New("claim is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	var stored *models.PendingDeliveryClaim
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var active int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_assignments WHERE order_id = ? AND `+activeAssignmentPredicate, c.OrderID).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return ErrConflict
		}
		from, err := orderStatusTx(ctx, tx, c.OrderID)
		if err != nil {
			return err
		}
		if !from.Allocatable() {
			return ErrStateChanged
		}

		if c.Priority == "" {
			c.Priority = models.PriorityNormal
		}
		existing, err := scanClaim(tx.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM pending_delivery_claims WHERE order_id = ?`, c.OrderID))
		switch {
		case err == nil && existing.ClaimedAt == nil:
			stored = existing
		case err == nil:
			c.CreatedAt = nowUTC()
			if _, err := tx.ExecContext(ctx, `UPDATE pending_delivery_claims SET order_item_id = ?, vendor_id = ?, pincode = ?, priority = ?,
	pickup_otp = ?, delivery_otp = ?, created_at = ?, claimed_at = NULL, claimed_by = NULL WHERE order_id = ?`,
				nullable(c.OrderItemID), nullable(c.VendorID), c.Pincode, string(c.Priority), c.PickupOTP, c.DeliveryOTP, c.CreatedAt, c.OrderID); err != nil {
				return fmt.Errorf("reopen claim: %w", err)
			}
			stored = c
		case errors.Is(err, sql.ErrNoRows):
			c.CreatedAt = nowUTC()
			if _, err := tx.ExecContext(ctx, `INSERT INTO pending_delivery_claims (order_id, order_item_id, vendor_id, pincode, priority, pickup_otp, delivery_otp, created_at)
VALUES (?,?,?,?,?,?,?,?)`,
				c.OrderID, nullable(c.OrderItemID), nullable(c.VendorID), c.Pincode, string(c.Priority), c.PickupOTP, c.DeliveryOTP, c.CreatedAt); err != nil {
				return fmt.Errorf("insert claim: %w", err)
			}
			stored = c
		default:
			return err
		}

		if from == models.OrderStatusReadyForPickup {
			return nil
		}
		return casOrderStatus(ctx, tx, c.OrderID, from, models.OrderStatusReadyForPickup, actor, "no partner available")
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ClaimReadyOrder lets a partner take an order parked in ready_for_pickup. The order status
// is swapped conditionally so that exactly one of several concurrent claimers succeeds;
// the others get ErrStateChanged. The new assignment starts accepted.
func (r *AssignmentRepository) ClaimReadyOrder(ctx context.Context, a *models.DeliveryAssignment, actor string) error {
	if a == nil {
		return errors.New("assignment is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := orderStatusTx(ctx, tx, a.OrderID); err != nil {
			return err
		}
		if err := casOrderStatus(ctx, tx, a.OrderID, models.OrderStatusReadyForPickup, models.OrderStatusAssignedToDelivery, actor, "claimed by partner "+a.DeliveryPartnerID); err != nil {
			return err
		}
		now := nowUTC()
		a.Status = models.AssignmentStatusAccepted
		a.AssignedAt = now
		a.AcceptedAt = &now
		if err := insertAssignment(ctx, tx, a); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE pending_delivery_claims SET claimed_at = ?, claimed_by = ? WHERE order_id = ? AND claimed_at IS NULL`,
			now, a.DeliveryPartnerID, a.OrderID)
		return err
	})
}

// AcceptAssignment moves the partner's assignment for the order from assigned to accepted.
func (r *AssignmentRepository) AcceptAssignment(ctx context.Context, orderID, partnerID string) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	var out *models.DeliveryAssignment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE delivery_assignments SET status = 'accepted', accepted_at = ?
WHERE order_id = ? AND delivery_partner_id = ? AND status = 'assigned'`, nowUTC(), orderID, partnerID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStateChanged
		}
		out, err = getAssignmentTx(ctx, tx, orderID, partnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyPickupOTP compares the pickup OTP and applies the pickup transition in one
// conditional UPDATE. A wrong code, a wrong partner, a missing assignment and an
// assignment already past pickup all yield ErrNotFound and leave every row untouched.
func (r *AssignmentRepository) VerifyPickupOTP(ctx context.Context, orderID, partnerID, otp, actor string) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	var out *models.DeliveryAssignment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := nowUTC()
		res, err := tx.ExecContext(ctx, `UPDATE delivery_assignments
SET status = 'picked_up', pickup_otp_verified = 1, pickup_otp_verified_at = ?, picked_up_at = ?
WHERE order_id = ? AND delivery_partner_id = ? AND pickup_otp = ? AND status IN ('assigned','accepted')`,
			now, now, orderID, partnerID, otp)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		from, err := orderStatusTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `UPDATE orders SET status = 'picked_up', picked_up_at = ?, updated_at = ?
WHERE id = ? AND status NOT IN ('delivered','cancelled','returned')`, now, now, orderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStateChanged
		}
		if err := recordStatus(ctx, tx, orderID, from, models.OrderStatusPickedUp, actor, "pickup code verified"); err != nil {
			return err
		}
		out, err = getAssignmentTx(ctx, tx, orderID, partnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyDeliveryOTP compares the delivery OTP and completes the delivery. Only an
// assignment in picked_up can be delivered; every other case yields ErrNotFound.
func (r *AssignmentRepository) VerifyDeliveryOTP(ctx context.Context, orderID, partnerID, otp, actor string) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	var out *models.DeliveryAssignment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := nowUTC()
		res, err := tx.ExecContext(ctx, `UPDATE delivery_assignments
SET status = 'delivered', delivery_otp_verified = 1, delivery_otp_verified_at = ?, delivered_at = ?
WHERE order_id = ? AND delivery_partner_id = ? AND delivery_otp = ? AND status = 'picked_up'`,
			now, now, orderID, partnerID, otp)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		from, err := orderStatusTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `UPDATE orders SET status = 'delivered', delivered_at = ?, updated_at = ?
WHERE id = ? AND status NOT IN ('delivered','cancelled','returned')`, now, now, orderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStateChanged
		}
		if err := recordStatus(ctx, tx, orderID, from, models.OrderStatusDelivered, actor, "delivery code verified"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE delivery_partners SET total_deliveries = total_deliveries + 1, updated_at = ? WHERE id = ?`, now, partnerID); err != nil {
			return err
		}
		out, err = getAssignmentTx(ctx, tx, orderID, partnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOutForDelivery moves a picked-up order to out_for_delivery. The caller must hold
// the order's picked_up assignment.
func (r *AssignmentRepository) MarkOutForDelivery(ctx context.Context, orderID, partnerID, actor string) error {
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var held int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_assignments WHERE order_id = ? AND delivery_partner_id = ? AND status = 'picked_up'`,
			orderID, partnerID).Scan(&held); err != nil {
			return err
		}
		if held == 0 {
			return ErrStateChanged
		}
		now := nowUTC()
		res, err := tx.ExecContext(ctx, `UPDATE orders SET status = 'out_for_delivery', shipped_at = COALESCE(shipped_at, ?), updated_at = ?
WHERE id = ? AND status = 'picked_up'`, now, now, orderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStateChanged
		}
		return recordStatus(ctx, tx, orderID, models.OrderStatusPickedUp, models.OrderStatusOutForDelivery, actor, "")
	})
}

// CancelDelivery cancels the partner's active assignment, writes the order's single
// cancellation record and cancels the order. Returns ErrStateChanged when the partner
// holds no active assignment for the order and ErrConflict when the order already
// carries a cancellation record.
func (r *AssignmentRepository) CancelDelivery(ctx context.Context, c *models.OrderCancellation, actor string) error {
	if c == nil {
		return errors.New("cancellation is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, procTimeout)
	defer cancel()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := nowUTC()
		res, err := tx.ExecContext(ctx, `UPDATE delivery_assignments SET status = 'cancelled', cancelled_at = ?, cancellation_reason = ?
WHERE order_id = ? AND delivery_partner_id = ? AND status IN ('assigned','accepted','picked_up')`,
			now, string(c.Reason), c.OrderID, c.DeliveryPartnerID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStateChanged
		}
		if c.ID == "" {
			c.ID = newID()
		}
		c.CancelledAt = now
		if err := insertCancellation(ctx, tx, c); err != nil {
			return err
		}
		from, err := orderStatusTx(ctx, tx, c.OrderID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = 'cancelled', cancelled_at = ?, cancellation_reason = ?, updated_at = ? WHERE id = ?`,
			now, string(c.Reason), now, c.OrderID); err != nil {
			return err
		}
		return recordStatus(ctx, tx, c.OrderID, from, models.OrderStatusCancelled, actor, string(c.Reason))
	})
}

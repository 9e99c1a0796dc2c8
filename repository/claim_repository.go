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

// ClaimRepository reads pending delivery claims. Claims are written only by the
// procedures on AssignmentRepository.
type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

const claimColumns = `order_id, order_item_id, vendor_id, pincode, priority, pickup_otp, delivery_otp, created_at, claimed_at, claimed_by`

// GetByOrder returns the claim stored for an order, claimed or not.
func (r *ClaimRepository) GetByOrder(ctx context.Context, orderID string) (*models.PendingDeliveryClaim, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c, err := scanClaim(r.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM pending_delivery_claims WHERE order_id = ?`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanClaim(s rowScanner) (*models.PendingDeliveryClaim, error) {
	var c models.PendingDeliveryClaim
	var priority string
	var itemID, vendorID, claimedBy sql.NullString
	var claimedAt sql.NullTime
	if err := s.Scan(&c.OrderID, &itemID, &vendorID, &c.Pincode, &priority, &c.PickupOTP, &c.DeliveryOTP, &c.CreatedAt, &claimedAt, &claimedBy); err != nil {
		return nil, err
	}
	c.Priority = models.Priority(priority)
	c.OrderItemID, c.VendorID = stringPtr(itemID), stringPtr(vendorID)
	c.ClaimedAt, c.ClaimedBy = timePtr(claimedAt), stringPtr(claimedBy)
	return &c, nil
}

// CancellationRepository reads order cancellation records.
type CancellationRepository struct {
	db *sql.DB
}

func NewCancellationRepository(db *sql.DB) *CancellationRepository {
	return &CancellationRepository{db: db}
}

func (r *CancellationRepository) GetByOrder(ctx context.Context, orderID string) (*models.OrderCancellation, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var c models.OrderCancellation
	var reason string
	err := r.db.QueryRowContext(ctx, `SELECT id, order_id, delivery_partner_id, reason, details, cancelled_at FROM order_cancellations WHERE order_id = ?`, orderID).
		Scan(&c.ID, &c.OrderID, &c.DeliveryPartnerID, &reason, &c.Details, &c.CancelledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Reason = models.CancellationReason(reason)
	return &c, nil
}

func insertCancellation(ctx context.Context, tx *sql.Tx, c *models.OrderCancellation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO order_cancellations (id, order_id, delivery_partner_id, reason, details, cancelled_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.OrderID, c.DeliveryPartnerID, string(c.Reason), c.Details, c.CancelledAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert cancellation: %w", err)
	}
	return nil
}

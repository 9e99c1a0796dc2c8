package delivery

import (
	"context"

	"marketplaceDelivery/internal/geo"
	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"
	"marketplaceDelivery/models"
)

// PickupReadyInput names the parked order and the partner claiming it.
type PickupReadyInput struct {
	OrderID   string `validate:"required"`
	PartnerID string `validate:"required"`
}

// PickupReadyOrder lets an available partner claim an order parked in ready_for_pickup.
// The claim is exclusive: when several partners race, one gets the order and the others
// get KindInvalidState. The codes stored when the order was parked are reused; fresh
// ones are issued if they are missing or malformed.
func (s *Service) PickupReadyOrder(ctx context.Context, in PickupReadyInput) (res *AllocationResult, err error) {
	defer func() { observe(ctx, "pickup_ready_order", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}

	order, err := s.repos.Orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, storeError("load order", err)
	}
	if order == nil {
		return nil, newError(KindNotFound, "order not found")
	}
	if order.Status != models.OrderStatusReadyForPickup {
		return nil, newError(KindInvalidState, "order is not ready for pickup")
	}
	partner, err := s.repos.Partners.GetByID(ctx, in.PartnerID)
	if err != nil {
		return nil, storeError("load partner", err)
	}
	if partner == nil {
		return nil, newError(KindNotFound, "delivery partner not found")
	}
	if !partner.IsAvailable || !partner.IsActive {
		return nil, newError(KindPartnerUnavailable, "delivery partner is not available")
	}

	claim, err := s.repos.Claims.GetByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError("load pending claim", err)
	}
	a := &models.DeliveryAssignment{
		OrderID:           order.ID,
		DeliveryPartnerID: partner.ID,
		Priority:          models.PriorityNormal,
	}
	if claim != nil && claim.ClaimedAt == nil {
		a.OrderItemID, a.VendorID = claim.OrderItemID, claim.VendorID
		if claim.Priority != "" {
			a.Priority = claim.Priority
		}
		if ValidOTP(claim.PickupOTP) && ValidOTP(claim.DeliveryOTP) {
			a.PickupOTP, a.DeliveryOTP = claim.PickupOTP, claim.DeliveryOTP
		}
	}
	if a.PickupOTP == "" {
		logging.Ctx(ctx).Warn().Str("order_id", order.ID).Msg("stored codes missing or unreadable, issuing new ones")
		if a.PickupOTP, a.DeliveryOTP, err = newOTPPair(s.otp); err != nil {
			return nil, wrapError(KindInternal, "could not generate codes", err)
		}
	}
	if a.VendorID == nil {
		if _, vendorID, err := s.resolveItemAndVendor(ctx, order.ID, "", ""); err == nil {
			a.VendorID = vendorID
		}
	}
	var drop *geo.Point
	if p, ok := geo.PointOf(order.DeliveryAddress.Lat, order.DeliveryAddress.Lng); ok {
		drop = &p
	}
	a.DeliveryFee = deliveryFee(s.cfg.BaseFee, s.cfg.PerKmFee, s.vendorPickup(ctx, a.VendorID), drop)

	if err := s.repos.Assignments.ClaimReadyOrder(ctx, a, actorFrom(ctx)); err != nil {
		return nil, allocationError(err)
	}
	metrics.Allocations.WithLabelValues("claimed").Inc()
	logging.Ctx(ctx).Info().Str("order_id", order.ID).Str("partner_id", partner.ID).Msg("ready order claimed")
	return &AllocationResult{
		OrderID:     order.ID,
		Status:      models.OrderStatusAssignedToDelivery,
		Assignment:  a,
		Partner:     summarize(partner),
		DeliveryFee: a.DeliveryFee,
	}, nil
}

package delivery

import (
	"context"
	"errors"
	"strings"

	"marketplaceDelivery/internal/geo"
	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// CreateAssignmentInput identifies the order to hand to delivery.
type CreateAssignmentInput struct {
	OrderItemID string
	OrderID     string `validate:"required"`
	VendorID    string
	Pincode     string `validate:"omitempty,pincode"`
	Priority    string `validate:"omitempty,oneof=low normal high urgent"`
}

// PartnerSummary is the partner information returned with an allocation.
type PartnerSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone,omitempty"`
	Rating float64 `json:"rating"`
}

// AllocationResult is returned by CreateAssignmentFromOrder and PickupReadyOrder.
// PendingAssignment is set when no partner was available and the order was parked.
// Only the pickup code is returned, to the vendor side; the delivery code reaches the
// customer through GetDeliveryStatus.
type AllocationResult struct {
	OrderID           string                     `json:"order_id"`
	Status            models.OrderStatus         `json:"status"`
	PendingAssignment bool                       `json:"pendingAssignment"`
	Assignment        *models.DeliveryAssignment `json:"assignment,omitempty"`
	Partner           *PartnerSummary            `json:"partner,omitempty"`
	PickupOTP         string                     `json:"pickup_otp,omitempty"`
	DeliveryFee       float64                    `json:"delivery_fee"`
}

// CreateAssignmentFromOrder hands an order to delivery. It assigns the best available
// partner or, when none is available, parks the order in ready_for_pickup with a
// pending claim that any eligible partner can take later.
//
// The operation is idempotent per order: an order with an active assignment yields
// KindAlreadyAssigned, and a parked order keeps the codes issued the first time.
func (s *Service) CreateAssignmentFromOrder(ctx context.Context, in CreateAssignmentInput) (res *AllocationResult, err error) {
	defer func() { observe(ctx, "create_assignment", err) }()
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
	active, err := s.repos.Assignments.GetActiveByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError("load assignment", err)
	}
	if active != nil {
		return nil, newError(KindAlreadyAssigned, "order already has an active delivery assignment")
	}
	if !order.Status.Allocatable() {
		return nil, newError(KindInvalidState, "order is "+string(order.Status)+" and cannot be handed to delivery")
	}

	pincode := strings.TrimSpace(in.Pincode)
	if pincode == "" {
		pincode = strings.TrimSpace(order.DeliveryAddress.Pincode)
	}
	priority := models.Priority(in.Priority)
	if priority == "" {
		priority = models.PriorityNormal
	}
	itemID, vendorID, err := s.resolveItemAndVendor(ctx, order.ID, in.OrderItemID, in.VendorID)
	if err != nil {
		return nil, err
	}
	pickup := s.vendorPickup(ctx, vendorID)
	drop, hasDrop := geo.PointOf(order.DeliveryAddress.Lat, order.DeliveryAddress.Lng)
	var dropPtr *geo.Point
	if hasDrop {
		dropPtr = &drop
	}

	// An open claim from an earlier parked attempt keeps its codes.
	pickupOTP, deliveryOTP := "", ""
	claim, err := s.repos.Claims.GetByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError("load pending claim", err)
	}
	if claim != nil && claim.ClaimedAt == nil && ValidOTP(claim.PickupOTP) && ValidOTP(claim.DeliveryOTP) {
		pickupOTP, deliveryOTP = claim.PickupOTP, claim.DeliveryOTP
	} else if pickupOTP, deliveryOTP, err = newOTPPair(s.otp); err != nil {
		return nil, wrapError(KindInternal, "could not generate codes", err)
	}

	candidates, err := s.repos.Partners.ListAvailable(ctx)
	if err != nil {
		return nil, storeError("list partners", err)
	}
	partner := s.selector.Select(SelectionRequest{Pincode: pincode, Pickup: pickup}, candidates)

	if partner == nil {
		stored, err := s.repos.Assignments.ParkForPickup(ctx, &models.PendingDeliveryClaim{
			OrderID:     order.ID,
			OrderItemID: itemID,
			VendorID:    vendorID,
			Pincode:     pincode,
			Priority:    priority,
			PickupOTP:   pickupOTP,
			DeliveryOTP: deliveryOTP,
		}, actorFrom(ctx))
		if err != nil {
			return nil, allocationError(err)
		}
		metrics.Allocations.WithLabelValues("parked").Inc()
		logging.Ctx(ctx).Info().Str("order_id", order.ID).Str("pincode", pincode).Msg("no delivery partner available, order parked for pickup")
		return &AllocationResult{
			OrderID:           order.ID,
			Status:            models.OrderStatusReadyForPickup,
			PendingAssignment: true,
			PickupOTP:         stored.PickupOTP,
		}, nil
	}

	a := &models.DeliveryAssignment{
		OrderID:           order.ID,
		OrderItemID:       itemID,
		DeliveryPartnerID: partner.ID,
		VendorID:          vendorID,
		Priority:          priority,
		PickupOTP:         pickupOTP,
		DeliveryOTP:       deliveryOTP,
		DeliveryFee:       deliveryFee(s.cfg.BaseFee, s.cfg.PerKmFee, pickup, dropPtr),
	}
	if err := s.repos.Assignments.AllocateAssignment(ctx, a, actorFrom(ctx)); err != nil {
		return nil, allocationError(err)
	}
	metrics.Allocations.WithLabelValues("assigned").Inc()
	logging.Ctx(ctx).Info().Str("order_id", order.ID).Str("partner_id", partner.ID).Float64("fee", a.DeliveryFee).Msg("delivery partner assigned")
	return &AllocationResult{
		OrderID:     order.ID,
		Status:      models.OrderStatusAssignedToDelivery,
		Assignment:  a,
		Partner:     summarize(partner),
		PickupOTP:   pickupOTP,
		DeliveryFee: a.DeliveryFee,
	}, nil
}

// resolveItemAndVendor fills in the item and vendor from the order's first item when
// the caller did not name them. A named vendor must sell the named item, or at least
// one item of the order.
func (s *Service) resolveItemAndVendor(ctx context.Context, orderID, itemID, vendorID string) (*string, *string, error) {
	var item, vendor *string
	if itemID != "" {
		it, err := s.repos.Items.GetByID(ctx, itemID)
		if err != nil {
			return nil, nil, storeError("load order item", err)
		}
		if it == nil || it.OrderID != orderID {
			return nil, nil, newError(KindNotFound, "order item not found")
		}
		if vendorID != "" && it.VendorID != vendorID {
			return nil, nil, newError(KindNotFound, "order item not found for this vendor")
		}
		item = &it.ID
		vendorID = it.VendorID
	} else {
		items, err := s.repos.Items.ListByOrder(ctx, orderID)
		if err != nil {
			return nil, nil, storeError("load order items", err)
		}
		switch {
		case vendorID == "" && len(items) > 0:
			vendorID = items[0].VendorID
		case vendorID != "" && !soldBy(items, vendorID):
			return nil, nil, newError(KindNotFound, "order has no items from this vendor")
		}
	}
	if vendorID != "" {
		vendor = &vendorID
	}
	return item, vendor, nil
}

func soldBy(items []*models.OrderItem, vendorID string) bool {
	for _, it := range items {
		if it.VendorID == vendorID {
			return true
		}
	}
	return false
}

// vendorPickup returns the vendor's pickup point, or nil when unknown.
// A failed lookup only degrades ranking and fee, so it is logged and ignored.
func (s *Service) vendorPickup(ctx context.Context, vendorID *string) *geo.Point {
	if vendorID == nil {
		return nil
	}
	v, err := s.repos.Vendors.GetByID(ctx, *vendorID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("vendor_id", *vendorID).Msg("vendor lookup failed")
		return nil
	}
	if v == nil {
		return nil
	}
	if p, ok := geo.PointOf(v.PickupLat, v.PickupLng); ok {
		return &p
	}
	return nil
}

func allocationError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return wrapError(KindAlreadyAssigned, "order already has an active delivery assignment", err)
	case errors.Is(err, repository.ErrStateChanged):
		return wrapError(KindInvalidState, "order status changed, it can no longer be handed to delivery", err)
	case errors.Is(err, repository.ErrNotFound):
		return wrapError(KindNotFound, "order not found", err)
	default:
		return storeError("allocate delivery", err)
	}
}

func summarize(p *models.DeliveryPartner) *PartnerSummary {
	return &PartnerSummary{ID: p.ID, Name: p.Name, Phone: p.Phone, Rating: p.Rating}
}

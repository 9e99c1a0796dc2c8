package delivery

import (
	"context"
	"errors"
	"time"

	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// AssignmentRef names a partner's assignment by order.
type AssignmentRef struct {
	OrderID   string `validate:"required"`
	PartnerID string `validate:"required"`
}

// AcceptAssignment confirms the partner takes an order assigned to them.
func (s *Service) AcceptAssignment(ctx context.Context, in AssignmentRef) (a *models.DeliveryAssignment, err error) {
	defer func() { observe(ctx, "accept_assignment", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}
	a, err = s.repos.Assignments.AcceptAssignment(ctx, in.OrderID, in.PartnerID)
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, wrapError(KindInvalidState, "no assignment awaiting acceptance for this order", err)
		}
		return nil, storeError("accept assignment", err)
	}
	return a, nil
}

// MarkOutForDelivery records that the partner left with a picked-up order.
func (s *Service) MarkOutForDelivery(ctx context.Context, in AssignmentRef) (err error) {
	defer func() { observe(ctx, "mark_out_for_delivery", err) }()
	if err := validate(&in); err != nil {
		return err
	}
	if err := s.repos.Assignments.MarkOutForDelivery(ctx, in.OrderID, in.PartnerID, actorFrom(ctx)); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return wrapError(KindInvalidState, "order must be picked up by this partner first", err)
		}
		return storeError("mark out for delivery", err)
	}
	return nil
}

// CancelInput carries a partner-initiated cancellation.
type CancelInput struct {
	OrderID   string `validate:"required"`
	PartnerID string `validate:"required"`
	Reason    string `validate:"required,oneof=customer_unavailable incorrect_address damaged_product customer_refused delivery_issues payment_issues vendor_issues weather vehicle_breakdown other"`
	Details   string `validate:"max=500"`
}

// CancelDelivery cancels the partner's active assignment and the order, writing the
// order's single cancellation record.
func (s *Service) CancelDelivery(ctx context.Context, in CancelInput) (c *models.OrderCancellation, err error) {
	defer func() { observe(ctx, "cancel_delivery", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}
	c = &models.OrderCancellation{
		OrderID:           in.OrderID,
		DeliveryPartnerID: in.PartnerID,
		Reason:            models.CancellationReason(in.Reason),
		Details:           in.Details,
	}
	if err := s.repos.Assignments.CancelDelivery(ctx, c, actorFrom(ctx)); err != nil {
		switch {
		case errors.Is(err, repository.ErrStateChanged):
			return nil, wrapError(KindInvalidState, "no active delivery to cancel for this order", err)
		case errors.Is(err, repository.ErrConflict):
			return nil, wrapError(KindInvalidState, "order is already cancelled", err)
		default:
			return nil, storeError("cancel delivery", err)
		}
	}
	logging.Ctx(ctx).Info().Str("order_id", in.OrderID).Str("partner_id", in.PartnerID).Str("reason", in.Reason).Msg("delivery cancelled")
	return c, nil
}

// AvailabilityInput toggles whether a partner receives new orders.
type AvailabilityInput struct {
	PartnerID string `validate:"required"`
	Available bool
}

func (s *Service) UpdatePartnerAvailability(ctx context.Context, in AvailabilityInput) (p *models.DeliveryPartner, err error) {
	defer func() { observe(ctx, "update_availability", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}
	if err := s.repos.Partners.UpdateAvailability(ctx, in.PartnerID, in.Available); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapError(KindNotFound, "delivery partner not found", err)
		}
		return nil, storeError("update availability", err)
	}
	return s.loadPartner(ctx, in.PartnerID)
}

// LocationInput is a partner position report.
type LocationInput struct {
	PartnerID string  `validate:"required"`
	Lat       float64 `validate:"latitude"`
	Lng       float64 `validate:"longitude"`
}

func (s *Service) UpdatePartnerLocation(ctx context.Context, in LocationInput) (p *models.DeliveryPartner, err error) {
	defer func() { observe(ctx, "update_location", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}
	if err := s.repos.Partners.UpdateLocation(ctx, in.PartnerID, in.Lat, in.Lng); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapError(KindNotFound, "delivery partner not found", err)
		}
		return nil, storeError("update location", err)
	}
	return s.loadPartner(ctx, in.PartnerID)
}

func (s *Service) loadPartner(ctx context.Context, id string) (*models.DeliveryPartner, error) {
	p, err := s.repos.Partners.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load partner", err)
	}
	if p == nil {
		return nil, newError(KindNotFound, "delivery partner not found")
	}
	return p, nil
}

// DeliveryStatus is the delivery view of one order.
type DeliveryStatus struct {
	OrderID          string                    `json:"order_id"`
	OrderNumber      string                    `json:"order_number"`
	OrderStatus      models.OrderStatus        `json:"order_status"`
	AssignmentStatus *models.AssignmentStatus  `json:"assignment_status,omitempty"`
	DeliveryStatus   string                    `json:"delivery_status"`
	PartnerID        string                    `json:"partner_id,omitempty"`
	PickedUpAt       *time.Time                `json:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time                `json:"delivered_at,omitempty"`
	DeliveryOTP      string                    `json:"delivery_otp,omitempty"`
	Cancellation     *models.OrderCancellation `json:"cancellation,omitempty"`
	Timeline         []models.OrderStatusEvent `json:"timeline"`
}

// StatusInput asks for an order's delivery status. IncludeCode adds the delivery code,
// which only the order's customer may see.
type StatusInput struct {
	OrderID     string `validate:"required"`
	IncludeCode bool
}

// GetDeliveryStatus returns the order's display delivery status and its history.
func (s *Service) GetDeliveryStatus(ctx context.Context, in StatusInput) (st *DeliveryStatus, err error) {
	defer func() { observe(ctx, "get_delivery_status", err) }()
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
	a, err := s.repos.Assignments.GetLatestByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError("load assignment", err)
	}
	st = &DeliveryStatus{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderStatus: order.Status,
		PickedUpAt:  order.PickedUpAt,
		DeliveredAt: order.DeliveredAt,
	}
	var as *models.AssignmentStatus
	if a != nil {
		as = &a.Status
		st.AssignmentStatus = as
		st.PartnerID = a.DeliveryPartnerID
		if in.IncludeCode && a.Status.IsActive() && a.Status != models.AssignmentStatusDelivered {
			st.DeliveryOTP = a.DeliveryOTP
		}
	}
	st.DeliveryStatus = MapStatus(order.Status, as)
	if order.Status == models.OrderStatusCancelled && s.repos.Cancellations != nil {
		if st.Cancellation, err = s.repos.Cancellations.GetByOrder(ctx, order.ID); err != nil {
			return nil, storeError("load cancellation", err)
		}
	}
	if st.Timeline, err = s.repos.Orders.History(ctx, order.ID); err != nil {
		return nil, storeError("load history", err)
	}
	if st.Timeline == nil {
		st.Timeline = []models.OrderStatusEvent{}
	}
	return st, nil
}

package delivery

import (
	"context"
	"errors"

	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// VerifyCodeInput carries a code entered by the partner.
type VerifyCodeInput struct {
	OrderID   string `validate:"required"`
	PartnerID string `validate:"required"`
	OTP       string `validate:"otp"`
}

// MarkPickedUp confirms the vendor handed the order over. The pickup code is compared
// inside the store together with the state change, so a wrong code, another partner's
// order and a missing assignment are all reported as KindInvalidOTP and change nothing.
// Repeating a successful call fails the same way without touching the timestamps.
func (s *Service) MarkPickedUp(ctx context.Context, in VerifyCodeInput) (a *models.DeliveryAssignment, err error) {
	defer func() { observe(ctx, "mark_picked_up", err) }()
	if err := validate(&in); err != nil {
		if KindOf(err) == KindInvalidOTP {
			metrics.OTPRejections.WithLabelValues("pickup").Inc()
		}
		return nil, err
	}
	a, err = s.repos.Assignments.VerifyPickupOTP(ctx, in.OrderID, in.PartnerID, in.OTP, actorFrom(ctx))
	if err != nil {
		return nil, s.codeError(ctx, "pickup", in.OrderID, err)
	}
	logging.Ctx(ctx).Info().Str("order_id", in.OrderID).Str("partner_id", in.PartnerID).Msg("order picked up")
	return a, nil
}

// MarkDelivered confirms the customer received the order, gated by the delivery code
// the same way MarkPickedUp is gated by the pickup code.
func (s *Service) MarkDelivered(ctx context.Context, in VerifyCodeInput) (a *models.DeliveryAssignment, err error) {
	defer func() { observe(ctx, "mark_delivered", err) }()
	if err := validate(&in); err != nil {
		if KindOf(err) == KindInvalidOTP {
			metrics.OTPRejections.WithLabelValues("delivery").Inc()
		}
		return nil, err
	}
	a, err = s.repos.Assignments.VerifyDeliveryOTP(ctx, in.OrderID, in.PartnerID, in.OTP, actorFrom(ctx))
	if err != nil {
		return nil, s.codeError(ctx, "delivery", in.OrderID, err)
	}
	logging.Ctx(ctx).Info().Str("order_id", in.OrderID).Str("partner_id", in.PartnerID).Msg("order delivered")
	return a, nil
}

func (s *Service) codeError(ctx context.Context, stage, orderID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.OTPRejections.WithLabelValues(stage).Inc()
		logging.Ctx(ctx).Info().Str("order_id", orderID).Str("stage", stage).Msg("code rejected")
		return wrapError(KindInvalidOTP, msgInvalidCode, err)
	case errors.Is(err, repository.ErrStateChanged):
		return wrapError(KindInvalidState, "order can no longer be updated", err)
	default:
		return storeError("verify "+stage+" code", err)
	}
}

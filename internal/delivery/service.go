// Package delivery reconciles marketplace orders with delivery partners: it allocates
// assignments, lets partners claim parked orders, gates pickup and delivery behind
// one-time codes and serves the partner-facing order lists.
//
// Every operation returns its result or an *Error; NewEnvelope turns either into the
// wire envelope at the transport boundary.
package delivery

import (
	"context"
	"database/sql"
	"errors"

	"marketplaceDelivery/internal/config"
	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"
	"marketplaceDelivery/internal/validation"
	"marketplaceDelivery/repository"
)

// Repositories groups the data access the Service depends on.
type Repositories struct {
	Users       repository.UserRepositoryI
	Orders      repository.OrderRepositoryI
	Items       repository.OrderItemRepositoryI
	Vendors     repository.VendorRepositoryI
	Partners    repository.PartnerRepositoryI
	Claims      repository.ClaimRepositoryI
	Assignments repository.AssignmentRepositoryI

	Cancellations repository.CancellationRepositoryI
}

// NewRepositories wires the SQL repositories over one database handle.
func NewRepositories(d *sql.DB) Repositories {
	return Repositories{
		Users:       repository.NewUserRepository(d),
		Orders:      repository.NewOrderRepository(d),
		Items:       repository.NewOrderItemRepository(d),
		Vendors:     repository.NewVendorRepository(d),
		Partners:    repository.NewPartnerRepository(d),
		Claims:      repository.NewClaimRepository(d),
		Assignments: repository.NewAssignmentRepository(d),

		Cancellations: repository.NewCancellationRepository(d),
	}
}

// Service is the delivery reconciler.
type Service struct {
	repos    Repositories
	cfg      config.DeliveryConfig
	selector Selector
	writer   *FallbackWriter
	otp      func() (string, error)
}

type Option func(*Service)

// WithSelector replaces the default RankingSelector.
func WithSelector(sel Selector) Option {
	return func(s *Service) { s.selector = sel }
}

// WithFallbackWriter replaces the writer built from the delivery config.
func WithFallbackWriter(w *FallbackWriter) Option {
	return func(s *Service) { s.writer = w }
}

// WithOTPGenerator replaces GenerateOTP.
func WithOTPGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.otp = gen }
}

func NewService(repos Repositories, cfg config.DeliveryConfig, opts ...Option) *Service {
	s := &Service{
		repos:    repos,
		cfg:      cfg,
		selector: RankingSelector{},
		otp:      GenerateOTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.writer == nil {
		s.writer = NewFallbackWriter(FallbackConfig{Retries: cfg.FallbackRetries, BaseDelay: cfg.FallbackRetryDelay})
	}
	return s
}

type actorKey struct{}

// WithActor records who is acting; the name is written to the order status history.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}

// validate runs struct validation and converts failures into a validation *Error.
// A malformed code is reported like a wrong one.
func validate(in any) error {
	err := validation.ValidateStruct(in)
	if err == nil {
		return nil
	}
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			if f.Tag == "otp" {
				return newError(KindInvalidOTP, msgInvalidCode)
			}
		}
		return wrapError(KindValidation, verr.Error(), err)
	}
	return wrapError(KindValidation, "invalid request", err)
}

// observe logs the outcome of an operation and counts it.
func observe(ctx context.Context, op string, err error) {
	if err == nil {
		metrics.DeliveryTransitions.WithLabelValues(op, "ok").Inc()
		logging.Ctx(ctx).Debug().Str("op", op).Str("actor", actorFrom(ctx)).Msg("delivery operation succeeded")
		return
	}
	kind := KindOf(err)
	metrics.DeliveryTransitions.WithLabelValues(op, string(kind)).Inc()
	ev := logging.Ctx(ctx).Info()
	if kind == KindInternal || kind == KindTransient {
		ev = logging.Ctx(ctx).Error()
	}
	ev.Err(err).Str("op", op).Str("kind", string(kind)).Str("actor", actorFrom(ctx)).Msg("delivery operation failed")
}

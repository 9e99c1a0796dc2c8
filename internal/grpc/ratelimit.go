package grpcserver

import (
	"context"
	"sync"
	"time"

	"marketplaceDelivery/internal/auth"
	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// codeMethods are the RPCs that take a pickup or delivery code.
var codeMethods = map[string]string{
	"/" + DeliveryServiceName + "/MarkPickedUp":  "pickup",
	"/" + DeliveryServiceName + "/MarkDelivered": "delivery",
}

// CodeAttemptLimiter limits code submissions per caller so a six-digit code
// cannot be guessed by brute force.
type CodeAttemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewCodeAttemptLimiter allows attempts codes per window for each caller.
// It returns nil when attempts is zero.
func NewCodeAttemptLimiter(attempts int, window time.Duration) *CodeAttemptLimiter {
	if attempts <= 0 || window <= 0 {
		return nil
	}
	return &CodeAttemptLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
		idle:     2 * window,
		stop:     make(chan struct{}),
	}
}

// Allow reports whether key may submit another code now.
func (l *CodeAttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = time.Now()
	lim := e.limiter
	l.mu.Unlock()
	return lim.Allow()
}

// StartCleanup drops idle callers every interval until Stop.
func (l *CodeAttemptLimiter) StartCleanup(interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.cleanup(time.Now())
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *CodeAttemptLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.limiters {
		if now.Sub(e.lastAccess) > l.idle {
			delete(l.limiters, k)
		}
	}
}

func (l *CodeAttemptLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// UnaryInterceptor rejects code RPCs over the limit with ResourceExhausted.
// It must run after authentication.
func (l *CodeAttemptLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		stage, ok := codeMethods[info.FullMethod]
		if !ok {
			return handler(ctx, req)
		}
		p, ok := auth.FromContext(ctx)
		if !ok || p == nil {
			return handler(ctx, req)
		}
		if !l.Allow(p.Kind + ":" + p.Name) {
			metrics.OTPRejections.WithLabelValues(stage + "_rate_limited").Inc()
			logging.Ctx(ctx).Warn().Str("principal", p.Name).Str("stage", stage).Msg("code attempts rate limited")
			return nil, status.Error(codes.ResourceExhausted, "too many code attempts, try again later")
		}
		return handler(ctx, req)
	}
}

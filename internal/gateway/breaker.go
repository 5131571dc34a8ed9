package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds configuration for the gateway circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed in the half-open state.
	// 0 means 1 request is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing internal counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns sensible defaults for the gateway breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrBreakerOpen is returned when the breaker is open and rejects the call.
var ErrBreakerOpen = gobreaker.ErrOpenState

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "payment_gateway_breaker_state",
		Help: "Current state of the payment gateway circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"gateway"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Breaker wraps a Gateway with circuit breaker protection. Transport failures
// count against the breaker; business declines (Result.Success == false) do
// not, since they mean the gateway is healthy and saying no.
type Breaker struct {
	next    Gateway
	breaker *gobreaker.CircuitBreaker[*Result]
	logger  *slog.Logger
}

// NewBreaker wraps a gateway with a circuit breaker using default settings.
func NewBreaker(next Gateway, logger *slog.Logger) *Breaker {
	return NewBreakerWithConfig(next, DefaultBreakerConfig(), logger)
}

// NewBreakerWithConfig wraps a gateway with a circuit breaker.
func NewBreakerWithConfig(next Gateway, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("payment gateway breaker state change",
				slog.String("gateway", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(next.Name()).Set(0)

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*Result](settings),
		logger:  logger,
	}
}

// Name returns the name of the wrapped gateway.
func (b *Breaker) Name() string {
	return b.next.Name()
}

// RequestPayment opens a payment session through the breaker.
func (b *Breaker) RequestPayment(ctx context.Context, input *RequestInput) (*Result, error) {
	return b.breaker.Execute(func() (*Result, error) {
		return b.next.RequestPayment(ctx, input)
	})
}

// ConfirmPayment captures a payment through the breaker.
func (b *Breaker) ConfirmPayment(ctx context.Context, input *ConfirmInput) (*Result, error) {
	return b.breaker.Execute(func() (*Result, error) {
		return b.next.ConfirmPayment(ctx, input)
	})
}

// CancelPayment refunds a payment through the breaker.
func (b *Breaker) CancelPayment(ctx context.Context, input *CancelInput) (*Result, error) {
	return b.breaker.Execute(func() (*Result, error) {
		return b.next.CancelPayment(ctx, input)
	})
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

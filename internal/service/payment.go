package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/event"
	"github.com/utafrali/ordercore/internal/gateway"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// PaymentService implements the payment workflow against an external payment
// gateway. A payment moves PENDING to COMPLETED or FAILED at confirmation,
// and a COMPLETED payment can be refunded to CANCELLED. Confirmation writes
// the payment and the order in a single transaction.
type PaymentService struct {
	pool     database.DBTX
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	gateway  gateway.Gateway
	producer *event.Producer
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(pool database.DBTX, payments repository.PaymentRepository, orders repository.OrderRepository, gw gateway.Gateway, producer *event.Producer, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		pool:     pool,
		payments: payments,
		orders:   orders,
		gateway:  gw,
		producer: producer,
		logger:   logger,
	}
}

// RequestPaymentInput holds the parameters for opening a payment.
type RequestPaymentInput struct {
	OrderID  string
	Method   string
	MemberID string
	Role     string
}

// RequestPayment opens a payment session for an order awaiting payment. The
// amount is snapshotted from the order total. Nothing is persisted when the
// gateway refuses the session.
func (s *PaymentService) RequestPayment(ctx context.Context, input RequestPaymentInput) (*domain.Payment, error) {
	if !domain.ValidPaymentMethod(input.Method) {
		return nil, apperrors.InvalidInput("unsupported payment method")
	}

	order, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment: %w", err)
	}

	if err := authorizeOwner(order.MemberID, input.MemberID, input.Role); err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPendingPayment {
		return nil, domain.ErrOrderAlreadyPaid
	}

	now := time.Now().UTC()
	payment := domain.NewPayment(order.ID, input.Method, order.TotalAmount, now)

	result, err := s.gateway.RequestPayment(ctx, &gateway.RequestInput{
		TransactionID: payment.TransactionID,
		OrderNumber:   order.OrderNumber,
		Amount:        payment.Amount,
		Method:        payment.Method,
	})
	if err != nil {
		return nil, fmt.Errorf("request payment session: %w", err)
	}
	if !result.Success {
		return nil, apperrors.PaymentFailed(result.FailReason)
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.InfoContext(ctx, "payment requested",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", order.ID),
		slog.String("transaction_id", payment.TransactionID),
		slog.Int64("amount", payment.Amount),
	)

	return payment, nil
}

// ConfirmPaymentInput holds the parameters for confirming a payment.
type ConfirmPaymentInput struct {
	TransactionID string
	Amount        int64
	MemberID      string
	Role          string
}

// ConfirmPayment captures a pending payment. On gateway approval the payment
// completes and the order is marked paid; on decline the payment fails and
// the order is left untouched. An amount that differs from the requested
// amount is rejected before the gateway is called.
func (s *PaymentService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*domain.Payment, error) {
	payment, err := s.payments.GetByTransactionID(ctx, input.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("get payment for confirm: %w", err)
	}

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for confirm: %w", err)
	}

	if err := authorizeOwner(order.MemberID, input.MemberID, input.Role); err != nil {
		return nil, err
	}

	if !payment.CanConfirm() {
		return nil, domain.ErrPaymentAlreadyProcessed
	}

	if input.Amount != payment.Amount {
		return nil, domain.ErrPaymentAmountMismatch
	}

	result, err := s.gateway.ConfirmPayment(ctx, &gateway.ConfirmInput{
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm payment with gateway: %w", err)
	}

	now := time.Now().UTC()

	if !result.Success {
		if err := payment.Fail(result.FailReason, now); err != nil {
			return nil, err
		}
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, fmt.Errorf("record failed payment: %w", err)
		}

		s.logger.InfoContext(ctx, "payment declined",
			slog.String("payment_id", payment.ID),
			slog.String("order_id", order.ID),
			slog.String("fail_reason", result.FailReason),
		)

		return nil, apperrors.PaymentFailed(result.FailReason)
	}

	if err := payment.Complete(result.PGTransactionID, now); err != nil {
		return nil, err
	}
	if err := order.MarkAsPaid(payment.Method, payment.TransactionID, now); err != nil {
		return nil, err
	}

	// The payment and the order commit atomically. Persisting them through
	// separate repository calls could strand a COMPLETED payment against a
	// PENDING_PAYMENT order when the second write fails.
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin confirm transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE payments
		SET status = $1, pg_transaction_id = $2, fail_reason = $3,
		    paid_at = $4, cancelled_at = $5, updated_at = $6
		WHERE id = $7
	`, payment.Status, payment.PGTransactionID, payment.FailReason,
		payment.PaidAt, payment.CancelledAt, payment.UpdatedAt, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	ct, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, payment_method = $2, transaction_id = $3,
		    paid_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, order.Status, order.PaymentMethod, order.TransactionID,
		order.PaidAt, order.UpdatedAt, order.ID, domain.OrderStatusPendingPayment)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrOrderAlreadyPaid
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confirm transaction: %w", err)
	}

	if err := s.producer.PublishPaymentCompleted(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.completed event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment completed",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", order.ID),
		slog.String("pg_transaction_id", payment.PGTransactionID),
		slog.Int64("amount", payment.Amount),
	)

	return payment, nil
}

// CancelPaymentInput holds the parameters for cancelling a payment.
type CancelPaymentInput struct {
	PaymentID string
	Reason    string
	MemberID  string
	Role      string
}

// CancelPayment refunds a completed payment through the gateway. When the
// gateway refuses the refund, nothing is mutated.
func (s *PaymentService) CancelPayment(ctx context.Context, input CancelPaymentInput) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, input.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment for cancel: %w", err)
	}

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment cancel: %w", err)
	}

	if err := authorizeOwner(order.MemberID, input.MemberID, input.Role); err != nil {
		return nil, err
	}

	if !payment.CanCancel() {
		return nil, domain.ErrPaymentCannotCancel
	}

	result, err := s.gateway.CancelPayment(ctx, &gateway.CancelInput{
		TransactionID:   payment.TransactionID,
		PGTransactionID: payment.PGTransactionID,
		Amount:          payment.Amount,
		Reason:          input.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel payment with gateway: %w", err)
	}
	if !result.Success {
		return nil, domain.ErrRefundFailed
	}

	now := time.Now().UTC()
	if err := payment.Cancel(now); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if err := s.producer.PublishPaymentCancelled(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.cancelled event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment cancelled",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", payment.OrderID),
		slog.String("reason", input.Reason),
	)

	return payment, nil
}

// GetPayment retrieves a payment. Members see only payments on their own
// orders.
func (s *PaymentService) GetPayment(ctx context.Context, id, memberID, role string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment: %w", err)
	}

	if err := authorizeOwner(order.MemberID, memberID, role); err != nil {
		return nil, err
	}

	return payment, nil
}

// ListPaymentsByOrder returns all payment attempts for an order.
func (s *PaymentService) ListPaymentsByOrder(ctx context.Context, orderID, memberID, role string) ([]domain.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payments: %w", err)
	}

	if err := authorizeOwner(order.MemberID, memberID, role); err != nil {
		return nil, err
	}

	payments, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments by order: %w", err)
	}

	return payments, nil
}

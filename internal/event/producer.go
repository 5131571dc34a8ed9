package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/ordercore/internal/domain"
	pkgkafka "github.com/utafrali/ordercore/pkg/kafka"
)

// Kafka topic constants for commerce domain events.
const (
	TopicOrderPlaced        = "commerce.order.placed"
	TopicOrderStatusChanged = "commerce.order.status_changed"
	TopicOrderCancelled     = "commerce.order.cancelled"
	TopicPaymentCompleted   = "commerce.payment.completed"
	TopicPaymentCancelled   = "commerce.payment.cancelled"
	TopicCouponIssued       = "commerce.coupon.issued"
)

// Aggregate type constants.
const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
	AggregateTypeCoupon  = "coupon"
)

// Source identifier for events originating from this service.
const Source = "ordercore"

// OrderPlacedData is the payload for an order.placed event (full order snapshot).
type OrderPlacedData struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	MemberID        string                 `json:"member_id"`
	Status          string                 `json:"status"`
	Items           []OrderItemData        `json:"items"`
	ShippingFee     int64                  `json:"shipping_fee"`
	DiscountAmount  int64                  `json:"discount_amount"`
	TotalAmount     int64                  `json:"total_amount"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	ProductOptionID string `json:"product_option_id,omitempty"`
	ProductName     string `json:"product_name"`
	UnitPrice       int64  `json:"unit_price"`
	Quantity        int    `json:"quantity"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// PaymentCompletedData is the payload for a payment.completed event.
type PaymentCompletedData struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
}

// PaymentCancelledData is the payload for a payment.cancelled event.
type PaymentCancelledData struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

// CouponIssuedData is the payload for a coupon.issued event.
type CouponIssuedData struct {
	MemberCouponID string `json:"member_coupon_id"`
	CouponID       string `json:"coupon_id"`
	CouponCode     string `json:"coupon_code"`
	MemberID       string `json:"member_id"`
}

// Producer publishes commerce domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderPlaced publishes an order.placed event with the full order snapshot.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductOptionID: item.ProductOptionID,
			ProductName:     item.ProductName,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
		}
	}

	data := OrderPlacedData{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		MemberID:        order.MemberID,
		Status:          order.Status,
		Items:           items,
		ShippingFee:     order.ShippingFee,
		DiscountAmount:  order.DiscountAmount,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
	}

	event, err := pkgkafka.NewEvent(TopicOrderPlaced, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.placed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderPlaced, event); err != nil {
		return fmt.Errorf("publish order.placed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus string) error {
	data := OrderStatusChangedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return nil
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, order *domain.Order) error {
	data := OrderCancelledData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reason:      order.CancelReason,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCancelled, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.cancelled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCancelled, event); err != nil {
		return fmt.Errorf("publish order.cancelled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.cancelled event",
		slog.String("order_id", order.ID),
		slog.String("reason", order.CancelReason),
	)

	return nil
}

// PublishPaymentCompleted publishes a payment.completed event.
func (p *Producer) PublishPaymentCompleted(ctx context.Context, payment *domain.Payment) error {
	data := PaymentCompletedData{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
		Method:        payment.Method,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentCompleted, payment.ID, AggregateTypePayment, Source, data)
	if err != nil {
		return fmt.Errorf("create payment.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentCompleted, event); err != nil {
		return fmt.Errorf("publish payment.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.completed event",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", payment.OrderID),
	)

	return nil
}

// PublishPaymentCancelled publishes a payment.cancelled event.
func (p *Producer) PublishPaymentCancelled(ctx context.Context, payment *domain.Payment) error {
	data := PaymentCancelledData{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentCancelled, payment.ID, AggregateTypePayment, Source, data)
	if err != nil {
		return fmt.Errorf("create payment.cancelled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentCancelled, event); err != nil {
		return fmt.Errorf("publish payment.cancelled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.cancelled event",
		slog.String("payment_id", payment.ID),
	)

	return nil
}

// PublishCouponIssued publishes a coupon.issued event.
func (p *Producer) PublishCouponIssued(ctx context.Context, mc *domain.MemberCoupon) error {
	code := ""
	if mc.Coupon != nil {
		code = mc.Coupon.Code
	}

	data := CouponIssuedData{
		MemberCouponID: mc.ID,
		CouponID:       mc.CouponID,
		CouponCode:     code,
		MemberID:       mc.MemberID,
	}

	event, err := pkgkafka.NewEvent(TopicCouponIssued, mc.CouponID, AggregateTypeCoupon, Source, data)
	if err != nil {
		return fmt.Errorf("create coupon.issued event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponIssued, event); err != nil {
		return fmt.Errorf("publish coupon.issued event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.issued event",
		slog.String("member_coupon_id", mc.ID),
		slog.String("member_id", mc.MemberID),
	)

	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

func sampleOrder() *domain.Order {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:          "ord-001",
		OrderNumber: "ORD-A1B2C3D4",
		MemberID:    "mem-001",
		Status:      domain.OrderStatusPendingPayment,
		Items: []domain.OrderItem{
			{ID: "oi-001", OrderID: "ord-001", ProductID: "prod-001", ProductName: "Keyboard", UnitPrice: 10000, Quantity: 2, Status: domain.OrderItemStatusOrdered},
		},
		ShippingAddress: domain.ShippingAddress{
			RecipientName:  "Jane Doe",
			RecipientPhone: "010-1234-5678",
			ZipCode:        "06236",
			Address:        "123 Teheran-ro",
		},
		ShippingFee:    3000,
		DiscountAmount: 0,
		TotalAmount:    23000,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

var orderColumnNames = []string{
	"id", "order_number", "member_id", "status", "payment_method", "transaction_id",
	"shipping_fee", "discount_amount", "total_amount", "shipping_address",
	"tracking_number", "cancel_reason", "paid_at", "shipped_at", "delivered_at", "cancelled_at",
	"created_at", "updated_at",
}

// ─── Create ──────────────────────────────────────────────────────────────────

func TestOrderRepository_Create(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	o := sampleOrder()

	addressJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.OrderNumber, o.MemberID, o.Status, o.PaymentMethod, o.TransactionID,
			o.ShippingFee, o.DiscountAmount, o.TotalAmount, addressJSON,
			o.TrackingNumber, o.CancelReason, o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	item := o.Items[0]
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(
			item.ID, item.OrderID, item.ProductID, item.ProductOptionID,
			item.ProductName, item.OptionName, item.UnitPrice, item.Quantity, item.Status,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = repo.Create(context.Background(), o)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ItemInsertFails(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), o)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert order item")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── GetByID ─────────────────────────────────────────────────────────────────

func TestOrderRepository_GetByID(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	o := sampleOrder()

	addressJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)
	itemsJSON, err := json.Marshal(o.Items)
	require.NoError(t, err)

	columns := append(append([]string{}, orderColumnNames...), "items")
	mock.ExpectQuery("SELECT .+ FROM orders o").
		WithArgs(o.ID).
		WillReturnRows(
			pgxmock.NewRows(columns).
				AddRow(
					o.ID, o.OrderNumber, o.MemberID, o.Status, o.PaymentMethod, o.TransactionID,
					o.ShippingFee, o.DiscountAmount, o.TotalAmount, addressJSON,
					o.TrackingNumber, o.CancelReason, o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt,
					o.CreatedAt, o.UpdatedAt, itemsJSON,
				),
		)

	result, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, result.ID)
	assert.Equal(t, o.OrderNumber, result.OrderNumber)
	assert.Equal(t, o.MemberID, result.MemberID)
	assert.Equal(t, o.ShippingAddress, result.ShippingAddress)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "prod-001", result.Items[0].ProductID)
	assert.Equal(t, int64(10000), result.Items[0].UnitPrice)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM orders o").
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), "nonexistent")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── List ────────────────────────────────────────────────────────────────────

func TestOrderRepository_List_FilterByMember(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	o := sampleOrder()

	addressJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)

	columns := append(append([]string{}, orderColumnNames...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs("mem-001", 20, 0).
		WillReturnRows(
			pgxmock.NewRows(columns).
				AddRow(
					o.ID, o.OrderNumber, o.MemberID, o.Status, o.PaymentMethod, o.TransactionID,
					o.ShippingFee, o.DiscountAmount, o.TotalAmount, addressJSON,
					o.TrackingNumber, o.CancelReason, o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt,
					o.CreatedAt, o.UpdatedAt, 1,
				),
		)
	mock.ExpectQuery("SELECT .+ FROM order_items").
		WithArgs([]string{o.ID}).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "order_id", "product_id", "product_option_id", "product_name", "option_name", "unit_price", "quantity", "status"}).
				AddRow("oi-001", o.ID, "prod-001", "", "Keyboard", "", int64(10000), 2, domain.OrderItemStatusOrdered),
		)

	memberID := "mem-001"
	orders, total, err := repo.List(context.Background(), repository.OrderFilter{MemberID: &memberID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "oi-001", orders[0].Items[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_Empty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	columns := append(append([]string{}, orderColumnNames...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(columns))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Update ──────────────────────────────────────────────────────────────────

func TestOrderRepository_Update(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	o := sampleOrder()
	now := time.Now().UTC()
	require.NoError(t, o.MarkAsPaid(domain.PaymentMethodCard, "PAY-ABC", now))

	mock.ExpectExec("UPDATE orders").
		WithArgs(
			o.Status, o.PaymentMethod, o.TransactionID, o.DiscountAmount,
			o.TotalAmount, o.TrackingNumber, o.CancelReason,
			o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt,
			pgxmock.AnyArg(), // updated_at set at call time
			o.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), o)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	o := sampleOrder()
	o.ID = "nonexistent"

	mock.ExpectExec("UPDATE orders").
		WithArgs(
			o.Status, o.PaymentMethod, o.TransactionID, o.DiscountAmount,
			o.TotalAmount, o.TrackingNumber, o.CancelReason,
			o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt,
			pgxmock.AnyArg(), o.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), o)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── UpdateItemStatus ────────────────────────────────────────────────────────

func TestOrderRepository_UpdateItemStatus(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE order_items").
		WithArgs(domain.OrderItemStatusCancelled, "oi-001", "ord-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateItemStatus(context.Background(), "ord-001", "oi-001", domain.OrderItemStatusCancelled)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateItemStatus_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE order_items").
		WithArgs(domain.OrderItemStatusCancelled, "missing", "ord-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateItemStatus(context.Background(), "ord-001", "missing", domain.OrderItemStatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

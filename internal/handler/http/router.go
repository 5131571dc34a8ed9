package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/pkg/health"
	"github.com/utafrali/ordercore/pkg/middleware"
)

// NewRouter creates a chi router with all order core routes registered.
func NewRouter(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	couponService *service.CouponService,
	stockService *service.StockService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("ordercore"))
	r.Use(middleware.Tracing("ordercore"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Identity())

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	orderHandler := NewOrderHandler(orderService, logger)
	paymentHandler := NewPaymentHandler(paymentService, logger)
	couponHandler := NewCouponHandler(couponService, logger)
	stockHandler := NewStockHandler(stockService, logger)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", orderHandler.PlaceOrder)
		r.Get("/", orderHandler.ListOrders)
		r.Get("/number/{orderNumber}", orderHandler.GetOrderByNumber)
		r.Get("/{id}", orderHandler.GetOrder)
		r.Post("/{id}/cancel", orderHandler.CancelOrder)
		r.Post("/{id}/items/{itemID}/cancel", orderHandler.CancelOrderItem)
		r.Post("/{id}/prepare", orderHandler.StartPreparing)
		r.Post("/{id}/ship", orderHandler.Ship)
		r.Post("/{id}/deliver", orderHandler.Deliver)
		r.Get("/{id}/payments", paymentHandler.ListOrderPayments)
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", paymentHandler.RequestPayment)
		r.Post("/confirm", paymentHandler.ConfirmPayment)
		r.Get("/{id}", paymentHandler.GetPayment)
		r.Post("/{id}/cancel", paymentHandler.CancelPayment)
	})

	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", couponHandler.CreateCoupon)
		r.Get("/", couponHandler.ListCoupons)
		r.Post("/issue", couponHandler.IssueCoupon)
		r.Get("/my", couponHandler.ListMyCoupons)
		r.Post("/my/{id}/apply", couponHandler.ApplyCoupon)
		r.Get("/{id}", couponHandler.GetCoupon)
		r.Put("/{id}", couponHandler.UpdateCoupon)
		r.Post("/{id}/deactivate", couponHandler.DeactivateCoupon)
		r.Delete("/{id}", couponHandler.DeleteCoupon)
	})

	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/adjust", stockHandler.AdjustStock)
		r.Get("/{productID}", stockHandler.GetStock)
		r.Get("/{productID}/movements", stockHandler.ListMovements)
	})

	return r
}

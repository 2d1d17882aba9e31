package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sazon-pos/api/internal/config"
	"github.com/sazon-pos/api/internal/database"
	"github.com/sazon-pos/api/internal/enum"
	"github.com/sazon-pos/api/internal/handler"
	mw "github.com/sazon-pos/api/internal/middleware"
	"github.com/sazon-pos/api/internal/service"
	"github.com/sazon-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket kitchen feed (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	invoiceService := service.NewInvoiceService(pool, func(db database.DBTX) service.InvoiceStore {
		return database.New(db)
	})
	auditRecorder := service.NewAuditRecorder(queries)

	orderHandler := handler.NewOrderHandler(orderService, queries, auditRecorder, hub)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, queries, auditRecorder, hub)
	categoryHandler := handler.NewCategoryHandler(queries)
	productHandler := handler.NewProductHandler(queries)
	paymentHandler := handler.NewPaymentMethodHandler(queries)
	auditHandler := handler.NewAuditHandler(auditRecorder)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Menu and payment methods (any authenticated user)
		r.Route("/categories", categoryHandler.RegisterMenuRoutes)
		r.Route("/products", productHandler.RegisterMenuRoutes)
		r.Route("/payment-methods", paymentHandler.RegisterRoutes)

		// Orders and invoices (ownership checked per request)
		r.Route("/orders", orderHandler.RegisterCustomerRoutes)
		r.Route("/invoices", invoiceHandler.RegisterCustomerRoutes)

		// Staff pipeline
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleStaff))
			r.Route("/staff/orders", func(r chi.Router) {
				orderHandler.RegisterStaffRoutes(r)
				invoiceHandler.RegisterStaffOrderRoutes(r)
			})
			r.Route("/staff/invoices", invoiceHandler.RegisterStaffInvoiceRoutes)
		})

		// Admin-only catalog management and audit trail
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Route("/admin/categories", categoryHandler.RegisterAdminRoutes)
			r.Route("/admin/products", productHandler.RegisterAdminRoutes)
			r.Route("/admin/audit-events", auditHandler.RegisterRoutes)
		})
	})

	return r
}

package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tasklocal/marketplace/internal/infrastructure/config"
	"github.com/tasklocal/marketplace/internal/infrastructure/observability"
	customMW "github.com/tasklocal/marketplace/internal/middleware"
	"github.com/tasklocal/marketplace/internal/repository/postgres"
	"github.com/tasklocal/marketplace/internal/service"
)

type RouterDeps struct {
	Pool             *pgxpool.Pool
	RedisClient      *redis.Client
	UserService      *service.UserService
	TaskService      *service.TaskService
	InvoiceService   *service.InvoiceService
	CheckoutService  *service.CheckoutService
	ReviewService    *service.ReviewService
	MessagingService *service.MessagingService
	Reconciliation   *service.ReconciliationService
	AuthzService     *service.AuthzService
	IdempotencyRepo  *postgres.IdempotencyRepository
	Metrics          *observability.Metrics
	CORSConfig       config.CORSConfig
	JWTSecret        string
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	userH := NewUserController(deps.UserService)
	taskH := NewTaskController(deps.TaskService, deps.AuthzService)
	invoiceH := NewInvoiceController(deps.InvoiceService, deps.AuthzService)
	paymentH := NewPaymentController(deps.CheckoutService, deps.AuthzService)
	reviewH := NewReviewController(deps.ReviewService, deps.AuthzService)
	messageH := NewMessageController(deps.MessagingService, deps.AuthzService)
	webhookH := NewWebhookController(deps.Reconciliation)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Provider callbacks authenticate by signature, not bearer token.
	r.Post("/webhooks/payment", webhookH.HandlePaymentEvent)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(300))

		// Public endpoints
		r.Post("/users", userH.Register)
		r.Post("/login", userH.Login)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(customMW.RequireAuth(deps.JWTSecret))

			idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

			r.Get("/users/{id}", userH.Get)
			r.Get("/users/{id}/reviews", reviewH.ListBySubject)

			// Tasks
			r.Post("/tasks", taskH.Create)
			r.Get("/tasks", taskH.List)
			r.Get("/tasks/{id}", taskH.Get)
			r.Post("/tasks/{id}/claim", taskH.Claim)
			r.Post("/tasks/{id}/complete", taskH.Complete)
			r.Post("/tasks/{id}/cancel", taskH.Cancel)
			r.Post("/tasks/{id}/reviews", reviewH.Create)
			r.Post("/tasks/{id}/conversation", messageH.Start)

			// Invoices
			r.With(idempotencyMW).Post("/invoices", invoiceH.Create)
			r.Get("/invoices", invoiceH.List)
			r.Get("/invoices/{id}", invoiceH.Get)

			// Payments
			r.With(idempotencyMW).Post("/checkout", paymentH.Checkout)
			r.Get("/payments", paymentH.List)
			r.Get("/payments/{id}", paymentH.Get)

			// Messaging
			r.Get("/conversations", messageH.ListConversations)
			r.Get("/conversations/{id}/messages", messageH.ListMessages)
			r.Post("/conversations/{id}/messages", messageH.Send)
		})
	})

	return r
}

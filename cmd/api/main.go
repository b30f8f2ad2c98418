package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tasklocal/marketplace/internal/bootstrap"
	"github.com/tasklocal/marketplace/internal/controller"
	"github.com/tasklocal/marketplace/internal/gateway"
	"github.com/tasklocal/marketplace/internal/repository/postgres"
	"github.com/tasklocal/marketplace/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "marketplace-api", "marketplace")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	userRepo := postgres.NewUserRepository(app.Pool)
	taskRepo := postgres.NewTaskRepository(app.Pool)
	invoiceRepo := postgres.NewInvoiceRepository(app.Pool)
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	reviewRepo := postgres.NewReviewRepository(app.Pool)
	messagingRepo := postgres.NewMessagingRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Gateway client ---
	gwClient := gateway.NewBreakerClient(gateway.NewMockClient(app.Config.Gateway.Provider))

	// --- Services ---
	userService := service.NewUserService(userRepo, app.Config.Auth.JWTSecret, app.Config.Auth.JWTExpiry)
	authzService := service.NewAuthzService(userRepo)
	taskService := service.NewTaskService(taskRepo, userRepo, txManager)
	invoiceService := service.NewInvoiceService(invoiceRepo, taskRepo, txManager)
	checkoutService := service.NewCheckoutService(paymentRepo, invoiceRepo, userService, gwClient, app.Metrics, app.Logger)
	reviewService := service.NewReviewService(reviewRepo, taskRepo)
	messagingService := service.NewMessagingService(messagingRepo, taskRepo)
	reconciliation := service.NewReconciliationService(
		paymentRepo, invoiceRepo, outboxRepo, txManager,
		app.Config.Gateway.WebhookSecret, app.Config.Gateway.WebhookTolerance,
		app.Metrics, app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:             app.Pool,
		RedisClient:      app.Redis,
		UserService:      userService,
		TaskService:      taskService,
		InvoiceService:   invoiceService,
		CheckoutService:  checkoutService,
		ReviewService:    reviewService,
		MessagingService: messagingService,
		Reconciliation:   reconciliation,
		AuthzService:     authzService,
		IdempotencyRepo:  idempotencyRepo,
		Metrics:          app.Metrics,
		CORSConfig:       app.Config.Server.CORS,
		JWTSecret:        app.Config.Auth.JWTSecret,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

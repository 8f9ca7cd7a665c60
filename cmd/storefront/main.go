package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emontalvo/tienda-storefront/internal/api/handlers"
	"github.com/emontalvo/tienda-storefront/internal/api/middleware"
	"github.com/emontalvo/tienda-storefront/internal/authz"
	"github.com/emontalvo/tienda-storefront/internal/cache"
	"github.com/emontalvo/tienda-storefront/internal/config"
	"github.com/emontalvo/tienda-storefront/internal/health"
	"github.com/emontalvo/tienda-storefront/internal/metrics"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/emontalvo/tienda-storefront/internal/telemetry"
	"github.com/emontalvo/tienda-storefront/pkg/email"
	"github.com/emontalvo/tienda-storefront/pkg/gateway"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//	@title			Tienda Storefront API
//	@version		1.0
//	@description	Storefront with session carts, order checkout and gateway payments.
//	@BasePath		/api/v1

func main() {

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	shutdownTracing, err := telemetry.Setup(context.Background(), &cfg.Telemetry)
	if err != nil {
		slog.Error("❌ Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConnect.Addr,
		Password: cfg.RedisConnect.Password,
		DB:       cfg.RedisConnect.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalogCache := cache.NewRedisCache(redisClient, &cfg.Cache)
	stripeClient := gateway.NewStripeClient(&cfg.Stripe)
	emailSender := email.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	userService := service.NewUserService(repos.User, &cfg.Security, logger)
	catalogService := service.NewCatalogService(repos.Product, repos.Category, catalogCache, cfg.Cache.DefaultTTL, logger)
	cartService := service.NewCartService(repos.Cart, repos.Product)
	orderService := service.NewOrderService(repos.Store, repos.Order, repos.Payment, repos.Product,
		repos.Cart, stripeClient, emailSender, cfg.Stripe.Currency, logger)
	adminService := service.NewAdminService(repos.Order, repos.Product, repos.Payment)

	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(orderService, stripeClient)
	adminHandler := handlers.NewAdminHandler(adminService)
	auth := middleware.NewAuthMiddleware(userService)

	healthHandler, err := health.NewHealthHandler(&health.Endpoints{
		DB:          repos.Store.DB,
		RedisClient: redisClient,
	})
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	routerMux := http.NewServeMux()

	// Public storefront
	routerMux.HandleFunc("GET /api/v1/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("GET /api/v1/categories", productHandler.ListCategories())
	routerMux.HandleFunc("GET /api/v1/categories/{id}", productHandler.GetCategory())
	routerMux.HandleFunc("GET /api/v1/cart", cartHandler.GetCart())
	routerMux.HandleFunc("POST /api/v1/cart/items", cartHandler.AddItem())
	routerMux.HandleFunc("PUT /api/v1/cart/items/{productID}", cartHandler.UpdateItem())
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{productID}", cartHandler.RemoveItem())
	routerMux.HandleFunc("POST /api/v1/orders", orderHandler.Checkout())
	routerMux.HandleFunc("GET /api/v1/orders/{id}", orderHandler.GetOrder())
	routerMux.HandleFunc("POST /api/v1/orders/{id}/cancel", orderHandler.CancelOrder())
	routerMux.HandleFunc("POST /api/v1/orders/{id}/payments", paymentHandler.RequestPayment())
	routerMux.HandleFunc("POST /api/v1/payments/webhook", paymentHandler.Webhook())

	// Staff
	routerMux.HandleFunc("POST /api/v1/auth/login", userHandler.Login())
	routerMux.HandleFunc("POST /api/v1/admin/products", auth.Require(authz.ActionManageCatalog, productHandler.CreateProduct()))
	routerMux.HandleFunc("PUT /api/v1/admin/products/{id}", auth.Require(authz.ActionManageCatalog, productHandler.UpdateProduct()))
	routerMux.HandleFunc("POST /api/v1/admin/categories", auth.Require(authz.ActionManageCatalog, productHandler.CreateCategory()))
	routerMux.HandleFunc("GET /api/v1/admin/orders", auth.Require(authz.ActionManageOrders, orderHandler.ListOrders()))
	routerMux.HandleFunc("PATCH /api/v1/admin/orders/{id}/status", auth.Require(authz.ActionManageOrders, orderHandler.UpdateStatus()))
	routerMux.HandleFunc("GET /api/v1/admin/orders/{id}/payments", auth.Require(authz.ActionManageOrders, paymentHandler.ListPayments()))
	routerMux.HandleFunc("POST /api/v1/admin/payments/{id}/confirm", auth.Require(authz.ActionConfirmPayment, paymentHandler.ConfirmPayment()))
	routerMux.HandleFunc("GET /api/v1/admin/dashboard", auth.Require(authz.ActionViewDashboard, adminHandler.Dashboard()))
	routerMux.HandleFunc("POST /api/v1/admin/users", auth.Require(authz.ActionManageUsers, userHandler.RegisterStaff()))

	// Operational endpoints
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront")

	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("⚠️ Trace exporter shutdown encountered an issue", slog.String("error", err.Error()))
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("⚠️ Error closing redis connection", slog.String("error", err.Error()))
	}

	slog.Info("✅ Server shut down gracefully. All connections closed.")
}

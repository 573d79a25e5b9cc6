package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartcity-orders/internal/core/auth"
	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/core/config"
	"smartcity-orders/internal/core/database"
	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/core/money"
	"smartcity-orders/internal/core/server"
	cartadapters "smartcity-orders/internal/features/cart/adapters"
	cart "smartcity-orders/internal/features/cart/domain"
	carthandler "smartcity-orders/internal/features/cart/handler"
	cartservice "smartcity-orders/internal/features/cart/service"
	catalogadapters "smartcity-orders/internal/features/catalog/adapters"
	cataloghandler "smartcity-orders/internal/features/catalog/handler"
	catalogports "smartcity-orders/internal/features/catalog/ports"
	catalogservice "smartcity-orders/internal/features/catalog/service"
	checkouthandler "smartcity-orders/internal/features/checkout/handler"
	checkoutservice "smartcity-orders/internal/features/checkout/service"
	eventadapters "smartcity-orders/internal/features/events/adapters"
	eventports "smartcity-orders/internal/features/events/ports"
	eventservice "smartcity-orders/internal/features/events/service"
	orderadapters "smartcity-orders/internal/features/orders/adapters"
	orderhandler "smartcity-orders/internal/features/orders/handler"
	orderservice "smartcity-orders/internal/features/orders/service"
	paymentadapters "smartcity-orders/internal/features/payment/adapters"
	paymentports "smartcity-orders/internal/features/payment/ports"
	paymentservice "smartcity-orders/internal/features/payment/service"

	"go.uber.org/zap"
)

// @title Smart City Orders API
// @version 1.0
// @description Cart, checkout and order lookup for the smart-city IoT storefront.
// @contact.name API Support
// @contact.email support@smartcity-orders.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache
	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		l.Fatal("Redis Health Check Failed", zap.Error(err))
	}
	l.Info("Redis connection verified")

	// Order store
	if err := database.RunMigrations(cfg.Postgres.DSN); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		l.Fatal("Postgres Health Check Failed", zap.Error(err))
	}
	defer pool.Close()
	l.Info("Postgres connection verified")

	// Catalog
	products, closeCatalog, err := newProductRepository(ctx, cfg)
	if err != nil {
		l.Fatal("Failed to initialize catalog", zap.Error(err))
	}
	defer closeCatalog()
	catalogSvc := catalogservice.NewCatalogService(products)
	if cfg.Mongo.URI == "" {
		if err := seedCatalog(ctx, catalogSvc); err != nil {
			l.Fatal("Failed to seed catalog", zap.Error(err))
		}
		l.Warn("Using in-memory catalog", zap.Int("products", len(demoProducts)))
	}
	productHdl := cataloghandler.NewProductHandler(catalogSvc)

	// Identity
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		l.Fatal("Failed to initialize identity provider", zap.Error(err))
	}

	// Cart
	pricing := cart.PricingPolicy{
		ShippingFee:       money.Money(cfg.Pricing.ShippingFee),
		FreeShippingAbove: money.Money(cfg.Pricing.FreeShippingAbove),
		TaxBps:            cfg.Pricing.TaxBps,
		DiscountLowBps:    cfg.Pricing.DiscountLowBps,
		DiscountHighBps:   cfg.Pricing.DiscountHighBps,
		DiscountHighAbove: money.Money(cfg.Pricing.DiscountHighAbove),
	}
	cartRepo := cartadapters.NewRedisCartRepository(redisCache, cfg.Checkout.CartTTL)
	cartSvc := cartservice.NewCartService(cartRepo, catalogSvc, pricing)
	cartHdl := carthandler.NewCartHandler(cartSvc)

	// Payment
	gateway := paymentadapters.NewBreakerGateway(newGateway(cfg), paymentadapters.DefaultBreakerSettings)
	confirmer := paymentservice.NewConfirmer(gateway, cfg.Payment.Timeout)

	// Orders
	outbox := eventadapters.NewPostgresOutbox(pool)
	orderRepo := orderadapters.NewPostgresOrderRepository(pool, outbox)
	orderCache := orderadapters.NewRedisOrderCache(redisCache, cfg.Lookup.CacheTTL)
	resolver := orderservice.NewLookupResolver(orderCache, orderRepo, orderservice.LookupOptions{
		RetryBackoff:   cfg.Lookup.RetryBackoff,
		AllowSynthetic: cfg.Lookup.SyntheticFallback && !cfg.IsProduction(),
	})
	orderSvc := orderservice.NewOrderService(orderRepo, orderCache)
	orderHdl := orderhandler.NewOrderHandler(resolver, orderSvc)

	// Checkout
	assembler := checkoutservice.NewAssembler(cartSvc, products, confirmer, orderRepo, pricing,
		checkoutservice.WithDeliveryDays(cfg.Checkout.DeliveryBusinessDays),
	)
	checkoutHdl := checkouthandler.NewCheckoutHandler(assembler)

	// Events
	relayDone := make(chan struct{})
	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		l.Fatal("Failed to connect to message broker", zap.Error(err))
	}
	if publisher != nil {
		relay := eventservice.NewRelay(outbox, publisher, cfg.Events.PollInterval, cfg.Events.BatchSize)
		go func() {
			defer close(relayDone)
			relay.Run(ctx)
		}()
	} else {
		close(relayDone)
		l.Warn("Event broker disabled; outbox events stay unpublished")
	}

	srv := server.New(cfg)

	// Register Routes
	srv.App.Get("/products/:id", productHdl.GetProduct)

	requireAuth := auth.Middleware(verifier)
	srv.App.Get("/cart", requireAuth, cartHdl.GetCart)
	srv.App.Delete("/cart", requireAuth, cartHdl.ClearCart)
	srv.App.Post("/cart/items", requireAuth, cartHdl.AddItem)
	srv.App.Patch("/cart/items/:productId", requireAuth, cartHdl.UpdateItem)
	srv.App.Delete("/cart/items/:productId", requireAuth, cartHdl.RemoveItem)
	srv.App.Post("/checkout", requireAuth, checkoutHdl.PlaceOrder)
	srv.App.Get("/orders", requireAuth, orderHdl.ListOrders)
	srv.App.Get("/orders/:id", requireAuth, orderHdl.GetOrder)
	srv.App.Patch("/orders/:id/status", requireAuth, orderHdl.UpdateStatus)

	go func() {
		if err := srv.Run(); err != nil {
			l.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("Server shutdown failed", zap.Error(err))
	}

	<-relayDone
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			l.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	l.Info("Application stopped")
}

func newProductRepository(ctx context.Context, cfg *config.AppConfig) (catalogports.ProductRepository, func(), error) {
	if cfg.Mongo.URI == "" {
		if cfg.IsProduction() {
			return nil, nil, errors.New("MONGO_URI is required in production")
		}
		return catalogadapters.NewMemoryProductRepository(), func() {}, nil
	}

	db, err := database.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(ctx); err != nil {
			logger.Get().Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}

	repo := catalogadapters.NewMongoProductRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return repo, closeFn, nil
}

func newVerifier(ctx context.Context, cfg *config.AppConfig) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case "dev":
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_MODE=dev is not allowed in production")
		}
		logger.Get().Warn("Accepting development tokens (uid:email)")
		return auth.DevVerifier{}, nil
	default:
		return auth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsJSON)
	}
}

func newGateway(cfg *config.AppConfig) paymentports.Gateway {
	if cfg.Payment.GatewayURL == "" {
		logger.Get().Warn("Using sandbox payment gateway")
		return paymentadapters.NewSandboxGateway(money.Money(cfg.Payment.SandboxDeclineAbove))
	}
	return paymentadapters.NewHTTPGateway(cfg.Payment.GatewayURL, cfg.Payment.APIKey)
}

func newPublisher(cfg config.EventsConfig) (eventports.Publisher, error) {
	switch cfg.Broker {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when EVENTS_BROKER=kafka")
		}
		return eventadapters.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		p, err := eventadapters.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"motoparts-backend/config"
	"motoparts-backend/internal/delivery/http/middleware"
	v1 "motoparts-backend/internal/delivery/http/v1"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/infrastructure/cache"
	"motoparts-backend/internal/infrastructure/leaderboard"
	"motoparts-backend/internal/infrastructure/messaging"
	"motoparts-backend/internal/metrics"
	"motoparts-backend/internal/repository/memory"
	"motoparts-backend/internal/repository/postgres"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/logger"
	"motoparts-backend/pkg/storage"
	"motoparts-backend/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type repositories struct {
	products      domain.ProductRepository
	ledger        domain.StockLedger
	orders        domain.OrderRepository
	coupons       domain.CouponRepository
	loyalty       domain.LoyaltyRepository
	compatibility domain.CompatibilityRepository
	txManager     domain.TransactionManager
}

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	ctx := context.Background()

	// --- Storage ---
	var (
		repos   repositories
		pgxPool *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		repos = repositories{
			products:      memory.NewProductRepository(store),
			ledger:        memory.NewStockLedger(store),
			orders:        memory.NewOrderRepository(store),
			coupons:       memory.NewCouponRepository(store),
			loyalty:       memory.NewLoyaltyRepository(store),
			compatibility: memory.NewCompatibilityRepository(store),
			txManager:     memory.NewTransactionManager(),
		}
		log.Warn().Msg("Using the in-memory store; data is lost on restart")
	default:
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(cfg.DBUrl, cfg.MigrationsPath); err != nil {
				log.Fatal().Err(err).Msg("Failed to run migrations")
			}
		}
		pool, err := postgres.NewPgxPool(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		pgxPool = pool
		log.Info().Msg("Successfully connected to PostgreSQL via pgx")

		repos = repositories{
			products:      postgres.NewProductRepository(pool),
			ledger:        postgres.NewStockLedger(pool),
			orders:        postgres.NewOrderRepository(pool),
			coupons:       postgres.NewCouponRepository(pool),
			loyalty:       postgres.NewLoyaltyRepository(pool),
			compatibility: postgres.NewCompatibilityRepository(pool),
			txManager:     postgres.NewTransactionManager(pool),
		}
	}

	// Initialize Cache (In-Memory)
	// Default expiration 30m, cleanup every 60m
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)

	// --- Telemetry ---
	telemetry, err := metrics.Initialize(ctx, metrics.TelemetryConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	orderMetrics, err := metrics.NewMetrics(telemetry.Meter("motoparts/orders"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create order metrics")
	}

	// --- Storage Module (R2) ---
	var images domain.ImageStore
	r2Config := storage.R2Config{
		AccountID:     cfg.R2AccountID,
		AccessKey:     cfg.R2AccessKeyID,
		SecretKey:     cfg.R2AccessKeySecret,
		BucketName:    cfg.R2BucketName,
		PublicURL:     cfg.R2PublicURL,
		UploadTimeout: cfg.R2UploadTimeout,
	}
	if r2Config.Enabled() {
		r2Storage, err := storage.NewR2Storage(ctx, r2Config)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
		}
		images = r2Storage
	} else {
		log.Warn().Msg("R2 is not configured; product image uploads are disabled")
	}

	// --- Loyalty leaderboard (Redis) ---
	var (
		board       domain.Leaderboard
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = leaderboard.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		board = leaderboard.NewRedisLeaderboard(redisClient, leaderboard.DefaultKey)
	}

	// --- Order events (RabbitMQ) ---
	var (
		events   domain.OrderEventPublisher
		amqpConn interface{ Close() error }
	)
	if cfg.RabbitMQURL != "" {
		conn, ch, err := messaging.Connect(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		amqpConn = conn
		events = messaging.NewOrderPublisher(ch)
	}

	// --- Modules Initialization ---
	compatibilityUC := usecase.NewCompatibilityUsecase(repos.products, repos.compatibility, repos.txManager, memCache)
	catalogUC := usecase.NewCatalogUsecase(repos.products, compatibilityUC, memCache, images, cfg)
	orderUC := usecase.NewOrderUsecase(repos.orders, repos.products, repos.ledger, repos.txManager, catalogUC, orderMetrics, cfg)
	couponUC := usecase.NewCouponUsecase(repos.coupons)
	tiers := domain.TierThresholds{Silver: cfg.LoyaltySilver, Gold: cfg.LoyaltyGold, Platinum: cfg.LoyaltyPlatinum}
	loyaltyUC, err := usecase.NewLoyaltyUsecase(repos.loyalty, board, tiers, cfg.LoyaltyPointsPerUnit)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid loyalty configuration")
	}
	checkoutUC := usecase.NewCheckoutUsecase(orderUC, couponUC, loyaltyUC, repos.orders, events)
	sitemapUC := usecase.NewSitemapUsecase(repos.products, compatibilityUC, memCache, cfg)

	// Set up Router
	mux := http.NewServeMux()
	v1.RegisterRoutes(mux, v1.Handlers{
		Catalog:            v1.NewCatalogHandler(catalogUC, compatibilityUC),
		Orders:             v1.NewOrderHandler(orderUC, checkoutUC),
		Coupons:            v1.NewCouponHandler(couponUC),
		Loyalty:            v1.NewLoyaltyHandler(loyaltyUC),
		Config:             v1.NewConfigHandler(memCache, tiers),
		Sitemap:            v1.NewSitemapHandler(sitemapUC),
		AdminCatalog:       v1.NewAdminCatalogHandler(catalogUC, compatibilityUC, cfg.MaxUploadSizeMB),
		AdminCompatibility: v1.NewAdminCompatibilityHandler(compatibilityUC),
		AdminOrders:        v1.NewAdminOrderHandler(orderUC),
		AdminCoupons:       v1.NewAdminCouponHandler(couponUC),
	})

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "store": cfg.StoreDriver, "version": version}
		if pgxPool != nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pgxPool.Ping(pingCtx); err != nil {
				status["status"] = "degraded"
				status["db"] = "unreachable"
				utils.WriteJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["db"] = "connected"
		}
		utils.WriteJSON(w, http.StatusOK, status)
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// 50 req/s, burst 100, cleanup every minute, TTL 3 minutes.
	// Checkout gets its own tighter bucket: 1 order per second, burst 5.
	rateLimiter := middleware.NewRateLimiter(
		ctx,
		50,            // requests per second
		100,           // burst
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	).Limit("checkout", http.MethodPost, "/api/v1/checkout", 1, 5)

	// Apply CORS (with config injection), Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	log.Info().Str("store", cfg.StoreDriver).Msgf("Server starting on %s", addr)

	// Wait for interrupt signal via channel
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush metrics")
	}
	if amqpConn != nil {
		if err := amqpConn.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}
	if pgxPool != nil {
		pgxPool.Close()
	}

	log.Info().Msg("Server exited properly")
}

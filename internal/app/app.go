package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sahanr/finance-tracker/configs"
	"github.com/sahanr/finance-tracker/internal/handlers"
	"github.com/sahanr/finance-tracker/internal/services"
	"github.com/sahanr/finance-tracker/pkg/auth"
	"github.com/sahanr/finance-tracker/pkg/cache"
	"github.com/sahanr/finance-tracker/pkg/database"
	middleware "github.com/sahanr/finance-tracker/pkg/middlewares"
	"github.com/sahanr/finance-tracker/pkg/repositories"
	"github.com/sahanr/finance-tracker/pkg/utils"
	"go.uber.org/zap"
)

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: []string{cfg.ReplicaDbAddr},
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations on primary
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	// Redis is optional; without it the dashboard is rebuilt on every read.
	var redisClient *redis.Client
	closeRedis := func() {}
	if !utils.IsEmpty(cfg.RedisAddr) {
		redisClient, closeRedis, err = cache.New(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDb,
		})
		if err != nil {
			disconnect()
			return nil, nil, err
		}
	}

	tokens := auth.NewManager(auth.Config{
		Secret:     []byte(cfg.JwtSecret),
		Issuer:     "finance-tracker",
		AccessTTL:  time.Duration(cfg.TokenTTLDays) * 24 * time.Hour,
		RefreshTTL: time.Duration(cfg.TokenTTLDays) * 24 * time.Hour,
	})

	// Setup dependencies
	userRepo := repositories.NewUserRepository()
	accountRepo := repositories.NewAccountRepository()
	txnRepo := repositories.NewTransactionRepository()

	dashboardService := services.NewDashboardService(logger, db, accountRepo, txnRepo, redisClient, time.Duration(cfg.CacheTTLSecs)*time.Second)
	authService := services.NewAuthService(logger, db, tokens, userRepo, accountRepo)
	accountService := services.NewAccountService(logger, db, accountRepo, txnRepo, dashboardService)
	ledgerService := services.NewLedgerService(logger, db, accountRepo, txnRepo, dashboardService)

	baseHandler := handlers.NewBaseHandler(logger)
	authHandler := handlers.NewAuthHandler(logger, authService)
	accountHandler := handlers.NewAccountHandler(logger, accountService)
	transactionHandler := handlers.NewTransactionHandler(logger, ledgerService, dashboardService)
	dashboardHandler := handlers.NewDashboardHandler(logger, dashboardService)

	// Router
	r := gin.Default()

	api := r.Group("/api")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())

	authHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(logger, tokens))
	accountHandler.RegisterRoutes(protected)
	transactionHandler.RegisterRoutes(protected)
	dashboardHandler.RegisterRoutes(protected)

	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		closeRedis()
		disconnect()
	}

	return srv, cleanup, nil
}

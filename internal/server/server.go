package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"ventaexpress/internal/config"
	custommiddleware "ventaexpress/internal/middleware"
	"ventaexpress/internal/notify"
	"ventaexpress/internal/repository"
	"ventaexpress/internal/service"
	"ventaexpress/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Redis backs the rate limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger))

	// Live snapshot fan-out for the streaming endpoints
	hub := notify.NewHub(logger)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// Initialize services
	oauth := service.NewOAuthExchanger(service.OAuthCredentials{
		GoogleClientID:       cfg.OAuth.GoogleClientID,
		GoogleClientSecret:   cfg.OAuth.GoogleSecret,
		FacebookClientID:     cfg.OAuth.FacebookAppID,
		FacebookClientSecret: cfg.OAuth.FacebookSecret,
		RedirectURL:          cfg.OAuth.RedirectURL,
	})
	userService := service.NewUserService(userRepo, refreshTokenRepo, oauth, cfg.JWT.Secret)
	customerService := service.NewCustomerService(customerRepo, hub)
	productService := service.NewProductService(productRepo, hub)
	saleService := service.NewSaleService(saleRepo, customerRepo, productRepo, hub)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(userService, oauth, logger)
	customerHandler := transport.NewCustomerHandler(customerService, hub, logger)
	productHandler := transport.NewProductHandler(productService, hub, logger)
	saleHandler := transport.NewSaleHandler(saleService, hub, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	authHandler.RegisterRoutes(router, authMiddleware)
	customerHandler.RegisterRoutes(router, authMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware)
	saleHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:     router,
			IdleTimeout: time.Minute,
			ReadTimeout: 10 * time.Second,
			// Streaming endpoints hold their connection open; no write deadline
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

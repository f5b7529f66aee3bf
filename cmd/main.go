package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rangebet-market/internal/auth"
	"rangebet-market/internal/blockchain"
	"rangebet-market/internal/config"
	"rangebet-market/internal/database"
	"rangebet-market/internal/handlers"
	"rangebet-market/internal/jobs"
	"rangebet-market/internal/lmsr"
	"rangebet-market/internal/oracle"
	"rangebet-market/internal/pricefeed"
	"rangebet-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Price feed and oracle
	feed := pricefeed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	priceOracle := oracle.New(feed)

	// Settlement ledger (optional: without chain config the service runs
	// read-only and settlement endpoints are disabled)
	var ledger *blockchain.EthereumLedger
	if cfg.Chain.RPCURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		ledger, err = blockchain.NewEthereumLedger(
			ctx,
			cfg.Chain.RPCURL,
			cfg.Chain.ContractAddress,
			cfg.Chain.OperatorPrivateKey,
			cfg.Chain.ConfirmTimeout,
		)
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to settlement ledger: %v", err)
		}
		defer ledger.Close()
		log.Printf("Settlement ledger connected: %s", cfg.Chain.RPCURL)
	} else {
		log.Println("CHAIN_RPC_URL not set, settlement disabled")
	}

	oddsBand := lmsr.OddsBand{Min: cfg.App.OddsBandMin, Max: cfg.App.OddsBandMax}

	// Initialize services
	marketService := services.NewMarketService(database.GetDB())
	authService := services.NewAuthService(cfg.App.AdminOperator, cfg.App.AdminPassword)
	if cfg.App.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set, operator login disabled")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	marketHandler := handlers.NewMarketHandler(database.GetDB(), oddsBand)

	var oracleHandler *handlers.OracleHandler
	var settlementJob *jobs.SettlementJob
	if ledger != nil {
		settlementService := services.NewSettlementService(database.GetDB(), priceOracle, ledger)
		oracleHandler = handlers.NewOracleHandler(database.GetDB(), settlementService)

		settlementJob = jobs.NewSettlementJob(marketService, settlementService, cfg.App.SettlementPollInterval)
		go settlementJob.Start()
	}

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes
	router.POST("/auth/login", authHandler.Login)

	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:slug", marketHandler.GetMarketBySlug)
	router.GET("/api/markets/:slug/quote", marketHandler.QuoteRange)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/markets", marketHandler.CreateMarket)
		api.POST("/markets/:id/trade", marketHandler.Trade)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		admin.PUT("/markets/:id/status", marketHandler.UpdateMarketStatus)
	}

	// Oracle routes (protected + admin only, manual settlement trigger)
	if oracleHandler != nil {
		oracleRoutes := router.Group("/oracle")
		oracleRoutes.Use(auth.AuthMiddleware())
		oracleRoutes.Use(auth.AdminMiddleware())
		{
			oracleRoutes.POST("/resolve/:slug", oracleHandler.ResolveMarket)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if settlementJob != nil {
		settlementJob.Stop()
	}

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

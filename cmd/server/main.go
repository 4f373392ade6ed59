package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/config"
	"github.com/smarttransit/bus-ticketing/internal/database"
	"github.com/smarttransit/bus-ticketing/internal/handlers"
	"github.com/smarttransit/bus-ticketing/internal/middleware"
	"github.com/smarttransit/bus-ticketing/internal/services"
	"github.com/smarttransit/bus-ticketing/pkg/jwt"
	"github.com/smarttransit/bus-ticketing/pkg/payment"
	"github.com/smarttransit/bus-ticketing/pkg/rabbitmq"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// eventPublisher is a booking event sink that owns a connection
type eventPublisher interface {
	services.EventPublisher
	Close()
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting bus ticketing backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	location, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatalf("Invalid booking configuration: %v", err)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	busRepository := database.NewBusRepository(db.DB)
	bookingRepository := database.NewBookingRepository(db.DB)
	paymentAuditRepository := database.NewPaymentAuditRepository(db.DB, logger)

	// Seat holds are opt-in; leave the interfaces nil when disabled
	var seatHolds services.SeatHoldStore
	var holdReleaser services.ExpiredHoldReleaser
	if cfg.Booking.SeatHoldsEnabled {
		seatHoldRepository := database.NewSeatHoldRepository(db.DB)
		seatHolds = seatHoldRepository
		holdReleaser = seatHoldRepository
		logger.WithField("ttl", cfg.Booking.SeatHoldTTL.String()).Info("Seat holds enabled")
	}

	// Initialize payment gateway
	gateway := payment.NewRazorpayGateway(payment.Config{
		KeyID:          cfg.Payment.KeyID,
		KeySecret:      cfg.Payment.KeySecret,
		APIURL:         cfg.Payment.APIURL,
		Currency:       cfg.Payment.Currency,
		MaxAttempts:    cfg.Payment.OrderAttempts,
		RetryBaseDelay: cfg.Payment.RetryBaseDelay,
		RefundSpeed:    cfg.Payment.RefundSpeed,
		Timeout:        cfg.Payment.Timeout,
	}, logger)
	if !gateway.IsConfigured() {
		logger.Warn("Razorpay credentials missing - payment orders and refunds will fail")
	}

	// Initialize booking event publisher
	var publisher eventPublisher = rabbitmq.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := rabbitmq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		publisher = amqpPublisher
		logger.WithField("exchange", cfg.Events.Exchange).Info("Booking events will be published to RabbitMQ")
	} else {
		logger.Info("AMQP_URL not set - booking events are not published")
	}
	defer publisher.Close()

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	bookingService := services.NewBookingService(
		busRepository,
		bookingRepository,
		seatHolds,
		gateway,
		paymentAuditRepository,
		publisher,
		services.BookingConfig{
			CancelWindow:     cfg.Booking.CancelWindow,
			StrictBoarding:   cfg.Booking.StrictBoarding,
			SeatHoldsEnabled: cfg.Booking.SeatHoldsEnabled,
			SeatHoldTTL:      cfg.Booking.SeatHoldTTL,
			Location:         location,
		},
		logger,
	)
	ticketService := services.NewTicketVerificationService(bookingRepository, location, cfg.Booking.StrictBoarding)
	manifestService := services.NewManifestService(busRepository, bookingRepository, logger)
	adminAuthService := services.NewAdminAuthService(cfg.Admin.Email, cfg.Admin.PasswordHash, jwtService, logger)

	// Initialize and start cron service
	cronService := services.NewCronService(holdReleaser, bookingRepository, cfg.Booking.SeatHoldTTL, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	busHandler := handlers.NewBusHandler(busRepository, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(bookingService, logger)
	adminHandler := handlers.NewAdminHandler(
		adminAuthService,
		bookingService,
		ticketService,
		manifestService,
		paymentAuditRepository,
		cronService,
		logger,
	)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestMeta())
	router.Use(requestLogger(logger))

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	api := router.Group("/api")
	{
		// Fleet
		api.GET("/buses", busHandler.ListBuses)
		api.GET("/buses/:id", busHandler.GetBus)

		fleet := api.Group("/buses")
		fleet.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(services.RoleAdmin))
		{
			fleet.POST("", busHandler.CreateBus)
			fleet.PUT("/:id", busHandler.UpdateBus)
			fleet.DELETE("/:id", busHandler.DeleteBus)
		}

		// Customer booking flow
		bookings := api.Group("/bookings")
		{
			bookings.GET("/occupied", bookingHandler.GetOccupiedSeats)
			bookings.POST("/init", bookingHandler.InitBooking)
			bookings.POST("/verify", bookingHandler.VerifyPayment)
			bookings.POST("/cancel/:bookingId", bookingHandler.CancelBooking)
			bookings.GET("/user/:email", bookingHandler.GetUserBookings)
			bookings.GET("/:bookingId", bookingHandler.GetBooking)
		}

		api.POST("/payment/order", paymentHandler.CreateOrder)

		// Admin login is public, everything else needs an admin token
		api.POST("/admin/login", adminHandler.Login)
		api.POST("/admin/refresh", adminHandler.RefreshToken)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(services.RoleAdmin))
		{
			admin.POST("/refund/:bookingId", adminHandler.Refund)
			admin.GET("/verify-ticket/:bookingId", adminHandler.VerifyTicket)
			admin.PUT("/confirm-board/:bookingId", adminHandler.ConfirmBoarding)
			admin.GET("/revenue-stats", adminHandler.RevenueStats)
			admin.GET("/manifest", adminHandler.Manifest)
			admin.GET("/manifest.pdf", adminHandler.ManifestPDF)
			admin.GET("/payments/:paymentId/audit", adminHandler.PaymentAudit)
			admin.GET("/jobs", adminHandler.JobStatus)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Payment.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		if deviceType, exists := c.Get(middleware.DeviceTypeKey); exists {
			fields["device_type"] = deviceType
		}
		if adminCtx, exists := middleware.GetAdminContext(c); exists {
			fields["admin"] = adminCtx.Email
		}

		entry := logger.WithFields(fields)

		// Log errors with more details
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		// Log based on status code
		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

package main

import (
	"time"

	"github.com/memedici/artfeed/internal/feed"
	"github.com/memedici/artfeed/internal/handlers"
	"github.com/memedici/artfeed/internal/sessions"
	"github.com/memedici/artfeed/pkg/clients"
	"github.com/memedici/artfeed/pkg/clients/atelier"
	"github.com/memedici/artfeed/pkg/clients/directory"
	"github.com/memedici/artfeed/pkg/config"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/middleware"
	"github.com/memedici/artfeed/pkg/monitoring"
	"github.com/memedici/artfeed/pkg/server"
	"github.com/memedici/artfeed/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("gallerist")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Gallerist (Feed Aggregation API)")

	directoryURL := config.GetEnv("DIRECTORY_URL", "http://localhost:8000")
	contentURL := config.GetEnv("CONTENT_URL", directoryURL)
	serviceToken := config.GetEnv("SERVICE_TOKEN", "default-service-token")

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("gallerist", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("gallerist", version.Version, version.GitCommit)
	feedMetrics := metricsCollector.CreateFeedMetrics()

	// Add health checks
	healthChecker.AddCheck("directory", monitoring.HTTPServiceHealthCheck("directory", directoryURL+"/agents"))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DIRECTORY_URL": directoryURL,
		"CONTENT_URL":   contentURL,
	}))

	// Upstream clients, each behind its own circuit breaker
	directoryBreaker := clients.DefaultCircuitBreakerConfig()
	directoryBreaker.Name = "directory"
	directoryBreaker.Logger = logger
	directoryClient := directory.NewClient(directory.Config{
		BaseURL:              directoryURL,
		ServiceToken:         serviceToken,
		Logger:               logger,
		CircuitBreakerConfig: &directoryBreaker,
	})

	atelierBreaker := clients.DefaultCircuitBreakerConfig()
	atelierBreaker.Name = "atelier"
	atelierBreaker.Logger = logger
	atelierClient := atelier.NewClient(atelier.Config{
		BaseURL:              contentURL,
		ServiceToken:         serviceToken,
		Logger:               logger,
		CircuitBreakerConfig: &atelierBreaker,
	})

	// Aggregation engine
	aggregator := feed.NewAggregator(directoryClient, atelierClient, feed.AggregatorConfig{
		SampleSize:      config.GetEnvInt("FEED_SAMPLE_SIZE", 8),
		PerCreatorLimit: config.GetEnvInt("FEED_PER_CREATOR_LIMIT", 5),
		FetchTimeout:    config.GetEnvDuration("FEED_FETCH_TIMEOUT", 5*time.Second),
		MaxConcurrent:   config.GetEnvInt("FEED_MAX_CONCURRENT", 0),
		DirectoryTTL:    config.GetEnvDuration("DIRECTORY_CACHE_TTL", 30*time.Second),
		Logger:          logger,
		Metrics:         feedMetrics,
	})

	sessionConfig := feed.SessionConfig{
		PageSize:         config.GetEnvInt("FEED_PAGE_SIZE", 20),
		SyntheticCeiling: config.GetEnvInt("FEED_SYNTHETIC_CEILING", feed.DefaultSyntheticCeiling),
		Logger:           logger,
		Metrics:          feedMetrics,
	}
	manager := sessions.NewManager(func(id string) *feed.Session {
		return feed.NewSession(id, aggregator, sessionConfig)
	}, sessions.Config{
		IdleTTL: config.GetEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		Logger:  logger,
		Metrics: feedMetrics,
	})
	defer manager.Close()

	// Initialize handlers
	handlers.Init(manager, logger)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "gallerist", healthChecker, metricsCollector)

	// Public routes
	public := router.Group("/api/feed")
	{
		public.POST("/sessions", handlers.CreateSession)
		public.GET("/sessions/:id", handlers.GetSession)
		public.POST("/sessions/:id/more", handlers.LoadMore)
		public.POST("/sessions/:id/reset", handlers.ResetSession)
		public.POST("/sessions/:id/likes/:itemID", handlers.ToggleLike)
	}

	// Protected routes (require service token authentication)
	protected := router.Group("/api/feed")
	protected.Use(middleware.ServiceAuthMiddleware(serviceToken))
	{
		protected.DELETE("/sessions/:id", handlers.DeleteSession)
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("gallerist", "8087")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/crosslister/product-scraper/internal/api"
	"github.com/crosslister/product-scraper/internal/botcheck"
	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/config"
	"github.com/crosslister/product-scraper/internal/database"
	"github.com/crosslister/product-scraper/internal/events"
	"github.com/crosslister/product-scraper/internal/jobs"
	"github.com/crosslister/product-scraper/internal/proxy"
	"github.com/crosslister/product-scraper/internal/ratelimit"
	"github.com/crosslister/product-scraper/internal/scraper"
	"github.com/crosslister/product-scraper/internal/selector"
	"github.com/crosslister/product-scraper/internal/stealth"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database.DSN(), database.PoolConfig{
		MaxConns: 10,
		MinConns: 2,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	proxies := proxy.NewPool(nil, false)
	if cfg.Scraper.ProxyFile != "" {
		proxies, err = proxy.LoadFromFile(cfg.Scraper.ProxyFile, cfg.Scraper.ProxyEnabled)
		if err != nil {
			logger.Error("failed to load proxies", "error", err)
			os.Exit(1)
		}
		logger.Info("proxy pool loaded", "enabled", proxies.Enabled(), "size", proxies.Size())
	}

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	browserOpts.AcceptLanguage = cfg.Browser.AcceptLanguage
	browserOpts.TimezoneID = cfg.Browser.TimezoneID
	browserOpts.Locale = cfg.Browser.Locale

	b, err := browser.New(browserOpts, proxies)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	relay := database.NewRelay(db, redisClient, logger, database.RelayConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("relay stopped with error", "error", err)
		}
	}()

	overrides, err := selector.LoadOverrides(cfg.Scraper.SelectorOverride)
	if err != nil {
		logger.Error("failed to load selector overrides", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewAdaptiveLimiter(cfg.Scraper.DelayMin, cfg.Scraper.DelayMax)
	metrics := scraper.NewMetrics()

	orchestrator := scraper.NewOrchestrator(scraper.OrchestratorConfig{
		Sessions:   b,
		Registry:   scraper.NewDefaultRegistry(overrides, logger),
		Stealth:    stealth.NewController(500*time.Millisecond, 2*time.Second),
		Sensor:     botcheck.NewSensor(),
		Artifacts:  scraper.NewArtifactWriter(nil, metrics, logger),
		Limiter:    limiter,
		Metrics:    metrics,
		Logger:     logger,
		NavTimeout: cfg.Scraper.NavTimeout,
		OnOutcome: func(_ string, err error) {
			if err != nil {
				limiter.RecordError()
			} else {
				limiter.RecordSuccess()
			}
		},
	})

	publisher := events.NewPublisher(database.NewOutboxRepository(db))
	manager := jobs.NewManager(jobs.ManagerConfig{
		DB:        db,
		Runner:    orchestrator,
		Publisher: publisher,
		OutputDir: cfg.Scraper.OutputDir,
		MaxImages: cfg.Scraper.MaxImages,
		Logger:    logger,
	})
	go manager.StartWorker(ctx, 3*time.Second)

	handlers := api.NewHandlers(db, manager, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		pendingCount, _ := relay.GetPendingCount(context.Background())
		deadLetterCount, _ := relay.GetDeadLetterCount(context.Background())

		health := map[string]interface{}{
			"status": "ok",
			"outbox": map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			},
		}

		status := http.StatusOK
		if pendingCount > 1000 {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetterCount > 100 {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", handlers.CreateScrape)
		r.Get("/jobs", handlers.ListJobs)
		r.Get("/jobs/{jobID}", handlers.GetJob)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.ListProducts)
			r.Get("/{productID}", handlers.GetProduct)
			r.Patch("/{productID}", handlers.UpdateProduct)
			r.Delete("/{productID}", handlers.DeleteProduct)
			r.Get("/{productID}/images", handlers.GetProductImages)
			r.Post("/{productID}/post", handlers.SubmitPost)
			r.Post("/{productID}/posted", handlers.ConfirmPosted)
			r.Post("/{productID}/post-failed", handlers.PostFailed)
			r.Get("/{productID}/history", handlers.GetPostingHistory)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

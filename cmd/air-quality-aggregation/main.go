package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lmittmann/tint"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/airquality/providers"
	httpapi "github.com/i474232898/air-quality-aggregation/internal/api/http"
	"github.com/i474232898/air-quality-aggregation/internal/cache"
	"github.com/i474232898/air-quality-aggregation/internal/config"
	"github.com/i474232898/air-quality-aggregation/internal/geo"
	"github.com/i474232898/air-quality-aggregation/internal/metrics"
	"github.com/i474232898/air-quality-aggregation/internal/scheduler"
	"github.com/i474232898/air-quality-aggregation/internal/store"
	"github.com/i474232898/air-quality-aggregation/internal/ward"
)

const appName = "air-quality-aggregation"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	m := metrics.New()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	stationCache := cache.New[[]airquality.StationReading](cfg.CacheTTL)

	// Providers with resilience (backoff + circuit breaker).
	opts := providers.Options{
		Client:        httpClient,
		Cache:         stationCache,
		Logger:        log,
		OnStateChange: m.BreakerStateChanged,
	}
	fetchers := []airquality.Fetcher{
		providers.NewCPCBProvider(opts, cfg.CPCBAPIKey, cfg.CPCBCity),
		providers.NewAQICNProvider(opts, cfg.AQICNToken, cfg.AQICNCity, cfg.AQICNStations),
		providers.NewOpenAQProvider(opts, cfg.OpenAQCountry, cfg.OpenAQCity),
	}

	aggregator := airquality.NewAggregator(stationCache, fetchers,
		airquality.WithPriority(cfg.Priority),
		airquality.WithDeduplication(cfg.Deduplicate),
		airquality.WithLogger(log),
		airquality.WithObserver(m),
	)

	var interpOpts []airquality.InterpolatorOption
	if cfg.InterpolationJitter > 0 {
		interpOpts = append(interpOpts, airquality.WithJitter(cfg.InterpolationJitter, sharedRand{}))
	}
	interpolator := airquality.NewInterpolator(interpOpts...)

	memStore := store.NewMemoryStore()
	builder := ward.NewBuilder(aggregator, interpolator, memStore,
		ward.WithRecorder(m),
		ward.WithLogger(log),
	)

	geocoder := geo.New(cfg.GeocoderAPIKey, cfg.GeocoderCity, cfg.GeocoderCountry, log)

	status := aggregator.Status()
	log.Info("data sources configured",
		"available", status.Config.Available,
		"missing", status.Config.Missing,
		"priority", status.Priority,
		"geocoding", geocoder.Enabled(),
	)

	// Scheduler that periodically rebuilds the ward board.
	sched := scheduler.New(cfg.RefreshInterval, builder, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          4 * time.Minute, // forced refreshes wait on every upstream
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("request failed", "path", c.Path(), "error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Service{
		Boards:    memStore,
		Refresher: builder,
		Sources:   aggregator,
		Estimator: interpolator,
		Places:    geocoder,
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()
	log.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// sharedRand draws from the runtime-seeded global generator, which is safe
// for the scheduler and request handlers to use concurrently.
type sharedRand struct{}

func (sharedRand) Float64() float64 { return rand.Float64() }

func newLogger(cfg *config.AppConfig) *slog.Logger {
	if cfg.Dev() {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"env", cfg.AppEnv,
	)
}

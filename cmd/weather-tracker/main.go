package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-tracker/internal/api/http"
	"github.com/i474232898/weather-tracker/internal/config"
	"github.com/i474232898/weather-tracker/internal/observability"
	"github.com/i474232898/weather-tracker/internal/scheduler"
	"github.com/i474232898/weather-tracker/internal/store"
	"github.com/i474232898/weather-tracker/internal/weather"
	"github.com/i474232898/weather-tracker/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound observation calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var records weather.RecordSource
	if cfg.RecordServiceURL != "" {
		records = providers.NewRecordClient(cfg.RecordServiceURL, cfg.HTTPTimeout)
	} else {
		log.Warn("RECORD_SERVICE_URL not set; bound records fall back to device location")
	}

	var namer weather.PlaceNamer
	if cfg.GeocoderAPIKey != "" {
		namer = providers.NewReverseGeocoder(cfg.GeocoderAPIKey)
	}

	resolver := weather.NewLocationResolver(records, weather.ResolverConfig{
		PollInterval: cfg.RecordPollInterval,
		WaitTimeout:  cfg.RecordWaitTimeout,
	}, clock, log)

	// Core service shared by all tracker sessions.
	service := weather.NewService(weather.Deps{
		Observations: providers.NewObservationClient(httpClient, cfg.WeatherServiceURL),
		Mailer:       providers.NewEmailClient(cfg.EmailServiceURL, cfg.HTTPTimeout, cfg.EmailRatePerMinute),
		Resolver:     resolver,
		Icons:        weather.NewIconResolver(cfg.IconAssetBase, cfg.IconMode),
		PlaceNamer:   namer,
		Metrics:      metrics,
		Logger:       log,
		Clock:        clock,
	})

	sessions := store.NewMemoryStore(cfg.SessionMaxCount, cfg.SessionMaxAge)

	// Scheduler that periodically prunes idle sessions.
	sched := scheduler.New(sessions, cfg.PruneInterval, metrics, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Activation may wait for record data before fetching.
	requestTimeout := cfg.RecordWaitTimeout + 2*cfg.HTTPTimeout

	app := fiber.New(fiber.Config{
		AppName:               "weather-tracker",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          requestTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(httpapi.RequestContext(requestTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-tracker",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, sessions)

	go func() {
		log.Info("http server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

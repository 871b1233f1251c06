package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-glance/internal/api/http"
	"github.com/i474232898/weather-glance/internal/config"
	"github.com/i474232898/weather-glance/internal/dashboard"
	"github.com/i474232898/weather-glance/internal/geocoding"
	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/presenter"
	"github.com/i474232898/weather-glance/internal/scheduler"
	"github.com/i474232898/weather-glance/internal/store"
	"github.com/i474232898/weather-glance/internal/weather"
	"github.com/i474232898/weather-glance/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	// Lifetime of the process; refresh cycles are abandoned once it ends.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.NeedsGeocoding() {
		geoCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
		coords, err := geocoding.NewGoogleResolver(cfg.GeocoderAPIKey).Resolve(geoCtx, geocoding.Address{
			Street:  cfg.Address.Street,
			City:    cfg.Address.City,
			Country: cfg.Address.Country,
		})
		cancel()
		if err != nil {
			log.Fatalf("failed to resolve location: %v", err)
		}
		cfg.Coordinates = coords
	}

	clock, err := localtime.New(cfg.Timezone)
	if err != nil {
		log.Fatalf("failed to load timezone: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	source, err := newSource(cfg.Provider, providers.DefaultHTTPClientConfig(httpClient), cfg.Timezone)
	if err != nil {
		log.Fatalf("%v", err)
	}
	client := weather.NewClient(source, cfg.Coordinates, clock)

	// Last good snapshot, shown for at most StaleAfter while refreshes fail.
	lastGood := store.NewMemoryStore[dashboard.Snapshot](cfg.StaleAfter)

	service := dashboard.NewService(client, lastGood, clock, cfg.PrecipOptions())

	sched := scheduler.New(clock.Location(), cfg.RefreshInterval, service)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-glance",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	layout := presenter.DefaultLayout()
	layout.PrecipRow = cfg.PrecipBarPixels
	httpapi.RegisterRoutes(ctx, app, service, presenter.New(clock, layout))

	go func() {
		log.Printf("INFO: serving dashboard for %.4f,%.4f (%s, %s) on :%s",
			cfg.Coordinates.Lat, cfg.Coordinates.Lon, clock.Name(), client.SourceName(), cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("ERROR: fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}

func newSource(name string, httpCfg providers.HTTPClientConfig, timezone string) (weather.Source, error) {
	switch name {
	case config.ProviderBrightSky:
		return providers.NewBrightSkyProvider(httpCfg, timezone), nil
	case config.ProviderOpenMeteo:
		return providers.NewOpenMeteoProvider(httpCfg, timezone), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}

package httpapi

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-glance/internal/dashboard"
	"github.com/i474232898/weather-glance/internal/precip"
	"github.com/i474232898/weather-glance/internal/presenter"
)

var validate = validator.New()

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"px": formatPx,
}).ParseFS(templateFS, "templates/dashboard.html"))

// Dashboard is the part of dashboard.Service the routes need.
type Dashboard interface {
	State() dashboard.State
	Start(ctx context.Context, trigger dashboard.Trigger) bool
	PrecipOptions() precip.Options
}

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. Manual refreshes
// run under ctx, not the request, so they outlive the response but end with
// the process.
func RegisterRoutes(ctx context.Context, app *fiber.App, svc Dashboard, pres *presenter.Presenter) {
	app.Get("/", func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := pageTmpl.Execute(&buf, pres.Build(svc.State())); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render dashboard")
		}
		c.Type("html", "utf-8")
		return c.Send(buf.Bytes())
	})

	// Form target of the refresh button on the page.
	app.Post("/refresh", func(c *fiber.Ctx) error {
		svc.Start(ctx, dashboard.TriggerManual)
		return c.Redirect("/", fiber.StatusSeeOther)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-glance",
			"phase":   svc.State().Phase,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(pres.Build(svc.State()))
	})

	v1.Get("/precip", func(c *fiber.Ctx) error {
		var q precipQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "block_hours must be an integer")
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s := svc.State()
		if s.Data == nil || s.Data.Forecast.Empty() {
			return fiber.NewError(fiber.StatusNotFound, "no forecast data yet")
		}

		opts := svc.PrecipOptions()
		opts.BlockHours = q.BlockHours
		snap := s.Data.Rebucket(opts)

		return c.JSON(fiber.Map{
			"blockHours": q.BlockHours,
			"pointer":    snap.Forecast.Pointer,
			"precip":     snap.Precip,
		})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		if !svc.Start(ctx, dashboard.TriggerManual) {
			return fiber.NewError(fiber.StatusConflict, "a refresh is already in flight")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"started": true,
		})
	})
}

// precipQuery holds query parameters for the precipitation endpoint.
type precipQuery struct {
	BlockHours int `query:"block_hours" validate:"required,oneof=1 2 3 4 6 8 12 24"`
}

func formatPx(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

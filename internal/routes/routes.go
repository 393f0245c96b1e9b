package routes

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/handlers"
	"github.com/Ananth-NQI/farmline-ivr/internal/middleware"
	"github.com/Ananth-NQI/farmline-ivr/internal/services"
)

// Deps are the handlers and settings the HTTP surface is built from
type Deps struct {
	AppName       string
	Voice         *handlers.VoiceHandler
	Health        *handlers.HealthHandler
	Signature     *middleware.SignatureConfig // nil disables webhook validation
	Gatherer      prometheus.Gatherer
	VoiceLanguage string
	AccessLog     io.Writer // nil disables access logging
	Logger        *zap.Logger
}

// NewApp creates the Fiber app with all routes registered
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               d.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(d),
	})

	if d.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: d.AccessLog,
		}))
	}
	app.Use(recover.New())
	app.Use(helmet.New())

	SetupRoutes(app, d)
	return app
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, d Deps) {
	app.Get("/health", d.Health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	voice := app.Group("/voice")
	if d.Signature != nil {
		voice.Use(middleware.ValidateTwilioSignature(*d.Signature))
	} else {
		d.Logger.Warn("webhook signature validation DISABLED")
	}
	voice.Post("/", d.Voice.HandleVoice)
	voice.Post("/status", d.Voice.HandleStatus)
}

// errorHandler answers voice webhooks with an apology instead of a 5xx, which would drop the call
func errorHandler(d Deps) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		if c.Path() == "/voice" && code >= fiber.StatusInternalServerError {
			d.Logger.Error("voice webhook failed", zap.Error(err))
			c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")
			return c.Status(fiber.StatusOK).SendString(services.ApologyTwiML(d.VoiceLanguage))
		}

		if code >= fiber.StatusInternalServerError {
			d.Logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Features reports which optional integrations are configured
type Features struct {
	SMS               bool `json:"sms"`
	Weather           bool `json:"weather"`
	Events            bool `json:"events"`
	WebhookValidation bool `json:"webhook_validation"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    Pinger
	storage  string
	features Features
	logger   *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store Pinger, storage string, features Features, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		storage:  storage,
		features: features,
		logger:   logger,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, store, code := "ok", "ok", fiber.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check: session store unreachable", zap.Error(err))
		status, store, code = "error", "error", fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"service":   "Farmline IVR",
		"version":   h.Version,
		"storage":   h.storage,
		"store":     store,
		"features":  h.features,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

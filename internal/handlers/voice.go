package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/services"
)

// turnTimeout keeps a turn inside Twilio's 15 second webhook deadline
const turnTimeout = 14 * time.Second

// CallFlow advances calls in response to voice webhooks
type CallFlow interface {
	Handle(ctx context.Context, turn services.Turn) (string, error)
	EndCall(ctx context.Context, callSID, status string) error
}

// VoiceWebhookPayload represents an inbound voice webhook from Twilio
type VoiceWebhookPayload struct {
	CallSid      string `form:"CallSid"`
	AccountSid   string `form:"AccountSid"`
	From         string `form:"From"`
	To           string `form:"To"`
	CallStatus   string `form:"CallStatus"`
	Digits       string `form:"Digits"`
	SpeechResult string `form:"SpeechResult"`
	Confidence   string `form:"Confidence"`
}

// VoiceHandler handles Twilio voice webhooks
type VoiceHandler struct {
	flow     CallFlow
	language string
	logger   *zap.Logger
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(flow CallFlow, language string, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{flow: flow, language: language, logger: logger}
}

// HandleVoice answers one call turn with TwiML. It always responds 200 so the call is never dropped.
func (h *VoiceHandler) HandleVoice(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")

	var payload VoiceWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.logger.Warn("invalid voice webhook", zap.Error(err))
		return c.SendString(services.ApologyTwiML(h.language))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), turnTimeout)
	defer cancel()

	xml, err := h.flow.Handle(ctx, services.Turn{
		CallSID: payload.CallSid,
		From:    payload.From,
		Digits:  payload.Digits,
		Speech:  payload.SpeechResult,
	})
	if err != nil {
		h.logger.Error("voice turn failed",
			zap.String("call_sid", payload.CallSid),
			zap.Error(err))
		return c.SendString(services.ApologyTwiML(h.language))
	}
	return c.SendString(xml)
}

// HandleStatus processes call status callbacks, removing sessions of finished calls
func (h *VoiceHandler) HandleStatus(c *fiber.Ctx) error {
	var payload VoiceWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status callback")
	}
	if payload.CallSid == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing CallSid")
	}

	if err := h.flow.EndCall(c.UserContext(), payload.CallSid, payload.CallStatus); err != nil {
		h.logger.Error("status callback failed",
			zap.String("call_sid", payload.CallSid),
			zap.String("status", payload.CallStatus),
			zap.Error(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

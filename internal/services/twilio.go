package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
)

// ErrSMSDisabled is returned when SMS credentials are not configured
var ErrSMSDisabled = errors.New("sms disabled")

// SMSSender delivers follow-up text messages to callers
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// messageCreator is the slice of the Twilio REST API the service uses
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioService sends SMS through the Twilio Messages API
type TwilioService struct {
	api     messageCreator
	from    string
	retrier *Retrier
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTwilioService creates a Twilio SMS sender. All three credentials are required.
func NewTwilioService(accountSID, authToken, from string, timeout time.Duration, retrier *Retrier, metrics *observability.Metrics, logger *zap.Logger) (*TwilioService, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials: %w", ErrSMSDisabled)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	client.SetTimeout(timeout)

	return &TwilioService{
		api:     client.Api,
		from:    from,
		retrier: retrier,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// SendSMS sends body to the caller's number, retrying 429 and 5xx responses
func (t *TwilioService) SendSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return errors.New("send sms: empty recipient")
	}

	var sid string
	err := t.retrier.Do(ctx, "sms", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(t.from)
		params.SetBody(body)

		resp, err := t.api.CreateMessage(params)
		if err != nil {
			var restErr *twilioClient.TwilioRestError
			if errors.As(err, &restErr) {
				return fmt.Errorf("twilio error %d: %w", restErr.Code, &StatusError{Code: restErr.Status, Body: restErr.Message})
			}
			return err
		}
		if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
			msg := ""
			if resp.ErrorMessage != nil {
				msg = *resp.ErrorMessage
			}
			return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
		}
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		return nil
	})
	if err != nil {
		t.metrics.SMSSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("send sms: %w", err)
	}

	t.metrics.SMSSent.WithLabelValues("sent").Inc()
	t.logger.Info("sms sent", zap.String("message_sid", sid))
	return nil
}

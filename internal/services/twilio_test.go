package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
)

type fakeMessageAPI struct {
	errs  []error
	calls []*twilioApi.CreateMessageParams
}

func (f *fakeMessageAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.calls = append(f.calls, params)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func testTwilioService(api messageCreator, metrics *observability.Metrics) *TwilioService {
	return &TwilioService{
		api:     api,
		from:    "+15005550006",
		retrier: testRetrier(metrics),
		metrics: metrics,
		logger:  zap.NewNop(),
	}
}

func TestNewTwilioService_RequiresCredentials(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	_, err := NewTwilioService("AC123", "", "+15005550006", time.Second, testRetrier(metrics), metrics, zap.NewNop())
	assert.ErrorIs(t, err, ErrSMSDisabled)

	svc, err := NewTwilioService("AC123", "token", "+15005550006", time.Second, testRetrier(metrics), metrics, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestSendSMS(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	api := &fakeMessageAPI{}
	svc := testTwilioService(api, metrics)

	require.NoError(t, svc.SendSMS(context.Background(), "+919812345678", "hello"))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "+919812345678", *api.calls[0].To)
	assert.Equal(t, "+15005550006", *api.calls[0].From)
	assert.Equal(t, "hello", *api.calls[0].Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SMSSent.WithLabelValues("sent")))
}

func TestSendSMS_RetriesServerErrors(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	api := &fakeMessageAPI{errs: []error{
		&twilioClient.TwilioRestError{Status: 503, Code: 20503, Message: "unavailable"},
	}}
	svc := testTwilioService(api, metrics)

	require.NoError(t, svc.SendSMS(context.Background(), "+919812345678", "hello"))
	assert.Len(t, api.calls, 2)
}

func TestSendSMS_ClientErrorFails(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	api := &fakeMessageAPI{errs: []error{
		&twilioClient.TwilioRestError{Status: 400, Code: 21211, Message: "invalid To number"},
	}}
	svc := testTwilioService(api, metrics)

	err := svc.SendSMS(context.Background(), "+91000", "hello")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.Code)
	assert.Len(t, api.calls, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SMSSent.WithLabelValues("failed")))
}

func TestSendSMS_TransportErrorNotRetried(t *testing.T) {
	api := &fakeMessageAPI{errs: []error{errors.New("dial tcp: timeout")}}
	svc := testTwilioService(api, observability.NewMetrics(nil))

	assert.Error(t, svc.SendSMS(context.Background(), "+919812345678", "hello"))
	assert.Len(t, api.calls, 1)
}

func TestSendSMS_EmptyRecipient(t *testing.T) {
	api := &fakeMessageAPI{}
	svc := testTwilioService(api, observability.NewMetrics(nil))

	assert.Error(t, svc.SendSMS(context.Background(), "", "hello"))
	assert.Empty(t, api.calls)
}

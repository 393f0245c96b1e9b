package cmd

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/database"
	"github.com/Ananth-NQI/farmline-ivr/internal/config"
	"github.com/Ananth-NQI/farmline-ivr/internal/events"
	"github.com/Ananth-NQI/farmline-ivr/internal/logging"
	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
	"github.com/Ananth-NQI/farmline-ivr/internal/services"
	"github.com/Ananth-NQI/farmline-ivr/internal/storage"
)

type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	registry    *prometheus.Registry
	metrics     *observability.Metrics
	store       storage.SessionStore
	storageKind string
	weather     services.WeatherProvider
	sms         services.SMSSender
	publisher   events.Publisher
	dispatcher  *services.Dispatcher
	closers     []func() error
}

// wireOptions lets commands swap collaborators
type wireOptions struct {
	memoryStore bool               // ignore SESSION_STORE_DSN
	noEvents    bool               // never publish to Kafka
	sms         services.SMSSender // used instead of Twilio when set
	logger      *zap.Logger        // used instead of building one from config
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.New())
}

func wireApp(cfg *config.Config, opts wireOptions) (*app, error) {
	a := &app{cfg: cfg, logger: opts.logger}
	if a.logger == nil {
		logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		a.logger = logger
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = observability.NewMetrics(a.registry)

	if err := a.wireStore(opts.memoryStore); err != nil {
		_ = a.Close()
		return nil, err
	}

	retrier := services.NewRetrier(cfg.RetryAttempts, cfg.RetryBackoff, cfg.RetryMaxInterval, a.metrics, a.logger)

	if cfg.WeatherEnabled() {
		weather, err := services.NewOpenWeatherClient(cfg.WeatherBaseURL, cfg.WeatherAPIKey, cfg.WeatherCountry,
			cfg.GeocodeCacheSize, services.NewRetryingClient(cfg.HTTPTimeout, retrier), a.metrics, a.logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.weather = weather
	} else {
		a.logger.Warn("WEATHER_API_KEY not set: weather branch disabled")
	}

	switch {
	case opts.sms != nil:
		a.sms = opts.sms
	case cfg.SMSEnabled():
		sms, err := services.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber,
			cfg.HTTPTimeout, retrier, a.metrics, a.logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.sms = sms
	default:
		a.logger.Warn("Twilio SMS credentials incomplete: SMS follow-ups disabled")
	}

	if cfg.EventsEnabled() && !opts.noEvents {
		a.publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaCallEventsTopic, a.logger)
		a.closers = append(a.closers, a.publisher.Close)
	} else {
		a.publisher = events.NopPublisher{}
	}

	prices, err := services.LoadPriceBoard(cfg.PriceBoardPath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.dispatcher = services.NewDispatcher(services.DispatcherDeps{
		Store:   a.store,
		Weather: a.weather,
		SMS:     a.sms,
		Prices:  prices,
		Events:  a.publisher,
		Metrics: a.metrics,
		Logger:  a.logger,
	}, services.DispatcherOptions{
		ActionURL:       "/voice",
		VoiceLanguage:   cfg.VoiceLanguage,
		SpeechLanguage:  cfg.SpeechLanguage,
		ExpertHelpline:  cfg.ExpertHelpline,
		MaxMenuAttempts: cfg.MaxMenuAttempts,
	})
	return a, nil
}

func (a *app) wireStore(memoryOnly bool) error {
	if memoryOnly || a.cfg.SessionStoreDSN == "" {
		a.store = storage.NewMemoryStore(nil)
		a.storageKind = "memory"
		a.logger.Info("using in-memory session store (single instance only)")
		return nil
	}

	db, err := database.Open(a.cfg.SessionStoreDSN, a.logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	if err := database.Migrate(db); err != nil {
		return err
	}
	a.store = storage.NewDatabaseStore(db, nil)
	a.storageKind = db.Dialector.Name()
	return nil
}

// Close releases the store connection and flushes pending events
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

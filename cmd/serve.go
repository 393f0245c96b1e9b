package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/handlers"
	"github.com/Ananth-NQI/farmline-ivr/internal/jobs"
	"github.com/Ananth-NQI/farmline-ivr/internal/middleware"
	"github.com/Ananth-NQI/farmline-ivr/internal/routes"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Twilio voice webhooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + cfg.Port
			}

			a, err := wireApp(cfg, wireOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(cmd.Context(), a, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":$PORT\")")
	return cmd
}

func serve(ctx context.Context, a *app, addr string) error {
	cfg, logger := a.cfg, a.logger

	var signature *middleware.SignatureConfig
	if !cfg.DisableWebhookValidation {
		signature = &middleware.SignatureConfig{
			AuthToken:     cfg.TwilioAuthToken,
			PublicBaseURL: cfg.PublicBaseURL,
			Metrics:       a.metrics,
			Logger:        logger,
		}
	}

	features := handlers.Features{
		SMS:               a.sms != nil,
		Weather:           a.weather != nil,
		Events:            cfg.EventsEnabled(),
		WebhookValidation: signature != nil,
	}

	server := routes.NewApp(routes.Deps{
		AppName:       "Farmline IVR " + Version,
		Voice:         handlers.NewVoiceHandler(a.dispatcher, cfg.VoiceLanguage, logger),
		Health:        handlers.NewHealthHandler(Version, a.store, a.storageKind, features, logger),
		Signature:     signature,
		Gatherer:      a.registry,
		VoiceLanguage: cfg.VoiceLanguage,
		AccessLog:     os.Stdout,
		Logger:        logger,
	})

	sweeper := jobs.NewSessionSweeper(a.store, nil, cfg.SessionSweepInterval, a.metrics, logger)
	sweeper.Start()
	defer sweeper.Stop()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("farmline starting",
			zap.String("addr", addr),
			zap.String("version", Version),
			zap.String("storage", a.storageKind),
			zap.Bool("sms", features.SMS),
			zap.Bool("weather", features.Weather),
			zap.Bool("events", features.Events),
			zap.Bool("webhook_validation", features.WebhookValidation))
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

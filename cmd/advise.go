package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/services"
)

func newAdviseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advise <pin>",
		Short: "Print the weather advisory a caller would hear for a PIN code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, ok := services.ExtractPIN(args[0], "")
			if !ok {
				return fmt.Errorf("%q is not a six digit PIN code", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := wireApp(cfg, wireOptions{memoryStore: true, noEvents: true, logger: zap.NewNop()})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.weather == nil {
				return errors.New("WEATHER_API_KEY is required")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			loc, err := a.weather.Geocode(ctx, pin)
			if err != nil {
				return fmt.Errorf("geocode %s: %w", pin, err)
			}
			snapshot, err := a.weather.CurrentWeather(ctx, loc.Lat, loc.Lon)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%.4f, %.4f)\n", loc.Name, loc.Lat, loc.Lon)
			_, err = fmt.Fprintln(out, services.GenerateAdvisory(snapshot))
			return err
		},
	}
}

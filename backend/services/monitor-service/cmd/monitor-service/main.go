package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solarx/backend/libs/logging"
	"solarx/backend/services/monitor-service/internal/app"
	"solarx/backend/services/monitor-service/internal/config"
	"solarx/backend/services/monitor-service/internal/energy"
	"solarx/backend/services/monitor-service/internal/repository"
)

const serviceName = "monitor-service"

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "SolarX monitor: MQTT ingest, energy estimates and dashboard API",
		Long: `Collects battery, voltage, status and telemetry messages from the
solar controller over MQTT, stores them, mirrors live state for the
dashboard and serves the dashboard REST and WebSocket API.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(estimateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest worker and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger, err := logging.NewLogger(serviceName)
			if err != nil {
				return err
			}
			defer logger.Sync()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to init application", zap.Error(err))
				return err
			}
			defer application.Close()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("application stopped with error", zap.Error(err))
				return err
			}
			logger.Info("application stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sqlDB, err := app.OpenDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func estimateCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print today's hourly production estimate as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.Energy.LookbackDays
			}
			now, err := app.Clock(cfg)
			if err != nil {
				return err
			}
			sqlDB, err := app.OpenDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			readings, err := repository.NewBatteryRepository(sqlDB, now).ReadingsForPeriod(cmd.Context(), days)
			if err != nil {
				return err
			}
			profile := energy.NewEstimator(now).Estimate(readings)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "lookback window in days (default from config)")
	return cmd
}

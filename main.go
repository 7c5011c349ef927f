package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warelink/shipbridge/internal/engine"
	"github.com/warelink/shipbridge/internal/server"
	"github.com/warelink/shipbridge/internal/telemetry"
	"github.com/warelink/shipbridge/pkg/courier"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipbridge",
	Short:   "Warelink ShipBridge - warehouse shipping integration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	// Open local storage
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// Build the courier registry and rural lookup over the shared gateway
	registry, rural := initCouriers(cfg, logger)

	// Warehouse order source (optional)
	source := initWarehouse(cfg, logger)
	if source == nil {
		logger.Info("Warehouse source not configured, serving local orders only")
	}

	eng := engine.New(st, source, registry, rural, logger, telemetry.NewMetrics(),
		engine.Options{
			PickupPostcode:    cfg.PickupPostcode,
			QuoteTimeout:      time.Duration(cfg.QuoteTimeoutSeconds) * time.Second,
			SignatureRequired: cfg.SignatureRequired,
		})

	logger.Info("Starting Warelink ShipBridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("providers", registry.Names()),
	)

	// Start HTTP server
	srv := server.New(server.Config{
		Port: cfg.Port,
		Sender: courier.Address{
			Name:     cfg.SenderName,
			Street:   cfg.SenderStreet,
			Suburb:   cfg.SenderSuburb,
			City:     cfg.SenderCity,
			Postcode: cfg.PickupPostcode,
			Country:  "NZ",
			Phone:    cfg.SenderPhone,
			Email:    cfg.SenderEmail,
		},
	}, eng, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

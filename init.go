package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/warelink/shipbridge/internal/config"
	"github.com/warelink/shipbridge/internal/engine"
	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/internal/telemetry"
	"github.com/warelink/shipbridge/internal/warehouse"
	"github.com/warelink/shipbridge/pkg/courier"
	"github.com/warelink/shipbridge/pkg/courier/courierit"
	"github.com/warelink/shipbridge/pkg/courier/fastway"
	"github.com/warelink/shipbridge/pkg/courier/nzpost"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DatabasePath)
}

// initCouriers builds the registry over the shared Courier IT gateway. Both
// providers share one gateway client, as does the rural postcode lookup.
func initCouriers(cfg *config.Config, logger *otelzap.Logger) (*courier.Registry, courier.RuralChecker) {
	var api courierit.APIClient
	if cfg.CourierUseMock {
		api = courierit.NewMockAPIClient()
	} else {
		api = courierit.NewHTTPAPIClient(courierit.HTTPAPIClientConfig{
			BaseURL:  cfg.CourierBaseURL,
			Username: cfg.CourierUsername,
			Password: cfg.CourierPassword,
		})
	}

	var tracer trace.Tracer
	// tracer would be initialized from otel.GetTracerProvider().Tracer(cfg.ServiceName)

	registry := courier.NewRegistry()

	if cfg.FastwayEnabled {
		fw := fastway.NewWithAPIClient(fastway.Config{
			BaseURL:            cfg.CourierBaseURL,
			Username:           cfg.CourierUsername,
			Password:           cfg.CourierPassword,
			DefaultServiceType: cfg.DefaultServiceType,
			UseMock:            cfg.CourierUseMock,
		}, api, logger, tracer)
		registry.Register(fw)
	}

	if cfg.NZPostEnabled {
		np := nzpost.NewWithAPIClient(nzpost.Config{
			BaseURL:            cfg.CourierBaseURL,
			Username:           cfg.CourierUsername,
			Password:           cfg.CourierPassword,
			DefaultServiceType: cfg.DefaultServiceType,
			UseMock:            cfg.CourierUseMock,
		}, api, logger, tracer)
		registry.Register(np)
	}

	return registry, courierit.NewRuralService(api)
}

// initWarehouse returns nil when the warehouse source is not configured.
func initWarehouse(cfg *config.Config, logger *otelzap.Logger) engine.OrderSource {
	if !cfg.WarehouseConfigured() {
		return nil
	}
	return warehouse.New(warehouse.Config{
		BaseURL:      cfg.WarehouseBaseURL,
		ClientID:     cfg.WarehouseClientID,
		ClientSecret: cfg.WarehouseClientSecret,
		TenantUUID:   cfg.WarehouseTenantUUID,
		CustomerUUID: cfg.WarehouseCustomerUUID,
	}, logger)
}

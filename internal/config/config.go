package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	DatabasePath string `envconfig:"DATABASE_PATH" default:"data/shipbridge.db"`

	// Warehouse order source
	WarehouseBaseURL      string `envconfig:"WAREHOUSE_BASE_URL"`
	WarehouseClientID     string `envconfig:"WAREHOUSE_CLIENT_ID"`
	WarehouseClientSecret string `envconfig:"WAREHOUSE_CLIENT_SECRET"`
	WarehouseTenantUUID   string `envconfig:"WAREHOUSE_TENANT_UUID"`
	WarehouseCustomerUUID string `envconfig:"WAREHOUSE_CUSTOMER_UUID"`

	// Courier IT gateway (shared by both providers)
	CourierBaseURL      string `envconfig:"COURIERIT_BASE_URL" default:"https://courierit1.net.nz"`
	CourierUsername     string `envconfig:"COURIERIT_USERNAME"`
	CourierPassword     string `envconfig:"COURIERIT_PASSWORD"`
	CourierUseMock      bool   `envconfig:"COURIERIT_USE_MOCK" default:"false"`
	DefaultServiceType  string `envconfig:"DEFAULT_SERVICE_TYPE" default:"Parcel"`
	SignatureRequired   bool   `envconfig:"DEFAULT_SIGNATURE_REQUIRED" default:"false"`
	FastwayEnabled      bool   `envconfig:"FASTWAY_ENABLED" default:"true"`
	NZPostEnabled       bool   `envconfig:"NZPOST_ENABLED" default:"true"`
	QuoteTimeoutSeconds int    `envconfig:"QUOTE_TIMEOUT_SECONDS" default:"15"`

	// Shipping defaults
	PickupPostcode string `envconfig:"PICKUP_POSTCODE" default:"2013"`
	SenderName     string `envconfig:"SENDER_NAME"`
	SenderStreet   string `envconfig:"SENDER_STREET"`
	SenderSuburb   string `envconfig:"SENDER_SUBURB"`
	SenderCity     string `envconfig:"SENDER_CITY"`
	SenderPhone    string `envconfig:"SENDER_PHONE"`
	SenderEmail    string `envconfig:"SENDER_EMAIL"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"warelink-shipbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from a .env file (when present) and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// WarehouseConfigured reports whether the warehouse order source has the
// settings needed to sync. When false the service serves local data only.
func (c *Config) WarehouseConfigured() bool {
	return c.WarehouseBaseURL != "" && c.WarehouseClientID != "" && c.WarehouseClientSecret != ""
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("fastway.enabled", c.FastwayEnabled),
		attribute.Bool("nzpost.enabled", c.NZPostEnabled),
	}
}

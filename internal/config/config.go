package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// EngineConfig holds the commercial rules of the document engine. Monetary
// amounts are minor currency units; the tax rate is in basis points.
type EngineConfig struct {
	TaxRateBasisPoints    int64 `mapstructure:"tax_rate_basis_points"`
	ShippingFreeThreshold int64 `mapstructure:"shipping_free_threshold"`
	ShippingFlatAmount    int64 `mapstructure:"shipping_flat_amount"`
	PaymentTermsDays      int   `mapstructure:"payment_terms_days"`
	QuoteValidityDays     int   `mapstructure:"quote_validity_days"`
}

// DeliveryConfig holds invoice delivery worker configuration
type DeliveryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// DashboardConfig holds stats refresher worker configuration
type DashboardConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/labdesk.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Engine defaults: 18% tax, flat 2500 shipping waived from 100000 up,
	// 30-day payment terms, 30-day quote validity
	viper.SetDefault("engine.tax_rate_basis_points", 1800)
	viper.SetDefault("engine.shipping_free_threshold", 100000)
	viper.SetDefault("engine.shipping_flat_amount", 2500)
	viper.SetDefault("engine.payment_terms_days", 30)
	viper.SetDefault("engine.quote_validity_days", 30)

	// Delivery worker defaults
	viper.SetDefault("delivery.enabled", true)
	viper.SetDefault("delivery.interval", time.Minute)

	// Dashboard refresher defaults
	viper.SetDefault("dashboard.enabled", true)
	viper.SetDefault("dashboard.interval", 5*time.Minute)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "LABDESK_PORT")
	viper.BindEnv("database.path", "LABDESK_DB_PATH")
	viper.BindEnv("engine.tax_rate_basis_points", "LABDESK_TAX_RATE_BP")
	viper.BindEnv("logger.level", "LABDESK_LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Engine.TaxRateBasisPoints < 0 {
		return fmt.Errorf("engine.tax_rate_basis_points must not be negative")
	}
	if c.Engine.ShippingFreeThreshold < 0 || c.Engine.ShippingFlatAmount < 0 {
		return fmt.Errorf("engine shipping amounts must not be negative")
	}
	if c.Engine.PaymentTermsDays <= 0 {
		return fmt.Errorf("engine.payment_terms_days must be positive")
	}
	if c.Engine.QuoteValidityDays <= 0 {
		return fmt.Errorf("engine.quote_validity_days must be positive")
	}
	return nil
}

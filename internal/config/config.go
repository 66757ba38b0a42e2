package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Poller        PollerConfig        `mapstructure:"poller"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// CheckoutConfig holds cart fee constants and session lifecycle settings.
type CheckoutConfig struct {
	Currency              string        `mapstructure:"currency"`
	BaseFeeCents          int64         `mapstructure:"base_fee_cents"`
	DeliveryFeeCents      int64         `mapstructure:"delivery_fee_cents"`
	FreeShippingThreshold int64         `mapstructure:"free_shipping_threshold"`
	SessionTTL            time.Duration `mapstructure:"session_ttl"`
}

// GatewayConfig holds the hosted payment page settings.
type GatewayConfig struct {
	CheckoutURL string `mapstructure:"checkout_url"`
	PublicKey   string `mapstructure:"public_key"`
	RedirectURL string `mapstructure:"redirect_url"`
}

// BackendConfig holds the collaborator API client settings.
type BackendConfig struct {
	BaseURL                 string        `mapstructure:"base_url"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	MaxRetries              int           `mapstructure:"max_retries"`
	RetryDelay              time.Duration `mapstructure:"retry_delay"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

// PollerConfig holds result polling delays.
type PollerConfig struct {
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// WorkerConfig holds reconciliation worker settings.
type WorkerConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	PendingAge    time.Duration `mapstructure:"pending_age"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("CHECKOUT")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/checkout")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields have valid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Checkout.BaseFeeCents < 0 || c.Checkout.DeliveryFeeCents < 0 || c.Checkout.FreeShippingThreshold < 0 {
		errs = append(errs, fmt.Errorf("checkout fees must be non-negative"))
	}
	if len(c.Checkout.Currency) != 3 {
		errs = append(errs, fmt.Errorf("checkout.currency must be a 3-letter ISO code, got %q", c.Checkout.Currency))
	}
	if c.Gateway.CheckoutURL == "" {
		errs = append(errs, fmt.Errorf("gateway.checkout_url is required"))
	}
	if c.Gateway.PublicKey == "" {
		errs = append(errs, fmt.Errorf("gateway.public_key is required"))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	}
	if c.Poller.InitialDelay < 0 || c.Poller.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("poller delays must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "checkout")
	v.SetDefault("database.password", "checkout")
	v.SetDefault("database.database", "checkout")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Checkout defaults
	v.SetDefault("checkout.currency", "COP")
	v.SetDefault("checkout.base_fee_cents", 2500)
	v.SetDefault("checkout.delivery_fee_cents", 5000)
	v.SetDefault("checkout.free_shipping_threshold", 50000)
	v.SetDefault("checkout.session_ttl", "24h")

	// Gateway defaults
	v.SetDefault("gateway.checkout_url", "https://checkout.co.uat.wompi.dev/p/")
	v.SetDefault("gateway.public_key", "pub_stagtest_g2u0HQd3ZMh05hsSgTS2lUV8t3s4mOt7")
	v.SetDefault("gateway.redirect_url", "http://localhost:5173/payment-result")

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:3000")
	v.SetDefault("backend.request_timeout", "10s")
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.retry_delay", "1s")
	v.SetDefault("backend.circuit_breaker_threshold", 10)
	v.SetDefault("backend.circuit_breaker_timeout", "30s")

	// Poller defaults
	v.SetDefault("poller.initial_delay", "3s")
	v.SetDefault("poller.retry_interval", "8s")

	// Worker defaults
	v.SetDefault("worker.sweep_interval", "30s")
	v.SetDefault("worker.batch_size", 20)
	v.SetDefault("worker.pending_age", "2m")
	v.SetDefault("worker.lock_ttl", "30s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "checkout-1")
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FeePolicy returns the cart fee policy configured for checkout.
func (c *CheckoutConfig) FeePolicy() cart.FeePolicy {
	return cart.FeePolicy{
		BaseFeeCents:          c.BaseFeeCents,
		DeliveryFeeCents:      c.DeliveryFeeCents,
		FreeShippingThreshold: c.FreeShippingThreshold,
	}
}

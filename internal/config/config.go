package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ai360store-ux/Digimarket/internal/checkout"
	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/gateway/rest"
	pkgconfig "github.com/ai360store-ux/Digimarket/pkg/config"
	"github.com/ai360store-ux/Digimarket/pkg/database"
	"github.com/ai360store-ux/Digimarket/pkg/tracing"
)

// ServiceName is the name used for logs, metrics and traces.
const ServiceName = "catalog-service"

// minTokenSecret is the shortest accepted admin token secret.
const minTokenSecret = 32

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort      int    `env:"HTTP_PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:""`

	// Remote gateway. Credentials may also be set at runtime from the admin API.
	GatewayProjectID        string        `env:"GATEWAY_PROJECT_ID"`
	GatewayAccessKey        string        `env:"GATEWAY_ACCESS_KEY"`
	GatewayEndpointTemplate string        `env:"GATEWAY_ENDPOINT_TEMPLATE" envDefault:"https://%s.supabase.co"`
	GatewayBucket           string        `env:"GATEWAY_BUCKET" envDefault:"dm_assets"`
	GatewayTimeout          time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`

	// Direct Postgres backend; replaces the hosted gateway when set.
	Postgres database.PostgresConfig

	// Redis for durable local slots; in-memory when REDIS_HOST is empty.
	Redis database.RedisConfig

	// Admin session
	AdminKey         string        `env:"ADMIN_KEY"`
	AdminKeyHash     string        `env:"ADMIN_KEY_HASH"`
	AdminTokenSecret string        `env:"ADMIN_TOKEN_SECRET"`
	AdminTokenTTL    time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	LoginRatePerMin  int           `env:"LOGIN_RATE_PER_MIN" envDefault:"10"`
	APIRatePerMin    int           `env:"API_RATE_PER_MIN" envDefault:"600"`

	// Proxies allowed to set X-Forwarded-For; empty means rate limits key on the peer address.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// Checkout
	ChatHost       string `env:"CHAT_HOST" envDefault:"wa.me"`
	OrderRefPrefix string `env:"ORDER_REF_PREFIX" envDefault:"DM"`

	// Assets
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	// Kafka; events are disabled when empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	Tracing tracing.Config

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Redis.Enabled() && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		return fmt.Errorf("invalid REDIS_PORT: %d", c.Redis.Port)
	}
	if c.AdminKey == "" && c.AdminKeyHash == "" {
		return errors.New("ADMIN_KEY or ADMIN_KEY_HASH is required")
	}
	if len(c.AdminTokenSecret) < minTokenSecret {
		return fmt.Errorf("ADMIN_TOKEN_SECRET must be at least %d characters", minTokenSecret)
	}
	if c.AdminTokenTTL <= 0 {
		return fmt.Errorf("ADMIN_TOKEN_TTL must be positive, got %s", c.AdminTokenTTL)
	}
	if c.LoginRatePerMin < 1 {
		return fmt.Errorf("LOGIN_RATE_PER_MIN must be positive, got %d", c.LoginRatePerMin)
	}
	if c.APIRatePerMin < 1 {
		return fmt.Errorf("API_RATE_PER_MIN must be positive, got %d", c.APIRatePerMin)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", c.GatewayTimeout)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if (c.GatewayProjectID == "") != (c.GatewayAccessKey == "") {
		return errors.New("GATEWAY_PROJECT_ID and GATEWAY_ACCESS_KEY must be set together")
	}
	if c.PublicBaseURL != "" {
		if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid PUBLIC_BASE_URL: %q", c.PublicBaseURL)
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}

// BaseURL returns the externally visible base URL of this service.
func (c *Config) BaseURL() string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL
	}
	return fmt.Sprintf("http://localhost:%d", c.HTTPPort)
}

// GatewayCredentials returns the credentials set in the environment, if any.
func (c *Config) GatewayCredentials() (gateway.Credentials, bool) {
	creds := gateway.Credentials{ProjectID: c.GatewayProjectID, AccessKey: c.GatewayAccessKey}
	return creds, creds.Complete()
}

// RestConfig returns the hosted backend transport settings.
func (c *Config) RestConfig() rest.Config {
	rc := rest.DefaultConfig()
	rc.Bucket = c.GatewayBucket
	rc.HTTP.Timeout = c.GatewayTimeout
	return rc
}

// TracingConfig returns the tracer settings stamped with service metadata.
func (c *Config) TracingConfig(version string) tracing.Config {
	tc := c.Tracing
	tc.ServiceName = ServiceName
	tc.ServiceVersion = version
	tc.Environment = c.Environment
	return tc
}

// Checkout returns the order builder for the configured chat host.
func (c *Config) Checkout() *checkout.Builder {
	return checkout.NewBuilder(c.ChatHost, c.OrderRefPrefix)
}

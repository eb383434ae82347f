package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Events        EventsConfig        `mapstructure:"events"`
	Gateways      []GatewayConfig     `mapstructure:"gateways"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// EventsConfig controls fan-out of completed checkouts to NATS.
type EventsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	NATSURL         string        `mapstructure:"nats_url"`
	SubjectPrefix   string        `mapstructure:"subject_prefix"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
}

// GatewayConfig describes one gateway. Merchants keep their file order;
// the first one is the gateway's default merchant.
type GatewayConfig struct {
	Name                string           `mapstructure:"name"`
	Driver              string           `mapstructure:"driver"`
	BaseURL             string           `mapstructure:"base_url"`
	BankInstanceType    string           `mapstructure:"bank_instance_type"`
	TelCardInstanceType string           `mapstructure:"tel_card_instance_type"`
	HTTPClient          map[string]any   `mapstructure:"http_client"`
	DriverOptions       map[string]any   `mapstructure:"driver_options"`
	Merchants           []map[string]any `mapstructure:"merchants"`
}

// Drivers accepted in GatewayConfig.Driver.
const (
	DriverMock = "mock"
	DriverREST = "rest"
)

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/payment")

	return load(v)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("PAYMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	if c.Events.Enabled && c.Events.NATSURL == "" {
		errs = append(errs, fmt.Errorf("events.nats_url is required when events are enabled"))
	}

	if len(c.Gateways) == 0 {
		errs = append(errs, fmt.Errorf("at least one gateway must be configured"))
	}
	seen := make(map[string]bool, len(c.Gateways))
	for i, g := range c.Gateways {
		errs = append(errs, g.validate(i, seen)...)
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
		for _, g := range c.Gateways {
			if g.Driver == DriverMock {
				errs = append(errs, fmt.Errorf("gateway %q: mock driver not allowed in production", g.Name))
			}
		}
	}

	// JWT secret length validation
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func (g GatewayConfig) validate(i int, seen map[string]bool) []error {
	var errs []error
	prefix := fmt.Sprintf("gateways[%d]", i)

	if g.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	} else if seen[g.Name] {
		errs = append(errs, fmt.Errorf("%s.name %q is duplicated", prefix, g.Name))
	}
	seen[g.Name] = true

	switch g.Driver {
	case DriverMock:
	case DriverREST:
		if g.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for the rest driver", prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%s.driver must be one of %q, %q, got %q", prefix, DriverMock, DriverREST, g.Driver))
	}

	for j, m := range g.Merchants {
		if _, ok := m["id"]; !ok {
			errs = append(errs, fmt.Errorf("%s.merchants[%d].id is required", prefix, j))
		}
	}
	return errs
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.nats_url", "nats://localhost:4222")
	v.SetDefault("events.subject_prefix", "payment.checkout")
	v.SetDefault("events.max_reconnects", 10)
	v.SetDefault("events.reconnect_wait", "2s")
	v.SetDefault("events.connect_attempts", 5)

	// Sandbox gateway so the API starts without a config file
	v.SetDefault("gateways", []map[string]any{
		{
			"name":   "sandbox",
			"driver": DriverMock,
			"merchants": []map[string]any{
				{"id": "sandbox", "type": "default", "name": "Sandbox merchant"},
			},
		},
	})

	// Instance ID
	v.SetDefault("instance_id", "payment-1")
}

// Gateway returns the gateway configuration named name.
func (c *Config) Gateway(name string) (GatewayConfig, bool) {
	for _, g := range c.Gateways {
		if g.Name == name {
			return g, true
		}
	}
	return GatewayConfig{}, false
}

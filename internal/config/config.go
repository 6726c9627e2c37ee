package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	SES      SESConfig      `yaml:"ses"`
	Store    StoreConfig    `yaml:"store"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for run leases.
// Leave Addr empty to fall back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EngineConfig holds campaign engine settings
type EngineConfig struct {
	TickIntervalSeconds    int `yaml:"tick_interval_seconds"`
	DispatchTimeoutSeconds int `yaml:"dispatch_timeout_seconds"`
	LockTTLSeconds         int `yaml:"lock_ttl_seconds"`
	PreviewSampleLimit     int `yaml:"preview_sample_limit"`
}

// TickInterval returns the engine tick interval as a duration
func (c EngineConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// DispatchTimeout returns the per-message send timeout as a duration
func (c EngineConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// LockTTL returns the run lease TTL as a duration
func (c EngineConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// TwilioConfig holds Twilio API credentials for SMS sending
type TwilioConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	FromNumber     string `yaml:"from_number"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c TwilioConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES API configuration for email sending
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromAddress    string `yaml:"from_address"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StoreConfig holds the practice identity injected into message templates
type StoreConfig struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Engine.TickIntervalSeconds == 0 {
		cfg.Engine.TickIntervalSeconds = 300
	}
	if cfg.Engine.DispatchTimeoutSeconds == 0 {
		cfg.Engine.DispatchTimeoutSeconds = 15
	}
	if cfg.Engine.LockTTLSeconds == 0 {
		cfg.Engine.LockTTLSeconds = 600
	}
	if cfg.Engine.PreviewSampleLimit == 0 {
		cfg.Engine.PreviewSampleLimit = 25
	}
	if cfg.Twilio.BaseURL == "" {
		cfg.Twilio.BaseURL = "https://api.twilio.com"
	}
	if cfg.Twilio.TimeoutSeconds == 0 {
		cfg.Twilio.TimeoutSeconds = 15
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 15
	}
	if cfg.Store.Name == "" {
		cfg.Store.Name = "LensDesk Optical"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		cfg.Twilio.AccountSID = sid
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		cfg.Twilio.AuthToken = token
	}
	if from := os.Getenv("TWILIO_FROM_NUMBER"); from != "" {
		cfg.Twilio.FromNumber = from
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("SES_FROM_ADDRESS"); from != "" {
		cfg.SES.FromAddress = from
	}
	if name := os.Getenv("STORE_NAME"); name != "" {
		cfg.Store.Name = name
	}
	if phone := os.Getenv("STORE_PHONE"); phone != "" {
		cfg.Store.Phone = phone
	}

	return cfg, nil
}

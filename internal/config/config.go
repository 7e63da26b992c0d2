package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/chmc/wbms-api/pkg/auth"
	"github.com/chmc/wbms-api/pkg/logger"
	"github.com/chmc/wbms-api/pkg/messaging/redis"
	"github.com/chmc/wbms-api/pkg/security"
)

const envPrefix = "WBMS"

type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	JWT         auth.Config     `mapstructure:"jwt"`
	Log         logger.Config   `mapstructure:"log"`
	Redis       redis.Config    `mapstructure:"redis"`
	Outbox      OutboxConfig    `mapstructure:"outbox"`
	Documents   DocumentsConfig `mapstructure:"documents"`
	Converter   ConverterConfig `mapstructure:"converter"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	CORS        CORSConfig      `mapstructure:"cors"`
	SMTP        SMTPConfig      `mapstructure:"smtp"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`

	// Secrets are read from the environment only.
	Secrets Secrets `mapstructure:"-"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type OutboxConfig struct {
	Channel         string        `mapstructure:"channel"`
	BatchSize       int           `mapstructure:"batch_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	MaxRetries      int           `mapstructure:"max_retries"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	HealthAddr      string        `mapstructure:"health_addr"`
}

type DocumentsConfig struct {
	TemplatePath  string `mapstructure:"template_path"`
	StorageRoot   string `mapstructure:"storage_root"`
	FileNumbering string `mapstructure:"file_numbering"`
	CodePrefix    string `mapstructure:"code_prefix"`
}

type ConverterConfig struct {
	Backend       string        `mapstructure:"backend"`
	GotenbergURL  string        `mapstructure:"gotenberg_url"`
	SofficePath   string        `mapstructure:"soffice_path"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type RateLimitConfig struct {
	VerifyRPS   float64       `mapstructure:"verify_rps"`
	VerifyBurst int           `mapstructure:"verify_burst"`
	IdleTTL     time.Duration `mapstructure:"idle_ttl"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Secrets feed the salted digests behind unique codes and patient ids.
type Secrets struct {
	CodeSalt      string `envconfig:"CODE_SALT" required:"true"`
	CodePepper    string `envconfig:"CODE_PEPPER" required:"true"`
	PatientSalt   string `envconfig:"PATIENT_SALT" required:"true"`
	PatientPepper string `envconfig:"PATIENT_PEPPER" required:"true"`
}

func (s Secrets) Code() security.Secret {
	return security.Secret{Salt: s.CodeSalt, Pepper: s.CodePepper}
}

func (s Secrets) Patient() security.Secret {
	return security.Secret{Salt: s.PatientSalt, Pepper: s.PatientPepper}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.max_body_bytes", 20<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wbms")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "wbms")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "wbms-api")
	v.SetDefault("jwt.token_expiry", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)

	v.SetDefault("outbox.channel", "wbms.events")
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.max_retries", 10)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanup_interval", time.Hour)
	v.SetDefault("outbox.health_addr", ":8081")

	v.SetDefault("documents.template_path", "templates/examination_template.docx")
	v.SetDefault("documents.storage_root", "media")
	v.SetDefault("documents.file_numbering", "sequence")
	v.SetDefault("documents.code_prefix", "CHMC")

	v.SetDefault("converter.backend", "gotenberg")
	v.SetDefault("converter.gotenberg_url", "http://localhost:3000")
	v.SetDefault("converter.soffice_path", "soffice")
	v.SetDefault("converter.max_concurrent", 1)
	v.SetDefault("converter.timeout", 60*time.Second)
	v.SetDefault("converter.cache_ttl", 30*time.Minute)

	v.SetDefault("rate_limit.verify_rps", 2.0)
	v.SetDefault("rate_limit.verify_burst", 5)
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@chmc.local")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "wbms-api")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// LoadConfig reads config.yml (optional) and environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(envPrefix+"_SECRETS", &config.Secrets); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Documents.FileNumbering {
	case "sequence", "count":
	default:
		return fmt.Errorf("documents.file_numbering must be sequence or count, got %q", c.Documents.FileNumbering)
	}
	switch c.Converter.Backend {
	case "gotenberg", "soffice":
	default:
		return fmt.Errorf("converter.backend must be gotenberg or soffice, got %q", c.Converter.Backend)
	}
	if c.Documents.CodePrefix == "" || strings.Contains(c.Documents.CodePrefix, "-") {
		return fmt.Errorf("documents.code_prefix must be non-empty and contain no hyphen")
	}
	if err := c.Secrets.Code().Validate(); err != nil {
		return fmt.Errorf("code secret: %w", err)
	}
	if err := c.Secrets.Patient().Validate(); err != nil {
		return fmt.Errorf("patient secret: %w", err)
	}
	return nil
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EmailProviderSMTP     = "smtp"
	EmailProviderSendGrid = "sendgrid"
)

// Config holds application configuration loaded from environment.
type Config struct {
	API struct {
		Port     string `env:"API_PORT" env-default:":8080"`
		BasePath string `env:"API_BASE_PATH" env-default:"/api/v0"`
	}
	DB struct {
		DSN          string `env:"DB_DSN"`
		MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
		AutoMigrate  bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`
	}
	Logging struct {
		Level      string `env:"LOG_LEVEL" env-default:"info"`
		Format     string `env:"LOG_FORMAT" env-default:"text"`
		Dir        string `env:"LOG_DIR" env-default:"logs"`
		MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" env-default:"50"`
		MaxBackups int    `env:"LOG_MAX_BACKUPS" env-default:"5"`
		MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" env-default:"30"`
	}
	Email struct {
		Provider       string        `env:"EMAIL_PROVIDER" env-default:"smtp"`
		SMTPServer     string        `env:"EMAIL_SMTP_SERVER"`
		SMTPPort       int           `env:"EMAIL_SMTP_PORT" env-default:"587"`
		Username       string        `env:"EMAIL_USERNAME"`
		Password       string        `env:"EMAIL_PASSWORD"`
		FromName       string        `env:"EMAIL_FROM_NAME" env-default:"Checklist Alerts"`
		FromAddress    string        `env:"EMAIL_FROM_ADDRESS"`
		SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
		RatePerSecond  float64       `env:"EMAIL_RATE_PER_SECOND" env-default:"5"`
		Burst          int           `env:"EMAIL_BURST" env-default:"5"`
		MaxAttempts    int           `env:"EMAIL_MAX_ATTEMPTS" env-default:"3"`
		RetryDelay     time.Duration `env:"EMAIL_RETRY_DELAY" env-default:"2s"`
	}
	Kafka struct {
		Broker  string `env:"KAFKA_BROKER"`
		Topic   string `env:"KAFKA_TOPIC" env-default:"task_completed"`
		GroupID string `env:"KAFKA_GROUP_ID" env-default:"alert-service"`
	}
	Redis struct {
		Addr     string        `env:"REDIS_ADDR"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB" env-default:"0"`
		TTL      time.Duration `env:"REDIS_METADATA_TTL" env-default:"10m"`
	}
	Alerts struct {
		// MetadataFallback keeps a trigger when stream or device names
		// cannot be resolved, using placeholders instead.
		MetadataFallback bool `env:"ALERTS_METADATA_FALLBACK" env-default:"false"`
	}
	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" env-default:"true"`
	}
	Tracing struct {
		Enabled     bool    `env:"TRACING_ENABLED" env-default:"false"`
		Endpoint    string  `env:"TRACING_ENDPOINT" env-default:"localhost:4318"`
		ServiceName string  `env:"TRACING_SERVICE_NAME" env-default:"alert-service"`
		Insecure    bool    `env:"TRACING_INSECURE" env-default:"true"`
		SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" env-default:"1"`
	}
}

// Load reads .env (if present) and the environment, applies defaults, and
// returns a validated Config. ENV_FILE overrides the .env location.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	missing := []string{}
	if c.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}

	switch c.Email.Provider {
	case EmailProviderSMTP:
		if c.Email.SMTPServer == "" {
			missing = append(missing, "EMAIL_SMTP_SERVER")
		}
		if c.Email.FromAddress == "" && c.Email.Username == "" {
			missing = append(missing, "EMAIL_FROM_ADDRESS")
		}
	case EmailProviderSendGrid:
		if c.Email.SendGridAPIKey == "" {
			missing = append(missing, "SENDGRID_API_KEY")
		}
		if c.Email.FromAddress == "" {
			missing = append(missing, "EMAIL_FROM_ADDRESS")
		}
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configurations: %v", missing)
	}

	if c.Email.MaxAttempts < 1 {
		return fmt.Errorf("EMAIL_MAX_ATTEMPTS must be at least 1, got %d", c.Email.MaxAttempts)
	}
	return nil
}

// Sender returns the address mail is sent from.
func (c Config) Sender() string {
	if c.Email.FromAddress != "" {
		return c.Email.FromAddress
	}
	return c.Email.Username
}

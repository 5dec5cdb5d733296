package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IvanGLS/library-service-project/pkg/kafka"
	"github.com/IvanGLS/library-service-project/pkg/logger"
	"github.com/IvanGLS/library-service-project/pkg/postgres"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"30s"`
	WriteTimeout time.Duration
}

type Stripe struct {
	SecretKey  string `envconfig:"STRIPE_SECRET_KEY" json:"-"`
	BaseURL    string `envconfig:"STRIPE_BASE_URL" default:"https://api.stripe.com"`
	SuccessURL string `envconfig:"STRIPE_SUCCESS_URL" default:"http://localhost:8080/api/v1/payments/success"`
	CancelURL  string `envconfig:"STRIPE_CANCEL_URL" default:"http://localhost:8080/api/v1/payments/cancel"`
}

type Telegram struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" json:"-"`
	ChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	BaseURL  string `envconfig:"TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
}

// Limits are coarse system-wide anti-abuse guards, not per-user quotas.
type Limits struct {
	FineMultiplier       decimal.Decimal `envconfig:"FINE_MULTIPLIER" default:"5.00"`
	SessionExpiryWindow  time.Duration   `envconfig:"SESSION_EXPIRY_WINDOW" default:"24h"`
	SweepInterval        time.Duration   `envconfig:"SWEEP_INTERVAL" default:"1h"`
	MaxBooks             int             `envconfig:"MAX_BOOKS" default:"1000"`
	MaxBorrowingsPerYear int             `envconfig:"MAX_BORROWINGS_PER_YEAR" default:"50000"`
}

type Config struct {
	Server   HTTPServer `yaml:"server"`
	Database postgres.Config
	Kafka    kafka.Config
	Stripe   Stripe
	Telegram Telegram
	Limits   Limits
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

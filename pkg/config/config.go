package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config aggregates every configuration section the service binaries consume.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Square  SquareConfig
	GameAPI GameAPIConfig
	PubSub  PubSubConfig
	Outbox  OutboxConfig
}

type AppConfig struct {
	Env          string `envconfig:"APP_ENV" default:"development"`
	Port         string `envconfig:"PORT" default:"8080"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	LogQueries      bool          `envconfig:"DB_LOG_QUERIES" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	Address      string        `envconfig:"REDIS_ADDRESS"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// JWTConfig covers verification of access tokens minted by the account system.
// Token issuance lives outside this service; only the shared secret is needed here.
type JWTConfig struct {
	AccessSecret string `envconfig:"JWT_ACCESS_SECRET" required:"true"`
	Issuer       string `envconfig:"JWT_ISSUER" default:"valcrest-accounts"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"SQUARE_ENVIRONMENT" default:"sandbox"`
	LocationID  string `envconfig:"SQUARE_LOCATION_ID"`
	RedirectURL string `envconfig:"SQUARE_REDIRECT_URL"`
}

func (s SquareConfig) Environment() string {
	return s.Env
}

// GameAPIConfig points at the game server's account/billing API.
type GameAPIConfig struct {
	BaseURL        string        `envconfig:"GAME_API_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"GAME_API_KEY"`
	CallbackSecret string        `envconfig:"GAME_API_CALLBACK_SECRET"`
	Timeout        time.Duration `envconfig:"GAME_API_TIMEOUT" default:"10s"`
	RetryMax       int           `envconfig:"GAME_API_RETRY_MAX" default:"3"`
	RetryWaitMin   time.Duration `envconfig:"GAME_API_RETRY_WAIT_MIN" default:"200ms"`
	RetryWaitMax   time.Duration `envconfig:"GAME_API_RETRY_WAIT_MAX" default:"2s"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"PUBSUB_PROJECT_ID"`
	DomainTopic string `envconfig:"PUBSUB_DOMAIN_TOPIC" default:"valcrest-domain-events"`
	Emulator    string `envconfig:"PUBSUB_EMULATOR_HOST"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// Load reads every section from the environment.
func Load() (*Config, error) {
	var cfg Config
	sections := map[string]any{
		"app":     &cfg.App,
		"db":      &cfg.DB,
		"redis":   &cfg.Redis,
		"jwt":     &cfg.JWT,
		"square":  &cfg.Square,
		"gameapi": &cfg.GameAPI,
		"pubsub":  &cfg.PubSub,
		"outbox":  &cfg.Outbox,
	}
	for name, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("load %s config: %w", name, err)
		}
	}
	return &cfg, nil
}

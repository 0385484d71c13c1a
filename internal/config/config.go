package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Env        string     `yaml:"env" env:"APP_ENV" env-default:"local" env-description:"Environment" env-choices:"local,dev,prod"`
	HTTP       HTTP       `yaml:"http"`
	Storage    string     `yaml:"storage" env:"STORAGE_DRIVER" env-default:"postgres"`
	Postgres   Postgres   `yaml:"postgres"`
	Auth       Auth       `yaml:"auth"`
	Trading    Trading    `yaml:"trading"`
	Quotes     Quotes     `yaml:"quotes"`
	Prices     Prices     `yaml:"prices"`
	Challenges Challenges `yaml:"challenges"`
	CORS       CORS       `yaml:"cors"`
}

type HTTP struct {
	Host              string        `yaml:"host" env:"HTTP_HOST" env-default:""`
	Port              int           `yaml:"port" env:"PORT" env-default:"8080"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Postgres struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5433"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"trader"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" env-default:"trading123"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"trading_db"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"24h"`
}

type Trading struct {
	InitialBalance string `yaml:"initial_balance" env:"INITIAL_BALANCE" env-default:"100000.00"`
}

type Quotes struct {
	BaseURL           string        `yaml:"base_url" env:"QUOTES_BASE_URL" env-default:"https://query1.finance.yahoo.com"`
	Timeout           time.Duration `yaml:"timeout" env:"QUOTES_TIMEOUT" env-default:"5s"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown" env:"QUOTES_RATE_LIMIT_COOLDOWN" env-default:"1h"`
}

type Prices struct {
	StreamInterval time.Duration `yaml:"stream_interval" env:"PRICES_STREAM_INTERVAL" env-default:"1s"`
}

type Challenges struct {
	FinalizeInterval time.Duration `yaml:"finalize_interval" env:"CHALLENGES_FINALIZE_INTERVAL" env-default:"5m"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// Load reads the YAML file at path, when given, and overlays the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func fetchConfigPath() string {
	var res string

	if flag.Lookup("config") == nil {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}

// Validate checks values cleanenv cannot express with tags.
func (c *Config) Validate() error {
	if c.Env != EnvLocal && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required outside local env")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Storage != StorageMemory && c.Storage != StoragePostgres {
		return fmt.Errorf("storage must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage)
	}
	balance, err := c.Trading.Balance()
	if err != nil {
		return err
	}
	if !balance.IsPositive() {
		return errors.New("trading.initial_balance must be positive")
	}
	if c.Prices.StreamInterval <= 0 {
		return errors.New("prices.stream_interval must be positive")
	}
	if c.Challenges.FinalizeInterval <= 0 {
		return errors.New("challenges.finalize_interval must be positive")
	}
	return nil
}

// Balance parses the configured starting cash.
func (t Trading) Balance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(t.InitialBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("trading.initial_balance: %w", err)
	}
	return d.Round(2), nil
}

// DSN builds a lib/pq connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode,
	)
}

// Addr is the listen address for the HTTP server.
func (h HTTP) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

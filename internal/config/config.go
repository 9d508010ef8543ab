package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const DefaultPath = "./config/config.yaml"

type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"local"`
	ClientURL  string `yaml:"client_url" env:"CLIENT_URL" env-default:"http://localhost:3000"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Tokens     `yaml:"tokens"`
	Lockout    `yaml:"lockout"`
	Hashing    `yaml:"hashing"`
	OAuth      `yaml:"oauth"`
	Sentry     `yaml:"sentry"`
	RateLimit  `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env-default:"10"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"emails"`
}

type Tokens struct {
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env-default:"1h"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	RotateRefresh      bool          `yaml:"rotate_refresh" env-default:"false"`
	PurgeInterval      time.Duration `yaml:"purge_interval" env-default:"1h"`
}

type Lockout struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"3"`
	Duration    time.Duration `yaml:"duration" env-default:"15m"`
}

type Hashing struct {
	BcryptCost    int `yaml:"bcrypt_cost" env-default:"10"`
	MaxConcurrent int `yaml:"max_concurrent" env-default:"0"`
}

type OAuth struct {
	Google     Google        `yaml:"google"`
	HandoffTTL time.Duration `yaml:"handoff_ttl" env-default:"60s"`
}

type Google struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url" env:"GOOGLE_REDIRECT_URL" env-default:"http://localhost:8080/auth/google"`
}

// * Enabled вход через Google включается только при заданных client id и secret
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type Sentry struct {
	DSN string `yaml:"dsn" env:"SENTRY_DSN"`
}

type RateLimit struct {
	Window   time.Duration `yaml:"window" env-default:"10m"`
	Global   int           `yaml:"global" env-default:"100"`
	Login    int           `yaml:"login" env-default:"10"`
	Register int           `yaml:"register" env-default:"5"`
	Refresh  int           `yaml:"refresh" env-default:"30"`
	Logout   int           `yaml:"logout" env-default:"20"`
	OAuth    int           `yaml:"oauth" env-default:"20"`
}

// * MailerConfig конфигурация воркера отправки писем
type MailerConfig struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local"`
	SMTP     `yaml:"smtp"`
	RabbitMQ `yaml:"rabbitmq"`
	Sentry   `yaml:"sentry"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-required:"true"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-required:"true"`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-required:"true"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

func MustLoad(configPath string) *Config {
	var cfg Config

	mustRead(configPath, &cfg)

	return &cfg
}

func MustLoadMailer(configPath string) *MailerConfig {
	var cfg MailerConfig

	mustRead(configPath, &cfg)

	return &cfg
}

// * Path путь к конфигу из CONFIG_PATH или путь по умолчанию
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	return DefaultPath
}

func mustRead(configPath string, cfg any) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}
}

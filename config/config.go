package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env            string `envconfig:"APP_ENV" default:"development"`
	Port           string `envconfig:"PORT" default:"8080"`
	BodyLimitMB    int    `envconfig:"BODY_LIMIT_MB" default:"25"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	RateLimitMax   int    `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitSecs  int    `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`
	JWTSecret      string `envconfig:"JWT_SECRET"`
	SnowflakeNode  int64  `envconfig:"SNOWFLAKE_NODE" default:"1"`
	Currency       string `envconfig:"DEFAULT_CURRENCY" default:"SAR"`

	Database DatabaseConfig `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	AMQP     AMQPConfig     `envconfig:"AMQP"`
	OSS      OSSConfig      `envconfig:"OSS"`
	Email    EmailConfig    `envconfig:"EMAIL"`
	Twilio   TwilioConfig   `envconfig:"TWILIO"`
	Gateway  GatewayConfig  `envconfig:"GATEWAY"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"NAME" default:"visa_portal"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	TimeZone string `envconfig:"TIMEZONE" default:"Asia/Riyadh"`
}

// DSN renders the libpq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone)
}

type RedisConfig struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

func (c RedisConfig) Addr() string { return c.Host + ":" + c.Port }

type AMQPConfig struct {
	URI string `envconfig:"URI"`
}

type OSSConfig struct {
	Endpoint   string `envconfig:"ENDPOINT"`
	AccessKey  string `envconfig:"ACCESS_KEY"`
	SecretKey  string `envconfig:"SECRET_KEY"`
	Bucket     string `envconfig:"BUCKET"`
	PublicBase string `envconfig:"PUBLIC_BASE"`
}

func (c OSSConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type EmailConfig struct {
	APIURL    string `envconfig:"API_URL"`
	APIKey    string `envconfig:"API_KEY"`
	From      string `envconfig:"FROM" default:"Visa Services <no-reply@example.com>"`
	TeamEmail string `envconfig:"TEAM_ADDRESS"`
}

type TwilioConfig struct {
	AccountSID string `envconfig:"ACCOUNT_SID"`
	AuthToken  string `envconfig:"AUTH_TOKEN"`
	From       string `envconfig:"FROM"`
	TeamPhone  string `envconfig:"TEAM_PHONE"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.TeamPhone != ""
}

type GatewayConfig struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"https://api.edfapay.com"`
	MerchantID  string        `envconfig:"MERCHANT_ID"`
	Secret      string        `envconfig:"SECRET"`
	ReturnURL   string        `envconfig:"RETURN_URL"`
	IPLookupURL string        `envconfig:"IP_LOOKUP_URL" default:"https://api.ipify.org?format=json"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"15s"`
	// consecutive failures before the breaker opens
	BreakerThreshold int64 `envconfig:"BREAKER_THRESHOLD" default:"5"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.BodyLimitMB <= 0 {
		cfg.BodyLimitMB = 25
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

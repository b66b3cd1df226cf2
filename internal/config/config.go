package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Gateway     GatewayConfig
	PaymentKey  PaymentKeyConfig
	CoreService CoreServiceConfig
	Platform    PlatformConfig
	Internal    InternalAuthConfig
	Messaging   MessagingConfig
	Scheduler   SchedulerConfig
	Centercoin  CentercoinConfig
	Card        CardConfig
	CORS        CORSConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig bounds per-user API traffic and sizes redis locks.
type RateLimitConfig struct {
	Enabled   bool
	UserRate  float64
	UserBurst int
	LockTTL   time.Duration
	LockWait  time.Duration
}

// GatewayConfig configures the card-billing provider client.
type GatewayConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// PaymentKeyConfig seeds the primary merchant credentials on first boot.
type PaymentKeyConfig struct {
	Name      string
	Identity  string
	SecretKey string
}

// CoreServiceConfig points at the accounts/ride/monitoring services.
type CoreServiceConfig struct {
	AccountsURL   string
	AccountsKey   string
	RideURL       string
	RideKey       string
	PaymentsURL   string
	Audience      string
	MonitoringURL string
	MonitoringKey string
	Timeout       time.Duration
}

// PlatformConfig points at the ride platform open API.
type PlatformConfig struct {
	URL       string
	AccessKey string
	Timeout   time.Duration
}

type InternalAuthConfig struct {
	Secret          string
	Subject         string
	MaxLifetime     time.Duration
	SessionCacheTTL time.Duration
}

type MessagingConfig struct {
	URL   string
	Queue string
}

type SchedulerConfig struct {
	Enabled        bool
	UnpaidInterval time.Duration
	UnpaidTimeout  time.Duration
	Parallelism    int
	MonitorID      string
}

type CentercoinConfig struct {
	Enabled bool
	Ratio   float64
}

type CardConfig struct {
	TokenKey string
}

type CORSConfig struct {
	AllowOrigins []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "ridepay"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Mode:         normalizeMode(getenv("APP_MODE", ModeAll)),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ridepay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getenvBool("RATE_LIMIT_ENABLED", false),
			UserRate:  getenvFloat("RATE_LIMIT_USER_RATE", 5),
			UserBurst: int(getenvInt64("RATE_LIMIT_USER_BURST", 20)),
			LockTTL:   getenvDuration("LOCK_TTL", 30*time.Second),
			LockWait:  getenvDuration("LOCK_WAIT", 5*time.Second),
		},
		Gateway: GatewayConfig{
			BaseURL:       strings.TrimRight(getenv("GATEWAY_BASE_URL", "https://webtx.tpay.co.kr/api/v1"), "/"),
			Timeout:       getenvDuration("GATEWAY_TIMEOUT", 15*time.Second),
			RatePerSecond: getenvFloat("GATEWAY_RATE_PER_SECOND", 20),
			Burst:         int(getenvInt64("GATEWAY_BURST", 10)),
		},
		PaymentKey: PaymentKeyConfig{
			Name:      getenv("PAYMENT_KEY_NAME", "primary"),
			Identity:  strings.TrimSpace(getenv("PAYMENT_KEY_IDENTITY", "")),
			SecretKey: strings.TrimSpace(getenv("PAYMENT_KEY_SECRET", "")),
		},
		CoreService: CoreServiceConfig{
			AccountsURL:   strings.TrimRight(getenv("CORESERVICE_ACCOUNTS_URL", ""), "/"),
			AccountsKey:   strings.TrimSpace(getenv("CORESERVICE_ACCOUNTS_KEY", "")),
			RideURL:       strings.TrimRight(getenv("CORESERVICE_RIDE_URL", ""), "/"),
			RideKey:       strings.TrimSpace(getenv("CORESERVICE_RIDE_KEY", "")),
			PaymentsURL:   getenv("CORESERVICE_PAYMENTS_URL", "https://coreservice.hikick.kr/v1/payments"),
			Audience:      getenv("CORESERVICE_AUDIENCE", "system@hikick.kr"),
			MonitoringURL: strings.TrimRight(getenv("CORESERVICE_MONITORING_URL", ""), "/"),
			MonitoringKey: strings.TrimSpace(getenv("CORESERVICE_MONITORING_KEY", "")),
			Timeout:       getenvDuration("CORESERVICE_TIMEOUT", 10*time.Second),
		},
		Platform: PlatformConfig{
			URL:       strings.TrimRight(getenv("PLATFORM_URL", ""), "/"),
			AccessKey: strings.TrimSpace(getenv("PLATFORM_ACCESS_KEY", "")),
			Timeout:   getenvDuration("PLATFORM_TIMEOUT", 10*time.Second),
		},
		Internal: InternalAuthConfig{
			Secret:          strings.TrimSpace(getenv("CORESERVICE_PAYMENTS_KEY", "")),
			Subject:         getenv("INTERNAL_TOKEN_SUBJECT", "coreservice-payments"),
			MaxLifetime:     getenvDuration("INTERNAL_TOKEN_MAX_LIFETIME", 6*time.Hour),
			SessionCacheTTL: getenvDuration("SESSION_CACHE_TTL", 30*time.Second),
		},
		Messaging: MessagingConfig{
			URL:   strings.TrimSpace(getenv("RABBITMQ_URL", "")),
			Queue: getenv("MESSAGE_GATEWAY_QUEUE", "message-gateway"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getenvBool("SCHEDULER_ENABLED", true),
			UnpaidInterval: getenvDuration("SCHEDULER_UNPAID_INTERVAL", 10*time.Minute),
			UnpaidTimeout:  getenvDuration("SCHEDULER_UNPAID_TIMEOUT", 5*time.Minute),
			Parallelism:    int(getenvInt64("SCHEDULER_PARALLELISM", 10)),
			MonitorID:      strings.TrimSpace(getenv("SCHEDULER_MONITOR_ID", "")),
		},
		Centercoin: CentercoinConfig{
			Enabled: getenvBool("CENTERCOIN_REWARD_ENABLED", false),
			Ratio:   getenvFloat("CENTERCOIN_REWARD_RATIO", 0.1),
		},
		Card: CardConfig{
			TokenKey: strings.TrimSpace(getenv("CARD_TOKEN_KEY", "")),
		},
		CORS: CORSConfig{
			AllowOrigins: parseList(getenv("CORS_ALLOW_ORIGINS", "*")),
		},
	}

	return cfg
}

const (
	ModeAll       = "all"
	ModeAPI       = "api"
	ModeScheduler = "scheduler"
)

// RunsScheduler reports whether this process should drive the unpaid sweep.
func (c Config) RunsScheduler() bool {
	return c.Scheduler.Enabled && c.Mode != ModeAPI
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ModeAPI, ModeScheduler:
		return value
	default:
		return ModeAll
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

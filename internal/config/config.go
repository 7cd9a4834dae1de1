package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	MySQLUser     string
	MySQLPassword string
	MySQLHost     string
	MySQLPort     string
	MySQLDatabase string

	RedisAddr string
	CacheTTL  time.Duration

	RabbitMQURL    string
	NotifyExchange string

	KafkaBrokers []string
	KafkaTopic   string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayCurrency  string
	GatewayTimeout   time.Duration

	MessagingBaseURL string
	MessagingTimeout time.Duration

	ProductServiceURL string
	UserServiceURL    string
	ClientTimeout     time.Duration

	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int
	OutboxBatchSize    int
	SideEffectTimeout  time.Duration
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config: invalid duration, using default", "key", k, "value", v, "default", def)
		return def
	}
	return d
}

func getint(k string, def int) int {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config: invalid integer, using default", "key", k, "value", v, "default", def)
		return def
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads the environment, after loading .env when present.
func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: parseLevel(getenv("LOG_LEVEL", "info")),

		MySQLUser:     getenv("MYSQL_USER", "shopeasy"),
		MySQLPassword: getenv("MYSQL_PASSWORD", ""),
		MySQLHost:     getenv("MYSQL_HOST", "localhost"),
		MySQLPort:     getenv("MYSQL_PORT", "3306"),
		MySQLDatabase: getenv("MYSQL_DATABASE", "shopeasy"),

		RedisAddr: getenv("REDIS_ADDR", ""),
		CacheTTL:  getduration("CACHE_TTL", time.Hour),

		RabbitMQURL:    getenv("RABBITMQ_URL", ""),
		NotifyExchange: getenv("NOTIFY_EXCHANGE", "notifications.exchange"),

		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "orders.events"),

		GatewayBaseURL:   strings.TrimRight(getenv("GATEWAY_BASE_URL", "https://api.razorpay.com"), "/"),
		GatewayKeyID:     getenv("GATEWAY_KEY_ID", ""),
		GatewayKeySecret: getenv("GATEWAY_KEY_SECRET", ""),
		GatewayCurrency:  getenv("GATEWAY_CURRENCY", "INR"),
		GatewayTimeout:   getduration("GATEWAY_TIMEOUT", 5*time.Second),

		MessagingBaseURL: strings.TrimRight(getenv("MESSAGING_BASE_URL", ""), "/"),
		MessagingTimeout: getduration("MESSAGING_TIMEOUT", 3*time.Second),

		ProductServiceURL: strings.TrimRight(getenv("PRODUCT_SERVICE_URL", ""), "/"),
		UserServiceURL:    strings.TrimRight(getenv("USER_SERVICE_URL", ""), "/"),
		ClientTimeout:     getduration("CLIENT_TIMEOUT", 2*time.Second),

		OutboxPollInterval: getduration("OUTBOX_POLL_INTERVAL", 10*time.Second),
		OutboxMaxAttempts:  getint("OUTBOX_MAX_ATTEMPTS", 6),
		OutboxBatchSize:    getint("OUTBOX_BATCH_SIZE", 50),
		SideEffectTimeout:  getduration("SIDE_EFFECT_TIMEOUT", 15*time.Second),
	}
	slog.Info("config loaded",
		"port", cfg.Port,
		"mysql_host", cfg.MySQLHost,
		"redis", cfg.RedisAddr != "",
		"rabbitmq", cfg.RabbitMQURL != "",
		"kafka_brokers", len(cfg.KafkaBrokers),
		"gateway", cfg.GatewayBaseURL,
	)
	return cfg
}

// MySQLDSN builds the go-sql-driver DSN used by the gorm mysql driver.
func (c Config) MySQLDSN() string {
	return c.MySQLUser + ":" + c.MySQLPassword + "@tcp(" + c.MySQLHost + ":" + c.MySQLPort + ")/" + c.MySQLDatabase +
		"?charset=utf8mb4&parseTime=True&loc=UTC"
}

package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Log      LogConfig
	Pricing  PricingConfig
	Delivery DeliveryConfig
	Outbox   OutboxConfig
	Manager  ManagerConfig

	SystemActorID   string
	SystemActorName string
	TxMaxAttempts   int
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	TimeZone string
	LogSQL   bool
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
	IdleTimeout time.Duration // 0 disables the inactivity check
}

// ManagerConfig seeds the first manager account on an empty database.
type ManagerConfig struct {
	Email    string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type LogConfig struct {
	Mode       string // production | development
	Level      string
	FileEnable bool
	Filename   string
}

type PricingConfig struct {
	DefaultTaxRate decimal.Decimal
}

// DeliveryConfig is the region fee table. Keys are lower-cased region names.
type DeliveryConfig struct {
	FlatFee     int64
	FreeRegions []string
	RegionFees  map[string]int64
}

type OutboxConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_LOG_SQL", false)
	v.SetDefault("JWT_SECRET", "your-super-secret-key-change-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 12)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "0s")
	v.SetDefault("BOOTSTRAP_MANAGER_NAME", "Store Manager")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "retail")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "logs/retail-core.log")
	v.SetDefault("TAX_DEFAULT_RATE", "0.15")
	v.SetDefault("DELIVERY_FLAT_FEE", 500)
	v.SetDefault("OUTBOX_INTERVAL", "5s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 10)
	v.SetDefault("SYSTEM_ACTOR_ID", "system")
	v.SetDefault("SYSTEM_ACTOR_NAME", "Storefront")
	v.SetDefault("TX_MAX_ATTEMPTS", 3)
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		zap.S().Info("no .env file found, using process environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	taxRate, err := decimal.NewFromString(v.GetString("TAX_DEFAULT_RATE"))
	if err != nil {
		zap.S().Warnf("invalid TAX_DEFAULT_RATE %q, falling back to 0.15", v.GetString("TAX_DEFAULT_RATE"))
		taxRate = decimal.RequireFromString("0.15")
	}

	return &Config{
		Port: v.GetString("PORT"),
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			TimeZone: v.GetString("DB_TIMEZONE"),
			LogSQL:   v.GetBool("DB_LOG_SQL"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
			IdleTimeout: v.GetDuration("SESSION_IDLE_TIMEOUT"),
		},
		Redis: RedisConfig{Addr: v.GetString("REDIS_ADDR")},
		Kafka: KafkaConfig{
			Brokers:     splitCSV(v.GetString("KAFKA_BROKERS")),
			TopicPrefix: v.GetString("KAFKA_TOPIC_PREFIX"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Log: LogConfig{
			Mode:       v.GetString("LOG_MODE"),
			Level:      v.GetString("LOG_LEVEL"),
			FileEnable: v.GetBool("LOG_FILE_ENABLE"),
			Filename:   v.GetString("LOG_FILE"),
		},
		Pricing: PricingConfig{DefaultTaxRate: taxRate},
		Delivery: DeliveryConfig{
			FlatFee:     v.GetInt64("DELIVERY_FLAT_FEE"),
			FreeRegions: splitCSV(strings.ToLower(v.GetString("DELIVERY_FREE_REGIONS"))),
			RegionFees:  parseRegionFees(v.GetString("DELIVERY_REGION_FEES")),
		},
		Outbox: OutboxConfig{
			Interval:    v.GetDuration("OUTBOX_INTERVAL"),
			BatchSize:   v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts: v.GetInt("OUTBOX_MAX_ATTEMPTS"),
		},
		Manager: ManagerConfig{
			Email:    v.GetString("BOOTSTRAP_MANAGER_EMAIL"),
			Password: v.GetString("BOOTSTRAP_MANAGER_PASSWORD"),
			Name:     v.GetString("BOOTSTRAP_MANAGER_NAME"),
		},
		SystemActorID:   v.GetString("SYSTEM_ACTOR_ID"),
		SystemActorName: v.GetString("SYSTEM_ACTOR_NAME"),
		TxMaxAttempts:   v.GetInt("TX_MAX_ATTEMPTS"),
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseRegionFees reads "north=700,south=900" into a fee table.
func parseRegionFees(s string) map[string]int64 {
	fees := make(map[string]int64)
	for _, pair := range splitCSV(s) {
		k, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			zap.S().Warnf("ignoring delivery fee entry %q", pair)
			continue
		}
		fees[strings.ToLower(strings.TrimSpace(k))] = d.IntPart()
	}
	return fees
}

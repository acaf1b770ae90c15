package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Store     StoreConfig
	Sales     SalesConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// StoreConfig selects the persistence backends and lists the physical stores.
type StoreConfig struct {
	Backend        string // postgres | memory
	CounterBackend string // postgres | redis | memory
	Names          []string
	MigrationsDir  string
}

// SalesConfig carries transaction engine tunables. The exchange rate and
// loyalty values seed the settings record when it is still empty.
type SalesConfig struct {
	PaymentEpsilon      decimal.Decimal
	CASRetries          uint64
	CASBackoff          time.Duration
	DefaultExchangeRate decimal.Decimal
	PointValue          decimal.Decimal
	EarnRate            decimal.Decimal
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// HasStore reports whether name is one of the configured stores.
func (s StoreConfig) HasStore(name string) bool {
	for _, n := range s.Names {
		if n == name {
			return true
		}
	}
	return false
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("STORE_BACKEND", "postgres")
	viper.SetDefault("COUNTER_BACKEND", "postgres")
	viper.SetDefault("STORE_NAMES", "central,sucursal")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("PAYMENT_EPSILON", "0.01")
	viper.SetDefault("CAS_RETRIES", 8)
	viper.SetDefault("CAS_BACKOFF", "10ms")
	viper.SetDefault("DEFAULT_EXCHANGE_RATE", "0")
	viper.SetDefault("POINT_VALUE", "0")
	viper.SetDefault("EARN_RATE", "0")
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 120)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Store: StoreConfig{
			Backend:        viper.GetString("STORE_BACKEND"),
			CounterBackend: viper.GetString("COUNTER_BACKEND"),
			Names:          splitList(viper.GetString("STORE_NAMES")),
			MigrationsDir:  viper.GetString("MIGRATIONS_DIR"),
		},
		Sales: SalesConfig{
			PaymentEpsilon:      getDecimal("PAYMENT_EPSILON"),
			CASRetries:          viper.GetUint64("CAS_RETRIES"),
			CASBackoff:          viper.GetDuration("CAS_BACKOFF"),
			DefaultExchangeRate: getDecimal("DEFAULT_EXCHANGE_RATE"),
			PointValue:          getDecimal("POINT_VALUE"),
			EarnRate:            getDecimal("EARN_RATE"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  viper.GetBool("RATE_LIMIT_ENABLED"),
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

func getDecimal(key string) decimal.Decimal {
	d, err := decimal.NewFromString(viper.GetString(key))
	if err != nil {
		log.Printf("Warning: invalid decimal for %s: %v", key, err)
		return decimal.Zero
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

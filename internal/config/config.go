package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string
	GinMode string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxOpenConns int
	DBMaxIdleConns int
	// StoreTimeout bounds every store round-trip made by the lifecycle engine.
	StoreTimeout time.Duration

	JWTSecret     string
	SessionCookie string
	CookieSecure  bool
	TokenTTL      time.Duration

	// InstitutionCode is prefixed to bare dddd/dd student ids.
	InstitutionCode string
	ShortCodeLength int

	// Redis is optional; an empty address disables gate rate limiting.
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	GateVerifyPerMinute int

	// MaintenanceTokenHash is a bcrypt hash; empty disables maintenance routes.
	MaintenanceTokenHash string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Port:                 v.GetString("PORT"),
		GinMode:              v.GetString("GIN_MODE"),
		DBHost:               v.GetString("DB_HOST"),
		DBPort:               v.GetString("DB_PORT"),
		DBUser:               v.GetString("DB_USER"),
		DBPassword:           v.GetString("DB_PASSWORD"),
		DBName:               v.GetString("DB_NAME"),
		DBSSLMode:            v.GetString("DB_SSLMODE"),
		DBMaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
		StoreTimeout:         v.GetDuration("STORE_TIMEOUT"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		SessionCookie:        v.GetString("SESSION_COOKIE"),
		CookieSecure:         v.GetBool("COOKIE_SECURE"),
		TokenTTL:             v.GetDuration("TOKEN_TTL"),
		InstitutionCode:      strings.ToUpper(strings.TrimSpace(v.GetString("INSTITUTION_CODE"))),
		ShortCodeLength:      v.GetInt("SHORT_CODE_LENGTH"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		GateVerifyPerMinute:  v.GetInt("GATE_VERIFY_PER_MINUTE"),
		MaintenanceTokenHash: v.GetString("MAINTENANCE_TOKEN_HASH"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "exit_slip")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("JWT_SECRET", "supersecret_change_me")
	v.SetDefault("SESSION_COOKIE", "exit_session")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("INSTITUTION_CODE", "ETS")
	v.SetDefault("SHORT_CODE_LENGTH", 6)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GATE_VERIFY_PER_MINUTE", 30)
	v.SetDefault("MAINTENANCE_TOKEN_HASH", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

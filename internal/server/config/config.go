// Package config загружает настройки сервера: значения по умолчанию,
// затем .env и конфигурационный файл, затем переменные окружения GENNOTES_SERVER_*,
// затем флаги командной строки.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения сервера
const EnvPrefix = "GENNOTES_SERVER"

// Ключи настроек; совпадают с именами флагов
const (
	KeyAddr            = "addr"
	KeyDB              = "db"
	KeyJWTSecret       = "jwt-secret"
	KeyAccessTTL       = "access-token-ttl"
	KeyRateLimit       = "rate-limit"
	KeyAuthRateLimit   = "auth-rate-limit"
	KeyRateWindow      = "rate-window"
	KeyDailySync       = "daily-sync"
	KeyShutdownTimeout = "shutdown-timeout"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyLogFile         = "log-file"
)

// Config настройки сервера
type Config struct {
	Addr            string
	DBPath          string
	JWTSecret       string
	DailySyncSpec   string
	LogLevel        string
	LogFormat       string
	LogFile         string
	AccessTokenTTL  time.Duration
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	AuthRateLimit   int
}

// Defaults возвращает настройки по умолчанию
func Defaults() map[string]any {
	return map[string]any{
		KeyAddr:            ":8080",
		KeyDB:              "gennotes.db",
		KeyJWTSecret:       "",
		KeyAccessTTL:       24 * time.Hour,
		KeyRateLimit:       300,
		KeyAuthRateLimit:   10,
		KeyRateWindow:      time.Minute,
		KeyDailySync:       "0 0 3 * * *",
		KeyShutdownTimeout: 10 * time.Second,
		KeyLogLevel:        "info",
		KeyLogFormat:       "text",
		KeyLogFile:         "",
	}
}

// RegisterFlags добавляет флаги сервера в набор
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(KeyAddr, d[KeyAddr].(string), "HTTP listen address")
	fs.String(KeyDB, d[KeyDB].(string), "path to SQLite database")
	fs.String(KeyJWTSecret, "", "HMAC secret for access tokens")
	fs.Duration(KeyAccessTTL, d[KeyAccessTTL].(time.Duration), "access token lifetime")
	fs.Int(KeyRateLimit, d[KeyRateLimit].(int), "requests per rate window per client")
	fs.Int(KeyAuthRateLimit, d[KeyAuthRateLimit].(int), "auth requests per rate window per client")
	fs.Duration(KeyRateWindow, d[KeyRateWindow].(time.Duration), "rate limit window")
	fs.String(KeyDailySync, d[KeyDailySync].(string), "cron schedule of the daily-sync push (with seconds)")
	fs.Duration(KeyShutdownTimeout, d[KeyShutdownTimeout].(time.Duration), "graceful shutdown timeout")
	fs.String(KeyLogLevel, d[KeyLogLevel].(string), "log level: debug, info, warn, error")
	fs.String(KeyLogFormat, d[KeyLogFormat].(string), "log format: text or json")
	fs.String(KeyLogFile, "", "log file path (rotated); empty logs to stderr")
	fs.String("config", "", "path to config file (yaml, json or toml)")
	fs.String("env-file", ".env", "path to .env file")
}

// Load собирает настройки из всех источников.
// flags может быть nil; отсутствующие .env и конфигурационный файл не являются ошибкой,
// если путь к файлу не задан явно.
func Load(flags *pflag.FlagSet) (*Config, error) {
	envFile := ".env"
	configFile := ""
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{
		Addr:            v.GetString(KeyAddr),
		DBPath:          v.GetString(KeyDB),
		JWTSecret:       v.GetString(KeyJWTSecret),
		AccessTokenTTL:  v.GetDuration(KeyAccessTTL),
		RateLimit:       v.GetInt(KeyRateLimit),
		AuthRateLimit:   v.GetInt(KeyAuthRateLimit),
		RateWindow:      v.GetDuration(KeyRateWindow),
		DailySyncSpec:   v.GetString(KeyDailySync),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		LogFile:         v.GetString(KeyLogFile),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access-token-ttl must be positive"))
	}
	if c.RateLimit <= 0 || c.AuthRateLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, errors.New("rate-window must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid server config: %w", errors.Join(errs...))
	}
	return nil
}

// Package config загружает настройки клиента: значения по умолчанию,
// конфигурационный файл, переменные окружения GENNOTES_*, флаги командной строки.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения клиента
const EnvPrefix = "GENNOTES"

// Ключи настроек; совпадают с именами флагов
const (
	KeyServer        = "server"
	KeyDataDir       = "data-dir"
	KeyDB            = "db"
	KeyOnlineCheck   = "online-check-interval"
	KeyBackground    = "background"
	KeyPeriodicSync  = "periodic-sync"
	KeyLogLevel      = "log-level"
	KeyLogFile       = "log-file"
	KeyConfig        = "config"
	configName       = "config"
	defaultDBName    = "gennotes.db"
	defaultDirName   = ".gennotes"
	defaultServerURL = "http://localhost:8080"
)

// Config настройки клиента
type Config struct {
	ServerURL string
	DataDir   string
	DBPath    string
	LogLevel  string
	// LogFile файл журнала демона; пусто = stderr
	LogFile string
	// OnlineCheckInterval период опроса /health
	OnlineCheckInterval time.Duration
	// PeriodicSync интервал периодической фоновой синхронизации; 0 = выключено
	PeriodicSync time.Duration
	// Background разрешает фоновую синхронизацию в демоне
	Background bool
}

// DefaultDataDir каталог данных клиента: ~/.gennotes, либо ./.gennotes без домашнего каталога
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

// Defaults возвращает настройки по умолчанию
func Defaults() map[string]any {
	return map[string]any{
		KeyServer:       defaultServerURL,
		KeyDataDir:      DefaultDataDir(),
		KeyDB:           "",
		KeyOnlineCheck:  3 * time.Second,
		KeyBackground:   true,
		KeyPeriodicSync: 15 * time.Minute,
		KeyLogLevel:     "info",
		KeyLogFile:      "",
	}
}

// RegisterFlags добавляет флаги клиента в набор
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(KeyServer, d[KeyServer].(string), "server URL")
	fs.String(KeyDataDir, d[KeyDataDir].(string), "directory for local database, signal file and logs")
	fs.String(KeyDB, "", "path to local database (default <data-dir>/"+defaultDBName+")")
	fs.Duration(KeyOnlineCheck, d[KeyOnlineCheck].(time.Duration), "server reachability check interval")
	fs.Bool(KeyBackground, d[KeyBackground].(bool), "enable background sync in the daemon")
	fs.Duration(KeyPeriodicSync, d[KeyPeriodicSync].(time.Duration), "periodic background sync interval, 0 disables")
	fs.String(KeyLogLevel, d[KeyLogLevel].(string), "log level: debug, info, warn, error")
	fs.String(KeyLogFile, "", "daemon log file (rotated)")
	fs.String(KeyConfig, "", "path to config file (default <data-dir>/config.yaml)")
}

// Load собирает настройки из всех источников; flags может быть nil.
// Явно указанный конфигурационный файл обязан существовать, файл в data-dir необязателен.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile := v.GetString(KeyConfig); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(v.GetString(KeyDataDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		ServerURL:           strings.TrimRight(v.GetString(KeyServer), "/"),
		DataDir:             v.GetString(KeyDataDir),
		DBPath:              v.GetString(KeyDB),
		OnlineCheckInterval: v.GetDuration(KeyOnlineCheck),
		Background:          v.GetBool(KeyBackground),
		PeriodicSync:        v.GetDuration(KeyPeriodicSync),
		LogLevel:            v.GetString(KeyLogLevel),
		LogFile:             v.GetString(KeyLogFile),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, defaultDBName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data-dir is required"))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("online-check-interval must be positive"))
	}
	if c.PeriodicSync < 0 {
		errs = append(errs, errors.New("periodic-sync must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid client config: %w", errors.Join(errs...))
	}
	return nil
}

// EnsureDataDir создает каталог данных
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"

	"feedwatch/internal/types"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	Feed    FeedConfig
	MQTT    MQTTConfig
	Sensors []types.SensorConfig
}

// FeedConfig describes the polled channel and the timing of the health checks.
type FeedConfig struct {
	BaseURL          string
	ChannelID        string
	APIKey           string
	UpdateInterval   time.Duration
	StaleThreshold   time.Duration
	WatchdogInterval time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	RequestTimeout   time.Duration
	HistoryResults   int
}

type MQTTConfig struct {
	Enabled   bool
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	Topic     string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := envString("HTTP_ADDR", ":8080")

	driver := envString("DB_DRIVER", "sqlite3")
	dsn := envString("DB_DSN", "")
	path := envString("SQLITE_PATH", "data/feedwatch.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}

	feed, err := loadFeed()
	if err != nil {
		return Config{}, err
	}

	mqttCfg, err := loadMQTT(feed.ChannelID)
	if err != nil {
		return Config{}, err
	}

	sensors := types.DefaultSensors()
	if sensorsFile := envString("SENSORS_FILE", ""); sensorsFile != "" {
		sensors, err = LoadSensors(sensorsFile)
		if err != nil {
			return Config{}, fmt.Errorf("SENSORS_FILE %q: %w", sensorsFile, err)
		}
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		Feed:                  feed,
		MQTT:                  mqttCfg,
		Sensors:               sensors,
	}, nil
}

func loadFeed() (FeedConfig, error) {
	var err error
	f := FeedConfig{
		BaseURL:   strings.TrimRight(envString("FEED_BASE_URL", "https://api.thingspeak.com/channels"), "/"),
		ChannelID: envString("FEED_CHANNEL_ID", "3216999"),
		APIKey:    envString("FEED_API_KEY", ""),
	}
	if f.ChannelID == "" {
		return FeedConfig{}, fmt.Errorf("FEED_CHANNEL_ID must not be empty")
	}

	if f.UpdateInterval, err = envDuration("UPDATE_INTERVAL", 15*time.Minute); err != nil {
		return FeedConfig{}, err
	}
	if f.StaleThreshold, err = envDuration("STALE_THRESHOLD", 20*time.Minute); err != nil {
		return FeedConfig{}, err
	}
	if f.WatchdogInterval, err = envDuration("WATCHDOG_INTERVAL", 30*time.Second); err != nil {
		return FeedConfig{}, err
	}
	if f.RetryDelay, err = envDuration("RETRY_DELAY", 2*time.Second); err != nil {
		return FeedConfig{}, err
	}
	if f.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return FeedConfig{}, err
	}
	if f.MaxRetries, err = envInt("MAX_RETRIES", 3); err != nil {
		return FeedConfig{}, err
	}
	if f.HistoryResults, err = envInt("HISTORY_RESULTS", 500); err != nil {
		return FeedConfig{}, err
	}

	for name, d := range map[string]time.Duration{
		"UPDATE_INTERVAL":   f.UpdateInterval,
		"STALE_THRESHOLD":   f.StaleThreshold,
		"WATCHDOG_INTERVAL": f.WatchdogInterval,
		"REQUEST_TIMEOUT":   f.RequestTimeout,
	} {
		if d <= 0 {
			return FeedConfig{}, fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if f.RetryDelay < 0 {
		return FeedConfig{}, fmt.Errorf("RETRY_DELAY must not be negative, got %v", f.RetryDelay)
	}
	if f.MaxRetries < 1 {
		return FeedConfig{}, fmt.Errorf("MAX_RETRIES must be >= 1, got %d", f.MaxRetries)
	}
	if f.HistoryResults < 1 || f.HistoryResults > 8000 {
		return FeedConfig{}, fmt.Errorf("HISTORY_RESULTS must be within 1..8000, got %d", f.HistoryResults)
	}
	return f, nil
}

func loadMQTT(channelID string) (MQTTConfig, error) {
	enabledStr := envString("MQTT_ENABLED", "false")
	enabled, err := strconv.ParseBool(enabledStr)
	if err != nil {
		return MQTTConfig{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", enabledStr, err)
	}
	return MQTTConfig{
		Enabled:   enabled,
		BrokerURL: envString("MQTT_BROKER_URL", "wss://mqtt3.thingspeak.com:443/mqtt"),
		ClientID:  envString("MQTT_CLIENT_ID", "feedwatch"),
		Username:  envString("MQTT_USERNAME", ""),
		Password:  envString("MQTT_PASSWORD", ""),
		Topic:     envString("MQTT_TOPIC", "channels/"+channelID+"/subscribe"),
	}, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

// ParseDuration accepts Go duration syntax ("15m") or ISO 8601 ("PT15M").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToUpper(s), "P") {
		d, err := duration.Parse(strings.ToUpper(s))
		if err != nil {
			return 0, err
		}
		return d.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

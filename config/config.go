package config

import (
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"os"
	"strings"
	"time"
)

// Config holds everything the process needs at start up
type Config struct {
	TelegramBotToken string
	APIProKey        string
	Debug            bool
	Lang             string
	MetricsPort      int
	LogFile          string

	StoreDriver   string
	AlertsPath    string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	AIKey   string
	AIURL   string
	AIModel string

	AlertCheckInterval time.Duration
	ReportSchedule     string
	ReportTimezone     string

	UpstreamTimeout   time.Duration
	UpstreamRateLimit float64
}

var bindings = map[string]string{
	"telegram_bot_token":   "TELEGRAM_BOT_TOKEN",
	"api_pro_key":          "API_PRO_KEY",
	"debug":                "DEBUG",
	"lang":                 "LANG",
	"metrics_port":         "METRICS_PORT",
	"log_file":             "LOG_FILE",
	"store_driver":         "STORE_DRIVER",
	"alerts_path":          "ALERTS_PATH",
	"db_path":              "DB_PATH",
	"redis_addr":           "REDIS_ADDR",
	"redis_password":       "REDIS_PASSWORD",
	"redis_db":             "REDIS_DB",
	"redis_key":            "REDIS_KEY",
	"dobby_api_key":        "DOBBY_API_KEY",
	"dobby_api_url":        "DOBBY_API_URL",
	"dobby_model":          "DOBBY_MODEL",
	"alert_check_interval": "ALERT_CHECK_INTERVAL",
	"report_schedule":      "REPORT_SCHEDULE",
	"report_timezone":      "REPORT_TIMEZONE",
	"upstream_timeout":     "UPSTREAM_TIMEOUT",
	"upstream_rate_limit":  "UPSTREAM_RATE_LIMIT",
}

// Load reads an optional .env file and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "could not load .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, env := range bindings {
		v.BindEnv(key, env)
	}

	v.SetDefault("metrics_port", 9090)
	v.SetDefault("debug", false)
	v.SetDefault("lang", "en")
	v.SetDefault("store_driver", "file")
	v.SetDefault("alerts_path", "data/alerts.json")
	v.SetDefault("db_path", "data/bot.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key", "oracle:alerts")
	v.SetDefault("dobby_api_url", "https://api.fireworks.ai/inference/v1/chat/completions")
	v.SetDefault("dobby_model", "accounts/sentientfoundation-serverless/models/dobby-mini-unhinged-plus-llama-3-1-8b")
	v.SetDefault("alert_check_interval", time.Minute)
	v.SetDefault("report_schedule", "0 9 * * *")
	v.SetDefault("report_timezone", "UTC")
	v.SetDefault("upstream_timeout", 30*time.Second)
	v.SetDefault("upstream_rate_limit", 5.0)

	c := &Config{
		TelegramBotToken:   v.GetString("telegram_bot_token"),
		APIProKey:          v.GetString("api_pro_key"),
		Debug:              v.GetBool("debug"),
		Lang:               strings.ToLower(v.GetString("lang")),
		MetricsPort:        v.GetInt("metrics_port"),
		LogFile:            v.GetString("log_file"),
		StoreDriver:        strings.ToLower(v.GetString("store_driver")),
		AlertsPath:         v.GetString("alerts_path"),
		DBPath:             v.GetString("db_path"),
		RedisAddr:          v.GetString("redis_addr"),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		RedisKey:           v.GetString("redis_key"),
		AIKey:              v.GetString("dobby_api_key"),
		AIURL:              v.GetString("dobby_api_url"),
		AIModel:            v.GetString("dobby_model"),
		AlertCheckInterval: v.GetDuration("alert_check_interval"),
		ReportSchedule:     v.GetString("report_schedule"),
		ReportTimezone:     v.GetString("report_timezone"),
		UpstreamTimeout:    v.GetDuration("upstream_timeout"),
		UpstreamRateLimit:  v.GetFloat64("upstream_rate_limit"),
	}

	return c, c.validate()
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "file", "sqlite", "redis":
	default:
		return errors.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.AlertCheckInterval <= 0 {
		return errors.Errorf("alert check interval must be positive, got %s", c.AlertCheckInterval)
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return errors.Wrapf(err, "invalid report timezone %q", c.ReportTimezone)
	}
	return nil
}

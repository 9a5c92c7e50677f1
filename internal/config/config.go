package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type RunMode string

const (
	RunModeManual    RunMode = "MANUAL"
	RunModeScheduled RunMode = "SCHEDULED"
)

type Config struct {
	Notify   NotifyConfig
	Schedule ScheduleConfig
	Withings ProviderConfig
	Fitbit   ProviderConfig
	Data     DataConfig
	Server   ServerConfig
	Misc     MiscConfig
}

type NotifyConfig struct {
	PushoverUser  string
	PushoverToken string
	Title         string `validate:"required"`
}

// Enabled reports whether both Pushover credentials are present.
func (n NotifyConfig) Enabled() bool {
	return n.PushoverUser != "" && n.PushoverToken != ""
}

type ScheduleConfig struct {
	Cron     string  `validate:"required"`
	Timezone string  `validate:"required"`
	RunMode  RunMode `validate:"required,oneof=MANUAL SCHEDULED"`

	// Location is resolved from Timezone by validate.
	Location *time.Location
}

type ProviderConfig struct {
	ClientID     string `validate:"required"`
	ClientSecret string
	RefreshToken string
	APIURL       string `validate:"required,url"`
	TokenURL     string `validate:"required,url"`
}

type DataConfig struct {
	TokenCacheDir string `validate:"required"`
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutDownTimeout time.Duration
	RequestTimeout  time.Duration
}

type MiscConfig struct {
	Debug             bool
	LogLevel          string
	HTTPTimeout       time.Duration
	Env               string
	HoneybadgerAPIKey string
}

// envBindings maps viper keys to the environment variables that feed them.
var envBindings = map[string]string{
	"notify.pushover_user":     "PUSHOVER_USER",
	"notify.pushover_token":    "PUSHOVER_TOKEN",
	"notify.title":             "NOTIFY_TITLE",
	"schedule.cron":            "CRON",
	"schedule.timezone":        "TIMEZONE_STRING",
	"schedule.run_mode":        "RUN_MODE",
	"withings.client_id":       "WITHINGS_CLIENT_ID",
	"withings.client_secret":   "WITHINGS_CLIENT_SECRET",
	"withings.refresh_token":   "WITHINGS_REFRESH_TOKEN",
	"withings.api_url":         "WITHINGS_API_URL",
	"withings.token_url":       "WITHINGS_TOKEN_URL",
	"fitbit.client_id":         "FITBIT_CLIENT_ID",
	"fitbit.client_secret":     "FITBIT_CLIENT_SECRET",
	"fitbit.refresh_token":     "FITBIT_REFRESH_TOKEN",
	"fitbit.api_url":           "FITBIT_API_URL",
	"fitbit.token_url":         "FITBIT_TOKEN_URL",
	"data.token_cache_dir":     "TOKEN_CACHE_DIR",
	"server.port":              "HTTP_PORT",
	"server.read_timeout":      "HTTP_READ_TIMEOUT",
	"server.write_timeout":     "HTTP_WRITE_TIMEOUT",
	"server.idle_timeout":      "HTTP_IDLE_TIMEOUT",
	"server.shutdown_timeout":  "HTTP_SHUTDOWN_TIMEOUT",
	"server.request_timeout":   "HTTP_REQUEST_TIMEOUT",
	"misc.debug":               "DEBUG",
	"misc.log_level":           "LOG_LEVEL",
	"misc.http_timeout":        "HTTP_TIMEOUT",
	"misc.env":                 "GO_ENV",
	"misc.honeybadger_api_key": "HONEYBADGER_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("notify.title", "Withings2Fitbit")
	v.SetDefault("schedule.cron", "0 12 * * *")
	v.SetDefault("schedule.timezone", "America/New_York")
	v.SetDefault("schedule.run_mode", string(RunModeScheduled))
	v.SetDefault("withings.api_url", "https://scalews.withings.com")
	v.SetDefault("withings.token_url", "https://wbsapi.withings.net/v2/oauth2")
	v.SetDefault("fitbit.api_url", "https://api.fitbit.com")
	v.SetDefault("fitbit.token_url", "https://api.fitbit.com/oauth2/token")
	v.SetDefault("data.token_cache_dir", ".")
	v.SetDefault("server.port", "0")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "3m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.request_timeout", "2m")
	v.SetDefault("misc.debug", "false")
	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.http_timeout", "30s")
	v.SetDefault("misc.env", "production")
}

// LoadConfig reads settings from an optional .env file, an optional
// config.yaml and the environment, in increasing order of precedence.
// The directory holding both files is WEIGHTSYNC_CONFIG_PATH (default ".").
func LoadConfig() (*Config, error) {
	confPath := getEnvOrDefault("WEIGHTSYNC_CONFIG_PATH", ".")

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(filepath.Join(confPath, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, newConfigError(".env", "cannot load dotenv file", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(confPath)
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, newConfigError(key, "cannot bind env "+env, err)
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, newConfigError("config.yaml", "cannot read config file", err)
		}
	}

	cfg := &Config{
		Notify: NotifyConfig{
			PushoverUser:  v.GetString("notify.pushover_user"),
			PushoverToken: v.GetString("notify.pushover_token"),
			Title:         v.GetString("notify.title"),
		},
		Schedule: ScheduleConfig{
			Cron:     strings.TrimSpace(v.GetString("schedule.cron")),
			Timezone: v.GetString("schedule.timezone"),
			RunMode:  RunMode(strings.ToUpper(strings.TrimSpace(v.GetString("schedule.run_mode")))),
		},
		Withings: providerFromViper(v, "withings"),
		Fitbit:   providerFromViper(v, "fitbit"),
		Data: DataConfig{
			TokenCacheDir: v.GetString("data.token_cache_dir"),
		},
		Misc: MiscConfig{
			LogLevel:          v.GetString("misc.log_level"),
			Env:               v.GetString("misc.env"),
			HoneybadgerAPIKey: v.GetString("misc.honeybadger_api_key"),
		},
	}

	var err error
	if cfg.Misc.Debug, err = parseBool(v, "misc.debug"); err != nil {
		return nil, err
	}
	if cfg.Misc.HTTPTimeout, err = parseDuration(v, "misc.http_timeout"); err != nil {
		return nil, err
	}
	if cfg.Server.Port, err = getEnvOrViperPort("HTTP_PORT", "server.port", v); err != nil {
		return nil, err
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"server.read_timeout", &cfg.Server.ReadTimeout},
		{"server.write_timeout", &cfg.Server.WriteTimeout},
		{"server.idle_timeout", &cfg.Server.IdleTimeout},
		{"server.shutdown_timeout", &cfg.Server.ShutDownTimeout},
		{"server.request_timeout", &cfg.Server.RequestTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(v, d.key); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerFromViper(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		ClientID:     v.GetString(prefix + ".client_id"),
		ClientSecret: v.GetString(prefix + ".client_secret"),
		RefreshToken: v.GetString(prefix + ".refresh_token"),
		APIURL:       strings.TrimRight(v.GetString(prefix+".api_url"), "/"),
		TokenURL:     v.GetString(prefix + ".token_url"),
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return newConfigError(fe.Namespace(), "failed '"+fe.Tag()+"' check", nil)
		}
		return newConfigError("", "invalid configuration", err)
	}

	if c.Withings.ClientSecret == "" {
		return newConfigError("Withings.ClientSecret", "is required", nil)
	}

	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return newConfigError("Schedule.Timezone", "unknown timezone "+c.Schedule.Timezone, err)
	}
	c.Schedule.Location = loc

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return newConfigError("Schedule.Cron", "invalid cron expression "+strconv.Quote(c.Schedule.Cron), err)
	}

	if c.Misc.HTTPTimeout <= 0 {
		return newConfigError("Misc.HTTPTimeout", "must be positive", nil)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return newConfigError("Server.Port", fmt.Sprintf("invalid port %d", c.Server.Port), nil)
	}
	if c.Server.Port > 0 {
		if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 || c.Server.ShutDownTimeout <= 0 {
			return newConfigError("Server", "timeouts must be positive", nil)
		}
		if c.Server.RequestTimeout <= 0 {
			return newConfigError("Server.RequestTimeout", "must be positive", nil)
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrViperPort prefers the raw environment value and falls back to viper.
func getEnvOrViperPort(envKey, viperKey string, v *viper.Viper) (int, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = v.GetString(viperKey)
	}
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, newConfigError(envKey, "invalid port "+strconv.Quote(raw), err)
	}
	return port, nil
}

// parseBool accepts only values understood by strconv.ParseBool, so a
// string like "no thanks" is rejected instead of silently read as true.
func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, newConfigError(envBindings[key], "invalid boolean "+strconv.Quote(raw), err)
	}
	return b, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, newConfigError(envBindings[key], "invalid duration "+strconv.Quote(raw), err)
	}
	return d, nil
}

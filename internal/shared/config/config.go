package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	SettingsPath string `koanf:"settings_path"`
	ContentDir   string `koanf:"content_dir"`
	TemplatesDir string `koanf:"templates_dir"`
	HTTPPort     string `koanf:"http_port"`
	HTTPTimeout  int    `koanf:"http_timeout"`

	// PublishInterval in seconds; serve publishes on this interval when positive
	PublishInterval int `koanf:"publish_interval"`

	RetryAttempts      int `koanf:"retry_attempts"`
	RetryMinDelayMS    int `koanf:"retry_min_delay_ms"`
	RetryMaxDelayMS    int `koanf:"retry_max_delay_ms"`
	HostRateIntervalMS int `koanf:"host_rate_interval_ms"`

	FeedConcurrency    int `koanf:"feed_concurrency"`
	ArticleConcurrency int `koanf:"article_concurrency"`
	ImageConcurrency   int `koanf:"image_concurrency"`

	ImageMaxWidth  int `koanf:"image_max_width"`
	ImageMaxHeight int `koanf:"image_max_height"`
	ImageQuality   int `koanf:"image_quality"`

	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramChatID   int64  `koanf:"telegram_chat_id"`
	TelegramAPIURL   string `koanf:"telegram_api_url"`

	AppEnv AppEnv `koanf:"app_env"`
}

// DefaultConfigFiles are tried in order when no explicit path is given
var DefaultConfigFiles = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"config.toml",
}

var defaults = map[string]any{
	"settings_path":         "setting.json",
	"content_dir":           "content",
	"templates_dir":         "",
	"http_port":             "8080",
	"http_timeout":          30,
	"publish_interval":      0,
	"retry_attempts":        3,
	"retry_min_delay_ms":    1000,
	"retry_max_delay_ms":    3000,
	"host_rate_interval_ms": 0,
	"feed_concurrency":      4,
	"article_concurrency":   8,
	"image_concurrency":     4,
	"image_max_width":       600,
	"image_max_height":      800,
	"image_quality":         75,
	"telegram_api_url":      "https://api.telegram.org",
	"app_env":               "production",
}

// Load reads configuration from path, or from the first existing default
// config file when path is empty. Environment variables override file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	configFile, found := path, path != ""
	if !found {
		// Use lo.Find to find the first existing config file
		configFile, found = lo.Find(DefaultConfigFiles, func(file string) bool {
			_, err := os.Stat(file)
			return err == nil
		})
	}

	if found {
		parser, err := parserFor(configFile)
		if err != nil {
			return nil, err
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	// SETTINGS_PATH -> settings_path
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if env, err := ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = env
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return nil, errors.ErrMissingChatID
	}

	return &cfg, nil
}

func parserFor(configFile string) (koanf.Parser, error) {
	switch ext := filepath.Ext(configFile); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, oops.Errorf("unsupported config file extension: %s", ext)
	}
}

// HTTPTimeoutDuration is the per-request timeout of the HTTP client
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// PublishIntervalDuration is the serve-mode publishing interval, 0 when disabled
func (c *Config) PublishIntervalDuration() time.Duration {
	return time.Duration(c.PublishInterval) * time.Second
}

func (c *Config) RetryMinDelay() time.Duration {
	return time.Duration(c.RetryMinDelayMS) * time.Millisecond
}

func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMS) * time.Millisecond
}

func (c *Config) HostRateInterval() time.Duration {
	return time.Duration(c.HostRateIntervalMS) * time.Millisecond
}

// NotificationsEnabled reports whether a Telegram notifier should be wired
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != ""
}

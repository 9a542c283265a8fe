package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"LeakScanner/internal/domain"
)

const (
	configPathEnv     = "LEAK_SCANNER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	logLevelEnv       = "LOG_LEVEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	githubTokenEnv    = "GITHUB_TOKEN"
	dashboardKeyEnv   = "DASHBOARD_API_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig          `yaml:"logging"`
	Thresholds domain.ThresholdConfig `yaml:"thresholds"`
	Guard      GuardConfig            `yaml:"guard"`
	Fetch      FetchConfig            `yaml:"fetch"`
	Delays     DelayConfig            `yaml:"delays"`
	Watchlist  []string               `yaml:"watchlist"`
	Sources    SourcesConfig          `yaml:"sources"`
	Storage    StorageConfig          `yaml:"storage"`
	Sinks      SinksConfig            `yaml:"sinks"`
	Artifacts  ArtifactsConfig        `yaml:"artifacts"`
	Metrics    MetricsConfig          `yaml:"metrics"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GuardConfig is the admission policy for full downloads.
type GuardConfig struct {
	MinFreeGB          float64       `yaml:"minFreeGB"`
	MaxCPUPercent      float64       `yaml:"maxCPUPercent"`
	MaxActiveDownloads int           `yaml:"maxActiveDownloads"`
	DiskPath           string        `yaml:"diskPath"`
	CPUWindow          time.Duration `yaml:"cpuWindow"`
}

// FetchConfig bounds the peek and full reads.
type FetchConfig struct {
	PeekBytes   int64         `yaml:"peekBytes"`
	MaxBytes    int64         `yaml:"maxBytes"`
	PeekTimeout time.Duration `yaml:"peekTimeout"`
	FullTimeout time.Duration `yaml:"fullTimeout"`
	UserAgent   string        `yaml:"userAgent"`
}

// DelayConfig holds the randomized politeness delays between candidates.
type DelayConfig struct {
	SkipMin  time.Duration `yaml:"skipMin"`
	SkipMax  time.Duration `yaml:"skipMax"`
	AfterMin time.Duration `yaml:"afterMin"`
	AfterMax time.Duration `yaml:"afterMax"`
}

// SourcesConfig groups per-source settings; each can be disabled.
type SourcesConfig struct {
	Paste    PasteConfig    `yaml:"paste"`
	Gist     GistConfig     `yaml:"gist"`
	Forum    ForumConfig    `yaml:"forum"`
	Breach   BreachConfig   `yaml:"breach"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// PasteConfig describes the paste archive source.
type PasteConfig struct {
	Enabled  bool          `yaml:"enabled"`
	BaseURL  string        `yaml:"baseUrl"`
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
}

// GistConfig describes the public gist source.
type GistConfig struct {
	Enabled  bool          `yaml:"enabled"`
	APIURL   string        `yaml:"apiUrl"`
	Token    string        `yaml:"token"`
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
}

// ForumConfig describes the proxied forum boards.
type ForumConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Boards   []string      `yaml:"boards"`
	Proxy    string        `yaml:"proxy"`
	Keywords []string      `yaml:"keywords"`
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
}

// BreachConfig describes the breach-listing site.
type BreachConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URL         string        `yaml:"url"`
	ArchivePath string        `yaml:"archivePath"`
	Render      bool          `yaml:"render"`
	Interval    time.Duration `yaml:"interval"`
	Limit       int           `yaml:"limit"`
}

// TelegramConfig wires the bot subscription.
type TelegramConfig struct {
	Enabled           bool          `yaml:"enabled"`
	APIURL            string        `yaml:"apiUrl"`
	BotToken          string        `yaml:"botToken"`
	Chats             []string      `yaml:"chats"`
	AllowedExtensions []string      `yaml:"allowedExtensions"`
	MaxSizeBytes      int64         `yaml:"maxSizeBytes"`
	PollTimeout       time.Duration `yaml:"pollTimeout"`
}

// StorageConfig selects the SQL backend for dedup keys and events.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SinksConfig enables downstream event consumers.
type SinksConfig struct {
	EventLog  string          `yaml:"eventLog"`
	SQL       bool            `yaml:"sql"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// DashboardConfig points at the control API accepting POST /events.
type DashboardConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

// PubSubConfig names the topic receiving events.
type PubSubConfig struct {
	Project string `yaml:"project"`
	Topic   string `yaml:"topic"`
}

// FirestoreConfig names the collection receiving events.
type FirestoreConfig struct {
	Project    string `yaml:"project"`
	Collection string `yaml:"collection"`
}

// NotifyConfig sends chat notifications for events at or above MinSeverity.
type NotifyConfig struct {
	BotToken    string `yaml:"botToken"`
	ChatID      string `yaml:"chatId"`
	MinSeverity string `yaml:"minSeverity"`
}

// ArtifactsConfig is the directory receiving full-fetched content.
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// MetricsConfig exposes Prometheus metrics when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads YAML configuration (if present) over the defaults, applies
// environment overrides and validates the result.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Sources.Telegram.BotToken = v
		if c.Sinks.Notify.BotToken == "" {
			c.Sinks.Notify.BotToken = v
		}
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Sinks.Notify.ChatID = v
	}

	if v := os.Getenv(githubTokenEnv); v != "" {
		c.Sources.Gist.Token = v
	}

	if v := os.Getenv(dashboardKeyEnv); v != "" {
		c.Sinks.Dashboard.APIKey = v
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Guard.MinFreeGB < 0 {
		errs = append(errs, fmt.Errorf("%w: guard.minFreeGB must be >= 0", domain.ErrConfiguration))
	}
	if c.Guard.MaxCPUPercent <= 0 || c.Guard.MaxCPUPercent > 100 {
		errs = append(errs, fmt.Errorf("%w: guard.maxCPUPercent must be in (0, 100]", domain.ErrConfiguration))
	}
	if c.Guard.MaxActiveDownloads < 1 {
		errs = append(errs, fmt.Errorf("%w: guard.maxActiveDownloads must be >= 1", domain.ErrConfiguration))
	}

	if c.Fetch.PeekBytes <= 0 || c.Fetch.MaxBytes < c.Fetch.PeekBytes {
		errs = append(errs, fmt.Errorf("%w: fetch requires 0 < peekBytes <= maxBytes", domain.ErrConfiguration))
	}

	if c.Delays.SkipMax < c.Delays.SkipMin || c.Delays.AfterMax < c.Delays.AfterMin {
		errs = append(errs, fmt.Errorf("%w: delay max must not be below min", domain.ErrConfiguration))
	}

	if c.Sinks.Notify.MinSeverity != "" {
		if _, err := domain.ParseSeverity(c.Sinks.Notify.MinSeverity); err != nil {
			errs = append(errs, fmt.Errorf("%w: sinks.notify.minSeverity: %v", domain.ErrConfiguration, err))
		}
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("%w: storage.driver %q is not supported", domain.ErrConfiguration, c.Storage.Driver))
	}

	sources := []struct {
		name     string
		enabled  bool
		interval time.Duration
		limit    int
	}{
		{"paste", c.Sources.Paste.Enabled, c.Sources.Paste.Interval, c.Sources.Paste.Limit},
		{"gist", c.Sources.Gist.Enabled, c.Sources.Gist.Interval, c.Sources.Gist.Limit},
		{"forum", c.Sources.Forum.Enabled, c.Sources.Forum.Interval, c.Sources.Forum.Limit},
		{"breach", c.Sources.Breach.Enabled, c.Sources.Breach.Interval, c.Sources.Breach.Limit},
	}
	for _, s := range sources {
		if !s.enabled {
			continue
		}
		if s.interval <= 0 || s.limit <= 0 {
			errs = append(errs, fmt.Errorf("%w: sources.%s needs a positive interval and limit", domain.ErrConfiguration, s.name))
		}
	}

	if c.Sources.Forum.Enabled && len(c.Sources.Forum.Boards) == 0 {
		errs = append(errs, fmt.Errorf("%w: sources.forum.boards is empty", domain.ErrConfiguration))
	}
	if c.Sources.Telegram.Enabled && c.Sources.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("%w: sources.telegram.botToken is required", domain.ErrConfiguration))
	}

	return errors.Join(errs...)
}

func defaultConfig() Config {
	return Config{
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Thresholds: domain.DefaultThresholds(),
		Guard: GuardConfig{
			MinFreeGB:          10,
			MaxCPUPercent:      85,
			MaxActiveDownloads: 3,
			DiskPath:           "/",
			CPUWindow:          200 * time.Millisecond,
		},
		Fetch: FetchConfig{
			PeekBytes:   64 * 1024,
			MaxBytes:    20 * 1024 * 1024,
			PeekTimeout: 20 * time.Second,
			FullTimeout: 30 * time.Second,
			UserAgent:   "Mozilla/5.0 LeakScanner/1.0",
		},
		Delays: DelayConfig{
			SkipMin:  300 * time.Millisecond,
			SkipMax:  800 * time.Millisecond,
			AfterMin: 300 * time.Millisecond,
			AfterMax: time.Second,
		},
		Sources: SourcesConfig{
			Paste: PasteConfig{
				Enabled:  true,
				BaseURL:  "https://pastebin.com",
				Interval: 2 * time.Minute,
				Limit:    40,
			},
			Gist: GistConfig{
				Interval: 5 * time.Minute,
				Limit:    30,
			},
			Forum: ForumConfig{
				Proxy:    "socks5://127.0.0.1:9050",
				Keywords: []string{"dump", "database", "combo", "vpn access", "ransom", "shell", "leak"},
				Interval: 5 * time.Minute,
				Limit:    25,
			},
			Breach: BreachConfig{
				URL:         "https://breach.house/all_breaches",
				ArchivePath: "data/leaks.json",
				Interval:    time.Hour,
				Limit:       20,
			},
			Telegram: TelegramConfig{
				APIURL:            "https://api.telegram.org",
				AllowedExtensions: []string{".txt", ".csv", ".json", ".log", ".zip", ".7z", ".rar"},
				MaxSizeBytes:      20 * 1024 * 1024,
				PollTimeout:       30 * time.Second,
			},
		},
		Storage: StorageConfig{Driver: "sqlite", DSN: "data/leakscanner.db"},
		Sinks: SinksConfig{
			EventLog:  "data/events.jsonl",
			Firestore: FirestoreConfig{Collection: "leak_events"},
			Notify:    NotifyConfig{MinSeverity: string(domain.SeverityHigh)},
		},
		Artifacts: ArtifactsConfig{Dir: "data/artifacts"},
	}
}

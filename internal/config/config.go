package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"VaultSentinel/internal/logging"
	"VaultSentinel/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Platform struct {
		BaseURL  string        `yaml:"base_url"`
		Language string        `yaml:"language"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"platform"`
	Session struct {
		Token string `yaml:"token"`
		ID    string `yaml:"id"` // ledger namespace; a fresh uuid when empty
	} `yaml:"session"`
	Currency struct {
		Override string `yaml:"override"` // forces the active currency
	} `yaml:"currency"`
	Policy model.Policy `yaml:"policy"`
	Limits struct {
		Window         time.Duration `yaml:"window"`
		MaxActions     int           `yaml:"max_actions"`
		DepositTimeout time.Duration `yaml:"deposit_timeout"`
	} `yaml:"limits"`
	Init struct {
		Interval   time.Duration `yaml:"interval"`
		MaxTries   int           `yaml:"max_tries"`
		StartDelay time.Duration `yaml:"start_delay"`
		AutoStart  *bool         `yaml:"auto_start"`
	} `yaml:"init"`
	Balance struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		DisplayFile     string        `yaml:"display_file"` // optional scraper output
	} `yaml:"balance"`
	Feed struct {
		Enabled        *bool         `yaml:"enabled"`
		URL            string        `yaml:"url"` // derived from platform.base_url when empty
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		Keywords       []string      `yaml:"deposit_keywords"`
	} `yaml:"feed"`
	Store struct {
		Driver string `yaml:"driver"` // badger or file
		Path   string `yaml:"path"`
	} `yaml:"store"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIBase  string `yaml:"api_base"`
	} `yaml:"telegram"`
	HTTP struct {
		Addr string `yaml:"addr"` // empty disables the control API
	} `yaml:"http"`
	Log   logging.Config `yaml:"log"`
	Proxy string         `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("STAKE_BASE_URL"); v != "" {
		cfg.Platform.BaseURL = v
	}
	if v := os.Getenv("STAKE_SESSION_TOKEN"); v != "" {
		cfg.Session.Token = v
	}
	if v := os.Getenv("VAULT_CURRENCY"); v != "" {
		cfg.Currency.Override = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = "https://stake.com"
	}
	c.Platform.BaseURL = strings.TrimRight(c.Platform.BaseURL, "/")
	if c.Platform.Language == "" {
		c.Platform.Language = "en"
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 20 * time.Second
	}
	c.Currency.Override = strings.ToLower(strings.TrimSpace(c.Currency.Override))

	def := model.DefaultPolicy()
	if c.Policy.SaveRate == 0 {
		c.Policy.SaveRate = def.SaveRate
	}
	if c.Policy.BigWinThreshold == 0 {
		c.Policy.BigWinThreshold = def.BigWinThreshold
	}
	if c.Policy.BigWinMultiplier == 0 {
		c.Policy.BigWinMultiplier = def.BigWinMultiplier
	}
	if c.Policy.PollIntervalMs == 0 {
		c.Policy.PollIntervalMs = def.PollIntervalMs
	}

	if c.Limits.Window == 0 {
		c.Limits.Window = time.Hour
	}
	if c.Limits.MaxActions == 0 {
		c.Limits.MaxActions = 50
	}
	if c.Limits.DepositTimeout == 0 {
		c.Limits.DepositTimeout = 30 * time.Second
	}

	if c.Init.Interval == 0 {
		c.Init.Interval = time.Second
	}
	if c.Init.MaxTries == 0 {
		c.Init.MaxTries = 5
	}
	if c.Init.AutoStart == nil {
		c.Init.AutoStart = boolPtr(true)
	}

	if c.Balance.RefreshInterval == 0 {
		c.Balance.RefreshInterval = time.Minute
	}
	if c.Feed.Enabled == nil {
		c.Feed.Enabled = boolPtr(true)
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = 2 * time.Second
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "badger"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/state"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/vault_sentinel.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Platform.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("platform.base_url must be an absolute http(s) URL, got %q", c.Platform.BaseURL)
	}
	if c.Session.Token == "" {
		return fmt.Errorf("session.token is required")
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.Limits.MaxActions < 1 {
		return fmt.Errorf("limits.max_actions must be positive")
	}
	if c.Limits.Window <= 0 || c.Limits.DepositTimeout <= 0 {
		return fmt.Errorf("limits.window and limits.deposit_timeout must be positive")
	}
	if c.Init.MaxTries < 1 {
		return fmt.Errorf("init.max_tries must be positive")
	}
	if c.Store.Driver != "badger" && c.Store.Driver != "file" {
		return fmt.Errorf("store.driver must be badger or file, got %q", c.Store.Driver)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// FeedEnabled reports whether the live feed should run.
func (c *Config) FeedEnabled() bool {
	return c.Feed.Enabled == nil || *c.Feed.Enabled
}

// AutoStart reports whether the engine starts with the process.
func (c *Config) AutoStart() bool {
	return c.Init.AutoStart == nil || *c.Init.AutoStart
}

func boolPtr(v bool) *bool { return &v }

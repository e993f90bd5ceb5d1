// Package config reads and writes the global ~/.tgsum/config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global configuration file.
type Config struct {
	Telegram Telegram `toml:"telegram"`
	Summary  Summary  `toml:"summary"`
	Store    Store    `toml:"store"`
	User     User     `toml:"user"`
}

// Telegram holds the API credentials from https://my.telegram.org.
type Telegram struct {
	APIID   int    `toml:"api_id"`
	APIHash string `toml:"api_hash"`
	Phone   string `toml:"phone"`
}

// Summary configures the OpenRouter summarizer.
type Summary struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// Store configures the local cache.
type Store struct {
	MaxMessagesPerChat int `toml:"max_messages_per_chat"`
	BatchSize          int `toml:"batch_size"`
	ChatListMaxAgeMin  int `toml:"chat_list_max_age_minutes"`
}

// User holds presentation settings.
type User struct {
	// Timezone is an IANA name like "Asia/Tehran". Empty means the
	// system local zone.
	Timezone string `toml:"timezone"`
}

// Default returns a config with sane non-credential defaults filled in.
func Default() *Config {
	return &Config{
		Summary: Summary{Model: "deepseek/deepseek-chat"},
		Store:   Store{MaxMessagesPerChat: 5000, BatchSize: 100, ChatListMaxAgeMin: 60},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
// The file carries credentials, so it is created 0600.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks the settings a sync run cannot work without.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.APIID == 0 {
		errs = append(errs, errors.New("telegram.api_id is required"))
	}
	if c.Telegram.APIHash == "" {
		errs = append(errs, errors.New("telegram.api_hash is required"))
	}
	if c.Telegram.Phone == "" {
		errs = append(errs, errors.New("telegram.phone is required"))
	}
	if c.Store.MaxMessagesPerChat < 0 {
		errs = append(errs, fmt.Errorf("store.max_messages_per_chat must not be negative, got %d", c.Store.MaxMessagesPerChat))
	}
	if c.Store.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("store.batch_size must not be negative, got %d", c.Store.BatchSize))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.User.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.User.Timezone)
	if err != nil {
		return nil, fmt.Errorf("user.timezone: %w", err)
	}
	return loc, nil
}

// ChatListMaxAge converts the configured staleness bound for the
// cached chat list.
func (c *Config) ChatListMaxAge() time.Duration {
	return time.Duration(c.Store.ChatListMaxAgeMin) * time.Minute
}

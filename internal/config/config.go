// Package config loads settings from defaults, an optional TOML or YAML file
// and environment variables, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a setting is missing or out of range.
const (
	DefaultLimit        = 20
	DefaultRefreshAge   = 60 * time.Minute
	DefaultMaxHistory   = 200
	DefaultConcurrency  = 20
	DefaultFetchTimeout = 10 * time.Second
	DefaultLogLevel     = "warn"

	appName = "feedshelf"
)

// Config holds the resolved application configuration.
type Config struct {
	DefaultLimit        int
	RefreshAge          time.Duration
	MaxHistory          int
	Concurrency         int
	FetchTimeout        time.Duration
	NewLineBetweenItems bool
	LogLevel            slog.Level
	StateFile           string
	Telegram            Telegram
}

// Telegram holds credentials for the push command.
type Telegram struct {
	BotToken string
	ChatID   int64
}

// Enabled reports whether both the token and the chat are set.
func (t Telegram) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

type fileConfig struct {
	General  generalSection  `toml:"general" yaml:"general"`
	Paths    pathsSection    `toml:"paths" yaml:"paths"`
	Telegram telegramSection `toml:"telegram" yaml:"telegram"`
}

type generalSection struct {
	DefaultLimit        int    `toml:"default_limit" yaml:"default_limit"`
	RefreshAgeMins      *int   `toml:"refresh_age_mins" yaml:"refresh_age_mins"`
	MaxHistory          *int   `toml:"max_history" yaml:"max_history"`
	Concurrency         *int   `toml:"concurrency" yaml:"concurrency"`
	FetchTimeoutSecs    int    `toml:"fetch_timeout_secs" yaml:"fetch_timeout_secs"`
	NewLineBetweenItems bool   `toml:"new_line_between_items" yaml:"new_line_between_items"`
	LogLevel            string `toml:"log_level" yaml:"log_level"`
}

type pathsSection struct {
	StateFile string `toml:"state_file" yaml:"state_file"`
}

type telegramSection struct {
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   int64  `toml:"chat_id" yaml:"chat_id"`
}

// Load resolves the configuration. path may be empty, in which case
// $FEEDSHELF_CONFIG or the per-user default location is used. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("FEEDSHELF_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}

	var fc fileConfig
	if path != "" {
		if err := readFile(path, &fc); err != nil {
			return nil, err
		}
	}

	return resolve(fc)
}

// DefaultPath returns <user config dir>/feedshelf/config.toml, or "" when the
// config dir cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.toml")
}

// DefaultStateFile returns <user data dir>/feedshelf/state.json.
func DefaultStateFile() string {
	return filepath.Join(dataDir(), appName, "state.json")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func readFile(path string, fc *fileConfig) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, fc)
	default:
		err = toml.Unmarshal(expanded, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func resolve(fc fileConfig) (*Config, error) {
	g := fc.General
	cfg := &Config{
		DefaultLimit:        positiveOr(g.DefaultLimit, DefaultLimit),
		RefreshAge:          DefaultRefreshAge,
		MaxHistory:          DefaultMaxHistory,
		Concurrency:         DefaultConcurrency,
		FetchTimeout:        DefaultFetchTimeout,
		NewLineBetweenItems: g.NewLineBetweenItems,
		StateFile:           fc.Paths.StateFile,
		Telegram: Telegram{
			BotToken: fc.Telegram.BotToken,
			ChatID:   fc.Telegram.ChatID,
		},
	}

	if g.RefreshAgeMins != nil {
		if *g.RefreshAgeMins < 0 {
			return nil, fmt.Errorf("refresh_age_mins must not be negative, got %d", *g.RefreshAgeMins)
		}
		cfg.RefreshAge = time.Duration(*g.RefreshAgeMins) * time.Minute
	}
	if g.MaxHistory != nil {
		if *g.MaxHistory <= 0 {
			return nil, fmt.Errorf("max_history must be positive, got %d", *g.MaxHistory)
		}
		cfg.MaxHistory = *g.MaxHistory
	}
	if g.Concurrency != nil {
		if *g.Concurrency <= 0 {
			return nil, fmt.Errorf("concurrency must be positive, got %d", *g.Concurrency)
		}
		cfg.Concurrency = *g.Concurrency
	}
	if g.FetchTimeoutSecs > 0 {
		cfg.FetchTimeout = time.Duration(g.FetchTimeoutSecs) * time.Second
	}

	if v := os.Getenv("FEEDSHELF_STATE"); v != "" {
		cfg.StateFile = v
	}
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile()
	}

	level := g.LogLevel
	if v := os.Getenv("FEEDSHELF_LOG_LEVEL"); v != "" {
		level = v
	}
	if level == "" {
		level = DefaultLogLevel
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.Telegram.ChatID = id
	}

	return cfg, nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

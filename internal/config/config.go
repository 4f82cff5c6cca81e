package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Poll holds the cadence of every polled source.
type Poll struct {
	Status        time.Duration
	Runs          time.Duration
	CILogs        time.Duration
	History       time.Duration
	Schedule      time.Duration
	LogsRunning   time.Duration
	LogsIdle      time.Duration
	ErrorsRunning time.Duration
	ErrorsIdle    time.Duration
}

// Config captures everything scrapedeck reads from its config file.
type Config struct {
	APIURL          string
	APIToken        string
	LogFile         string
	MetricsAddr     string
	FreshnessWindow time.Duration
	MaxVisibleLogs  int
	LoadMoreStep    int
	Poll            Poll
}

const (
	defaultConfigPath      = "~/.config/scrapedeck/config.toml"
	defaultLogFile         = "~/.local/state/scrapedeck/scrapedeck.log"
	defaultAPIURL          = "http://127.0.0.1:8000"
	defaultFreshnessWindow = 2 * time.Hour
	defaultMaxVisibleLogs  = 100
	defaultLoadMoreStep    = 100
)

// DefaultPoll returns the stock poll cadence.
func DefaultPoll() Poll {
	return Poll{
		Status:        5 * time.Second,
		Runs:          10 * time.Second,
		CILogs:        5 * time.Second,
		History:       30 * time.Second,
		Schedule:      30 * time.Second,
		LogsRunning:   5 * time.Second,
		LogsIdle:      15 * time.Second,
		ErrorsRunning: 10 * time.Second,
		ErrorsIdle:    30 * time.Second,
	}
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		LogFile:         mustExpand(defaultLogFile),
		FreshnessWindow: defaultFreshnessWindow,
		MaxVisibleLogs:  defaultMaxVisibleLogs,
		LoadMoreStep:    defaultLoadMoreStep,
		Poll:            DefaultPoll(),
	}
}

type rawPoll struct {
	Status        string `toml:"status"`
	Runs          string `toml:"runs"`
	CILogs        string `toml:"ci_logs"`
	History       string `toml:"history"`
	Schedule      string `toml:"schedule"`
	LogsRunning   string `toml:"logs_running"`
	LogsIdle      string `toml:"logs_idle"`
	ErrorsRunning string `toml:"errors_running"`
	ErrorsIdle    string `toml:"errors_idle"`
}

type rawConfig struct {
	APIURL          string  `toml:"api_url"`
	APIToken        string  `toml:"api_token"`
	LogFile         string  `toml:"log_file"`
	MetricsAddr     string  `toml:"metrics_addr"`
	FreshnessWindow string  `toml:"freshness_window"`
	MaxVisibleLogs  int     `toml:"max_visible_logs"`
	LoadMoreStep    int     `toml:"load_more_step"`
	Poll            rawPoll `toml:"poll"`
}

// Load locates and parses the config, falling back to defaults when missing.
// The SCRAPEDECK_API_TOKEN environment variable overrides api_token.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.APIToken = strings.TrimSpace(raw.APIToken)
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if raw.MaxVisibleLogs > 0 {
		cfg.MaxVisibleLogs = raw.MaxVisibleLogs
	}
	if raw.LoadMoreStep > 0 {
		cfg.LoadMoreStep = raw.LoadMoreStep
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"freshness_window", raw.FreshnessWindow, &cfg.FreshnessWindow},
		{"poll.status", raw.Poll.Status, &cfg.Poll.Status},
		{"poll.runs", raw.Poll.Runs, &cfg.Poll.Runs},
		{"poll.ci_logs", raw.Poll.CILogs, &cfg.Poll.CILogs},
		{"poll.history", raw.Poll.History, &cfg.Poll.History},
		{"poll.schedule", raw.Poll.Schedule, &cfg.Poll.Schedule},
		{"poll.logs_running", raw.Poll.LogsRunning, &cfg.Poll.LogsRunning},
		{"poll.logs_idle", raw.Poll.LogsIdle, &cfg.Poll.LogsIdle},
		{"poll.errors_running", raw.Poll.ErrorsRunning, &cfg.Poll.ErrorsRunning},
		{"poll.errors_idle", raw.Poll.ErrorsIdle, &cfg.Poll.ErrorsIdle},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.raw, d.dst); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("SCRAPEDECK_API_TOKEN")); token != "" {
		cfg.APIToken = token
	}
}

// parseDuration leaves dst untouched when value is blank.
func parseDuration(key, value string, dst *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("parse config: %s must be positive, got %s", key, value)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

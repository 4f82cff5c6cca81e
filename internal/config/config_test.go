package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SCRAPEDECK_API_TOKEN", "")

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.FreshnessWindow != 2*time.Hour {
		t.Fatalf("FreshnessWindow = %v, want 2h", cfg.FreshnessWindow)
	}
	if cfg.MaxVisibleLogs != 100 || cfg.LoadMoreStep != 100 {
		t.Fatalf("log caps = %d/%d, want 100/100", cfg.MaxVisibleLogs, cfg.LoadMoreStep)
	}
	if cfg.Poll != DefaultPoll() {
		t.Fatalf("Poll = %#v, want defaults", cfg.Poll)
	}

	wantLogFile, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLogFile {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLogFile)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SCRAPEDECK_API_TOKEN", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://scraper.example.com  "
api_token = " secret "
log_file = "  ~/logs/deck.log  "
metrics_addr = "127.0.0.1:9464"
freshness_window = "90m"
max_visible_logs = 50
load_more_step = 25

[poll]
status = "2s"
logs_running = "3s"
errors_idle = "1m"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://scraper.example.com" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.APIToken != "secret" {
		t.Fatalf("APIToken = %q, want secret", cfg.APIToken)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Fatalf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.FreshnessWindow != 90*time.Minute {
		t.Fatalf("FreshnessWindow = %v, want 90m", cfg.FreshnessWindow)
	}
	if cfg.MaxVisibleLogs != 50 || cfg.LoadMoreStep != 25 {
		t.Fatalf("log caps = %d/%d, want 50/25", cfg.MaxVisibleLogs, cfg.LoadMoreStep)
	}
	if cfg.Poll.Status != 2*time.Second || cfg.Poll.LogsRunning != 3*time.Second || cfg.Poll.ErrorsIdle != time.Minute {
		t.Fatalf("Poll overrides not applied: %#v", cfg.Poll)
	}
	if cfg.Poll.Runs != DefaultPoll().Runs {
		t.Fatalf("Poll.Runs = %v, want default", cfg.Poll.Runs)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "   "
log_file = ""
freshness_window = ""
max_visible_logs = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.FreshnessWindow != defaultFreshnessWindow {
		t.Fatalf("FreshnessWindow = %v, want default", cfg.FreshnessWindow)
	}
	if cfg.MaxVisibleLogs != defaultMaxVisibleLogs {
		t.Fatalf("MaxVisibleLogs = %d, want default", cfg.MaxVisibleLogs)
	}
}

func TestLoad_EnvTokenOverridesFile(t *testing.T) {
	t.Setenv("SCRAPEDECK_API_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_token = "from-file"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIToken != "from-env" {
		t.Fatalf("APIToken = %q, want from-env", cfg.APIToken)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	for _, body := range []string{
		"freshness_window = \"soon\"",
		"[poll]\nstatus = \"-5s\"",
	} {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("Load(%q) returned nil error, want duration error", body)
		}
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

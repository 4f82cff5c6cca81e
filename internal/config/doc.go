// Package config loads scrapedeck's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/scrapedeck/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// SCRAPEDECK_API_TOKEN, when set, wins over api_token.
//
// # TOML Format
//
//	api_url = "http://127.0.0.1:8000"
//	api_token = ""
//	log_file = "~/.local/state/scrapedeck/scrapedeck.log"
//	metrics_addr = ""          # e.g. "127.0.0.1:9464"; empty disables
//	freshness_window = "2h"
//	max_visible_logs = 100
//	load_more_step = 100
//
//	[poll]
//	status = "5s"
//	runs = "10s"
//	ci_logs = "5s"
//	history = "30s"
//	schedule = "30s"
//	logs_running = "5s"
//	logs_idle = "15s"
//	errors_running = "10s"
//	errors_idle = "30s"
//
// Durations use time.ParseDuration syntax and must be positive. A malformed
// duration or malformed TOML is an error; a missing file is not.
package config

package scraper

import (
	"strings"
	"time"
)

const scraperTimestampLayout = "2006-01-02 15:04:05"

// Site is one scrape target.
type Site struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Enabled     bool     `json:"enabled"`
	Category    string   `json:"category,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	LastScraped string   `json:"last_scraped,omitempty"`
	LastStatus  string   `json:"last_status,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ParsedLastScraped returns LastScraped as time.Time when possible.
func (s Site) ParsedLastScraped() time.Time {
	return parseTime(s.LastScraped)
}

// SiteList mirrors GET /api/sites.
type SiteList struct {
	Sites    []Site `json:"sites"`
	Enabled  int    `json:"enabled"`
	Disabled int    `json:"disabled"`
	Total    int    `json:"total"`
}

// SitePatch carries a partial site update. Nil fields are left untouched.
type SitePatch struct {
	Name     *string  `json:"name,omitempty"`
	URL      *string  `json:"url,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
	Category *string  `json:"category,omitempty"`
	Schedule *string  `json:"schedule,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ScrapeRun describes one local execution of the scraper.
type ScrapeRun struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	StartedAt    string   `json:"started_at"`
	FinishedAt   string   `json:"finished_at,omitempty"`
	SitesTotal   int      `json:"sites_total"`
	SitesDone    int      `json:"sites_done"`
	ItemsScraped int      `json:"items_scraped"`
	ErrorCount   int      `json:"error_count"`
	CurrentSite  string   `json:"current_site,omitempty"`
	Sites        []string `json:"sites,omitempty"`
	Trigger      string   `json:"trigger,omitempty"`
}

// ParsedStartedAt returns StartedAt as time.Time when possible.
func (r ScrapeRun) ParsedStartedAt() time.Time {
	return parseTime(r.StartedAt)
}

// ParsedFinishedAt returns FinishedAt as time.Time when possible.
func (r ScrapeRun) ParsedFinishedAt() time.Time {
	return parseTime(r.FinishedAt)
}

// Progress returns completion in [0,1].
func (r ScrapeRun) Progress() float64 {
	if r.SitesTotal <= 0 {
		return 0
	}
	done := float64(r.SitesDone) / float64(r.SitesTotal)
	if done > 1 {
		return 1
	}
	return done
}

// ScrapeStatus mirrors GET /api/scrape/status.
type ScrapeStatus struct {
	IsRunning  bool       `json:"is_running"`
	CurrentRun *ScrapeRun `json:"current_run,omitempty"`
	LastRun    *ScrapeRun `json:"last_run,omitempty"`
}

// ScrapeParams select what a run scrapes.
type ScrapeParams struct {
	Sites []string `json:"sites,omitempty"`
	Force bool     `json:"force,omitempty"`
}

// StartResponse acknowledges a started run.
type StartResponse struct {
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// LogEntry is one line from the local recent-log endpoint.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	SiteKey   string `json:"site_key,omitempty"`
	Message   string `json:"message"`
}

// ParsedTime returns the timestamp as time.Time when possible.
func (e LogEntry) ParsedTime() time.Time {
	return parseTime(e.Timestamp)
}

// LogQuery configures /api/logs requests.
type LogQuery struct {
	Limit   int
	Level   string
	SiteKey string
}

// ErrorLog is one entry from the local error-log endpoint.
type ErrorLog struct {
	Timestamp string `json:"timestamp"`
	SiteKey   string `json:"site_key,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Message   string `json:"message"`
	URL       string `json:"url,omitempty"`
}

// ParsedTime returns the timestamp as time.Time when possible.
func (e ErrorLog) ParsedTime() time.Time {
	return parseTime(e.Timestamp)
}

// ScheduledJob is a future run.
type ScheduledJob struct {
	ID     string       `json:"id"`
	RunAt  string       `json:"run_at"`
	Params ScrapeParams `json:"params"`
	Status string       `json:"status,omitempty"`
}

// ParsedRunAt returns RunAt as time.Time when possible.
func (j ScheduledJob) ParsedRunAt() time.Time {
	return parseTime(j.RunAt)
}

// CI run and job states as reported by the workflow API.
const (
	WorkflowQueued     = "queued"
	WorkflowInProgress = "in_progress"
	WorkflowCompleted  = "completed"
)

// WorkflowRun is one CI execution of the scrape workflow.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at"`
	HTMLURL    string `json:"html_url,omitempty"`
}

// ParsedUpdatedAt returns UpdatedAt as time.Time when possible.
func (r WorkflowRun) ParsedUpdatedAt() time.Time {
	return parseTime(r.UpdatedAt)
}

// WorkflowJob is a sub-job of a CI run with its log lines.
type WorkflowJob struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	Conclusion string   `json:"conclusion,omitempty"`
	Logs       []string `json:"logs"`
}

// Completed reports whether the CI job has finished.
func (j WorkflowJob) Completed() bool {
	return strings.EqualFold(strings.TrimSpace(j.Status), WorkflowCompleted)
}

// WorkflowLogs mirrors GET /api/workflows/runs/{id}/logs.
type WorkflowLogs struct {
	RunID int64         `json:"run_id"`
	Jobs  []WorkflowJob `json:"jobs"`
}

// WorkflowLogQuery configures workflow log requests.
type WorkflowLogQuery struct {
	Tail int
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(scraperTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// ParseTime parses the timestamp formats used by the scraper API. It returns
// the zero time for anything it does not understand.
func ParseTime(value string) time.Time {
	return parseTime(value)
}

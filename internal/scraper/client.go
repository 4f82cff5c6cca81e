package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API is the scraper backend surface the dashboard depends on.
// It is implemented by *Client and by scrapertest.Fake.
type API interface {
	ListSites(ctx context.Context) (SiteList, error)
	GetSite(ctx context.Context, key string) (Site, error)
	UpdateSite(ctx context.Context, key string, patch SitePatch) (Site, error)
	DeleteSite(ctx context.Context, key string) error
	ToggleSite(ctx context.Context, key string) (MessageResponse, error)

	GetScrapeStatus(ctx context.Context) (ScrapeStatus, error)
	StartScrape(ctx context.Context, params ScrapeParams) (StartResponse, error)
	StopScrape(ctx context.Context) (MessageResponse, error)
	GetScrapeHistory(ctx context.Context, limit int) ([]ScrapeRun, error)
	GetErrorLogs(ctx context.Context, limit int) ([]ErrorLog, error)
	GetLogs(ctx context.Context, query LogQuery) ([]LogEntry, error)

	ListScheduledJobs(ctx context.Context) ([]ScheduledJob, error)
	CancelScheduledJob(ctx context.Context, id string) error
	ScheduleScrape(ctx context.Context, runAt time.Time, params ScrapeParams) (ScheduledJob, error)

	ListWorkflowRuns(ctx context.Context, count int) ([]WorkflowRun, error)
	GetWorkflowLogs(ctx context.Context, runID int64, query WorkflowLogQuery) (WorkflowLogs, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the scraper HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
}

const (
	defaultAPIURL    = "127.0.0.1:8000"
	defaultUserAgent = "scrapedeck/0.1"
	requestTimeout   = 10 * time.Second

	requestIDHeader = "X-Request-ID"
)

// NewClient builds a Client for apiURL (host:port or full URL). token is sent
// as a bearer token when non-empty.
func NewClient(apiURL, token string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(token),
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListSites retrieves every configured site with enable counts.
func (c *Client) ListSites(ctx context.Context) (SiteList, error) {
	var payload SiteList
	if err := c.do(ctx, http.MethodGet, "/api/sites", nil, &payload); err != nil {
		return SiteList{}, err
	}
	return payload, nil
}

// GetSite retrieves one site.
func (c *Client) GetSite(ctx context.Context, key string) (Site, error) {
	path, err := sitePath(key, "")
	if err != nil {
		return Site{}, err
	}
	var payload Site
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return Site{}, err
	}
	return payload, nil
}

// UpdateSite applies a partial update.
func (c *Client) UpdateSite(ctx context.Context, key string, patch SitePatch) (Site, error) {
	path, err := sitePath(key, "")
	if err != nil {
		return Site{}, err
	}
	var payload Site
	if err := c.do(ctx, http.MethodPatch, path, patch, &payload); err != nil {
		return Site{}, err
	}
	return payload, nil
}

// DeleteSite removes a site.
func (c *Client) DeleteSite(ctx context.Context, key string) error {
	path, err := sitePath(key, "")
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ToggleSite flips a site's enabled flag.
func (c *Client) ToggleSite(ctx context.Context, key string) (MessageResponse, error) {
	path, err := sitePath(key, "toggle")
	if err != nil {
		return MessageResponse{}, err
	}
	var payload MessageResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return MessageResponse{}, err
	}
	return payload, nil
}

// GetScrapeStatus reports whether a run is active.
func (c *Client) GetScrapeStatus(ctx context.Context) (ScrapeStatus, error) {
	var payload ScrapeStatus
	if err := c.do(ctx, http.MethodGet, "/api/scrape/status", nil, &payload); err != nil {
		return ScrapeStatus{}, err
	}
	return payload, nil
}

// StartScrape starts a run.
func (c *Client) StartScrape(ctx context.Context, params ScrapeParams) (StartResponse, error) {
	var payload StartResponse
	if err := c.do(ctx, http.MethodPost, "/api/scrape/start", params, &payload); err != nil {
		return StartResponse{}, err
	}
	return payload, nil
}

// StopScrape stops the active run.
func (c *Client) StopScrape(ctx context.Context) (MessageResponse, error) {
	var payload MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/scrape/stop", nil, &payload); err != nil {
		return MessageResponse{}, err
	}
	return payload, nil
}

// GetScrapeHistory returns the most recent runs, newest first.
func (c *Client) GetScrapeHistory(ctx context.Context, limit int) ([]ScrapeRun, error) {
	var payload struct {
		Runs []ScrapeRun `json:"runs"`
	}
	if err := c.doURL(ctx, http.MethodGet, withLimit("/api/scrape/history", limit), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Runs, nil
}

// GetErrorLogs returns recent scrape errors in chronological order.
func (c *Client) GetErrorLogs(ctx context.Context, limit int) ([]ErrorLog, error) {
	var payload struct {
		Errors []ErrorLog `json:"errors"`
	}
	if err := c.doURL(ctx, http.MethodGet, withLimit("/api/errors", limit), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Errors, nil
}

// GetLogs returns recent log entries in chronological order.
func (c *Client) GetLogs(ctx context.Context, query LogQuery) ([]LogEntry, error) {
	values := url.Values{}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if level := strings.TrimSpace(query.Level); level != "" {
		values.Set("level", level)
	}
	if site := strings.TrimSpace(query.SiteKey); site != "" {
		values.Set("site", site)
	}
	rel := &url.URL{Path: "/api/logs", RawQuery: values.Encode()}
	var payload struct {
		Logs []LogEntry `json:"logs"`
	}
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Logs, nil
}

// ListScheduledJobs returns pending scheduled runs.
func (c *Client) ListScheduledJobs(ctx context.Context) ([]ScheduledJob, error) {
	var payload struct {
		Jobs []ScheduledJob `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/schedule", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

// CancelScheduledJob removes a pending scheduled run.
func (c *Client) CancelScheduledJob(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("job id required")
	}
	return c.do(ctx, http.MethodDelete, "/api/schedule/"+id, nil, nil)
}

// ScheduleScrape schedules a run at runAt.
func (c *Client) ScheduleScrape(ctx context.Context, runAt time.Time, params ScrapeParams) (ScheduledJob, error) {
	if runAt.IsZero() {
		return ScheduledJob{}, fmt.Errorf("run time required")
	}
	body := struct {
		RunAt  string       `json:"run_at"`
		Params ScrapeParams `json:"params"`
	}{
		RunAt:  runAt.UTC().Format(time.RFC3339),
		Params: params,
	}
	var payload ScheduledJob
	if err := c.do(ctx, http.MethodPost, "/api/schedule", body, &payload); err != nil {
		return ScheduledJob{}, err
	}
	return payload, nil
}

// ListWorkflowRuns returns the latest CI runs, newest first.
func (c *Client) ListWorkflowRuns(ctx context.Context, count int) ([]WorkflowRun, error) {
	values := url.Values{}
	if count > 0 {
		values.Set("count", strconv.Itoa(count))
	}
	rel := &url.URL{Path: "/api/workflows/runs", RawQuery: values.Encode()}
	var payload struct {
		Runs []WorkflowRun `json:"runs"`
	}
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Runs, nil
}

// GetWorkflowLogs returns per-job logs of one CI run.
func (c *Client) GetWorkflowLogs(ctx context.Context, runID int64, query WorkflowLogQuery) (WorkflowLogs, error) {
	if runID <= 0 {
		return WorkflowLogs{}, fmt.Errorf("run id required")
	}
	values := url.Values{}
	if query.Tail > 0 {
		values.Set("tail", strconv.Itoa(query.Tail))
	}
	rel := &url.URL{
		Path:     "/api/workflows/runs/" + strconv.FormatInt(runID, 10) + "/logs",
		RawQuery: values.Encode(),
	}
	var payload WorkflowLogs
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return WorkflowLogs{}, err
	}
	if payload.RunID == 0 {
		payload.RunID = runID
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, newRequestID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{
			Method:     method,
			Path:       rel.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body. FastAPI-style
// {"detail": ...} and {"error": ...} bodies are understood.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func withLimit(path string, limit int) *url.URL {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	return &url.URL{Path: path, RawQuery: values.Encode()}
}

func sitePath(key, suffix string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("site key required")
	}
	if strings.Contains(key, "/") {
		return "", fmt.Errorf("invalid site key %q", key)
	}
	path := "/api/sites/" + key
	if suffix != "" {
		path += "/" + suffix
	}
	return path, nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	require.Equal(t, "http", u.Scheme)
	require.Equal(t, defaultAPIURL, u.Host)

	u, err = parseBaseURL("https://scraper.example.com:8443/path?x=1#frag")
	require.NoError(t, err)
	require.Equal(t, "https://scraper.example.com:8443", u.String())
}

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	Header http.Header
}

func newRecordingServer(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var seen []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   string(body),
			Header: r.Header.Clone(),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/sites":
			_ = json.NewEncoder(w).Encode(SiteList{Sites: []Site{{Key: "acme", Enabled: true}}, Enabled: 1, Total: 1})
		case r.Method == http.MethodGet && r.URL.Path == "/api/sites/acme":
			_ = json.NewEncoder(w).Encode(Site{Key: "acme", Name: "Acme"})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/sites/acme":
			_ = json.NewEncoder(w).Encode(Site{Key: "acme", Name: "Renamed"})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/sites/acme/toggle":
			_ = json.NewEncoder(w).Encode(MessageResponse{Message: "Site acme disabled"})
		case r.URL.Path == "/api/scrape/status":
			_ = json.NewEncoder(w).Encode(ScrapeStatus{IsRunning: true, CurrentRun: &ScrapeRun{ID: "r1", SitesTotal: 4, SitesDone: 1}})
		case r.URL.Path == "/api/scrape/start":
			_ = json.NewEncoder(w).Encode(StartResponse{Message: "started", RunID: "r2"})
		case r.URL.Path == "/api/scrape/stop":
			_ = json.NewEncoder(w).Encode(MessageResponse{Message: "stopping"})
		case r.URL.Path == "/api/scrape/history":
			_, _ = w.Write([]byte(`{"runs":[{"id":"r0","status":"completed"}]}`))
		case r.URL.Path == "/api/errors":
			_, _ = w.Write([]byte(`{"errors":[{"timestamp":"2025-01-02T03:04:05Z","site_key":"acme","message":"timeout"}]}`))
		case r.URL.Path == "/api/logs":
			_, _ = w.Write([]byte(`{"logs":[{"timestamp":"2025-01-02 03:04:05","level":"INFO","message":"hello"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/schedule":
			_, _ = w.Write([]byte(`{"jobs":[{"id":"j1","run_at":"2025-01-02T03:04:05Z"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/schedule":
			_, _ = w.Write([]byte(`{"id":"j2","run_at":"2025-01-02T03:04:05Z"}`))
		case r.URL.Path == "/api/workflows/runs":
			_, _ = w.Write([]byte(`{"runs":[{"id":99,"status":"in_progress","updated_at":"2025-01-02T03:04:05Z"}]}`))
		case r.URL.Path == "/api/workflows/runs/99/logs":
			_, _ = w.Write([]byte(`{"jobs":[{"id":1,"name":"scrape","status":"in_progress","logs":["a","b"]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func TestClient_SiteEndpoints(t *testing.T) {
	t.Parallel()

	server, requests := newRecordingServer(t)
	c, err := NewClient(server.URL, "secret")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	list, err := c.ListSites(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	require.Equal(t, "acme", list.Sites[0].Key)

	site, err := c.GetSite(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme", site.Name)

	name := "Renamed"
	site, err = c.UpdateSite(ctx, "acme", SitePatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", site.Name)

	msg, err := c.ToggleSite(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Site acme disabled", msg.Message)

	require.NoError(t, c.DeleteSite(ctx, "acme"))

	seen := requests()
	require.Len(t, seen, 5)
	require.JSONEq(t, `{"name":"Renamed"}`, seen[2].Body)
	require.Equal(t, "application/json", seen[2].Header.Get("Content-Type"))
	require.Equal(t, http.MethodPost, seen[3].Method)
	require.Equal(t, http.MethodDelete, seen[4].Method)

	for _, req := range seen {
		require.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		require.True(t, strings.HasPrefix(req.Header.Get("User-Agent"), "scrapedeck/"))
		_, err := uuid.Parse(req.Header.Get(requestIDHeader))
		require.NoError(t, err, "request id should be a uuid")
	}
}

func TestClient_ScrapeAndLogEndpoints(t *testing.T) {
	t.Parallel()

	server, requests := newRecordingServer(t)
	c, err := NewClient(server.URL, "")
	require.NoError(t, err)
	ctx := context.Background()

	status, err := c.GetScrapeStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.IsRunning)
	require.InDelta(t, 0.25, status.CurrentRun.Progress(), 0.001)

	started, err := c.StartScrape(ctx, ScrapeParams{Sites: []string{"acme"}, Force: true})
	require.NoError(t, err)
	require.Equal(t, "r2", started.RunID)

	_, err = c.StopScrape(ctx)
	require.NoError(t, err)

	history, err := c.GetScrapeHistory(ctx, 20)
	require.NoError(t, err)
	require.Len(t, history, 1)

	errs, err := c.GetErrorLogs(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, "timeout", errs[0].Message)
	require.Equal(t, 2025, errs[0].ParsedTime().Year())

	logs, err := c.GetLogs(ctx, LogQuery{Limit: 100, Level: "warn", SiteKey: "acme"})
	require.NoError(t, err)
	require.Equal(t, "hello", logs[0].Message)
	require.False(t, logs[0].ParsedTime().IsZero())

	seen := requests()
	require.JSONEq(t, `{"sites":["acme"],"force":true}`, seen[1].Body)
	require.Equal(t, "20", seen[3].Query.Get("limit"))
	require.Equal(t, "50", seen[4].Query.Get("limit"))
	require.Equal(t, "100", seen[5].Query.Get("limit"))
	require.Equal(t, "warn", seen[5].Query.Get("level"))
	require.Equal(t, "acme", seen[5].Query.Get("site"))
	require.Empty(t, seen[0].Header.Get("Authorization"))
}

func TestClient_ScheduleAndWorkflowEndpoints(t *testing.T) {
	t.Parallel()

	server, requests := newRecordingServer(t)
	c, err := NewClient(server.URL, "")
	require.NoError(t, err)
	ctx := context.Background()

	jobs, err := c.ListScheduledJobs(ctx)
	require.NoError(t, err)
	require.Equal(t, "j1", jobs[0].ID)

	runAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	job, err := c.ScheduleScrape(ctx, runAt, ScrapeParams{})
	require.NoError(t, err)
	require.Equal(t, "j2", job.ID)

	require.NoError(t, c.CancelScheduledJob(ctx, "j1"))

	runs, err := c.ListWorkflowRuns(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(99), runs[0].ID)

	logs, err := c.GetWorkflowLogs(ctx, 99, WorkflowLogQuery{Tail: 500})
	require.NoError(t, err)
	require.Equal(t, int64(99), logs.RunID, "run id should be filled from the request")
	require.Equal(t, []string{"a", "b"}, logs.Jobs[0].Logs)

	seen := requests()
	require.JSONEq(t, `{"run_at":"2025-01-02T03:04:05Z","params":{}}`, seen[1].Body)
	require.Equal(t, "/api/schedule/j1", seen[2].Path)
	require.Equal(t, "5", seen[3].Query.Get("count"))
	require.Equal(t, "500", seen[4].Query.Get("tail"))
}

func TestClient_ValidatesArguments(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.GetSite(ctx, " ")
	require.Error(t, err)
	_, err = c.ToggleSite(ctx, "a/b")
	require.Error(t, err)
	require.Error(t, c.CancelScheduledJob(ctx, ""))
	_, err = c.ScheduleScrape(ctx, time.Time{}, ScrapeParams{})
	require.Error(t, err)
	_, err = c.GetWorkflowLogs(ctx, 0, WorkflowLogQuery{})
	require.Error(t, err)
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/scrape/status":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case "/api/sites/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Site missing not found"}`))
		case "/api/sites":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "")
	require.NoError(t, err)

	_, err = c.GetScrapeStatus(context.Background())
	require.ErrorContains(t, err, "decode response")

	_, err = c.GetSite(context.Background(), "missing")
	require.True(t, IsNotFound(err))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Site missing not found", apiErr.Message)

	_, err = c.ListSites(context.Background())
	require.True(t, IsServerError(err))
	require.ErrorContains(t, err, "returned status 500")
}

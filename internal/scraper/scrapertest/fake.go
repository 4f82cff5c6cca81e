// Package scrapertest provides an in-memory scraper.API for tests.
package scrapertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/five82/scrapedeck/internal/scraper"
)

// Fake implements scraper.API. Hooks override the default behavior of the
// matching method; without a hook the method serves from the in-memory
// fields. Every call is counted by method name.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	Sites     []scraper.Site
	Status    scraper.ScrapeStatus
	History   []scraper.ScrapeRun
	Errors    []scraper.ErrorLog
	Logs      []scraper.LogEntry
	Scheduled []scraper.ScheduledJob
	Runs      []scraper.WorkflowRun

	ToggleHook         func(key string) error
	DeleteHook         func(key string) error
	StartHook          func(params scraper.ScrapeParams) error
	WorkflowLogsHook   func(runID int64) (scraper.WorkflowLogs, error)
	WorkflowRunsHook   func() ([]scraper.WorkflowRun, error)
	StatusHook         func() (scraper.ScrapeStatus, error)
	ListSitesHook      func() (scraper.SiteList, error)
	ScheduleScrapeHook func(runAt time.Time, params scraper.ScrapeParams) (scraper.ScheduledJob, error)
}

var _ scraper.API = (*Fake)(nil)

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

// SetRuns replaces the workflow runs under the lock.
func (f *Fake) SetRuns(runs []scraper.WorkflowRun) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Runs = runs
}

// SetStatus replaces the scrape status under the lock.
func (f *Fake) SetStatus(status scraper.ScrapeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = status
}

func (f *Fake) ListSites(ctx context.Context) (scraper.SiteList, error) {
	f.record("ListSites")
	if f.ListSitesHook != nil {
		return f.ListSitesHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := scraper.SiteList{Sites: append([]scraper.Site(nil), f.Sites...), Total: len(f.Sites)}
	for _, s := range f.Sites {
		if s.Enabled {
			list.Enabled++
		} else {
			list.Disabled++
		}
	}
	return list, nil
}

func (f *Fake) GetSite(ctx context.Context, key string) (scraper.Site, error) {
	f.record("GetSite")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.Sites {
		if s.Key == key {
			return s, nil
		}
	}
	return scraper.Site{}, &scraper.APIError{Method: "GET", Path: "/api/sites/" + key, StatusCode: 404}
}

func (f *Fake) UpdateSite(ctx context.Context, key string, patch scraper.SitePatch) (scraper.Site, error) {
	f.record("UpdateSite")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.Sites {
		if s.Key != key {
			continue
		}
		if patch.Name != nil {
			s.Name = *patch.Name
		}
		if patch.URL != nil {
			s.URL = *patch.URL
		}
		if patch.Enabled != nil {
			s.Enabled = *patch.Enabled
		}
		f.Sites[i] = s
		return s, nil
	}
	return scraper.Site{}, &scraper.APIError{Method: "PATCH", Path: "/api/sites/" + key, StatusCode: 404}
}

func (f *Fake) DeleteSite(ctx context.Context, key string) error {
	f.record("DeleteSite")
	if f.DeleteHook != nil {
		if err := f.DeleteHook(key); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.Sites {
		if s.Key == key {
			f.Sites = append(f.Sites[:i], f.Sites[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *Fake) ToggleSite(ctx context.Context, key string) (scraper.MessageResponse, error) {
	f.record("ToggleSite")
	if f.ToggleHook != nil {
		if err := f.ToggleHook(key); err != nil {
			return scraper.MessageResponse{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.Sites {
		if s.Key == key {
			f.Sites[i].Enabled = !s.Enabled
			state := "disabled"
			if f.Sites[i].Enabled {
				state = "enabled"
			}
			return scraper.MessageResponse{Message: fmt.Sprintf("Site %s %s", key, state)}, nil
		}
	}
	return scraper.MessageResponse{}, &scraper.APIError{Method: "POST", Path: "/api/sites/" + key + "/toggle", StatusCode: 404}
}

func (f *Fake) GetScrapeStatus(ctx context.Context) (scraper.ScrapeStatus, error) {
	f.record("GetScrapeStatus")
	if f.StatusHook != nil {
		return f.StatusHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Status, nil
}

func (f *Fake) StartScrape(ctx context.Context, params scraper.ScrapeParams) (scraper.StartResponse, error) {
	f.record("StartScrape")
	if f.StartHook != nil {
		if err := f.StartHook(params); err != nil {
			return scraper.StartResponse{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status.IsRunning = true
	return scraper.StartResponse{Message: "Scrape started", RunID: "local-1"}, nil
}

func (f *Fake) StopScrape(ctx context.Context) (scraper.MessageResponse, error) {
	f.record("StopScrape")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status.IsRunning = false
	return scraper.MessageResponse{Message: "Scrape stopped"}, nil
}

func (f *Fake) GetScrapeHistory(ctx context.Context, limit int) ([]scraper.ScrapeRun, error) {
	f.record("GetScrapeHistory")
	f.mu.Lock()
	defer f.mu.Unlock()
	return headOf(f.History, limit), nil
}

func (f *Fake) GetErrorLogs(ctx context.Context, limit int) ([]scraper.ErrorLog, error) {
	f.record("GetErrorLogs")
	f.mu.Lock()
	defer f.mu.Unlock()
	return tailOf(f.Errors, limit), nil
}

func (f *Fake) GetLogs(ctx context.Context, query scraper.LogQuery) ([]scraper.LogEntry, error) {
	f.record("GetLogs")
	f.mu.Lock()
	defer f.mu.Unlock()
	return tailOf(f.Logs, query.Limit), nil
}

func (f *Fake) ListScheduledJobs(ctx context.Context) ([]scraper.ScheduledJob, error) {
	f.record("ListScheduledJobs")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scraper.ScheduledJob(nil), f.Scheduled...), nil
}

func (f *Fake) CancelScheduledJob(ctx context.Context, id string) error {
	f.record("CancelScheduledJob")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, j := range f.Scheduled {
		if j.ID == id {
			f.Scheduled = append(f.Scheduled[:i], f.Scheduled[i+1:]...)
			return nil
		}
	}
	return &scraper.APIError{Method: "DELETE", Path: "/api/schedule/" + id, StatusCode: 404}
}

func (f *Fake) ScheduleScrape(ctx context.Context, runAt time.Time, params scraper.ScrapeParams) (scraper.ScheduledJob, error) {
	f.record("ScheduleScrape")
	if f.ScheduleScrapeHook != nil {
		return f.ScheduleScrapeHook(runAt, params)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job := scraper.ScheduledJob{
		ID:     fmt.Sprintf("job-%d", len(f.Scheduled)+1),
		RunAt:  runAt.UTC().Format(time.RFC3339),
		Params: params,
		Status: "pending",
	}
	f.Scheduled = append(f.Scheduled, job)
	return job, nil
}

func (f *Fake) ListWorkflowRuns(ctx context.Context, count int) ([]scraper.WorkflowRun, error) {
	f.record("ListWorkflowRuns")
	if f.WorkflowRunsHook != nil {
		return f.WorkflowRunsHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return headOf(f.Runs, count), nil
}

func (f *Fake) GetWorkflowLogs(ctx context.Context, runID int64, query scraper.WorkflowLogQuery) (scraper.WorkflowLogs, error) {
	f.record("GetWorkflowLogs")
	if f.WorkflowLogsHook != nil {
		return f.WorkflowLogsHook(runID)
	}
	return scraper.WorkflowLogs{RunID: runID}, nil
}

func headOf[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]T(nil), items...)
}

func tailOf[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return append([]T(nil), items...)
}

package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/five82/scrapedeck/internal/bulk"
	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/prefs"
	"github.com/five82/scrapedeck/internal/scraper"
	"github.com/five82/scrapedeck/internal/state"
)

const waitDuration = 3 * time.Second

type bulkCall struct {
	action bulk.Action
	keys   []string
}

// fakeBackend records every call and answers with canned results.
type fakeBackend struct {
	mu        sync.Mutex
	toggled   []string
	bulk      []bulkCall
	started   []scraper.ScrapeParams
	stopped   int
	scheduled []time.Time
	cancelled []string
	refreshed int
	loadMore  int

	toggleErr error
	view      console.View
}

func (f *fakeBackend) Refresh(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
}

func (f *fakeBackend) ToggleSite(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, key)
	if f.toggleErr != nil {
		return "", f.toggleErr
	}
	return "Toggled " + key, nil
}

func (f *fakeBackend) BulkApply(_ context.Context, action bulk.Action, keys []string, _ []scraper.Site) bulk.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk = append(f.bulk, bulkCall{action: action, keys: append([]string(nil), keys...)})
	return bulk.Result{Action: action, Requested: len(keys), Succeeded: len(keys), FailedKeys: map[string]struct{}{}}
}

func (f *fakeBackend) StartScrape(_ context.Context, params scraper.ScrapeParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, params)
	return "Scrape started", nil
}

func (f *fakeBackend) StopScrape(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return "Scrape stopped", nil
}

func (f *fakeBackend) ScheduleScrape(_ context.Context, at time.Time, params scraper.ScrapeParams) (scraper.ScheduledJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, at)
	return scraper.ScheduledJob{ID: "job-1", RunAt: at.UTC().Format(time.RFC3339), Params: params}, nil
}

func (f *fakeBackend) CancelScheduled(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeBackend) LoadMoreLogs() console.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadMore++
	f.view.MaxVisible += 100
	return f.view
}

func (f *fakeBackend) Notifications() <-chan bulk.Notification { return nil }

func (f *fakeBackend) bulkCalls() []bulkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bulkCall(nil), f.bulk...)
}

func testSites() scraper.SiteList {
	return scraper.SiteList{
		Sites: []scraper.Site{
			{Key: "alpha", Name: "Alpha News", URL: "https://alpha.example", Enabled: true, Category: "news"},
			{Key: "bravo", Name: "Bravo Shop", URL: "https://bravo.example", Enabled: false, Category: "shop"},
			{Key: "charlie", Name: "Charlie Blog", URL: "https://charlie.example", Enabled: true, Category: "blog"},
		},
		Enabled: 2, Disabled: 1, Total: 3,
	}
}

func newTestModel(t *testing.T, backend Backend) Model {
	t.Helper()
	store := &state.Store{}
	store.UpdateSites(testSites(), nil)
	store.UpdateSchedule(nil, nil)

	m := New(Options{
		Backend:   backend,
		Store:     store,
		Prefs:     prefs.Default(),
		PrefsPath: t.TempDir() + "/prefs.toml",
		Clipboard: func(string) error { return nil },
	})
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return update(t, m, snapshotMsg(store.Snapshot()))
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends one key and returns the command it produced.
func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, string(r))
	}
	return m
}

// appAdapter wraps Model so teatest does not run Init, which would start
// the tick loop and the notification listener.
type appAdapter struct {
	model Model
}

func (a *appAdapter) Init() tea.Cmd { return nil }

func (a *appAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := a.model.Update(msg)
	a.model = m.(Model)
	return a, cmd
}

func (a *appAdapter) View() string { return a.model.View() }

// waitForContains waits until the program output contains substr.
func waitForContains(tb testing.TB, tm *teatest.TestModel, substr string) {
	tb.Helper()
	teatest.WaitFor(
		tb,
		tm.Output(),
		func(bts []byte) bool { return strings.Contains(string(bts), substr) },
		teatest.WithDuration(waitDuration),
	)
}

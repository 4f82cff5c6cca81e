package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/scraper"
)

func ciView() console.View {
	lines := make([]string, 350)
	for i := range lines {
		lines[i] = "line"
	}
	logs := scraper.WorkflowLogs{RunID: 42, Jobs: []scraper.WorkflowJob{
		{ID: 1, Name: "scrape", Status: "in_progress", Logs: lines},
	}}
	return console.View{
		HasStatus:  true,
		Status:     scraper.ScrapeStatus{IsRunning: true, CurrentRun: &scraper.ScrapeRun{ID: "r1", SitesTotal: 4, SitesDone: 1}},
		HasJob:     true,
		JobID:      42,
		Run:        scraper.WorkflowRun{ID: 42, Status: "in_progress"},
		Jobs:       console.BuildJobViews(logs, 100),
		ShouldPoll: true,
		MaxVisible: 100,
	}
}

func TestConsoleText_CIJobShowsRemaining(t *testing.T) {
	text := consoleText(ciView(), time.Now())

	require.Contains(t, text, "CI run #42")
	require.Contains(t, text, "[in progress] scrape  showing 100 of 350 lines")
	require.Contains(t, text, "250 more lines")
	require.Contains(t, text, "[running] run r1")
	require.NotContains(t, text, "Local logs")
}

func TestConsoleText_LocalFallback(t *testing.T) {
	v := console.View{
		HasStatus:   true,
		Local:       []console.LogLine{{Source: console.SourceLocal, SiteKey: "alpha", Message: "INFO fetched"}},
		LocalTotal:  3,
		Errors:      []console.LogLine{{Source: console.SourceErrors, Message: "timeout: slow"}},
		ErrorsTotal: 1,
		History:     []scraper.ScrapeRun{{ID: "r0", Status: "completed"}},
	}
	text := consoleText(v, time.Now())

	require.Contains(t, text, "[stopped] idle")
	require.Contains(t, text, "Local logs  showing 1 of 3")
	require.Contains(t, text, "[alpha] INFO fetched")
	require.Contains(t, text, "2 more lines")
	require.Contains(t, text, "timeout: slow")
	require.Contains(t, text, "History")
	require.False(t, strings.Contains(text, "CI run"))
}

func TestConsole_YankCopiesPlainText(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	var copied string
	m.copy = func(s string) error { copied = s; return nil }
	m.snapshot.Console = ciView()

	m, _ = press(t, m, "2")
	require.Equal(t, ViewConsole, m.currentView)

	m, cmd := press(t, m, "y")
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, actionDoneMsg{message: "Console copied to clipboard"}, msg)
	require.Contains(t, copied, "CI run #42")
	require.NotContains(t, copied, "\x1b[")
}

func TestConsole_LoadMoreUsesBackendView(t *testing.T) {
	backend := &fakeBackend{view: console.View{MaxVisible: 100}}
	m := newTestModel(t, backend)
	m, _ = press(t, m, "2")

	_, cmd := press(t, m, "m")
	require.NotNil(t, cmd)
	msg := cmd()
	m = update(t, m, msg)
	require.Equal(t, 200, m.snapshot.Console.MaxVisible)
}

func TestConsole_StartRefusedWhileRunning(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(t, backend)
	m.snapshot.Console = ciView()
	m, _ = press(t, m, "2")

	m, cmd := press(t, m, "s")
	require.Nil(t, cmd)
	require.Contains(t, m.toast.message, "already running")

	m.snapshot.Console = console.View{HasStatus: true}
	m.selected["charlie"] = true
	_, cmd = press(t, m, "s")
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, []scraper.ScrapeParams{{Sites: []string{"charlie"}}}, backend.started)
}

func TestSchedule_PlusMinutes(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(t, backend)
	m, _ = press(t, m, "3")

	m, _ = press(t, m, "n")
	require.True(t, m.scheduling)
	m = typeText(t, m, "15")
	m, cmd := press(t, m, "enter")
	require.False(t, m.scheduling)
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	require.Contains(t, done.message, "Scheduled run job-1")
	require.Equal(t, []time.Time{m.now().Add(15 * time.Minute)}, backend.scheduled)
}

func TestParseMinutes(t *testing.T) {
	d, err := parseMinutes(" +30 ")
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, d)

	for _, raw := range []string{"", "0", "-5", "abc", "20000"} {
		_, err := parseMinutes(raw)
		require.Error(t, err, raw)
	}
}

func TestToastExpiresOnTick(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.setToast("hello", 0)
	require.Equal(t, "hello", m.toast.message)

	m = update(t, m, tickMsg(m.now().Add(ToastDuration+time.Second)))
	require.Empty(t, m.toast.message)
}

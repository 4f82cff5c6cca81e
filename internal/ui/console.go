package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scrapedeck/internal/bulk"
	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/scraper"
)

type lineKind int

const (
	kindText lineKind = iota
	kindTitle
	kindMuted
	kindWarn
	kindError
	kindStatus
)

type consoleLine struct {
	text   string
	kind   lineKind
	status string // badge text for kindStatus
}

// consoleLines flattens a console view into display lines. Rendering and
// clipboard export share it so the copied text matches the screen.
func consoleLines(v console.View, now time.Time) []consoleLine {
	var out []consoleLine
	add := func(kind lineKind, format string, args ...any) {
		out = append(out, consoleLine{text: fmt.Sprintf(format, args...), kind: kind})
	}

	switch {
	case v.HasStatus && v.Status.IsRunning:
		out = append(out, consoleLine{text: runSummary(v.Status.CurrentRun, now), kind: kindStatus, status: "running"})
	case v.HasStatus:
		out = append(out, consoleLine{text: "idle", kind: kindStatus, status: "stopped"})
	default:
		add(kindMuted, "Waiting for scrape status...")
	}
	if v.HasStatus && v.Status.LastRun != nil {
		last := v.Status.LastRun
		add(kindMuted, "Last run %s: %s, %d items, %d errors, finished %s",
			last.ID, last.Status, last.ItemsScraped, last.ErrorCount, humanizeAge(last.ParsedFinishedAt(), now))
	}
	if v.StatusErr != "" {
		add(kindError, "! status unavailable: %s", v.StatusErr)
	}
	out = append(out, consoleLine{})

	if v.HasJob {
		out = append(out, ciLines(v)...)
	} else {
		out = append(out, localLines(v)...)
	}

	if len(v.History) > 0 {
		out = append(out, consoleLine{})
		add(kindTitle, "History")
		for _, r := range v.History {
			add(kindText, "%-14s %-10s %s  %d/%d sites  %d items  %d errors",
				truncate(r.ID, 14), r.Status, humanizeAge(r.ParsedStartedAt(), now),
				r.SitesDone, r.SitesTotal, r.ItemsScraped, r.ErrorCount)
		}
	}
	return out
}

func runSummary(run *scraper.ScrapeRun, now time.Time) string {
	if run == nil {
		return "running"
	}
	parts := []string{
		fmt.Sprintf("run %s", run.ID),
		fmt.Sprintf("%d/%d sites (%.0f%%)", run.SitesDone, run.SitesTotal, run.Progress()*100),
		fmt.Sprintf("%d items", run.ItemsScraped),
		fmt.Sprintf("%d errors", run.ErrorCount),
		"started " + humanizeAge(run.ParsedStartedAt(), now),
	}
	if run.CurrentSite != "" {
		parts = append(parts, "current "+run.CurrentSite)
	}
	return strings.Join(parts, "  ·  ")
}

func ciLines(v console.View) []consoleLine {
	var out []consoleLine
	state := v.Run.Status
	if v.Run.Conclusion != "" {
		state += "/" + v.Run.Conclusion
	}
	out = append(out, consoleLine{text: fmt.Sprintf("CI run #%d  %s", v.JobID, state), kind: kindTitle})
	if v.CIErr != "" {
		out = append(out, consoleLine{text: "! CI logs unavailable, retrying: " + v.CIErr, kind: kindWarn})
	}
	if len(v.Jobs) == 0 {
		out = append(out, consoleLine{text: "  waiting for job logs...", kind: kindMuted})
		return out
	}
	for _, job := range v.Jobs {
		header := fmt.Sprintf("%s  showing %d of %d lines", job.Name, len(job.Lines), job.TotalLineCount)
		out = append(out, consoleLine{text: header, kind: kindStatus, status: job.Status.String()})
		for _, l := range job.Lines {
			out = append(out, consoleLine{text: "  " + l.String()})
		}
		if n := job.Remaining(); n > 0 {
			out = append(out, consoleLine{text: fmt.Sprintf("  ... %d more lines (m to load more)", n), kind: kindMuted})
		}
	}
	if !v.ShouldPoll {
		out = append(out, consoleLine{text: "All jobs completed", kind: kindMuted})
	}
	return out
}

func localLines(v console.View) []consoleLine {
	out := []consoleLine{
		{text: fmt.Sprintf("Local logs  showing %d of %d, newest first", len(v.Local), v.LocalTotal), kind: kindTitle},
	}
	if len(v.Local) == 0 {
		out = append(out, consoleLine{text: "  no recent log lines", kind: kindMuted})
	}
	for _, l := range v.Local {
		out = append(out, consoleLine{text: "  " + l.String()})
	}
	if v.LocalTotal > len(v.Local) {
		out = append(out, consoleLine{text: fmt.Sprintf("  ... %d more lines (m to load more)", v.LocalTotal-len(v.Local)), kind: kindMuted})
	}

	out = append(out, consoleLine{}, consoleLine{
		text: fmt.Sprintf("Errors  showing %d of %d", len(v.Errors), v.ErrorsTotal),
		kind: kindTitle,
	})
	for _, l := range v.Errors {
		out = append(out, consoleLine{text: "  " + l.String(), kind: kindError})
	}
	return out
}

// consoleText is the plain-text export used by the yank key.
func consoleText(v console.View, now time.Time) string {
	lines := consoleLines(v, now)
	texts := make([]string, len(lines))
	for i, l := range lines {
		if l.kind == kindStatus {
			texts[i] = "[" + l.status + "] " + l.text
			continue
		}
		texts[i] = l.text
	}
	return strings.TrimRight(strings.Join(texts, "\n"), "\n") + "\n"
}

func (m Model) renderConsoleContent() string {
	styles := m.theme.Styles()
	lines := consoleLines(m.snapshot.Console, m.now())
	rendered := make([]string, len(lines))
	for i, l := range lines {
		switch l.kind {
		case kindTitle:
			rendered[i] = styles.AccentText.Bold(true).Render(l.text)
		case kindMuted:
			rendered[i] = styles.MutedText.Render(l.text)
		case kindWarn:
			rendered[i] = styles.WarningText.Render(l.text)
		case kindError:
			rendered[i] = styles.DangerText.Render(l.text)
		case kindStatus:
			rendered[i] = styles.StatusStyle(l.status).Render(l.status) + " " + styles.Text.Render(l.text)
		default:
			rendered[i] = styles.Text.Render(l.text)
		}
	}
	return strings.Join(rendered, "\n")
}

func (m *Model) resizeConsole() {
	w, h := m.width, max(m.contentHeight()-1, 1)
	if m.consoleViewport.Width == 0 {
		m.consoleViewport = viewport.New(w, h)
		m.consoleViewport.Style = lipgloss.NewStyle()
		return
	}
	m.consoleViewport.Width = w
	m.consoleViewport.Height = h
}

func (m *Model) updateConsoleViewport() {
	if !m.ready {
		return
	}
	if m.consoleViewport.Width == 0 {
		m.resizeConsole()
	}
	m.consoleViewport.SetContent(m.renderConsoleContent())
}

// handleConsoleKey processes keyboard input for the console view.
func (m Model) handleConsoleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.consoleViewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.consoleViewport.LineDown(1)
	case key.Matches(msg, m.keys.HalfUp):
		m.consoleViewport.HalfViewUp()
	case key.Matches(msg, m.keys.HalfDown):
		m.consoleViewport.HalfViewDown()
	case key.Matches(msg, m.keys.Top):
		m.consoleViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.consoleViewport.GotoBottom()
	case key.Matches(msg, m.keys.LoadMore):
		if m.backend == nil {
			return m, nil
		}
		backend := m.backend
		return m, func() tea.Msg { return consoleViewMsg(backend.LoadMoreLogs()) }
	case key.Matches(msg, m.keys.StartRun):
		if m.snapshot.Console.Running() {
			m.setToast("a scrape is already running", bulk.LevelWarn)
			return m, nil
		}
		var params scraper.ScrapeParams
		for _, k := range m.selectedKeys() {
			if m.selected[k] {
				params.Sites = append(params.Sites, k)
			}
		}
		return m, m.actionCmd(func(ctx context.Context, b Backend) (string, error) {
			return b.StartScrape(ctx, params)
		})
	case key.Matches(msg, m.keys.StopRun):
		return m, m.actionCmd(func(ctx context.Context, b Backend) (string, error) {
			return b.StopScrape(ctx)
		})
	case key.Matches(msg, m.keys.Yank):
		text := consoleText(m.snapshot.Console, m.now())
		copyFn := m.copy
		return m, func() tea.Msg {
			if err := copyFn(text); err != nil {
				return actionDoneMsg{err: fmt.Errorf("copy console: %w", err)}
			}
			return actionDoneMsg{message: "Console copied to clipboard"}
		}
	}
	return m, nil
}

// renderConsole renders the console view.
func (m Model) renderConsole() string {
	styles := m.theme.Styles()
	v := m.snapshot.Console
	title := "Run console"
	switch {
	case v.HasJob:
		title += fmt.Sprintf("  ·  CI run #%d", v.JobID)
	case v.HasStatus:
		title += "  ·  local logs"
	}
	title += fmt.Sprintf("  ·  cap %d", max(v.MaxVisible, 0))
	return styles.Section.Width(m.width).Render(title) + "\n" + m.consoleViewport.View()
}

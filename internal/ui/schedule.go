package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scrapedeck/internal/scraper"
)

// parseMinutes reads the "+N minutes" prompt. Only positive whole minutes up
// to one week are accepted.
func parseMinutes(raw string) (time.Duration, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "+")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("enter a positive number of minutes, got %q", raw)
	}
	if n > 7*24*60 {
		return 0, fmt.Errorf("%d minutes is more than a week ahead", n)
	}
	return time.Duration(n) * time.Minute, nil
}

// handleScheduleKey processes keyboard input for the schedule view.
func (m Model) handleScheduleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	jobs := m.snapshot.Schedule
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.scheduleCursor > 0 {
			m.scheduleCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.scheduleCursor < len(jobs)-1 {
			m.scheduleCursor++
		}
	case key.Matches(msg, m.keys.NewSchedule):
		m.scheduling = true
		m.scheduleInput.SetValue("")
		return m, m.scheduleInput.Focus()
	case key.Matches(msg, m.keys.CancelSchedule):
		if m.scheduleCursor >= len(jobs) {
			return m, nil
		}
		id := jobs[m.scheduleCursor].ID
		return m, m.actionCmd(func(ctx context.Context, b Backend) (string, error) {
			if err := b.CancelScheduled(ctx, id); err != nil {
				return "", err
			}
			return "Cancelled scheduled run " + id, nil
		})
	}
	return m, nil
}

func (m Model) handleScheduleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.scheduling = false
		m.scheduleInput.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.scheduling = false
		m.scheduleInput.Blur()
		delay, err := parseMinutes(m.scheduleInput.Value())
		if err != nil {
			return m, func() tea.Msg { return actionDoneMsg{err: err} }
		}
		at := m.now().Add(delay)
		var params scraper.ScrapeParams
		for _, k := range m.selectedKeys() {
			if m.selected[k] {
				params.Sites = append(params.Sites, k)
			}
		}
		return m, m.actionCmd(func(ctx context.Context, b Backend) (string, error) {
			job, err := b.ScheduleScrape(ctx, at, params)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Scheduled run %s for %s", job.ID, at.Local().Format("15:04")), nil
		})
	}
	var cmd tea.Cmd
	m.scheduleInput, cmd = m.scheduleInput.Update(msg)
	return m, cmd
}

// renderSchedule renders the scheduled-runs list.
func (m Model) renderSchedule() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	header := styles.Section.Width(m.width).Render(
		strings.Join([]string{padRight("ID", 16), padRight("RUNS AT", 20), padRight("IN", 10), padRight("STATE", 12), "SITES"}, " "))

	var lines []string
	switch {
	case !m.snapshot.HasSchedule && m.snapshot.ScheduleErr == nil:
		lines = append(lines, styles.MutedText.Render("  Loading schedule..."))
	case len(m.snapshot.Schedule) == 0:
		lines = append(lines, styles.MutedText.Render("  No scheduled runs. Press n to schedule one."))
	}

	now := m.now()
	for i, job := range m.snapshot.Schedule {
		runAt := job.ParsedRunAt()
		when := job.RunAt
		if !runAt.IsZero() {
			when = runAt.Local().Format("2006-01-02 15:04")
		}
		sites := "all enabled"
		if len(job.Params.Sites) > 0 {
			sites = strings.Join(job.Params.Sites, ", ")
		}
		status := ternary(job.Status == "", "scheduled", job.Status)
		row := strings.Join([]string{
			padRight(job.ID, 16),
			padRight(when, 20),
			padRight(humanizeAge(runAt, now), 10),
			styles.StatusStyle(status).Render(padRight(status, 10)),
			truncate(sites, max(m.width-64, 10)),
		}, " ")
		if i == m.scheduleCursor {
			row = styles.Selected.Width(m.width).Render(row)
		}
		lines = append(lines, row)
	}

	bodyHeight := max(height-2, 1)
	body := lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(strings.Join(append([]string{header}, lines...), "\n"))

	var prompt string
	switch {
	case m.scheduling:
		prompt = m.scheduleInput.View()
	case m.snapshot.ScheduleErr != nil:
		prompt = styles.WarningText.Render("! " + m.snapshot.ScheduleErr.Error())
	}
	hint := "n schedule  ·  x cancel"
	if n := len(m.selected); n > 0 {
		hint += fmt.Sprintf("  ·  new runs target %d selected site(s)", n)
	}
	return body + "\n" + styles.MutedText.Render(hint) + "\n" + prompt
}

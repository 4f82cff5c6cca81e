package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scrapedeck/internal/bulk"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	sep := bg.Spaces(2)

	parts := []string{bg.Render("scrapedeck", styles.Logo)}

	v := m.snapshot.Console
	switch {
	case m.snapshot.IsOffline():
		parts = append(parts,
			bg.Render("API OFFLINE", styles.DangerText),
			bg.Render("Retrying...", styles.WarningText.Bold(true)))
	case !v.HasStatus:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	case v.Status.IsRunning:
		parts = append(parts, bg.Render("● RUNNING", styles.SuccessText))
		if run := v.Status.CurrentRun; run != nil {
			parts = append(parts, bg.Render(fmt.Sprintf("%d/%d sites", run.SitesDone, run.SitesTotal), styles.Text))
		}
	default:
		parts = append(parts, bg.Render("● IDLE", styles.MutedText))
	}

	if m.snapshot.HasSites {
		list := m.snapshot.Sites
		label := "Sites:"
		if compact {
			label = "S:"
		}
		parts = append(parts,
			bg.Render(label, styles.MutedText)+bg.Spaces(1)+
				bg.Render(fmt.Sprintf("%d/%d", list.Enabled, list.Total), styles.Text))
	}

	if v.HasJob {
		parts = append(parts, bg.Render(fmt.Sprintf("CI #%d", v.JobID), styles.InfoText))
	}

	if !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.MutedText))
	}

	if err := m.snapshot.LastError; err != nil && !compact {
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Spaces(1)+
				bg.Render(truncate(err.Error(), 60), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
}

// renderCommandBar renders the view tabs and the most relevant keys.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var tabs []string
	for i, v := range []View{ViewSites, ViewConsole, ViewSchedule} {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.currentView {
			tabs = append(tabs, bg.Render("["+label+"]", styles.AccentText.Bold(true)))
			continue
		}
		tabs = append(tabs, bg.Render(label, styles.MutedText))
	}

	var hints []string
	switch m.currentView {
	case ViewSites:
		hints = []string{"space select", "t toggle", "E/D enable/disable", "X delete", "/ filter", "n/p page"}
	case ViewConsole:
		hints = []string{"s start", "S stop", "m more", "y copy"}
	case ViewSchedule:
		hints = []string{"n schedule", "x cancel"}
	}
	hints = append(hints, "h help", "e quit")

	content := bg.Join(tabs, "  ") + bg.Spaces(3) + bg.Render(strings.Join(hints, "  "), styles.FaintText)
	return styles.Footer.Width(m.width).Render(content)
}

// renderStatusLine renders the toast line.
func (m Model) renderStatusLine() string {
	if m.toast.message == "" {
		return ""
	}
	styles := m.theme.Styles()
	style := styles.SuccessText
	switch m.toast.level {
	case bulk.LevelWarn:
		style = styles.WarningText
	case bulk.LevelError:
		style = styles.DangerText
	}
	return lipgloss.NewStyle().Width(m.width).Render(style.Render(truncate(m.toast.message, m.width)))
}

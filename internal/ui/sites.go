package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scrapedeck/internal/bulk"
	"github.com/five82/scrapedeck/internal/scraper"
)

// filterSites keeps sites whose key, name, url or category contains filter,
// case-insensitively. Order is preserved.
func filterSites(sites []scraper.Site, filter string) []scraper.Site {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return sites
	}
	out := make([]scraper.Site, 0, len(sites))
	for _, s := range sites {
		for _, field := range []string{s.Key, s.Name, s.URL, s.Category} {
			if strings.Contains(strings.ToLower(field), filter) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// paginate returns the requested 1-based page, the page actually shown after
// clamping, and the page count (at least 1).
func paginate(sites []scraper.Site, page, size int) ([]scraper.Site, int, int) {
	if size <= 0 {
		size = len(sites)
	}
	pages := 1
	if size > 0 && len(sites) > 0 {
		pages = (len(sites) + size - 1) / size
	}
	page = min(max(page, 1), pages)
	start := (page - 1) * size
	end := min(start+size, len(sites))
	if start >= end {
		return nil, page, pages
	}
	return sites[start:end], page, pages
}

func (m Model) filteredSites() []scraper.Site {
	return filterSites(m.snapshot.Sites.Sites, m.prefs.SiteFilter)
}

func (m Model) pageSites() ([]scraper.Site, int, int) {
	return paginate(m.filteredSites(), m.prefs.Page, m.prefs.PageSize)
}

func (m Model) currentSite() (scraper.Site, bool) {
	sites, _, _ := m.pageSites()
	if m.siteCursor < 0 || m.siteCursor >= len(sites) {
		return scraper.Site{}, false
	}
	return sites[m.siteCursor], true
}

func (m *Model) clampSiteCursor() {
	sites, page, _ := m.pageSites()
	m.prefs.Page = page
	if m.siteCursor >= len(sites) {
		m.siteCursor = len(sites) - 1
	}
	if m.siteCursor < 0 {
		m.siteCursor = 0
	}
}

// selectedKeys returns the marked keys, or the row under the cursor when
// nothing is marked.
func (m Model) selectedKeys() []string {
	keys := make([]string, 0, len(m.selected))
	for _, s := range m.snapshot.Sites.Sites {
		if m.selected[s.Key] {
			keys = append(keys, s.Key)
		}
	}
	if len(keys) == 0 {
		if site, ok := m.currentSite(); ok {
			keys = append(keys, site.Key)
		}
	}
	return keys
}

// handleSitesKey processes keyboard input for the sites view.
func (m Model) handleSitesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sites, page, pages := m.pageSites()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.siteCursor > 0 {
			m.siteCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.siteCursor < len(sites)-1 {
			m.siteCursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.siteCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.siteCursor = max(len(sites)-1, 0)
	case key.Matches(msg, m.keys.NextPage):
		if page < pages {
			m.prefs.Page = page + 1
			m.siteCursor = 0
			return m, m.savePrefs()
		}
	case key.Matches(msg, m.keys.PrevPage):
		if page > 1 {
			m.prefs.Page = page - 1
			m.siteCursor = 0
			return m, m.savePrefs()
		}
	case key.Matches(msg, m.keys.Escape):
		clear(m.selected)
	case key.Matches(msg, m.keys.Select):
		if site, ok := m.currentSite(); ok {
			if m.selected[site.Key] {
				delete(m.selected, site.Key)
			} else {
				m.selected[site.Key] = true
			}
		}
	case key.Matches(msg, m.keys.SelectPage):
		all := len(sites) > 0
		for _, s := range sites {
			if !m.selected[s.Key] {
				all = false
				break
			}
		}
		for _, s := range sites {
			if all {
				delete(m.selected, s.Key)
			} else {
				m.selected[s.Key] = true
			}
		}
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.prefs.SiteFilter)
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.Toggle):
		site, ok := m.currentSite()
		if !ok {
			return m, nil
		}
		siteKey := site.Key
		return m, m.actionCmd(func(ctx context.Context, b Backend) (string, error) {
			return b.ToggleSite(ctx, siteKey)
		})
	case key.Matches(msg, m.keys.BulkEnable):
		return m.startBulk(bulk.Enable)
	case key.Matches(msg, m.keys.BulkDisable):
		return m.startBulk(bulk.Disable)
	case key.Matches(msg, m.keys.BulkDelete):
		if m.bulkBusy || len(m.selectedKeys()) == 0 {
			return m, nil
		}
		m.confirmDelete = true
	}
	return m, nil
}

func (m Model) startBulk(action bulk.Action) (tea.Model, tea.Cmd) {
	if m.backend == nil {
		return m, nil
	}
	if m.bulkBusy {
		m.setToast("a bulk action is already running", bulk.LevelWarn)
		return m, nil
	}
	keys := m.selectedKeys()
	if len(keys) == 0 {
		return m, nil
	}
	m.bulkBusy = true
	sites := append([]scraper.Site(nil), m.snapshot.Sites.Sites...)
	ctx, backend := m.ctx, m.backend
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, BulkTimeout)
		defer cancel()
		return bulkDoneMsg{result: backend.BulkApply(ctx, action, keys, sites)}
	}
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirmDelete = false
	if key.Matches(msg, m.keys.Yes) {
		return m.startBulk(bulk.Delete)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.filtering = false
		m.filterInput.Blur()
		m.prefs.SiteFilter = strings.TrimSpace(m.filterInput.Value())
		m.prefs.Page = 1
		m.siteCursor = 0
		return m, m.savePrefs()
	case key.Matches(msg, m.keys.Escape):
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue(m.prefs.SiteFilter)
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// renderSites renders the site table with a paging footer.
func (m Model) renderSites() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if !m.snapshot.HasSites {
		msg := "Loading sites..."
		if m.snapshot.SitesErr != nil {
			msg = "Sites unavailable: " + m.snapshot.SitesErr.Error()
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	filtered := m.filteredSites()
	sites, page, pages := paginate(filtered, m.prefs.Page, m.prefs.PageSize)

	lines := []string{m.renderSiteHeaderRow(styles)}
	if len(sites) == 0 {
		lines = append(lines, styles.MutedText.Render("  No sites match the current filter"))
	}
	for i, s := range sites {
		lines = append(lines, m.renderSiteRow(s, i == m.siteCursor, styles))
	}

	footer := fmt.Sprintf("Page %d/%d  ·  %d of %d sites  ·  %d enabled  ·  %d selected",
		page, pages, len(filtered), len(m.snapshot.Sites.Sites), m.snapshot.Sites.Enabled, len(m.selected))
	if m.prefs.SiteFilter != "" {
		footer += "  ·  filter: " + m.prefs.SiteFilter
	}
	if m.bulkBusy {
		footer += "  ·  working..."
	}

	body := strings.Join(lines, "\n")
	bodyHeight := max(height-2, 1)
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	var prompt string
	switch {
	case m.filtering:
		prompt = m.filterInput.View()
	case m.confirmDelete:
		prompt = styles.DangerText.Render(fmt.Sprintf("Delete %d site(s)? y to confirm, any key to cancel", len(m.selectedKeys())))
	case m.snapshot.SitesErr != nil:
		prompt = styles.WarningText.Render("! " + m.snapshot.SitesErr.Error())
	}
	return body + "\n" + styles.MutedText.Render(footer) + "\n" + prompt
}

func (m Model) siteColumns() (keyW, nameW, lastW, catW, urlW int) {
	keyW, nameW, lastW = 18, 28, 12
	if m.width >= LayoutCompactWidth {
		catW = 14
	}
	if m.width >= LayoutWideWidth {
		urlW = max(m.width-keyW-nameW-lastW-catW-30, 20)
	}
	return
}

func (m Model) renderSiteHeaderRow(styles Styles) string {
	keyW, nameW, lastW, catW, urlW := m.siteColumns()
	cols := []string{"   ", padRight("KEY", keyW), padRight("NAME", nameW), padRight("STATE", 10), padRight("LAST RUN", lastW)}
	if catW > 0 {
		cols = append(cols, padRight("CATEGORY", catW))
	}
	if urlW > 0 {
		cols = append(cols, padRight("URL", urlW))
	}
	return styles.Section.Width(m.width).Render(strings.Join(cols, " "))
}

func (m Model) renderSiteRow(s scraper.Site, cursor bool, styles Styles) string {
	keyW, nameW, lastW, catW, urlW := m.siteColumns()

	mark := "[ ]"
	if m.selected[s.Key] {
		mark = "[x]"
	}
	state := ternary(s.Enabled, "enabled", "disabled")
	last := humanizeAge(s.ParsedLastScraped(), m.now())
	if s.LastStatus != "" {
		last = s.LastStatus
	}

	cols := []string{
		mark,
		padRight(s.Key, keyW),
		padRight(s.Name, nameW),
		styles.StatusStyle(state).Render(padRight(state, 8)),
		padRight(last, lastW),
	}
	if catW > 0 {
		cols = append(cols, padRight(s.Category, catW))
	}
	if urlW > 0 {
		cols = append(cols, padRight(s.URL, urlW))
	}
	row := strings.Join(cols, " ")
	if cursor {
		return styles.Selected.Width(m.width).Render(row)
	}
	return styles.Text.Render(row)
}

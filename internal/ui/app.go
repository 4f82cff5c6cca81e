package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/scrapedeck/internal/bulk"
	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/prefs"
	"github.com/five82/scrapedeck/internal/scraper"
	"github.com/five82/scrapedeck/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewSites View = iota
	ViewConsole
	ViewSchedule
)

func (v View) String() string {
	switch v {
	case ViewConsole:
		return "Console"
	case ViewSchedule:
		return "Schedule"
	default:
		return "Sites"
	}
}

// Backend performs the writes and refreshes the UI triggers. Every method
// may block; the model only calls them from commands.
type Backend interface {
	Refresh(ctx context.Context)
	ToggleSite(ctx context.Context, key string) (string, error)
	BulkApply(ctx context.Context, action bulk.Action, keys []string, sites []scraper.Site) bulk.Result
	StartScrape(ctx context.Context, params scraper.ScrapeParams) (string, error)
	StopScrape(ctx context.Context) (string, error)
	ScheduleScrape(ctx context.Context, at time.Time, params scraper.ScrapeParams) (scraper.ScheduledJob, error)
	CancelScheduled(ctx context.Context, id string) error
	LoadMoreLogs() console.View
	Notifications() <-chan bulk.Notification
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	Store     *state.Store
	PollTick  time.Duration
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    *zap.Logger
	// Clipboard overrides the clipboard writer, mainly for tests.
	Clipboard func(string) error
}

type toast struct {
	message string
	level   bulk.Level
	until   time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	backend   Backend
	store     *state.Store
	prefsPath string
	pollTick  time.Duration
	logger    *zap.Logger
	copy      func(string) error
	now       func() time.Time

	// UI state
	prefs       prefs.Prefs
	theme       Theme
	keys        keyMap
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Sites state
	siteCursor    int
	selected      map[string]bool
	filterInput   textinput.Model
	filtering     bool
	confirmDelete bool
	bulkBusy      bool

	// Console state
	consoleViewport viewport.Model

	// Schedule state
	scheduleCursor int
	scheduleInput  textinput.Model
	scheduling     bool

	toast    toast
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = writeClipboard
	}

	p := opts.Prefs.Normalize()

	filter := textinput.New()
	filter.Placeholder = "key, name, url or category"
	filter.CharLimit = 100
	filter.Prompt = "/ "

	minutes := textinput.New()
	minutes.Placeholder = "minutes from now"
	minutes.CharLimit = 6
	minutes.Prompt = "+ "

	return Model{
		ctx:           ctx,
		backend:       opts.Backend,
		store:         opts.Store,
		prefsPath:     opts.PrefsPath,
		pollTick:      pollTick,
		logger:        logger,
		copy:          copyFn,
		now:           time.Now,
		prefs:         p,
		theme:         GetTheme(p.Theme),
		keys:          DefaultKeyMap(),
		currentView:   ViewSites,
		selected:      make(map[string]bool),
		filterInput:   filter,
		scheduleInput: minutes,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.backend != nil {
		cmds = append(cmds, listenNotificationsCmd(m.backend.Notifications()))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeConsole()
		m.updateConsoleViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case consoleViewMsg:
		m.snapshot.Console = console.View(msg)
		m.snapshot.HasConsole = true
		m.updateConsoleViewport()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setToast(msg.err.Error(), bulk.LevelError)
		} else if msg.message != "" {
			m.setToast(msg.message, bulk.LevelInfo)
		}
		return m, m.refreshSnapshot()

	case bulkDoneMsg:
		m.bulkBusy = false
		clear(m.selected)
		if m.backend == nil || m.backend.Notifications() == nil {
			m.setToast(msg.result.Summary(), levelFor(msg.result))
		}
		return m, m.refreshSnapshot()

	case notificationMsg:
		m.setToast(msg.Message, msg.Level)
		return m, listenNotificationsCmd(m.backend.Notifications())

	case prefsChangedMsg:
		m.applyPrefs(prefs.Prefs(msg))
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save preferences failed", zap.Error(msg.err))
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// Modal inputs swallow every key.
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.scheduling {
		return m.handleScheduleInputKey(msg)
	}
	if m.confirmDelete {
		return m.handleConfirmDeleteKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.updateConsoleViewport()
		return m, m.savePrefs()
	case key.Matches(msg, m.keys.Tab):
		m.currentView = (m.currentView + 1) % 3
		return m, nil
	case key.Matches(msg, m.keys.ShiftTab):
		m.currentView = (m.currentView + 2) % 3
		return m, nil
	case key.Matches(msg, m.keys.ViewSites):
		m.currentView = ViewSites
		return m, nil
	case key.Matches(msg, m.keys.ViewConsole):
		m.currentView = ViewConsole
		return m, nil
	case key.Matches(msg, m.keys.ViewSchedule):
		m.currentView = ViewSchedule
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()
	}

	switch m.currentView {
	case ViewSites:
		return m.handleSitesKey(msg)
	case ViewConsole:
		return m.handleConsoleKey(msg)
	case ViewSchedule:
		return m.handleScheduleKey(msg)
	}
	return m, nil
}

// handleTick processes the polling tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if !m.toast.until.IsZero() && now.After(m.toast.until) {
		m.toast = toast{}
	}
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if cmd := m.refreshSnapshot(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.lastUpdated = m.now()

	// Drop selections for sites that no longer exist.
	if snap.HasSites && len(m.selected) > 0 {
		known := make(map[string]struct{}, len(snap.Sites.Sites))
		for _, s := range snap.Sites.Sites {
			known[s.Key] = struct{}{}
		}
		for k := range m.selected {
			if _, ok := known[k]; !ok {
				delete(m.selected, k)
			}
		}
	}
	m.clampSiteCursor()
	if m.scheduleCursor >= len(snap.Schedule) {
		m.scheduleCursor = max(len(snap.Schedule)-1, 0)
	}
	m.updateConsoleViewport()
}

func (m *Model) applyPrefs(p prefs.Prefs) {
	p = p.Normalize()
	m.prefs = p
	m.theme = GetTheme(p.Theme)
	m.filterInput.SetValue(p.SiteFilter)
	m.clampSiteCursor()
	m.updateConsoleViewport()
}

func (m *Model) setToast(message string, level bulk.Level) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.toast = toast{message: message, level: level, until: m.now().Add(ToastDuration)}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSites:
		return m.renderSites()
	case ViewConsole:
		return m.renderConsole()
	case ViewSchedule:
		return m.renderSchedule()
	default:
		return ""
	}
}

func (m Model) contentHeight() int {
	return max(m.height-chromeLines, 1)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type consoleViewMsg console.View

type actionDoneMsg struct {
	message string
	err     error
}

type bulkDoneMsg struct {
	result bulk.Result
}

type notificationMsg bulk.Notification

type prefsChangedMsg prefs.Prefs

type prefsSavedMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) refreshSnapshot() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

func listenNotificationsCmd(ch <-chan bulk.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func (m Model) refreshCmd() tea.Cmd {
	if m.backend == nil {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		backend.Refresh(ctx)
		return actionDoneMsg{}
	}
}

// actionCmd runs fn against the backend with the standard action timeout.
func (m Model) actionCmd(fn func(ctx context.Context, b Backend) (string, error)) tea.Cmd {
	if m.backend == nil {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		message, err := fn(ctx, backend)
		return actionDoneMsg{message: message, err: err}
	}
}

func (m Model) savePrefs() tea.Cmd {
	if m.prefsPath == "" {
		return nil
	}
	path, p := m.prefsPath, m.prefs
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

func levelFor(r bulk.Result) bulk.Level {
	switch {
	case r.Failed() == 0:
		return bulk.LevelInfo
	case r.Failed() == r.Requested:
		return bulk.LevelError
	default:
		return bulk.LevelWarn
	}
}

// Run starts the Bubble Tea program and follows external edits of the
// preferences file until the program exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))

	if opts.PrefsPath != "" {
		watchCtx, cancel := context.WithCancel(m.ctx)
		defer cancel()
		err := prefs.Watch(watchCtx, opts.PrefsPath, func(next prefs.Prefs) {
			p.Send(prefsChangedMsg(next))
		})
		if err != nil {
			m.logger.Warn("preferences watch disabled", zap.Error(err))
		}
	}

	if _, err := p.Run(); err != nil && m.ctx.Err() == nil {
		return err
	}
	return nil
}

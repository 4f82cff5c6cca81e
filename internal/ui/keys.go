package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding

	// View switching
	ViewSites    key.Binding
	ViewConsole  key.Binding
	ViewSchedule key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Sites actions
	Select      key.Binding
	SelectPage  key.Binding
	Toggle      key.Binding
	BulkEnable  key.Binding
	BulkDisable key.Binding
	BulkDelete  key.Binding
	Filter      key.Binding

	// Console actions
	LoadMore key.Binding
	StartRun key.Binding
	StopRun  key.Binding
	Yank     key.Binding
	HalfUp   key.Binding
	HalfDown key.Binding

	// Schedule actions
	NewSchedule    key.Binding
	CancelSchedule key.Binding

	// Prompts
	Confirm key.Binding
	Yes     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Cycle views (reverse)"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel / clear selection"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh now"),
		),

		ViewSites: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Sites"),
		),
		ViewConsole: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Run console"),
		),
		ViewSchedule: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Schedule"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "pgdown"),
			key.WithHelp("n", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "pgup"),
			key.WithHelp("p", "Previous page"),
		),

		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Select site"),
		),
		SelectPage: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Select page"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Toggle site"),
		),
		BulkEnable: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Enable selected"),
		),
		BulkDisable: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Disable selected"),
		),
		BulkDelete: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Delete selected"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/", "f"),
			key.WithHelp("/", "Filter sites"),
		),

		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Load 100 more lines"),
		),
		StartRun: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Start scrape"),
		),
		StopRun: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Stop scrape"),
		),
		Yank: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy console"),
		),
		HalfUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		NewSchedule: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Schedule run"),
		),
		CancelSchedule: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Cancel scheduled run"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Yes"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewSites, k.ViewConsole, k.ViewSchedule, k.Refresh},
		{k.Up, k.Down, k.Top, k.Bottom, k.NextPage, k.PrevPage},
		{k.Select, k.SelectPage, k.Toggle, k.BulkEnable, k.BulkDisable, k.BulkDelete, k.Filter},
		{k.StartRun, k.StopRun, k.LoadMore, k.Yank, k.HalfDown, k.HalfUp},
		{k.NewSchedule, k.CancelSchedule},
		{k.CycleTheme, k.Help, k.Quit},
	}
}

package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"
)

func TestAppRendersSitesAndOpensHelp(t *testing.T) {
	adapter := &appAdapter{model: newTestModel(t, &fakeBackend{})}

	tm := teatest.NewTestModel(t, adapter, teatest.WithInitialTermSize(120, 40))
	tm.Send(tea.WindowSizeMsg{Width: 120, Height: 40})
	waitForContains(t, tm, "Charlie Blog")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	tm.Send(tea.QuitMsg{})

	final := tm.FinalModel(t, teatest.WithFinalTimeout(waitDuration)).(*appAdapter)
	require.True(t, final.model.showHelp)
	require.Contains(t, final.model.View(), "Keyboard Shortcuts")
}

func TestAppHelpClosesThenSwitchesView(t *testing.T) {
	adapter := &appAdapter{model: newTestModel(t, &fakeBackend{})}

	tm := teatest.NewTestModel(t, adapter, teatest.WithInitialTermSize(120, 40))
	tm.Send(tea.WindowSizeMsg{Width: 120, Height: 40})
	waitForContains(t, tm, "Charlie Blog")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	tm.Send(tea.QuitMsg{})

	final := tm.FinalModel(t, teatest.WithFinalTimeout(waitDuration)).(*appAdapter)
	require.False(t, final.model.showHelp)
	require.Equal(t, ViewSchedule, final.model.currentView)
	require.Contains(t, final.model.View(), "No scheduled runs")
}

func TestAppBulkFlowShowsSummary(t *testing.T) {
	backend := &fakeBackend{}
	adapter := &appAdapter{model: newTestModel(t, backend)}

	tm := teatest.NewTestModel(t, adapter, teatest.WithInitialTermSize(120, 40))
	tm.Send(tea.WindowSizeMsg{Width: 120, Height: 40})
	waitForContains(t, tm, "Alpha News")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("E")})
	waitForContains(t, tm, "Enabled 3 of 3 sites")

	tm.Send(tea.QuitMsg{})
	final := tm.FinalModel(t, teatest.WithFinalTimeout(waitDuration)).(*appAdapter)
	require.Empty(t, final.model.selected)
	require.Len(t, backend.bulkCalls(), 1)
}

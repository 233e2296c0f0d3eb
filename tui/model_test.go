/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tui

import (
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/guessmaster/session"
)

type fakeControls struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeControls) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeControls) Start() { f.record("start") }
func (f *fakeControls) Reset() { f.record("reset") }
func (f *fakeControls) ShowHistory() { f.record("show_history") }
func (f *fakeControls) HideHistory() { f.record("hide_history") }
func (f *fakeControls) Answer(a session.Answer) {
	f.record("answer:" + a.Text)
}
func (f *fakeControls) RespondToGuess(correct bool) {
	if correct {
		f.record("guess:correct")
		return
	}
	f.record("guess:wrong")
}

func (f *fakeControls) taken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs whatever command it produced.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()

	next, cmd := m.Update(key(k))
	if cmd != nil {
		cmd()
	}
	return next.(Model)
}

func feed(m Model, events ...session.Event) Model {
	for _, ev := range events {
		next, _ := m.Update(eventMsg{event: ev})
		m = next.(Model)
	}
	return m
}

func started(m Model) Model {
	return feed(m,
		session.ScreenChanged{Screen: session.GameScreen},
		session.TranscriptCleared{},
		session.CounterChanged{Count: 0, Limit: 20},
		session.NormalControlsShown{},
		session.ControlsToggled{Enabled: false},
		session.ThinkingShown{},
	)
}

func TestRulesScreenStartsOnEnter(t *testing.T) {
	fc := &fakeControls{}
	m := NewModel(fc, 20)

	require.Contains(t, m.View(), "20 yes/no questions")

	press(t, m, "y")
	press(t, m, "enter")
	require.Equal(t, []string{"start"}, fc.taken())
}

func TestAnswerKeysOnlyWhenEnabled(t *testing.T) {
	fc := &fakeControls{}
	m := started(NewModel(fc, 20))

	require.Contains(t, m.View(), "thinking")

	m = press(t, m, "y")
	require.Empty(t, fc.taken())

	m = feed(m,
		session.TextUpdated{Text: "Does it "},
		session.TextUpdated{Text: "Does it fly?"},
		session.TurnAppended{Turn: session.Turn{Role: session.Asker, Text: "Does it fly?"}},
		session.CounterChanged{Count: 1, Limit: 20},
		session.ControlsToggled{Enabled: true},
	)
	require.Contains(t, m.View(), "Does it fly?")
	require.Contains(t, m.View(), "Question 1 of 20")

	m = press(t, m, "y")
	m = press(t, m, "u")
	press(t, m, "c")
	require.Equal(t, []string{"answer:Yes", "answer:I don't know"}, fc.taken())
}

func TestGuessKeys(t *testing.T) {
	fc := &fakeControls{}
	m := feed(started(NewModel(fc, 20)),
		session.TurnAppended{Turn: session.Turn{Role: session.Asker, Text: "Is it a kite?"}},
		session.GuessControlsShown{},
	)

	require.Contains(t, m.View(), "c correct")

	m = press(t, m, "n")
	press(t, m, "w")
	require.Equal(t, []string{"guess:wrong"}, fc.taken())
}

func TestFailureShown(t *testing.T) {
	fc := &fakeControls{}
	m := feed(started(NewModel(fc, 20)),
		session.ControlsToggled{Enabled: false},
		session.FailureShown{Message: "communication failure: HTTP error! status: 500"},
	)

	view := m.View()
	require.Contains(t, view, "status: 500")
	require.NotContains(t, view, "thinking")

	press(t, m, "r")
	require.Equal(t, []string{"reset"}, fc.taken())
}

func TestEndScreenPlayAgain(t *testing.T) {
	fc := &fakeControls{}
	m := feed(started(NewModel(fc, 20)),
		session.ControlsToggled{Enabled: false},
		session.ScreenChanged{Screen: session.EndScreen},
		session.EndScreenShown{Reason: session.GuessRejected, Count: 7, Limit: 20},
	)

	require.Contains(t, m.View(), "You Win!")
	require.Contains(t, m.View(), "7 questions")

	press(t, m, "enter")
	require.Equal(t, []string{"reset", "start"}, fc.taken())
}

func TestHistoryToggle(t *testing.T) {
	fc := &fakeControls{}
	m := started(NewModel(fc, 20))

	m = press(t, m, "h")
	m = feed(m, session.HistoryShown{Turns: []session.Turn{
		{Role: session.Asker, Text: "Is it alive?"},
		{Role: session.Responder, Text: "No"},
	}})
	require.Contains(t, m.View(), "AI:")
	require.Contains(t, m.View(), "You:")

	m = press(t, m, "h")
	m = feed(m, session.HistoryHidden{})
	require.NotContains(t, m.View(), "You:")

	require.Equal(t, []string{"show_history", "hide_history"}, fc.taken())
}

func TestQuit(t *testing.T) {
	m := NewModel(&fakeControls{}, 20)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

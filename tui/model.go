/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package tui plays a session in the terminal. The model only renders
// controller events and forwards key presses; all game rules live in the
// session package.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Seednode/guessmaster/session"
)

// Controls is the part of a session.Controller the terminal drives.
type Controls interface {
	Start()
	Answer(session.Answer)
	RespondToGuess(correct bool)
	Reset()
	ShowHistory()
	HideHistory()
}

// eventMsg carries a controller event into the bubbletea loop.
type eventMsg struct {
	event session.Event
}

type Model struct {
	controls Controls
	spinner  spinner.Model

	screen      session.Screen
	question    string
	thinking    bool
	count       int
	limit       int
	enabled     bool
	guessMode   bool
	historyOpen bool
	history     []session.Turn
	end         *session.EndScreenShown
	failure     string
	width       int
}

func NewModel(controls Controls, limit int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		controls: controls,
		spinner:  sp,
		screen:   session.RulesScreen,
		limit:    limit,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// do runs f off the bubbletea goroutine. Controller calls may wait on the
// controller's event loop, which in turn may be waiting to deliver an event
// to this program.
func do(f func()) tea.Cmd {
	return func() tea.Msg {
		f()
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case eventMsg:
		m.apply(msg.event)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	}

	switch m.screen {
	case session.RulesScreen:
		if key == "enter" {
			return m, do(m.controls.Start)
		}
	case session.EndScreen:
		switch key {
		case "enter":
			return m, do(func() {
				m.controls.Reset()
				m.controls.Start()
			})
		case "r":
			return m, do(m.controls.Reset)
		case "h":
			return m, m.toggleHistory()
		}
	case session.GameScreen:
		return m, m.gameKey(key)
	}

	return m, nil
}

func (m Model) gameKey(key string) tea.Cmd {
	switch key {
	case "r":
		return do(m.controls.Reset)
	case "h":
		return m.toggleHistory()
	case "c", "w":
		if !m.guessMode {
			return nil
		}
		correct := key == "c"
		return do(func() { m.controls.RespondToGuess(correct) })
	case "y", "n", "u":
		if !m.enabled || m.guessMode {
			return nil
		}
		a, _ := session.ParseAnswer(key)
		return do(func() { m.controls.Answer(a) })
	}
	return nil
}

func (m Model) toggleHistory() tea.Cmd {
	if m.historyOpen {
		return do(m.controls.HideHistory)
	}
	return do(m.controls.ShowHistory)
}

func (m *Model) apply(ev session.Event) {
	switch e := ev.(type) {
	case session.ScreenChanged:
		m.screen = e.Screen
		if e.Screen == session.RulesScreen {
			m.end = nil
			m.failure = ""
			m.thinking = false
		}
	case session.ThinkingShown:
		m.thinking = true
		m.question = ""
		m.failure = ""
	case session.TextUpdated:
		m.thinking = false
		m.question = e.Text
	case session.TurnAppended:
		if e.Turn.Role == session.Asker {
			m.thinking = false
			m.question = e.Turn.Text
		}
	case session.TranscriptCleared:
		m.question = ""
	case session.CounterChanged:
		m.count = e.Count
		m.limit = e.Limit
	case session.ControlsToggled:
		m.enabled = e.Enabled
	case session.GuessControlsShown:
		m.guessMode = true
	case session.NormalControlsShown:
		m.guessMode = false
	case session.EndScreenShown:
		m.end = &e
	case session.HistoryShown:
		m.historyOpen = true
		m.history = e.Turns
	case session.HistoryHidden:
		m.historyOpen = false
		m.history = nil
	case session.FailureShown:
		m.thinking = false
		m.failure = e.Message
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("GuessMaster 20 Questions"))
	b.WriteString("\n")

	switch m.screen {
	case session.RulesScreen:
		b.WriteString(m.rulesView())
	case session.EndScreen:
		b.WriteString(m.endView())
	default:
		b.WriteString(m.gameView())
	}

	if m.historyOpen {
		b.WriteString("\n")
		b.WriteString(m.historyView())
	}

	return b.String()
}

func (m Model) rulesView() string {
	var b strings.Builder

	b.WriteString("Think of a person, place, thing or animal.\n")
	fmt.Fprintf(&b, "The AI gets %d yes/no questions to work out what it is.\n", m.limit)
	b.WriteString("Answering \"I don't know\" does not use up a question.\n")
	b.WriteString(helpStyle.Render("enter start • q quit"))

	return b.String()
}

func (m Model) gameView() string {
	var b strings.Builder

	counter := counterStyles[session.Urgency(m.count, m.limit)]
	b.WriteString(counter.Render(fmt.Sprintf("Question %d of %d", m.count, m.limit)))
	b.WriteString("\n\n")

	switch {
	case m.thinking:
		b.WriteString(m.spinner.View() + " The AI is thinking...")
	case m.question != "":
		style := questionStyle
		if m.width > 8 {
			style = style.Width(m.width - 4)
		}
		b.WriteString(style.Render(m.question))
	}
	b.WriteString("\n")

	if m.failure != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.failure))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("r reset • q quit"))
		return b.String()
	}

	switch {
	case m.guessMode:
		b.WriteString(helpStyle.Render("c correct • w wrong • h history • r reset • q quit"))
	case m.enabled:
		b.WriteString(helpStyle.Render("y yes • n no • u don't know • h history • r reset • q quit"))
	default:
		b.WriteString(helpStyle.Render("h history • r reset • q quit"))
	}

	return b.String()
}

func (m Model) endView() string {
	var b strings.Builder

	if m.end != nil {
		b.WriteString(titleStyle.Render(m.end.Reason.Headline()))
		b.WriteString("\n")
		b.WriteString(m.end.Reason.Summary(m.end.Count, m.end.Limit))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter play again • h history • r rules • q quit"))

	return b.String()
}

func (m Model) historyView() string {
	if len(m.history) == 0 {
		return historyStyle.Render("No questions yet.")
	}

	lines := make([]string, 0, len(m.history))
	for _, t := range m.history {
		lines = append(lines, speakerStyle.Render(t.Role.String()+":")+" "+t.Text)
	}

	return historyStyle.Render(strings.Join(lines, "\n"))
}

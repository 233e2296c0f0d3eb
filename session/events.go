/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

// Sink receives presentation events. Emit is called from the controller's
// event loop and must not block for long, nor call back into the controller
// synchronously.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Event is one of the concrete event types below.
type Event interface {
	event()
}

// Screen is the top-level view a presentation surface should show.
type Screen string

const (
	RulesScreen Screen = "rules"
	GameScreen  Screen = "game"
	EndScreen   Screen = "end"
)

type ScreenChanged struct {
	Screen Screen
}

// ThinkingShown asks the surface to show a typing indicator until the next
// TextUpdated or FailureShown.
type ThinkingShown struct{}

// TextUpdated carries the model turn accumulated so far.
type TextUpdated struct {
	Text string
}

type CounterChanged struct {
	Count int
	Limit int
}

type TurnAppended struct {
	Turn Turn
}

type TranscriptCleared struct{}

type ControlsToggled struct {
	Enabled bool
}

type GuessControlsShown struct{}

type NormalControlsShown struct{}

type EndScreenShown struct {
	Reason EndReason
	Count  int
	Limit  int
}

type HistoryShown struct {
	Turns []Turn
}

type HistoryHidden struct{}

type FailureShown struct {
	Message string
}

func (ScreenChanged) event()       {}
func (ThinkingShown) event()       {}
func (TextUpdated) event()         {}
func (CounterChanged) event()      {}
func (TurnAppended) event()        {}
func (TranscriptCleared) event()   {}
func (ControlsToggled) event()     {}
func (GuessControlsShown) event()  {}
func (NormalControlsShown) event() {}
func (EndScreenShown) event()      {}
func (HistoryShown) event()        {}
func (HistoryHidden) event()       {}
func (FailureShown) event()        {}

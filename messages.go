/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/Seednode/guessmaster/session"
)

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`              // "start", "answer", "guess", "reset", "history", "hide_history"
	Answer  string `json:"answer,omitempty"`  // answer: "yes", "no" or "unknown"
	Correct *bool  `json:"correct,omitempty"` // guess
}

// SimpleMessage is for notifications that carry nothing but their type.
type SimpleMessage struct {
	Type string `json:"type"`
}

type ScreenMessage struct {
	Type   string `json:"type"` // "screen"
	Screen string `json:"screen"`
}

// TextMessage carries the model turn streamed so far, not just the newest
// fragment.
type TextMessage struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

type CounterMessage struct {
	Type    string `json:"type"` // "counter"
	Count   int    `json:"count"`
	Limit   int    `json:"limit"`
	Urgency string `json:"urgency"` // "normal", "warning" or "danger"
}

type TurnView struct {
	Role    string `json:"role"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type TurnMessage struct {
	Type string   `json:"type"` // "turn"
	Turn TurnView `json:"turn"`
}

type ControlsMessage struct {
	Type    string `json:"type"` // "controls"
	Enabled bool   `json:"enabled"`
}

type ControlsModeMessage struct {
	Type string `json:"type"` // "controls_mode"
	Mode string `json:"mode"` // "normal" or "guess"
}

type EndMessage struct {
	Type     string `json:"type"` // "end"
	Reason   string `json:"reason"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Count    int    `json:"count"`
	Limit    int    `json:"limit"`
}

type HistoryMessage struct {
	Type  string     `json:"type"` // "history"
	Turns []TurnView `json:"turns"`
}

type FailureMessage struct {
	Type    string `json:"type"` // "failure"
	Message string `json:"message"`
}

// SessionInfoMessage is sent immediately on connect so the client can draw
// whatever state the game is in.
type SessionInfoMessage struct {
	Type       string         `json:"type"` // "session_info"
	GameID     string         `json:"game_id"`
	Phase      string         `json:"phase"`
	Screen     string         `json:"screen"`
	Busy       bool           `json:"busy"`
	Guessing   bool           `json:"guessing"`
	Counter    CounterMessage `json:"counter"`
	Transcript []TurnView     `json:"transcript"`
	History    bool           `json:"history"`
	Partial    string         `json:"partial,omitempty"`
	End        *EndMessage    `json:"end,omitempty"`
	Failure    string         `json:"failure,omitempty"`
}

func turnView(t session.Turn) TurnView {
	return TurnView{Role: string(t.Role), Speaker: t.Role.String(), Text: t.Text}
}

func turnViews(turns []session.Turn) []TurnView {
	out := make([]TurnView, len(turns))
	for i, t := range turns {
		out[i] = turnView(t)
	}
	return out
}

func counterMessage(count, limit int) CounterMessage {
	return CounterMessage{
		Type:    "counter",
		Count:   count,
		Limit:   limit,
		Urgency: session.Urgency(count, limit),
	}
}

func endMessage(reason session.EndReason, count, limit int) *EndMessage {
	return &EndMessage{
		Type:     "end",
		Reason:   string(reason),
		Headline: reason.Headline(),
		Summary:  reason.Summary(count, limit),
		Count:    count,
		Limit:    limit,
	}
}

// toMessage translates a controller event into what the browser client
// renders.
func toMessage(ev session.Event) any {
	switch e := ev.(type) {
	case session.ScreenChanged:
		return ScreenMessage{Type: "screen", Screen: string(e.Screen)}
	case session.ThinkingShown:
		return SimpleMessage{Type: "thinking"}
	case session.TextUpdated:
		return TextMessage{Type: "text", Text: e.Text}
	case session.CounterChanged:
		return counterMessage(e.Count, e.Limit)
	case session.TurnAppended:
		return TurnMessage{Type: "turn", Turn: turnView(e.Turn)}
	case session.TranscriptCleared:
		return SimpleMessage{Type: "transcript_cleared"}
	case session.ControlsToggled:
		return ControlsMessage{Type: "controls", Enabled: e.Enabled}
	case session.GuessControlsShown:
		return ControlsModeMessage{Type: "controls_mode", Mode: "guess"}
	case session.NormalControlsShown:
		return ControlsModeMessage{Type: "controls_mode", Mode: "normal"}
	case session.EndScreenShown:
		return endMessage(e.Reason, e.Count, e.Limit)
	case session.HistoryShown:
		return HistoryMessage{Type: "history", Turns: turnViews(e.Turns)}
	case session.HistoryHidden:
		return SimpleMessage{Type: "history_hidden"}
	case session.FailureShown:
		return FailureMessage{Type: "failure", Message: e.Message}
	default:
		return nil
	}
}

func sessionInfo(gameID string, s session.Snapshot) SessionInfoMessage {
	msg := SessionInfoMessage{
		Type:       "session_info",
		GameID:     gameID,
		Phase:      s.Phase.String(),
		Screen:     string(s.Phase.Screen()),
		Busy:       s.AwaitingAnswer,
		Guessing:   s.Guessing,
		Counter:    counterMessage(s.TurnCount, s.Limit),
		Transcript: turnViews(s.Transcript),
		History:    s.History,
		Partial:    s.Partial,
		Failure:    s.Failure,
	}
	if s.EndReason != session.NotEnded {
		msg.End = endMessage(s.EndReason, s.TurnCount, s.Limit)
	}
	return msg
}

// dispatch applies a client message to the controller. It reports false for
// messages it does not understand.
func dispatch(c *session.Controller, msg ClientMessage) bool {
	switch msg.Type {
	case "start":
		c.Start()
	case "answer":
		a, ok := session.ParseAnswer(msg.Answer)
		if !ok {
			return false
		}
		c.Answer(a)
	case "guess":
		if msg.Correct == nil {
			return false
		}
		c.RespondToGuess(*msg.Correct)
	case "reset":
		c.Reset()
	case "history":
		c.ShowHistory()
	case "hide_history":
		c.HideHistory()
	default:
		return false
	}
	return true
}

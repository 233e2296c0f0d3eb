/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "fmt"

type Phase int

const (
	Idle Phase = iota
	AwaitingModel
	AwaitingUser
	Guessing
	Ended
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingModel:
		return "awaiting_model"
	case AwaitingUser:
		return "awaiting_user"
	case Guessing:
		return "guessing"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Screen reports which screen a surface should show in this phase.
func (p Phase) Screen() Screen {
	switch p {
	case Idle:
		return RulesScreen
	case Ended:
		return EndScreen
	default:
		return GameScreen
	}
}

type EndReason string

const (
	NotEnded       EndReason = ""
	LimitReached   EndReason = "limit_reached"
	GuessConfirmed EndReason = "guess_confirmed"
	GuessRejected  EndReason = "guess_rejected"
)

// Headline is the end screen title.
func (r EndReason) Headline() string {
	switch r {
	case LimitReached:
		return "Game Over!"
	case GuessConfirmed:
		return "AI Wins!"
	case GuessRejected:
		return "You Win!"
	default:
		return ""
	}
}

func (r EndReason) Summary(count, limit int) string {
	switch r {
	case LimitReached:
		return fmt.Sprintf("The AI used all %d questions. Did it guess what you were thinking of?", limit)
	case GuessConfirmed:
		return fmt.Sprintf("The AI guessed what you were thinking of. Questions used: %d/%d", count, limit)
	case GuessRejected:
		return fmt.Sprintf("The AI's guess was incorrect! You stumped it in %d questions.", count)
	default:
		return ""
	}
}

// Urgency grades the turn counter for display: "warning" from five questions
// out, "danger" from two out.
func Urgency(count, limit int) string {
	switch {
	case count >= limit-2:
		return "danger"
	case count >= limit-5:
		return "warning"
	default:
		return "normal"
	}
}

// State is the counter and flag set described by the game rules.
// LastTurnCounted is the countability of the reply that opened the current
// (or most recent) exchange.
type State struct {
	TurnCount       int
	AwaitingAnswer  bool
	LastTurnCounted bool
	Phase           Phase
}

// Snapshot is a consistent copy of everything a surface needs to render the
// session from scratch.
type Snapshot struct {
	State

	SessionID  string
	Limit      int
	Transcript []Turn
	Partial    string
	EndReason  EndReason
	Failure    string
	Guessing   bool
	History    bool // history view open

	// Seq is the number of events emitted before the snapshot was taken.
	// A surface that buffers events while waiting for a snapshot replays
	// only those past Seq.
	Seq uint64
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

// Role identifies who produced a turn. The values double as the wire roles
// understood by the answering service.
type Role string

const (
	// Asker is the model, which asks the questions and makes the guesses.
	Asker Role = "assistant"
	// Responder is the human player.
	Responder Role = "user"
)

func (r Role) String() string {
	switch r {
	case Asker:
		return "AI"
	case Responder:
		return "You"
	default:
		return string(r)
	}
}

// Turn is a single message in the transcript.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Transcript is the ordered, append-only history of a session.
type Transcript struct {
	turns []Turn
}

func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Turns returns a copy, so callers can't reorder or edit history.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

func (t *Transcript) Reset() {
	t.turns = nil
}

// Answer is a reply the player can give to a question.
type Answer struct {
	Text      string
	Countable bool
}

var (
	Yes     = Answer{Text: "Yes", Countable: true}
	No      = Answer{Text: "No", Countable: true}
	Unknown = Answer{Text: "I don't know", Countable: false}
)

// ParseAnswer maps the short names used by the presentation surfaces.
func ParseAnswer(s string) (Answer, bool) {
	switch s {
	case "yes", "y":
		return Yes, true
	case "no", "n":
		return No, true
	case "unknown", "dont_know", "u":
		return Unknown, true
	default:
		return Answer{}, false
	}
}

const (
	confirmReply = "Yes, that's correct!"
	rejectReply  = "No, that's wrong."
)

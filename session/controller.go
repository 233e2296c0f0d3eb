/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultLimit is the number of questions the model gets before the game ends.
const DefaultLimit = 20

// Errors returned by Run and Snapshot.
var (
	ErrStopped = errors.New("session: controller is not running")
	ErrRunning = errors.New("session: controller is already running")
)

// Answerer opens a streamed model turn for the given transcript.
type Answerer interface {
	Ask(ctx context.Context, transcript []Turn) (Stream, error)
}

// Stream yields fragments of a model turn in arrival order. Recv returns
// io.EOF once the end-of-stream marker has been seen.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithLimit sets the question budget. Values below 1 keep the default.
func WithLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdAnswer
	cmdGuess
	cmdReset
	cmdShowHistory
	cmdHideHistory
	cmdSnapshot
)

type command struct {
	kind    commandKind
	answer  Answer
	correct bool
	reply   chan<- Snapshot
}

type exchangeEvent struct {
	gen      uint64
	fragment string
	done     bool
	err      error
}

// exchange is one in-flight request to the answering service. The reply
// that opened it decides whether its completion counts.
type exchange struct {
	gen       uint64
	countable bool
	text      strings.Builder
	cancel    context.CancelFunc
}

// Controller owns a single game session. All state below the channels is
// touched only by the Run goroutine.
type Controller struct {
	answerer Answerer
	sink     Sink
	limit    int
	logger   zerolog.Logger

	commands chan command
	results  chan exchangeEvent
	done     chan struct{}
	running  atomic.Bool

	state      State
	transcript Transcript
	sessionID  string
	endReason  EndReason
	failure    string
	history    bool
	gen        uint64
	seq        uint64
	current    *exchange
}

// New returns an idle controller that asks answerer for model turns and
// reports to sink. A nil sink discards events. Call Run to start it.
func New(answerer Answerer, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		answerer: answerer,
		sink:     sink,
		limit:    DefaultLimit,
		logger:   zerolog.Nop(),
		commands: make(chan command, 16),
		results:  make(chan exchangeEvent, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = SinkFunc(func(Event) {})
	}
	c.logger = c.logger.With().Str("component", "session").Logger()
	return c
}

// Limit is the question budget in effect.
func (c *Controller) Limit() int {
	return c.limit
}

// Run processes commands and stream results until ctx is cancelled. It may
// only be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(c.done)
	defer c.cancelExchange()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		case ev := <-c.results:
			c.apply(ev)
		}
	}
}

func (c *Controller) Start() {
	c.post(command{kind: cmdStart})
}

func (c *Controller) Answer(a Answer) {
	c.post(command{kind: cmdAnswer, answer: a})
}

func (c *Controller) RespondToGuess(correct bool) {
	c.post(command{kind: cmdGuess, correct: correct})
}

func (c *Controller) Reset() {
	c.post(command{kind: cmdReset})
}

func (c *Controller) ShowHistory() {
	c.post(command{kind: cmdShowHistory})
}

func (c *Controller) HideHistory() {
	c.post(command{kind: cmdHideHistory})
}

// Snapshot returns a copy of the session as seen by the event loop, after
// every previously posted command has been handled.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)

	select {
	case c.commands <- command{kind: cmdSnapshot, reply: reply}:
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Controller) post(cmd command) bool {
	select {
	case c.commands <- cmd:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) emit(ev Event) {
	c.seq++
	c.sink.Emit(ev)
}

func (c *Controller) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdStart:
		c.start(ctx)
	case cmdAnswer:
		c.answer(ctx, cmd.answer)
	case cmdGuess:
		c.respondToGuess(cmd.correct)
	case cmdReset:
		c.reset()
	case cmdShowHistory:
		c.history = true
		c.emit(HistoryShown{Turns: c.transcript.Turns()})
	case cmdHideHistory:
		c.history = false
		c.emit(HistoryHidden{})
	case cmdSnapshot:
		cmd.reply <- c.snapshot()
	}
}

func (c *Controller) start(ctx context.Context) {
	if c.state.Phase != Idle {
		c.logger.Debug().Str("phase", c.state.Phase.String()).Msg("start ignored, game already in progress")
		return
	}

	c.clear()
	c.sessionID = uuid.NewString()
	c.logger.Info().Str("session_id", c.sessionID).Msg("starting new game")

	c.emit(ScreenChanged{Screen: GameScreen})
	c.emit(TranscriptCleared{})
	c.emit(CounterChanged{Count: 0, Limit: c.limit})
	c.emit(NormalControlsShown{})

	// The opening question always counts.
	c.request(ctx, true)
}

func (c *Controller) answer(ctx context.Context, a Answer) {
	if c.state.AwaitingAnswer {
		c.logger.Debug().Str("session_id", c.sessionID).Msg("still waiting for the model, ignoring answer")
		return
	}
	if c.state.Phase != AwaitingUser {
		c.logger.Debug().Str("phase", c.state.Phase.String()).Msg("answer ignored, no question pending")
		return
	}

	turn := Turn{Role: Responder, Text: a.Text}
	c.transcript.Append(turn)
	c.emit(TurnAppended{Turn: turn})

	c.logger.Debug().
		Str("session_id", c.sessionID).
		Str("answer", a.Text).
		Bool("countable", a.Countable).
		Msg("player answered")

	c.request(ctx, a.Countable)
}

func (c *Controller) respondToGuess(correct bool) {
	if c.state.AwaitingAnswer || c.state.Phase != Guessing {
		c.logger.Debug().Str("phase", c.state.Phase.String()).Msg("guess response ignored, no guess pending")
		return
	}

	text, reason := rejectReply, GuessRejected
	if correct {
		text, reason = confirmReply, GuessConfirmed
	}

	turn := Turn{Role: Responder, Text: text}
	c.transcript.Append(turn)
	c.emit(TurnAppended{Turn: turn})

	c.end(reason)
}

func (c *Controller) reset() {
	c.cancelExchange()
	c.gen++

	if c.sessionID != "" {
		c.logger.Info().Str("session_id", c.sessionID).Msg("resetting game")
	}

	c.clear()
	c.sessionID = ""
	c.history = false

	c.emit(ScreenChanged{Screen: RulesScreen})
	c.emit(HistoryHidden{})
	c.emit(NormalControlsShown{})
	c.emit(TranscriptCleared{})
	c.emit(CounterChanged{Count: 0, Limit: c.limit})
	c.emit(ControlsToggled{Enabled: false})
}

func (c *Controller) clear() {
	c.transcript.Reset()
	c.state = State{}
	c.endReason = NotEnded
	c.failure = ""
}

// request opens a new exchange. Any exchange still outstanding is cancelled
// first; its results will no longer match c.current and are dropped.
func (c *Controller) request(ctx context.Context, countable bool) {
	c.cancelExchange()
	c.gen++

	exCtx, cancel := context.WithCancel(ctx)
	c.current = &exchange{gen: c.gen, countable: countable, cancel: cancel}

	c.state.AwaitingAnswer = true
	c.state.LastTurnCounted = countable
	c.state.Phase = AwaitingModel
	c.failure = ""

	c.emit(ControlsToggled{Enabled: false})
	c.emit(ThinkingShown{})

	c.logger.Debug().
		Str("session_id", c.sessionID).
		Uint64("exchange", c.gen).
		Int("turns", c.transcript.Len()).
		Msg("requesting model turn")

	go c.pump(exCtx, c.gen, c.transcript.Turns())
}

func (c *Controller) cancelExchange() {
	if c.current == nil {
		return
	}
	c.current.cancel()
	c.current = nil
}

// pump runs outside the event loop and forwards everything it reads.
func (c *Controller) pump(ctx context.Context, gen uint64, turns []Turn) {
	s, err := c.answerer.Ask(ctx, turns)
	if err != nil {
		c.deliver(ctx, exchangeEvent{gen: gen, err: err})
		return
	}
	defer s.Close()

	for {
		fragment, err := s.Recv()
		switch {
		case errors.Is(err, io.EOF):
			c.deliver(ctx, exchangeEvent{gen: gen, done: true})
			return
		case err != nil:
			c.deliver(ctx, exchangeEvent{gen: gen, err: err})
			return
		}

		if !c.deliver(ctx, exchangeEvent{gen: gen, fragment: fragment}) {
			return
		}
	}
}

func (c *Controller) deliver(ctx context.Context, ev exchangeEvent) bool {
	select {
	case c.results <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) apply(ev exchangeEvent) {
	if c.current == nil || ev.gen != c.current.gen {
		c.logger.Debug().Uint64("exchange", ev.gen).Msg("dropping result from cancelled exchange")
		return
	}

	switch {
	case ev.err != nil:
		c.fail(ev.err)
	case ev.done:
		c.complete()
	default:
		c.current.text.WriteString(ev.fragment)
		c.emit(TextUpdated{Text: c.current.text.String()})
	}
}

func (c *Controller) complete() {
	ex := c.current
	c.current = nil
	ex.cancel()

	text := ex.text.String()
	turn := Turn{Role: Asker, Text: text}
	c.transcript.Append(turn)
	c.emit(TurnAppended{Turn: turn})

	if ex.countable && c.state.TurnCount < c.limit {
		c.state.TurnCount++
		c.emit(CounterChanged{Count: c.state.TurnCount, Limit: c.limit})
	}
	c.state.AwaitingAnswer = false

	intent, guess := ClassifyGuess(text)

	c.logger.Debug().
		Str("session_id", c.sessionID).
		Int("count", c.state.TurnCount).
		Bool("guess", guess).
		Str("intent", intent).
		Msg("model turn complete")

	switch {
	case guess:
		c.state.Phase = Guessing
		c.emit(GuessControlsShown{})
	case c.state.TurnCount >= c.limit:
		c.end(LimitReached)
	default:
		c.state.Phase = AwaitingUser
		c.emit(ControlsToggled{Enabled: true})
	}
}

// fail leaves the transcript and phase alone; only a reset recovers.
func (c *Controller) fail(err error) {
	ex := c.current
	c.current = nil
	ex.cancel()

	failure := &CommunicationFailure{Err: err}
	c.state.AwaitingAnswer = false
	c.failure = failure.Error()

	c.logger.Error().Err(err).Str("session_id", c.sessionID).Msg("error communicating with answering service")

	c.emit(ControlsToggled{Enabled: false})
	c.emit(FailureShown{Message: c.failure})
}

func (c *Controller) end(reason EndReason) {
	c.state.Phase = Ended
	c.endReason = reason

	c.logger.Info().
		Str("session_id", c.sessionID).
		Str("reason", string(reason)).
		Int("count", c.state.TurnCount).
		Msg("game ended")

	c.emit(ControlsToggled{Enabled: false})
	c.emit(ScreenChanged{Screen: EndScreen})
	c.emit(EndScreenShown{Reason: reason, Count: c.state.TurnCount, Limit: c.limit})
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		State:      c.state,
		SessionID:  c.sessionID,
		Limit:      c.limit,
		Transcript: c.transcript.Turns(),
		EndReason:  c.endReason,
		Failure:    c.failure,
		Guessing:   c.state.Phase == Guessing,
		History:    c.history,
		Seq:        c.seq,
	}
	if c.current != nil {
		s.Partial = c.current.text.String()
	}
	return s
}

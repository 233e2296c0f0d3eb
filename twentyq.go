/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// GuessMaster 20 Questions
//
// The player thinks of something and the model tries to work out what it is
// by asking yes/no questions, within a fixed question budget.
//
// Features:
// - WebSockets per game ID: /play/:gameid and /play/:gameid/ws
// - Every connection to a game sees and drives the same session
// - Late joiners get a session_info snapshot, then live updates
// - Slow clients are dropped instead of stalling the game
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via go-nanoid, with server-side collision check
// - In-browser QR button to share the current game, backed by go-qrcode

package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/guessmaster/session"
)

const (
	gameIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	gameIDLength   = 8
	maxGameIDLen   = 32

	clientBuffer   = 64
	maxMessageSize = 4096
	joinTimeout    = 5 * time.Second
	writeWait      = 10 * time.Second
)

var errClientDropped = errors.New("client dropped before joining")

type queued struct {
	seq uint64
	msg any
}

type Client struct {
	conn *websocket.Conn
	send chan any

	// Set until the client has its session_info; events meanwhile are
	// held in backlog.
	pending bool
	backlog []queued
}

// Game is one shared 20 Questions session and everyone watching it.
type Game struct {
	id         string
	controller *session.Controller
	cancel     context.CancelFunc
	done       chan struct{}
	logger     zerolog.Logger

	mu         sync.Mutex
	clients    map[*Client]bool
	seq        uint64
	createdAt  time.Time
	lastActive time.Time
}

func newGame(ctx context.Context, id string, limit int, answerer session.Answerer, logger zerolog.Logger) *Game {
	now := time.Now()

	g := &Game{
		id:         id,
		done:       make(chan struct{}),
		logger:     logger.With().Str("game_id", id).Logger(),
		clients:    make(map[*Client]bool),
		createdAt:  now,
		lastActive: now,
	}

	g.controller = session.New(answerer, session.SinkFunc(g.emit),
		session.WithLimit(limit),
		session.WithLogger(g.logger),
	)

	ctx, g.cancel = context.WithCancel(ctx)
	go func() {
		defer close(g.done)
		_ = g.controller.Run(ctx)
	}()

	return g
}

// emit runs on the controller's goroutine, once per event and in order, so
// g.seq tracks the controller's own event count.
func (g *Game) emit(ev session.Event) {
	msg := toMessage(ev)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.lastActive = time.Now()

	if msg == nil {
		return
	}

	for c := range g.clients {
		if c.pending {
			c.backlog = append(c.backlog, queued{seq: g.seq, msg: msg})
			continue
		}
		g.sendLocked(c, msg)
	}
}

func (g *Game) sendLocked(c *Client, msg any) {
	if !g.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		g.logger.Debug().Msg("dropping slow client")
		g.dropLocked(c)
	}
}

func (g *Game) dropLocked(c *Client) {
	if _, ok := g.clients[c]; ok {
		delete(g.clients, c)
		close(c.send)
	}
}

// join registers c and sends it the current state followed by anything
// emitted since that state was captured.
func (g *Game) join(ctx context.Context, c *Client) error {
	g.mu.Lock()
	c.pending = true
	g.clients[c] = true
	g.lastActive = time.Now()
	g.mu.Unlock()

	snap, err := g.controller.Snapshot(ctx)
	if err != nil {
		g.leave(c)
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.clients[c] {
		return errClientDropped
	}

	g.sendLocked(c, sessionInfo(g.id, snap))
	for _, q := range c.backlog {
		if q.seq > snap.Seq {
			g.sendLocked(c, q.msg)
		}
	}
	c.backlog = nil
	c.pending = false

	g.logger.Debug().Int("clients", len(g.clients)).Msg("client joined")

	return nil
}

func (g *Game) leave(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dropLocked(c)
}

func (g *Game) touch() {
	g.mu.Lock()
	g.lastActive = time.Now()
	g.mu.Unlock()
}

func (g *Game) idleSince() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastActive
}

func (g *Game) clientCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.clients)
}

// closeAll stops the session and disconnects all clients of this game.
func (g *Game) closeAll() {
	g.cancel()
	<-g.done

	g.mu.Lock()
	defer g.mu.Unlock()

	for c := range g.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(g.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of games keyed by game ID, so each /play/$gameid
// is its own isolated session.
type GameManager struct {
	ctx         context.Context
	answerer    session.Answerer
	limit       int
	idleTimeout time.Duration
	logger      zerolog.Logger

	mu    sync.Mutex
	games map[string]*Game
}

func newGameManager(ctx context.Context, cfg *Config, answerer session.Answerer, logger zerolog.Logger) *GameManager {
	return &GameManager{
		ctx:         ctx,
		answerer:    answerer,
		limit:       cfg.questionLimit,
		idleTimeout: cfg.sessionTimeout,
		logger:      logger.With().Str("component", "games").Logger(),
		games:       make(map[string]*Game),
	}
}

func (gm *GameManager) getGame(gameID string) *Game {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if game, ok := gm.games[gameID]; ok {
		return game
	}

	game := newGame(gm.ctx, gameID, gm.limit, gm.answerer, gm.logger)
	gm.games[gameID] = game
	gm.logger.Info().Str("game_id", gameID).Msg("game opened")

	return game
}

func (gm *GameManager) count() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	return len(gm.games)
}

// newGameID generates a random game ID that doesn't collide with existing
// games.
func (gm *GameManager) newGameID() (string, error) {
	for {
		id, err := gonanoid.Generate(gameIDAlphabet, gameIDLength)
		if err != nil {
			return "", errors.Wrap(err, "generate game id")
		}

		gm.mu.Lock()
		_, exists := gm.games[id]
		gm.mu.Unlock()

		if !exists {
			return id, nil
		}
	}
}

// reap removes games idle since before cutoff and reports how many it removed.
func (gm *GameManager) reap(cutoff time.Time) int {
	var stale []*Game

	gm.mu.Lock()
	for id, game := range gm.games {
		if game.idleSince().Before(cutoff) {
			delete(gm.games, id)
			stale = append(stale, game)
		}
	}
	gm.mu.Unlock()

	for _, game := range stale {
		gm.logger.Info().Str("game_id", game.id).Msg("reaping idle game")
		go game.closeAll()
	}

	return len(stale)
}

// reaperLoop periodically removes games that have been idle longer than
// idleTimeout, until ctx is cancelled.
func (gm *GameManager) reaperLoop(ctx context.Context) {
	if gm.idleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	games := gm.games
	gm.games = make(map[string]*Game)
	gm.mu.Unlock()

	for _, game := range games {
		game.closeAll()
	}
}

func validGameID(id string) bool {
	if id == "" || len(id) > maxGameIDLen {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune(gameIDAlphabet, r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// WebSocket handler that picks the game based on :gameid
func serveWS(gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			gm.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		game := gm.getGame(gameID)

		client := &Client{
			conn: conn,
			send: make(chan any, clientBuffer),
		}

		go client.writePump()

		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		err = game.join(ctx, client)
		cancel()
		if err != nil {
			gm.logger.Debug().Err(err).Str("game_id", gameID).Msg("client failed to join")
			_ = conn.Close()
			return
		}

		client.readPump(game)
	}
}

func (c *Client) readPump(g *Game) {
	defer func() {
		g.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		g.touch()

		if !dispatch(g.controller, msg) {
			g.logger.Debug().Str("type", msg.Type).Msg("ignoring client message")
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}

	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !validGameID(ps.ByName("gameid")) {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// redirectNewGame handles GET /play by generating a new random game ID
// and redirecting to /play/:gameid.
func redirectNewGame(path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID, err := gm.newGameID()
		if err != nil {
			gm.logger.Error().Err(err).Msg("failed to create game")
			http.Error(w, "unable to create game", http.StatusInternalServerError)
			return
		}

		gm.logger.Debug().Str("game_id", gameID).Msg("created game id")
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerTwentyQ sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerTwentyQ(cfg *Config, path string, mux *httprouter.Router, gm *GameManager) {
	path = cfg.prefix + path

	mux.GET(path, redirectNewGame(path, gm))
	mux.GET(path+"/:gameid", serveIndex(cfg, gm.logger))
	mux.GET(path+"/:gameid/ws", serveWS(gm))
	mux.GET(path+"/:gameid/qr", qrHandler)
}

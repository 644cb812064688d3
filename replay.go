/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Werewolf replay rooms
//
// A room is one shared viewing of a recorded game. The server owns the
// timeline; browsers only send commands and draw whatever state they are told.
//
// Features:
// - WebSockets per room: /replay/:room and /replay/:room/ws
// - Every viewer of a room sees the same position and play mode
// - Loading a round asks the backend to generate it if it does not exist yet
// - A newer load always wins over an older one still in flight
// - Speakers missing from the roster are drawn with a placeholder role
// - Rooms are reaped after a configurable idle timeout, which stops autoplay
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/werewolf-replay/playback"
	"github.com/Seednode/werewolf-replay/transcript"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`              // "load", "step_forward", "step_backward", "seek", "toggle_play", "stop"
	Round   int    `json:"round,omitempty"`   // load
	Players int    `json:"players,omitempty"` // load
	Index   *int   `json:"index,omitempty"`   // seek
}

// LineView is one visible dialogue line with its speaker resolved.
type LineView struct {
	Speaker string `json:"speaker"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Role    string `json:"role"`
	Color   string `json:"color"`
	Avatar  string `json:"avatar"`
	Known   bool   `json:"known"` // false when the speaker could not be resolved
}

// PlayerView is a roster entry as drawn in the player list.
type PlayerView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Color  string `json:"color"`
	Avatar string `json:"avatar"`
}

// StateMessage carries the timeline and everything seen so far.
type StateMessage struct {
	Type string `json:"type"` // "state"
	playback.State
	Lines []LineView `json:"lines"`
}

// RosterMessage is sent after every successful load.
type RosterMessage struct {
	Type    string       `json:"type"` // "roster"
	Players []PlayerView `json:"players"`
}

// StatusMessage describes the current load.
type StatusMessage struct {
	Type      string             `json:"type"` // "status"
	Requested bool               `json:"requested"`
	Loading   bool               `json:"loading"`
	Round     int                `json:"round,omitempty"`
	Players   int                `json:"players,omitempty"`
	Kind      string             `json:"kind,omitempty"`  // load error kind
	Error     string             `json:"error,omitempty"` // load error text
	Issues    []transcript.Issue `json:"issues,omitempty"`
}

// SimpleMessage is for notices sent to a single client.
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	viewerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Room struct {
	id      string
	cfg     *Config
	metrics *Metrics

	session    *playback.Session
	controller *playback.Controller

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan command

	// Coalesced wake-ups from the controller and session callbacks,
	// which run under their own locks and must not block.
	stateChanged  chan struct{}
	statusChanged chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newRoom(ctx context.Context, cfg *Config, id string, src transcript.Source, metrics *Metrics) *Room {
	now := time.Now()

	r := &Room{
		id:            id,
		cfg:           cfg,
		metrics:       metrics,
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unreg:         make(chan *Client),
		commands:      make(chan command),
		stateChanged:  make(chan struct{}, 1),
		statusChanged: make(chan struct{}, 1),
		createdAt:     now,
		lastActive:    now,
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.controller = playback.New(playback.Config{
		Delay: cfg.autoplayDelay,
		Listener: func(change playback.Change, _ playback.State) {
			metrics.Transition(string(change))
			wake(r.stateChanged)
		},
	})

	// Both collaborators are non-nil, so this cannot fail.
	r.session, _ = playback.NewSession(&playback.SessionConfig{
		Source:     src,
		Controller: r.controller,
		OnStatus: func(playback.Status) {
			wake(r.statusChanged)
		},
	})

	return r
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *Room) run() {
	defer r.closeAll()

	for {
		select {
		case c := <-r.register:
			r.touch()
			r.clients[c] = true

			logf(r.cfg, "ROOMS: Viewer %s joined %s (%d watching)", c.viewerID, r.id, len(r.clients))

			r.sendTo(c, r.statusMessage())
			r.sendTo(c, r.rosterMessage())
			r.sendTo(c, r.stateMessage())

		case c := <-r.unreg:
			r.touch()
			r.drop(c)

		case cmd := <-r.commands:
			r.touch()
			r.handleCommand(cmd)

		case <-r.stateChanged:
			// Autoplay counts as activity.
			r.touch()
			r.broadcast(r.stateMessage())

		case <-r.statusChanged:
			r.broadcast(r.statusMessage())
			if !r.session.Status().Loading {
				r.broadcast(r.rosterMessage())
			}

		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Room) handleCommand(cmd command) {
	msg := cmd.msg

	switch msg.Type {
	case "load":
		req := transcript.Request{Round: msg.Round, Players: msg.Players}
		if req.Round == 0 {
			req.Round = r.cfg.round
		}
		if req.Players == 0 {
			req.Players = r.cfg.players
		}
		if req.Round < 1 || req.Players < minPlayers || req.Players > maxPlayers {
			r.sendTo(cmd.client, SimpleMessage{
				Type:    "invalid",
				Message: "Rounds start at 1 and games have between 5 and 10 players.",
			})
			return
		}

		go r.load(req)

	case "step_forward":
		r.controller.StepForward()

	case "step_backward":
		r.controller.StepBackward()

	case "seek":
		if msg.Index != nil {
			r.controller.Seek(*msg.Index)
		}

	case "toggle_play":
		r.controller.TogglePlay()

	case "stop":
		r.controller.Stop()
	}
}

func (r *Room) load(req transcript.Request) {
	startTime := time.Now()

	logf(r.cfg, "LOAD: Room %s requested round %d with %d players", r.id, req.Round, req.Players)

	err := r.session.Load(r.ctx, req)

	switch {
	case err == nil:
		r.metrics.Load("ok")
		logf(r.cfg, "LOAD: Room %s loaded round %d (%d lines) in %s",
			r.id, req.Round, r.controller.State().Length, time.Since(startTime).Round(time.Millisecond))
	case errors.Is(err, playback.ErrSuperseded):
		r.metrics.Load("superseded")
		logf(r.cfg, "LOAD: Room %s dropped stale round %d", r.id, req.Round)
	case errors.Is(err, context.Canceled):
		r.metrics.Load("canceled")
	default:
		r.metrics.Load(transcript.Kind(err))
		logf(r.cfg, "LOAD: Room %s failed round %d: %v", r.id, req.Round, err)
	}
}

func (r *Room) stateMessage() StateMessage {
	st, visible, roster := r.controller.Snapshot()

	lines := make([]LineView, 0, len(visible))
	for _, e := range visible {
		lines = append(lines, lineView(roster, e))
	}

	return StateMessage{
		Type:  "state",
		State: st,
		Lines: lines,
	}
}

// lineView resolves the speaker of e. An unresolvable speaker, missing or
// shared by two seats, is drawn with the Unknown placeholder.
func lineView(roster *transcript.Roster, e transcript.DialogueEvent) LineView {
	role := transcript.RoleUnknown
	known := false

	if p, err := roster.Lookup(e.Speaker); err == nil {
		role = p.Role
		known = true
	}

	style := role.Style()

	return LineView{
		Speaker: e.Speaker,
		Type:    e.Type,
		Content: e.Content,
		Role:    role.String(),
		Color:   style.Color,
		Avatar:  style.Avatar,
		Known:   known,
	}
}

func (r *Room) rosterMessage() RosterMessage {
	players := r.controller.Players()

	views := make([]PlayerView, 0, len(players))
	for _, p := range players {
		style := p.Role.Style()
		views = append(views, PlayerView{
			ID:     p.ID,
			Name:   p.Name,
			Role:   p.Role.String(),
			Color:  style.Color,
			Avatar: style.Avatar,
		})
	}

	return RosterMessage{
		Type:    "roster",
		Players: views,
	}
}

func (r *Room) statusMessage() StatusMessage {
	st := r.session.Status()

	msg := StatusMessage{
		Type:      "status",
		Requested: st.Request.Round != 0,
		Loading:   st.Loading,
		Round:     st.Request.Round,
		Players:   st.Request.Players,
		Issues:    st.Issues,
	}
	if st.Err != nil {
		msg.Kind = transcript.Kind(st.Err)
		msg.Error = st.Err.Error()
	}

	return msg
}

// sendTo queues msg for c, dropping c if it cannot keep up.
func (r *Room) sendTo(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		r.drop(c)
	}
}

func (r *Room) broadcast(msg any) {
	for c := range r.clients {
		r.sendTo(c, msg)
	}
}

func (r *Room) drop(c *Client) {
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
		logf(r.cfg, "ROOMS: Viewer %s left %s", c.viewerID, r.id)
	}
}

// closeAll stops playback and disconnects every viewer. It runs on the room
// goroutine as it exits.
func (r *Room) closeAll() {
	r.controller.Stop()

	for c := range r.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(r.clients, c)
	}
}

func (r *Room) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastActive
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const viewerCookieName = "werewolf_replay_id"

func getOrSetViewerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(viewerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// RoomManager holds the open rooms keyed by ID.
type RoomManager struct {
	cfg     *Config
	ctx     context.Context
	source  transcript.Source
	metrics *Metrics

	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRoomManager(ctx context.Context, cfg *Config, src transcript.Source, metrics *Metrics) *RoomManager {
	rm := &RoomManager{
		cfg:         cfg,
		ctx:         ctx,
		source:      src,
		metrics:     metrics,
		rooms:       make(map[string]*Room),
		idleTimeout: cfg.sessionTimeout,
	}
	if rm.idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

func (rm *RoomManager) getRoom(id string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[id]; ok {
		return room
	}

	room := newRoom(rm.ctx, rm.cfg, id, rm.source, rm.metrics)
	rm.rooms[id] = room
	rm.metrics.RoomOpened()
	go room.run()

	return room
}

// newRoomID returns an unused 8-character lowercase base32 ID.
func (rm *RoomManager) newRoomID() string {
	for {
		id := strings.ToLower(rand.Text()[:8])

		rm.mu.Lock()
		_, exists := rm.rooms[id]
		rm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap closes rooms idle since before cutoff and returns how many it closed.
func (rm *RoomManager) reap(cutoff time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	closed := 0
	for id, room := range rm.rooms {
		if room.idleSince().Before(cutoff) {
			delete(rm.rooms, id)
			room.cancel()
			rm.metrics.RoomClosed()
			logf(rm.cfg, "ROOMS: Closed idle room %s", id)
			closed++
		}
	}

	return closed
}

func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rm.ctx.Done():
			return
		case <-ticker.C:
			rm.reap(time.Now().Add(-rm.idleTimeout))
		}
	}
}

// WebSocket handler that picks the room based on :room
func serveWSForManager(rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("room")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		viewerID := getOrSetViewerID(w, r)

		room := rm.getRoom(roomID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errorf("websocket upgrade: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			viewerID: viewerID,
		}

		select {
		case room.register <- client:
		case <-room.ctx.Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(room)
	}
}

func (c *Client) readPump(room *Room) {
	defer func() {
		select {
		case room.unreg <- c:
		case <-room.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case room.commands <- command{client: c, msg: msg}:
		case <-room.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("room") == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

var roomTemplate = template.Must(template.ParseFS(assets, "assets/replay/index.html"))

func serveRoomPage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetViewerID(w, r)

		err := roomTemplate.Execute(w, struct {
			Prefix string
			Room   string
		}{
			Prefix: cfg.prefix,
			Room:   ps.ByName("room"),
		})
		if err != nil {
			errs <- err
		}
	}
}

// redirectNewRoom handles GET /replay by opening a new room and redirecting
// to it, keeping the round and player query for the browser to load.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := rm.newRoomID()
		logf(cfg, "ROOMS: Created room %s/%s", path, roomID)

		target := cfg.prefix + path + "/" + roomID
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}
}

// registerReplay sets up routes so that:
//   - $path            → redirects to a new room (8-char ID)
//   - $path/:room      → HTML client
//   - $path/:room/ws   → WebSocket for that room
//   - $path/:room/qr   → PNG QR code for that room URL
func registerReplay(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, src transcript.Source, metrics *Metrics, errs chan<- error) *RoomManager {
	rm := newRoomManager(ctx, cfg, src, metrics)

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rm))
	mux.GET(cfg.prefix+path+"/:room", serveRoomPage(cfg, errs))
	mux.GET(cfg.prefix+path+"/:room/ws", serveWSForManager(rm))
	mux.GET(cfg.prefix+path+"/:room/qr", qrHandler(cfg))

	return rm
}

package websocket

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
	"github.com/zyedidia/generic/mapset"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 512

	// outboxSize bounds queued broadcasts; further ones are dropped
	outboxSize = 256
	// spectatorBuffer bounds frames waiting for one slow connection
	spectatorBuffer = 64
)

// Events carried in Message.Event
const (
	EventStateUpdate = "state_update"
	EventVictory     = "victory"
	EventGameOver    = "game_over"
	EventSolved      = "solved"
)

// Message is one frame pushed to the spectators of a session. Seq counts
// the frames of that session so a spectator can spot dropped updates.
type Message struct {
	SessionID string                 `json:"session_id"`
	Seq       uint64                 `json:"seq"`
	Event     string                 `json:"event,omitempty"`
	GameState *service.GameStateView `json:"game_state,omitempty"`
	Data      interface{}            `json:"data,omitempty"`
}

// Spectator is one websocket connection watching a session
type Spectator struct {
	hub       *Hub
	conn      *websocket.Conn
	frames    chan []byte
	sessionID string
}

// Hub fans session updates out to spectators. Membership changes and
// broadcasts are serialized through Run.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]mapset.Set[*Spectator]
	seq      map[string]uint64

	join   chan *Spectator
	leave  chan *Spectator
	outbox chan *Message
	done   chan struct{}

	upgrader websocket.Upgrader
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithAllowedOrigins restricts upgrades to the given Origin header values.
// Requests without an Origin header are still accepted.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		}
	}
}

// NewHub returns a hub accepting every origin unless configured otherwise
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		watchers: make(map[string]mapset.Set[*Spectator]),
		seq:      make(map[string]uint64),
		join:     make(chan *Spectator),
		leave:    make(chan *Spectator),
		outbox:   make(chan *Message, outboxSize),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes joins, leaves and broadcasts until Stop
func (h *Hub) Run() {
	for {
		select {
		case sp := <-h.join:
			h.add(sp)
		case sp := <-h.leave:
			h.remove(sp)
		case msg := <-h.outbox:
			h.deliver(msg)
		case <-h.done:
			h.disconnectAll()
			return
		}
	}
}

// Stop ends Run and disconnects every spectator. It is safe to call twice.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("session", sessionID).Warn("WebSocket upgrade failed")
		return
	}

	sp := &Spectator{
		hub:       h,
		conn:      conn,
		frames:    make(chan []byte, spectatorBuffer),
		sessionID: sessionID,
	}
	select {
	case h.join <- sp:
	case <-h.done:
		conn.Close()
		return
	}

	go sp.writeLoop()
	go sp.readLoop()
}

// stateEvent names the frame for a state: terminal games get their own event
func stateEvent(state *service.GameStateView) string {
	switch {
	case state == nil || state.GameSnapshot == nil:
		return EventStateUpdate
	case state.Victory:
		return EventVictory
	case state.GameOver:
		return EventGameOver
	}
	return EventStateUpdate
}

// BroadcastToSession pushes a state to the session's spectators
func (h *Hub) BroadcastToSession(sessionID string, state *service.GameStateView) {
	h.publish(&Message{SessionID: sessionID, Event: stateEvent(state), GameState: state})
}

// BroadcastEvent pushes an arbitrary payload to the session's spectators
func (h *Hub) BroadcastEvent(sessionID, event string, data interface{}) {
	h.publish(&Message{SessionID: sessionID, Event: event, Data: data})
}

// publish queues msg without blocking the request that produced it
func (h *Hub) publish(msg *Message) {
	select {
	case h.outbox <- msg:
	default:
		log.WithFields(log.Fields{
			"session": msg.SessionID,
			"event":   msg.Event,
		}).Warn("WebSocket outbox full, dropping update")
	}
}

// ClientCount returns the number of spectators of a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if set, ok := h.watchers[sessionID]; ok {
		return set.Size()
	}
	return 0
}

func (h *Hub) add(sp *Spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[sp.sessionID]
	if !ok {
		set = mapset.New[*Spectator]()
		h.watchers[sp.sessionID] = set
	}
	set.Put(sp)
	log.WithFields(log.Fields{"session": sp.sessionID, "spectators": set.Size()}).Debug("Spectator joined")
}

func (h *Hub) remove(sp *Spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sp)
}

// removeLocked detaches sp and closes its frame queue once
func (h *Hub) removeLocked(sp *Spectator) {
	set, ok := h.watchers[sp.sessionID]
	if !ok || !set.Has(sp) {
		return
	}
	set.Remove(sp)
	close(sp.frames)
	if set.Size() == 0 {
		delete(h.watchers, sp.sessionID)
		delete(h.seq, sp.sessionID)
	}
	log.WithFields(log.Fields{"session": sp.sessionID, "spectators": set.Size()}).Debug("Spectator left")
}

// deliver stamps msg with the session's next sequence number and queues it
// for every spectator. Spectators whose queue is full are disconnected.
func (h *Hub) deliver(msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[msg.SessionID]
	if !ok {
		return
	}
	h.seq[msg.SessionID]++
	msg.Seq = h.seq[msg.SessionID]

	frame, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).WithField("session", msg.SessionID).Error("Failed to encode websocket frame")
		return
	}

	var lagging []*Spectator
	set.Each(func(sp *Spectator) {
		select {
		case sp.frames <- frame:
		default:
			lagging = append(lagging, sp)
		}
	})
	for _, sp := range lagging {
		log.WithField("session", sp.sessionID).Warn("Disconnecting lagging spectator")
		h.removeLocked(sp)
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	var all []*Spectator
	for _, set := range h.watchers {
		set.Each(func(sp *Spectator) { all = append(all, sp) })
	}
	for _, sp := range all {
		h.removeLocked(sp)
	}
}

// readLoop drains the connection so pongs and close frames are handled.
// Spectators have nothing to say; their messages are discarded.
func (sp *Spectator) readLoop() {
	defer func() {
		select {
		case sp.hub.leave <- sp:
		case <-sp.hub.done:
		}
		sp.conn.Close()
	}()

	sp.conn.SetReadLimit(maxMessageSize)
	sp.conn.SetReadDeadline(time.Now().Add(pongWait))
	sp.conn.SetPongHandler(func(string) error {
		return sp.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sp.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("session", sp.sessionID).Warn("WebSocket read error")
			}
			return
		}
	}
}

// writeLoop sends one JSON document per websocket frame and keeps the
// connection alive with pings.
func (sp *Spectator) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sp.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sp.frames:
			sp.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sp.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sp.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			sp.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sp.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

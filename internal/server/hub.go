package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boardfree/board-server-go/internal/config"
	"github.com/boardfree/board-server-go/internal/game/phase"
)

// GameController is the slice of the engine the transport drives.
type GameController interface {
	Roll(n int) error
	ChooseDestination(spaceID string) error
	TurnInfo() (playerID string, tp phase.TurnPhase)
	Pause() error
	Resume() error
	SetPlayerConnected(playerID string, connected bool) error
	ApplyAuthoritativeState(data []byte) (bool, error)
	SnapshotWire() ([]byte, error)
}

// clientMessage is the inbound envelope. Fields beyond Type are
// populated per message type.
type clientMessage struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	Password string          `json:"password,omitempty"`
	Value    int             `json:"value,omitempty"`
	SpaceID  string          `json:"spaceId,omitempty"`
	SentAt   int64           `json:"sentAt,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinedMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type heartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// subscriber is one live websocket connection. Writes go through the
// per-connection mutex; gorilla connections allow one concurrent writer.
type subscriber struct {
	playerID string
	conn     *websocket.Conn
	mu       sync.Mutex
}

func (s *subscriber) write(cfg config.ServerConfig, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the live subscriber set and routes client messages into the
// engine.
type Hub struct {
	log    *zap.Logger
	cfg    config.ServerConfig
	engine GameController

	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
}

// NewHub creates a hub driving the given engine.
func NewHub(cfg config.ServerConfig, engine GameController, logger *zap.Logger) *Hub {
	return &Hub{
		log:    logger,
		cfg:    cfg,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The lobby password is the access control; origins are not.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subscribers: make(map[string]*subscriber),
	}
}

// BroadcastState implements Sink: sends the snapshot to every
// subscriber, dropping connections that fail to write.
func (h *Hub) BroadcastState(data []byte) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(h.cfg, data); err != nil {
			h.log.Warn("failed to send state update",
				zap.String("player_id", sub.playerID),
				zap.Error(err),
			)
			h.disconnect(sub)
		}
	}
}

// SubscriberCount returns the number of live connections.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeWS upgrades the request and runs the connection's read loop.
// The first message must be a join carrying the lobby password.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub, err := h.join(conn)
	if err != nil {
		h.log.Info("join rejected", zap.Error(err))
		conn.Close()
		return
	}

	h.log.Info("client connected", zap.String("player_id", sub.playerID))
	h.readLoop(sub)
}

// join performs the password handshake and registers the subscriber.
func (h *Hub) join(conn *websocket.Conn) (*subscriber, error) {
	conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read join message: %w", err)
	}

	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed join message: %w", err)
	}
	if msg.Type != "join" {
		h.writeError(conn, "JOIN_REQUIRED", "first message must be a join")
		return nil, fmt.Errorf("expected join, got %q", msg.Type)
	}

	if h.cfg.LobbyPasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.LobbyPasswordHash), []byte(msg.Password)); err != nil {
			h.writeError(conn, "BAD_PASSWORD", "lobby password rejected")
			return nil, fmt.Errorf("lobby password rejected")
		}
	}

	playerID := msg.PlayerID
	if playerID == "" {
		playerID = fmt.Sprintf("player-%d", h.nextID.Add(1))
	}

	sub := &subscriber{playerID: playerID, conn: conn}

	h.mu.Lock()
	if existing, ok := h.subscribers[playerID]; ok {
		existing.conn.Close()
	}
	h.subscribers[playerID] = sub
	h.mu.Unlock()

	if err := h.engine.SetPlayerConnected(playerID, true); err != nil {
		// Unknown to the match: the client joins as an observer.
		h.log.Debug("joined as observer", zap.String("player_id", playerID))
	}

	reply, _ := json.Marshal(joinedMessage{Type: "joined", PlayerID: playerID})
	if err := sub.write(h.cfg, reply); err != nil {
		h.disconnect(sub)
		return nil, err
	}

	// Late joiners get the current state immediately instead of waiting
	// for the next transition broadcast.
	if snapshot, err := h.engine.SnapshotWire(); err == nil {
		if err := sub.write(h.cfg, snapshot); err != nil {
			h.disconnect(sub)
			return nil, err
		}
	}

	return sub, nil
}

func (h *Hub) readLoop(sub *subscriber) {
	defer h.disconnect(sub)

	sub.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		return nil
	})

	stopPing := h.startPings(sub)
	defer stopPing()

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			h.log.Info("client read ended",
				zap.String("player_id", sub.playerID),
				zap.Error(err),
			)
			return
		}
		sub.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		if reply, err := h.HandleMessage(sub.playerID, data); err != nil {
			h.log.Warn("rejected client message",
				zap.String("player_id", sub.playerID),
				zap.Error(err),
			)
			h.writeError(sub.conn, "REJECTED", err.Error())
		} else if reply != nil {
			if err := sub.write(h.cfg, reply); err != nil {
				return
			}
		}
	}
}

// startPings keeps the connection's read deadline honest. The returned
// func stops the ticker.
func (h *Hub) startPings(sub *subscriber) func() {
	interval := h.cfg.HeartbeatInterval
	if interval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				sub.mu.Lock()
				sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
				err := sub.conn.WriteMessage(websocket.PingMessage, nil)
				sub.mu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// HandleMessage routes one parsed client message into the engine. The
// returned bytes, when non-nil, are a direct reply to the sender.
func (h *Hub) HandleMessage(playerID string, data []byte) ([]byte, error) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Type {
	case "roll":
		if err := h.requireTurn(playerID); err != nil {
			return nil, err
		}
		return nil, h.engine.Roll(msg.Value)

	case "choose_destination":
		if err := h.requireTurn(playerID); err != nil {
			return nil, err
		}
		return nil, h.engine.ChooseDestination(msg.SpaceID)

	case "pause":
		return nil, h.engine.Pause()

	case "resume":
		return nil, h.engine.Resume()

	case "game_state":
		// A non-hosting deployment receives authoritative snapshots
		// from the owning peer; the whole envelope is the wire state.
		if _, err := h.engine.ApplyAuthoritativeState(data); err != nil {
			return nil, err
		}
		return nil, nil

	case "request_state":
		return h.engine.SnapshotWire()

	case "heartbeat":
		reply, err := json.Marshal(heartbeatMessage{
			Type:       "heartbeat",
			ServerTime: time.Now().UnixMilli(),
			ClientTime: msg.SentAt,
		})
		if err != nil {
			return nil, err
		}
		return reply, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// requireTurn rejects turn-driving messages from anyone but the current
// player; observers and waiting players cannot move for the turn owner.
func (h *Hub) requireTurn(playerID string) error {
	current, _ := h.engine.TurnInfo()
	if playerID != current {
		return fmt.Errorf("player %q does not own the current turn", playerID)
	}
	return nil
}

func (h *Hub) disconnect(sub *subscriber) {
	h.mu.Lock()
	current, ok := h.subscribers[sub.playerID]
	if ok && current == sub {
		delete(h.subscribers, sub.playerID)
	}
	h.mu.Unlock()

	sub.conn.Close()

	if ok && current == sub {
		if err := h.engine.SetPlayerConnected(sub.playerID, false); err == nil {
			h.log.Info("player disconnected", zap.String("player_id", sub.playerID))
		}
	}
}

func (h *Hub) writeError(conn *websocket.Conn, code, message string) {
	data, err := json.Marshal(errorMessage{Type: "error", Code: code, Message: message})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	conn.WriteMessage(websocket.TextMessage, data)
}

// CloseAll disconnects every subscriber, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		sub.mu.Unlock()
		sub.conn.Close()
	}
}

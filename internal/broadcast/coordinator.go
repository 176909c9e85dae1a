package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Algoraver22/Chess-Game/internal/entity"
)

// sendBuffer bounds the per-connection outbound queue. A client that stops
// reading loses frames instead of stalling everyone else.
const sendBuffer = 64

// Coordinator fans validated state transitions out to connected clients.
// Each connection gets a buffered channel drained by its transport writer;
// sends never block, so no notification path can hold up session progress.
type Coordinator struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]chan []byte
}

func New(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger:  logger.With("component", "broadcast"),
		clients: make(map[string]chan []byte),
	}
}

// Register - adds the connection and returns the channel its writer must drain.
func (that *Coordinator) Register(connID string) <-chan []byte {
	send := make(chan []byte, sendBuffer)

	that.mu.Lock()
	that.clients[connID] = send
	that.mu.Unlock()

	return send
}

// Unregister - removes the connection and closes its channel, releasing the writer.
func (that *Coordinator) Unregister(connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if send, ok := that.clients[connID]; ok {
		delete(that.clients, connID)
		close(send)
	}
}

// NotifyRole - unicast, sent once per connection at connect time.
func (that *Coordinator) NotifyRole(connID, role string) {
	that.unicast(connID, ActionRole, RolePayload{Role: role})
}

// NotifyOpponentName - unicast introduction of the opposing player.
func (that *Coordinator) NotifyOpponentName(connID, name string) {
	that.unicast(connID, ActionOpponentName, OpponentNamePayload{Name: name})
}

// NotifyGameStarted - broadcast, sent exactly once per start transition.
func (that *Coordinator) NotifyGameStarted() {
	that.broadcast(ActionGameStarted, nil)
}

// NotifyMove - broadcast of the raw accepted move, mover included.
func (that *Coordinator) NotifyMove(move entity.Move) {
	that.broadcast(ActionMove, move)
}

// NotifyPosition - broadcast of the authoritative position.
func (that *Coordinator) NotifyPosition(fen string) {
	that.broadcast(ActionPosition, PositionPayload{FEN: fen})
}

// NotifyInvalidMove - unicast rejection to the submitter; nobody else hears
// about rejected moves.
func (that *Coordinator) NotifyInvalidMove(connID string, move entity.Move) {
	that.unicast(connID, ActionInvalidMove, move)
}

func (that *Coordinator) unicast(connID, action string, payload any) {
	data, err := encode(action, payload)
	if err != nil {
		that.logger.Error("failed to encode message", "action", action, "error", err)
		return
	}

	// The read lock spans delivery so a concurrent Unregister cannot close
	// the channel mid-send.
	that.mu.RLock()
	defer that.mu.RUnlock()

	send, ok := that.clients[connID]
	if !ok {
		that.logger.Debug("connection gone, message dropped", "action", action, "connID", connID)
		return
	}

	that.deliver(connID, send, data, action)
}

func (that *Coordinator) broadcast(action string, payload any) {
	data, err := encode(action, payload)
	if err != nil {
		that.logger.Error("failed to encode message", "action", action, "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for connID, send := range that.clients {
		that.deliver(connID, send, data, action)
	}
}

func (that *Coordinator) deliver(connID string, send chan []byte, data []byte, action string) {
	select {
	case send <- data:
	default:
		that.logger.Warn("client buffer full, message dropped", "action", action, "connID", connID)
	}
}

func encode(action string, payload any) ([]byte, error) {
	message := Message{Action: action}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		message.Payload = raw
	}

	return json.Marshal(message)
}

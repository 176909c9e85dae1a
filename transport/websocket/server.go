package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/Algoraver22/Chess-Game/internal/broadcast"
	"github.com/Algoraver22/Chess-Game/internal/entity"
	"github.com/Algoraver22/Chess-Game/internal/pkg"
)

// Inbound event names; the outbound set lives in the broadcast package.
const (
	ActionPlayerName = "player:name"
	ActionGameMove   = "game:move"
)

type NamePayload struct {
	Name string `json:"name"`
}

type coordinator interface {
	Connect(ctx context.Context, connID string)
	SetPlayerName(ctx context.Context, connID, name string)
	SubmitMove(ctx context.Context, connID string, move entity.Move)
	Disconnect(ctx context.Context, connID string)
}

type broadcaster interface {
	Register(connID string) <-chan []byte
	Unregister(connID string)
}

type Server struct {
	logger      *slog.Logger
	coordinator coordinator
	broadcaster broadcaster
}

func New(logger *slog.Logger, coordinator coordinator, broadcaster broadcaster) *Server {
	return &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: coordinator,
		broadcaster: broadcaster,
	}
}

// Handler - the /ws endpoint; exposed separately so tests can mount it on
// httptest servers.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleConnection)
	return mux
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleConnection - accepts the socket, registers it for fan-out, then
// pumps inbound events into the coordinator until the client goes away.
func (that *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	connID := pkg.GenerateConnectionID()
	log = log.With("connID", connID)

	send := that.broadcaster.Register(connID)
	go that.writePump(r.Context(), conn, send)

	that.coordinator.Connect(r.Context(), connID)
	log.Info("websocket connection established")

	that.readPump(r.Context(), conn, connID)

	// The identity dies with the socket; it is never reused.
	that.coordinator.Disconnect(context.Background(), connID)
	that.broadcaster.Unregister(connID)
	log.Info("websocket connection closed")
}

// writePump - drains the connection's outbound channel; exits when the
// broadcaster closes it on unregister.
func (that *Server) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte) {
	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-send:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (that *Server) readPump(ctx context.Context, conn *websocket.Conn, connID string) {
	log := that.logger.With("method", "readPump", "connID", connID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("read loop ended", "error", err)
			return
		}

		var message broadcast.Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Info("failed to unmarshal message", "error", err)
			continue
		}

		that.dispatch(ctx, connID, &message, log)
	}
}

func (that *Server) dispatch(ctx context.Context, connID string, message *broadcast.Message, log *slog.Logger) {
	switch message.Action {
	case ActionPlayerName:
		var payload NamePayload
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			log.Info("failed to unmarshal name payload", "error", err)
			return
		}
		that.coordinator.SetPlayerName(ctx, connID, payload.Name)

	case ActionGameMove:
		// A payload that does not decode still reaches the coordinator as a
		// zero move; the session decides whether that earns a rejection or a
		// silent drop.
		var move entity.Move
		if len(message.Payload) > 0 {
			if err := json.Unmarshal(message.Payload, &move); err != nil {
				log.Info("failed to unmarshal move payload", "error", err)
			}
		}
		that.coordinator.SubmitMove(ctx, connID, move)

	default:
		log.Info("unknown action ignored", "action", message.Action)
	}
}

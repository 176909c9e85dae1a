package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Algoraver22/Chess-Game/internal/apperror"
	"github.com/Algoraver22/Chess-Game/internal/entity"
	"github.com/Algoraver22/Chess-Game/internal/pkg"
	"github.com/Algoraver22/Chess-Game/internal/session"
)

type notifier interface {
	NotifyRole(connID, role string)
	NotifyOpponentName(connID, name string)
	NotifyGameStarted()
	NotifyMove(move entity.Move)
	NotifyPosition(fen string)
	NotifyInvalidMove(connID string, move entity.Move)
}

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, record *entity.GameRecord) error
	GetByID(ctx context.Context, id string) (*entity.GameRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

type oracle interface {
	IsTerminal(fen string) (bool, error)
}

// SessionManager is the single entry point the transport calls into. It maps
// connection lifecycle events onto the session, turns the outcomes into
// notifications, and journals accepted play into the archive. Events are
// serialized by one mutex; no failure from one connection's event may leak
// into state visible to the others.
type SessionManager struct {
	logger  *slog.Logger
	session *session.Session
	oracle  oracle
	peers   notifier
	games   gameRepo

	mu     sync.Mutex
	record *entity.GameRecord
}

func NewSessionManager(logger *slog.Logger, gameSession *session.Session, oracle oracle, peers notifier, games gameRepo) *SessionManager {
	return &SessionManager{
		logger:  logger.With("component", "session_manager"),
		session: gameSession,
		oracle:  oracle,
		peers:   peers,
		games:   games,
	}
}

// Connect - assigns a role to the new connection and, when it fills the
// second seat, starts the game: fresh position, one game:started broadcast,
// and a new archive record.
func (that *SessionManager) Connect(ctx context.Context, connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "Connect", "connID", connID)

	result := that.session.Join(connID)
	that.peers.NotifyRole(connID, result.Role)

	log.Info("connection joined", "role", result.Role)

	if !result.GameStarted {
		return
	}

	that.record = &entity.GameRecord{
		ID:        pkg.GenerateGameID(),
		StartedAt: time.Now(),
		FEN:       result.Position,
		Status:    entity.RecordStatusOngoing,
	}
	that.saveRecord(ctx, log)

	that.peers.NotifyGameStarted()
	that.peers.NotifyPosition(result.Position)

	log.Info("game started", "gameID", that.record.ID)
}

// SetPlayerName - stores the display name and relays the introduction to
// both seats when an opponent is present.
func (that *SessionManager) SetPlayerName(_ context.Context, connID, name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	exchange := that.session.SetName(connID, name)
	if !exchange.HasOpponent {
		return
	}

	that.peers.NotifyOpponentName(connID, exchange.OpponentName)
	that.peers.NotifyOpponentName(exchange.OpponentID, exchange.OwnName)
}

// SubmitMove - the move event boundary. Not-started and off-turn submissions
// are dropped silently, malformed payloads included; only the on-turn player
// can earn a rejection. Malformed input from them is rejected before the
// rules engine sees it, rules rejections go back to the submitter alone, and
// an accepted move commits the position and broadcasts game:move then
// game:position.
func (that *SessionManager) SubmitMove(ctx context.Context, connID string, move entity.Move) {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "SubmitMove", "connID", connID)

	result, err := that.session.SubmitMove(connID, move)

	switch {
	case errors.Is(err, apperror.ErrGameIsNotStarted), errors.Is(err, apperror.ErrNotYourTurn):
		log.Debug("move dropped", "reason", err)
		return
	case err != nil:
		log.Info("move rejected", "move", move.UCI(), "error", err)
		that.peers.NotifyInvalidMove(connID, move)
		return
	}

	that.peers.NotifyMove(move)
	that.peers.NotifyPosition(result.Position)

	log.Info("move accepted", "move", move.UCI())

	that.journalMove(ctx, log, move, result.Position)
}

// Disconnect - releases the connection's seat. When the second seat holder
// leaves too, the session resets and an unfinished record is closed out as
// abandoned.
func (that *SessionManager) Disconnect(ctx context.Context, connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "Disconnect", "connID", connID)

	result := that.session.Leave(connID)

	if result.VacatedRole != "" {
		log.Info("seat vacated", "role", result.VacatedRole)
	}

	if !result.SessionReset {
		return
	}

	log.Info("both seats vacant, session reset")

	if that.record != nil {
		if that.record.IsOngoing() {
			that.record.Status = entity.RecordStatusAbandoned
		}
		that.saveRecord(ctx, log)
		that.record = nil
	}
}

// journalMove - best-effort archive update; never fails the move.
func (that *SessionManager) journalMove(ctx context.Context, log *slog.Logger, move entity.Move, fen string) {
	if that.record == nil {
		return
	}

	that.record.Moves = append(that.record.Moves, move.UCI())
	that.record.FEN = fen

	terminal, err := that.oracle.IsTerminal(fen)
	if err != nil {
		log.Error("failed to check terminal position", "error", err)
	}
	if terminal {
		that.record.Status = entity.RecordStatusFinished
		log.Info("game finished", "gameID", that.record.ID)
	}

	that.saveRecord(ctx, log)
}

func (that *SessionManager) saveRecord(ctx context.Context, log *slog.Logger) {
	if err := that.games.CreateOrUpdate(ctx, that.record); err != nil {
		log.Error("failed to save game record", "gameID", that.record.ID, "error", err)
	}
}

package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Algoraver22/Chess-Game/internal/apperror"
	"github.com/Algoraver22/Chess-Game/internal/entity"
)

type oracle interface {
	InitialPosition() string
	TurnOwner(fen string) (string, error)
	Apply(fen string, move entity.Move) (string, error)
}

// Session is the single shared game instance: two seats, any number of
// spectators, display names, the started flag and the authoritative
// position. One mutex covers all of it, so every operation is atomic with
// respect to the others; in particular SubmitMove holds the lock across
// authorize, rules check and commit, so two near-simultaneous submissions
// can never both pass the turn gate.
type Session struct {
	mu     sync.Mutex
	oracle oracle

	whiteID string
	blackID string
	names   map[string]string
	started bool
	fen     string
}

func New(oracle oracle) *Session {
	return &Session{
		oracle: oracle,
		names:  make(map[string]string),
	}
}

// JoinResult reports the assigned role and, when this join filled the second
// seat, the start transition with the fresh initial position.
type JoinResult struct {
	Role        string
	GameStarted bool
	Position    string
}

// Join - assigns white if vacant, else black, else spectator. Never fails.
// When both seats become occupied the game starts and the position resets.
func (that *Session) Join(connID string) JoinResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	var role string
	switch {
	case that.whiteID == "":
		that.whiteID = connID
		role = entity.RoleWhite
	case that.blackID == "" && that.whiteID != connID:
		that.blackID = connID
		role = entity.RoleBlack
	default:
		role = entity.RoleSpectator
	}

	result := JoinResult{Role: role}

	if that.whiteID != "" && that.blackID != "" && !that.started {
		that.started = true
		that.fen = that.oracle.InitialPosition()
		result.GameStarted = true
		result.Position = that.fen
	}

	return result
}

// LeaveResult reports which seat was vacated, if any, and whether the
// session reset because both seats are now empty.
type LeaveResult struct {
	VacatedRole  string
	SessionReset bool
}

// Leave - vacates the seat held by connID and forgets its display name.
// Leaving twice, or leaving as a spectator, is a no-op beyond the name map.
// The started flag resets only once both seats are simultaneously vacant.
func (that *Session) Leave(connID string) LeaveResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	var result LeaveResult

	switch connID {
	case that.whiteID:
		that.whiteID = ""
		result.VacatedRole = entity.RoleWhite
	case that.blackID:
		that.blackID = ""
		result.VacatedRole = entity.RoleBlack
	}

	delete(that.names, connID)

	if that.whiteID == "" && that.blackID == "" && that.started {
		that.started = false
		result.SessionReset = true
	}

	return result
}

// NameExchange carries both directions of a name introduction: what the
// submitter should see for their opponent, and what the opponent should see
// for the submitter.
type NameExchange struct {
	OwnName      string
	OpponentID   string
	OpponentName string
	HasOpponent  bool
}

// SetName - stores the trimmed display name for connID, first write wins.
// Empty or whitespace-only input falls back to the seat's placeholder. When
// the opposing seat is occupied the exchange pair is returned for relay.
func (that *Session) SetName(connID, name string) NameExchange {
	that.mu.Lock()
	defer that.mu.Unlock()

	var opponentID, ownDefault, opponentDefault string
	switch connID {
	case that.whiteID:
		opponentID = that.blackID
		ownDefault = entity.DefaultWhiteName
		opponentDefault = entity.DefaultBlackName
	case that.blackID:
		opponentID = that.whiteID
		ownDefault = entity.DefaultBlackName
		opponentDefault = entity.DefaultWhiteName
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = ownDefault
	}

	if existing, ok := that.names[connID]; ok {
		trimmed = existing
	} else if trimmed != "" {
		that.names[connID] = trimmed
	}

	exchange := NameExchange{OwnName: trimmed}

	if opponentID != "" {
		exchange.HasOpponent = true
		exchange.OpponentID = opponentID
		exchange.OpponentName = that.names[opponentID]
		if exchange.OpponentName == "" {
			exchange.OpponentName = opponentDefault
		}
	}

	return exchange
}

// MoveResult carries the committed position after an accepted move.
type MoveResult struct {
	Position string
}

// SubmitMove - the turn gate plus commit. The submitter must hold the seat
// matching the position's side to move; ownership is derived from the FEN
// itself, never from a separately tracked turn variable. The gate runs before
// move validation, so a not-started or off-turn submission surfaces as a gate
// error no matter how mangled its payload is.
func (that *Session) SubmitMove(connID string, move entity.Move) (MoveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.started {
		return MoveResult{}, apperror.ErrGameIsNotStarted
	}

	var seat string
	switch connID {
	case that.whiteID:
		seat = entity.RoleWhite
	case that.blackID:
		seat = entity.RoleBlack
	default:
		return MoveResult{}, apperror.ErrNotYourTurn
	}

	owner, err := that.oracle.TurnOwner(that.fen)
	if err != nil {
		return MoveResult{}, fmt.Errorf("failed to read turn owner: %w", err)
	}

	if owner != seat {
		return MoveResult{}, apperror.ErrNotYourTurn
	}

	if err = move.Validate(); err != nil {
		return MoveResult{}, err
	}

	newFEN, err := that.oracle.Apply(that.fen, move)
	if err != nil {
		return MoveResult{}, fmt.Errorf("failed to apply move: %w", err)
	}

	that.fen = newFEN

	return MoveResult{Position: newFEN}, nil
}

// IsFull - true iff both seats are occupied.
func (that *Session) IsFull() bool {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.whiteID != "" && that.blackID != ""
}

func (that *Session) Started() bool {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.started
}

// Position - the current authoritative FEN; empty before the first start.
func (that *Session) Position() string {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.fen
}

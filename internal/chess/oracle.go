package chess

import (
	"fmt"

	engine "github.com/notnil/chess"

	"github.com/Algoraver22/Chess-Game/internal/apperror"
	"github.com/Algoraver22/Chess-Game/internal/entity"
)

// Oracle validates and applies moves against FEN-encoded positions. Every
// method is a pure function of its inputs: two clients replaying the same
// moves from the same position converge on identical state.
type Oracle struct{}

func NewOracle() *Oracle {
	return &Oracle{}
}

// InitialPosition - returns the standard starting position.
func (that *Oracle) InitialPosition() string {
	return engine.NewGame().Position().String()
}

// Apply - applies the move to the position and returns the resulting FEN.
// Rules violations come back wrapping apperror.ErrIllegalMove; an internal
// engine fault is recovered here and reported the same way, so a single bad
// submission can never take the session down.
func (that *Oracle) Apply(fen string, move entity.Move) (newFEN string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: engine fault on %s: %v", apperror.ErrIllegalMove, move.UCI(), r)
		}
	}()

	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}

	decoded, err := decodeMove(game.Position(), move.UCI())
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperror.ErrIllegalMove, move.UCI())
	}

	if err = game.Move(decoded); err != nil {
		return "", fmt.Errorf("%w: %s", apperror.ErrIllegalMove, move.UCI())
	}

	return game.Position().String(), nil
}

// TurnOwner - reads the side to move straight off the position, "w" or "b".
func (that *Oracle) TurnOwner(fen string) (string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}

	return game.Position().Turn().String(), nil
}

// IsTerminal - reports whether the position has an outcome (mate, stalemate
// or an automatic draw). Used for record keeping only, never for gating.
func (that *Oracle) IsTerminal(fen string) (bool, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return false, err
	}

	return game.Outcome() != engine.NoOutcome, nil
}

// decodeMove - decodes UCI notation against the position, defaulting a bare
// promotion move to a queen.
func decodeMove(position *engine.Position, uci string) (*engine.Move, error) {
	notation := engine.UCINotation{}

	move, err := notation.Decode(position, uci)
	if err == nil {
		return move, nil
	}

	if len(uci) == 4 {
		if queened, queenErr := notation.Decode(position, uci+"q"); queenErr == nil {
			return queened, nil
		}
	}

	return nil, err
}

func gameFromFEN(fen string) (*engine.Game, error) {
	option, err := engine.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidPosition, err)
	}

	return engine.NewGame(option), nil
}

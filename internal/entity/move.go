package entity

import (
	"fmt"

	"github.com/Algoraver22/Chess-Game/internal/apperror"
)

// Move is a participant-submitted action: source and destination squares in
// algebraic notation plus an optional promotion piece.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Validate - checks the move fields are well-formed before it reaches the rules engine.
func (that Move) Validate() error {
	if !isSquare(that.From) {
		return fmt.Errorf("%w: bad source square %q", apperror.ErrMalformedMove, that.From)
	}

	if !isSquare(that.To) {
		return fmt.Errorf("%w: bad destination square %q", apperror.ErrMalformedMove, that.To)
	}

	switch that.Promotion {
	case "", "q", "r", "b", "n":
		return nil
	default:
		return fmt.Errorf("%w: bad promotion piece %q", apperror.ErrMalformedMove, that.Promotion)
	}
}

// UCI - renders the move in UCI notation, e.g. "e2e4" or "e7e8q".
func (that Move) UCI() string {
	return that.From + that.To + that.Promotion
}

func isSquare(s string) bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

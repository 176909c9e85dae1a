package broadcast

import "encoding/json"

// Outbound event names. Inbound names live with the transport.
const (
	ActionRole         = "game:role"
	ActionOpponentName = "game:opponent"
	ActionGameStarted  = "game:started"
	ActionMove         = "game:move"
	ActionPosition     = "game:position"
	ActionInvalidMove  = "game:invalid_move"
)

// Message is the wire envelope: an action name plus an action-specific payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RolePayload struct {
	Role string `json:"role"`
}

type OpponentNamePayload struct {
	Name string `json:"name"`
}

type PositionPayload struct {
	FEN string `json:"fen"`
}

package entity

import "time"

const (
	RecordStatusOngoing   = "ongoing"
	RecordStatusFinished  = "finished"
	RecordStatusAbandoned = "abandoned"
)

// GameRecord is the archived journal of one played game: every accepted move
// in UCI notation plus the final position. It documents play after the fact
// and is never read back into the live session.
type GameRecord struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Moves     []string  `json:"moves"`
	FEN       string    `json:"fen"`
	Status    string    `json:"status"`
}

func (that *GameRecord) IsOngoing() bool {
	return that.Status == RecordStatusOngoing
}

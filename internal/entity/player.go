package entity

const (
	RoleWhite     = "w"
	RoleBlack     = "b"
	RoleSpectator = "spectator"
)

const (
	DefaultWhiteName = "Player 1"
	DefaultBlackName = "Player 2"
)

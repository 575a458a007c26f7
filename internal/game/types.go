package game

import "time"

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

const (
	codeLength    = 4
	maxNameLength = 20
)

type Room struct {
	ID         string
	Code       string
	HostID     string
	Status     Status
	Category   *string
	SecretWord *string
	ImpostorID *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Player is a user's membership in one room.
type Player struct {
	ID       string
	RoomID   string
	UserID   string
	Name     string
	Score    int
	JoinedAt time.Time
	Seq      int64
}

type State struct {
	Room    Room
	Players []Player
}

// RoomPatch replaces the game fields of a room. When ExpectStatus is set the
// update only applies if the stored status still matches it.
type RoomPatch struct {
	Status       Status
	Category     *string
	SecretWord   *string
	ImpostorID   *string
	ExpectStatus Status
}

package game

import "errors"

type Kind string

const (
	KindRoomNotFound       Kind = "room_not_found"
	KindRoomCreationFailed Kind = "room_creation_failed"
	KindRoomJoinFailed     Kind = "room_join_failed"
	KindRoomLoadFailed     Kind = "room_load_failed"
	KindGameStartFailed    Kind = "game_start_failed"
	KindGameResetFailed    Kind = "game_reset_failed"
	KindRoomLeaveFailed    Kind = "room_leave_failed"
	KindNoPlayersInRoom    Kind = "no_players_in_room"
	KindRoomAlreadyStarted Kind = "room_already_started"
	KindInvalidPlayerName  Kind = "invalid_player_name"
	KindUnauthenticated    Kind = "unauthenticated"
)

// Error is the tagged result of a failed engine operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrRoomNotFound       = &Error{Kind: KindRoomNotFound}
	ErrRoomCreationFailed = &Error{Kind: KindRoomCreationFailed}
	ErrRoomJoinFailed     = &Error{Kind: KindRoomJoinFailed}
	ErrRoomLoadFailed     = &Error{Kind: KindRoomLoadFailed}
	ErrGameStartFailed    = &Error{Kind: KindGameStartFailed}
	ErrGameResetFailed    = &Error{Kind: KindGameResetFailed}
	ErrRoomLeaveFailed    = &Error{Kind: KindRoomLeaveFailed}
	ErrNoPlayersInRoom    = &Error{Kind: KindNoPlayersInRoom}
	ErrRoomAlreadyStarted = &Error{Kind: KindRoomAlreadyStarted}
	ErrInvalidPlayerName  = &Error{Kind: KindInvalidPlayerName}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
)

// Store-level conditions that the engine turns into behavior rather than
// failures.
var (
	ErrCodeTaken     = errors.New("room code already in use")
	ErrAlreadyMember = errors.New("user already in room")
)

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of an engine error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

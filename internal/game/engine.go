package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"impostor/internal/words"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultCodeAttempts = 8

// Engine owns room lifecycle transitions on top of a Store.
type Engine struct {
	store        Store
	catalog      words.Catalog
	notifier     Notifier
	log          logrus.FieldLogger
	now          func() time.Time
	pick         words.Picker
	newCode      func() (string, error)
	newID        func() string
	strict       bool
	codeAttempts int
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithPicker(pick words.Picker) Option {
	return func(e *Engine) { e.pick = pick }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.newCode = gen }
}

// WithStrictTransitions makes StartGame a compare-and-update on the lobby
// status instead of last-write-wins.
func WithStrictTransitions(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

func WithCodeAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.codeAttempts = n
		}
	}
}

func NewEngine(store Store, catalog words.Catalog, opts ...Option) *Engine {
	if catalog == nil {
		catalog = words.Default()
	}
	e := &Engine{
		store:        store,
		catalog:      catalog,
		log:          logrus.StandardLogger(),
		now:          timeNowUTC,
		pick:         rand.IntN,
		newCode:      newRoomCode,
		newID:        uuid.NewString,
		codeAttempts: defaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Catalog() words.Catalog {
	return e.catalog
}

func (e *Engine) CreateRoom(ctx context.Context, hostID, playerName string) (*Room, error) {
	const op = "create room"
	if strings.TrimSpace(hostID) == "" {
		return nil, newError(KindUnauthenticated, op, nil)
	}
	name, err := ValidatePlayerName(playerName)
	if err != nil {
		return nil, newError(KindInvalidPlayerName, op, err)
	}

	now := e.now()
	room := &Room{
		ID:        e.newID(),
		HostID:    hostID,
		Status:    StatusLobby,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.insertRoomWithFreshCode(ctx, room); err != nil {
		return nil, newError(KindRoomCreationFailed, op, err)
	}

	host := &Player{
		ID:       e.newID(),
		RoomID:   room.ID,
		UserID:   hostID,
		Name:     name,
		Score:    0,
		JoinedAt: now,
	}
	if err := e.store.InsertPlayer(ctx, host); err != nil {
		e.log.WithFields(logrus.Fields{
			"room_id": room.ID,
			"code":    room.Code,
			"user_id": hostID,
		}).WithError(err).Error("host membership insert failed; room left without players")
		return nil, newError(KindRoomCreationFailed, op, err)
	}

	e.log.WithFields(logrus.Fields{"room_id": room.ID, "code": room.Code, "user_id": hostID}).Info("room created")
	e.emit(ctx, Event{Type: EventRoomCreated, RoomID: room.ID, Code: room.Code, UserID: hostID, PlayerName: name})
	return room, nil
}

func (e *Engine) insertRoomWithFreshCode(ctx context.Context, room *Room) error {
	var lastErr error
	for attempt := 0; attempt < e.codeAttempts; attempt++ {
		code, err := e.newCode()
		if err != nil {
			return err
		}
		existing, err := e.store.FindRoomByCode(ctx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			lastErr = ErrCodeTaken
			continue
		}
		room.Code = code
		err = e.store.InsertRoom(ctx, room)
		if errors.Is(err, ErrCodeTaken) {
			lastErr = err
			continue
		}
		return err
	}
	e.log.WithField("attempts", e.codeAttempts).Warn("no free room code found")
	return lastErr
}

func (e *Engine) JoinRoom(ctx context.Context, code, userID, playerName string) (*Room, error) {
	const op = "join room"
	room, err := e.store.FindRoomByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, newError(KindRoomJoinFailed, op, err)
	}
	if room == nil {
		return nil, newError(KindRoomNotFound, op, nil)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, newError(KindUnauthenticated, op, nil)
	}

	existing, err := e.store.FindPlayer(ctx, room.ID, userID)
	if err != nil {
		return nil, newError(KindRoomJoinFailed, op, err)
	}
	if existing != nil {
		return room, nil
	}

	name, err := ValidatePlayerName(playerName)
	if err != nil {
		return nil, newError(KindInvalidPlayerName, op, err)
	}
	player := &Player{
		ID:       e.newID(),
		RoomID:   room.ID,
		UserID:   userID,
		Name:     name,
		Score:    0,
		JoinedAt: e.now(),
	}
	if err := e.store.InsertPlayer(ctx, player); err != nil {
		if errors.Is(err, ErrAlreadyMember) {
			return room, nil
		}
		return nil, newError(KindRoomJoinFailed, op, err)
	}

	e.log.WithFields(logrus.Fields{"room_id": room.ID, "code": room.Code, "user_id": userID}).Info("player joined")
	e.emit(ctx, Event{Type: EventPlayerJoined, RoomID: room.ID, Code: room.Code, UserID: userID, PlayerName: name})
	return room, nil
}

func (e *Engine) GetRoomState(ctx context.Context, code string) (*State, error) {
	const op = "get room state"
	room, err := e.store.FindRoomByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, newError(KindRoomLoadFailed, op, err)
	}
	if room == nil {
		return nil, newError(KindRoomNotFound, op, nil)
	}
	players, err := e.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, newError(KindRoomLoadFailed, op, err)
	}
	if players == nil {
		players = []Player{}
	}
	return &State{Room: *room, Players: players}, nil
}

func (e *Engine) StartGame(ctx context.Context, roomID string) error {
	const op = "start game"
	room, err := e.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return newError(KindGameStartFailed, op, err)
	}
	if room == nil {
		return newError(KindRoomNotFound, op, nil)
	}
	players, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return newError(KindGameStartFailed, op, err)
	}
	if len(players) == 0 {
		return newError(KindNoPlayersInRoom, op, nil)
	}

	category, word, err := e.catalog.Pick(e.pick)
	if err != nil {
		return newError(KindGameStartFailed, op, err)
	}
	impostor := players[e.pick(len(players))].UserID

	patch := RoomPatch{
		Status:     StatusPlaying,
		Category:   &category,
		SecretWord: &word,
		ImpostorID: &impostor,
	}
	if e.strict {
		patch.ExpectStatus = StatusLobby
	}
	matched, err := e.store.UpdateRoom(ctx, roomID, patch)
	if err != nil {
		return newError(KindGameStartFailed, op, err)
	}
	if !matched {
		if e.strict {
			return newError(KindRoomAlreadyStarted, op, nil)
		}
		return newError(KindRoomNotFound, op, nil)
	}

	e.log.WithFields(logrus.Fields{
		"room_id":  roomID,
		"code":     room.Code,
		"players":  len(players),
		"category": category,
	}).Info("game started")
	e.emit(ctx, Event{Type: EventGameStarted, RoomID: roomID, Code: room.Code, Category: category})
	return nil
}

func (e *Engine) ResetGame(ctx context.Context, roomID string) error {
	const op = "reset game"
	room, err := e.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return newError(KindGameResetFailed, op, err)
	}
	if room == nil {
		return newError(KindRoomNotFound, op, nil)
	}
	matched, err := e.store.UpdateRoom(ctx, roomID, RoomPatch{Status: StatusLobby})
	if err != nil {
		return newError(KindGameResetFailed, op, err)
	}
	if !matched {
		return newError(KindRoomNotFound, op, nil)
	}

	e.log.WithFields(logrus.Fields{"room_id": roomID, "code": room.Code}).Info("game reset")
	e.emit(ctx, Event{Type: EventGameReset, RoomID: roomID, Code: room.Code})
	return nil
}

func (e *Engine) LeaveRoom(ctx context.Context, roomID, userID string) error {
	const op = "leave room"
	if strings.TrimSpace(userID) == "" {
		return newError(KindUnauthenticated, op, nil)
	}
	removed, err := e.store.DeletePlayer(ctx, roomID, userID)
	if err != nil {
		return newError(KindRoomLeaveFailed, op, err)
	}
	if !removed {
		return nil
	}

	code := ""
	if room, err := e.store.FindRoomByID(ctx, roomID); err == nil && room != nil {
		code = room.Code
	}
	e.log.WithFields(logrus.Fields{"room_id": roomID, "code": code, "user_id": userID}).Info("player left")
	e.emit(ctx, Event{Type: EventPlayerLeft, RoomID: roomID, Code: code, UserID: userID})
	return nil
}

func (e *Engine) emit(ctx context.Context, event Event) {
	if e.notifier == nil {
		return
	}
	if event.At.IsZero() {
		event.At = e.now()
	}
	if err := e.notifier.RoomChanged(ctx, event); err != nil {
		e.log.WithFields(logrus.Fields{
			"room_id": event.RoomID,
			"event":   event.Type,
		}).WithError(err).Warn("room change notification failed")
	}
}

// ValidatePlayerName trims the name and checks it is 1 to 20 characters.
func ValidatePlayerName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("player name is required")
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return "", errors.New("player name must be 20 characters or fewer")
	}
	return trimmed, nil
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}

package game

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"impostor/internal/words"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

// faultyStore fails the named operation and delegates everything else.
type faultyStore struct {
	*MemoryStore
	fail map[string]bool
}

func newFaultyStore(ops ...string) *faultyStore {
	fail := make(map[string]bool)
	for _, op := range ops {
		fail[op] = true
	}
	return &faultyStore{MemoryStore: NewMemoryStore(), fail: fail}
}

func (s *faultyStore) InsertRoom(ctx context.Context, room *Room) error {
	if s.fail["InsertRoom"] {
		return errStoreDown
	}
	return s.MemoryStore.InsertRoom(ctx, room)
}

func (s *faultyStore) InsertPlayer(ctx context.Context, player *Player) error {
	if s.fail["InsertPlayer"] {
		return errStoreDown
	}
	return s.MemoryStore.InsertPlayer(ctx, player)
}

func (s *faultyStore) UpdateRoom(ctx context.Context, id string, patch RoomPatch) (bool, error) {
	if s.fail["UpdateRoom"] {
		return false, errStoreDown
	}
	return s.MemoryStore.UpdateRoom(ctx, id, patch)
}

func (s *faultyStore) ListPlayers(ctx context.Context, roomID string) ([]Player, error) {
	if s.fail["ListPlayers"] {
		return nil, errStoreDown
	}
	return s.MemoryStore.ListPlayers(ctx, roomID)
}

func (s *faultyStore) DeletePlayer(ctx context.Context, roomID, userID string) (bool, error) {
	if s.fail["DeletePlayer"] {
		return false, errStoreDown
	}
	return s.MemoryStore.DeletePlayer(ctx, roomID, userID)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) RoomChanged(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

func fixedClock() func() time.Time {
	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	return func() time.Time { return base }
}

func newTestEngine(t *testing.T, store Store, opts ...Option) *Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	base := []Option{WithLogger(logger)}
	return NewEngine(store, words.Default(), append(base, opts...)...)
}

func memberIDs(players []Player) []string {
	ids := make([]string, 0, len(players))
	for _, player := range players {
		ids = append(ids, player.UserID)
	}
	return ids
}

func TestRoomCodeShape(t *testing.T) {
	shape := regexp.MustCompile(`^[A-Z0-9]{4}$`)
	for i := 0; i < 500; i++ {
		code, err := newRoomCode()
		require.NoError(t, err)
		require.Regexp(t, shape, code)
	}
}

func TestCreateRoomLobbyInvariant(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store)

	room, err := engine.CreateRoom(ctx, "user-ana", "  Ana ")
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, room.Status)
	assert.Nil(t, room.Category)
	assert.Nil(t, room.SecretWord)
	assert.Nil(t, room.ImpostorID)
	assert.Equal(t, "user-ana", room.HostID)
	assert.Regexp(t, `^[A-Z0-9]{4}$`, room.Code)

	state, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	require.Len(t, state.Players, 1)
	assert.Equal(t, "Ana", state.Players[0].Name)
	assert.Equal(t, 0, state.Players[0].Score)
}

func TestCreateRoomValidation(t *testing.T) {
	engine := newTestEngine(t, NewMemoryStore())

	_, err := engine.CreateRoom(context.Background(), "", "Ana")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = engine.CreateRoom(context.Background(), "user-ana", "   ")
	assert.ErrorIs(t, err, ErrInvalidPlayerName)

	_, err = engine.CreateRoom(context.Background(), "user-ana", "abcdefghijklmnopqrstu")
	assert.ErrorIs(t, err, ErrInvalidPlayerName)

	_, err = engine.CreateRoom(context.Background(), "user-ana", "Joãozinho da Silva 2")
	assert.NoError(t, err)
}

func TestCreateRoomRetriesTakenCode(t *testing.T) {
	ctx := context.Background()
	codes := []string{"AB12", "AB12", "CD34"}
	next := 0
	gen := func() (string, error) {
		code := codes[next]
		next++
		return code, nil
	}
	engine := newTestEngine(t, NewMemoryStore(), WithCodeGenerator(gen))

	first, err := engine.CreateRoom(ctx, "u1", "Ana")
	require.NoError(t, err)
	second, err := engine.CreateRoom(ctx, "u2", "Beto")
	require.NoError(t, err)

	assert.Equal(t, "AB12", first.Code)
	assert.Equal(t, "CD34", second.Code)
	assert.Equal(t, 3, next)
}

func TestCreateRoomGivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	gen := func() (string, error) { return "AB12", nil }
	engine := newTestEngine(t, NewMemoryStore(), WithCodeGenerator(gen), WithCodeAttempts(3))

	_, err := engine.CreateRoom(ctx, "u1", "Ana")
	require.NoError(t, err)
	_, err = engine.CreateRoom(ctx, "u2", "Beto")
	assert.ErrorIs(t, err, ErrRoomCreationFailed)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestCreateRoomStoreFailures(t *testing.T) {
	ctx := context.Background()

	engine := newTestEngine(t, newFaultyStore("InsertRoom"))
	_, err := engine.CreateRoom(ctx, "u1", "Ana")
	assert.ErrorIs(t, err, ErrRoomCreationFailed)
	assert.ErrorIs(t, err, errStoreDown)

	logger, hook := test.NewNullLogger()
	store := newFaultyStore("InsertPlayer")
	engine = NewEngine(store, nil, WithLogger(logger), WithCodeGenerator(func() (string, error) { return "ORPH", nil }))
	_, err = engine.CreateRoom(ctx, "u1", "Ana")
	assert.ErrorIs(t, err, ErrRoomCreationFailed)

	orphan, lookupErr := store.FindRoomByCode(ctx, "ORPH")
	require.NoError(t, lookupErr)
	require.NotNil(t, orphan, "room insert is not rolled back")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, orphan.ID, hook.LastEntry().Data["room_id"])
}

func TestJoinRoomIdempotent(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore())
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	first, err := engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	require.NoError(t, err)
	second, err := engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	state, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-ana", "u-beto"}, memberIDs(state.Players))
}

func TestJoinRoomNormalizesCode(t *testing.T) {
	ctx := context.Background()
	gen := func() (string, error) { return "AB12", nil }
	engine := newTestEngine(t, NewMemoryStore(), WithCodeGenerator(gen))
	_, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	room, err := engine.JoinRoom(ctx, " ab12 ", "u-beto", "Beto")
	require.NoError(t, err)
	assert.Equal(t, "AB12", room.Code)
}

func TestJoinRoomNotFound(t *testing.T) {
	engine := newTestEngine(t, NewMemoryStore())
	_, err := engine.JoinRoom(context.Background(), "ZZZZ", "u", "X")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, KindRoomNotFound, KindOf(err))
}

func TestJoinRoomWhilePlaying(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore())
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	require.NoError(t, engine.StartGame(ctx, room.ID))

	joined, err := engine.JoinRoom(ctx, room.Code, "u-late", "Late")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, joined.Status)
}

func TestJoinRoomStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	engine := newTestEngine(t, store)
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	store.fail["InsertPlayer"] = true
	_, err = engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	assert.ErrorIs(t, err, ErrRoomJoinFailed)
}

// duplicateRaceStore hides the existing membership from FindPlayer, as a
// concurrent duplicate join would see it.
type duplicateRaceStore struct {
	*MemoryStore
}

func (s duplicateRaceStore) FindPlayer(ctx context.Context, roomID, userID string) (*Player, error) {
	return nil, nil
}

func TestJoinRoomDuplicateInsertIsNoop(t *testing.T) {
	ctx := context.Background()
	store := duplicateRaceStore{MemoryStore: NewMemoryStore()}
	engine := newTestEngine(t, store)
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	_, err = engine.JoinRoom(ctx, room.Code, "u-ana", "Ana")
	require.NoError(t, err)

	players, err := store.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, players, 1)
}

func TestStartGameInvariant(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore())
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	_, err = engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	require.NoError(t, err)
	_, err = engine.JoinRoom(ctx, room.Code, "u-caio", "Caio")
	require.NoError(t, err)

	require.NoError(t, engine.StartGame(ctx, room.ID))

	state, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, state.Room.Status)
	require.NotNil(t, state.Room.Category)
	require.NotNil(t, state.Room.SecretWord)
	require.NotNil(t, state.Room.ImpostorID)
	assert.Contains(t, engine.Catalog().Categories(), *state.Room.Category)
	assert.True(t, engine.Catalog().Contains(*state.Room.Category, *state.Room.SecretWord))
	assert.Contains(t, memberIDs(state.Players), *state.Room.ImpostorID)
}

func TestStartGameNoPlayers(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore())
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	require.NoError(t, engine.LeaveRoom(ctx, room.ID, "u-ana"))

	err = engine.StartGame(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNoPlayersInRoom)

	state, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, state.Room.Status)
	assert.Nil(t, state.Room.Category)
}

func TestStartGameUnknownRoom(t *testing.T) {
	engine := newTestEngine(t, NewMemoryStore())
	err := engine.StartGame(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStartGameUpdateFailure(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	engine := newTestEngine(t, store)
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	store.fail["UpdateRoom"] = true
	assert.ErrorIs(t, engine.StartGame(ctx, room.ID), ErrGameStartFailed)
	assert.ErrorIs(t, engine.ResetGame(ctx, room.ID), ErrGameResetFailed)
}

func TestStartGameLastWriteWins(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore())
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	require.NoError(t, engine.StartGame(ctx, room.ID))
	require.NoError(t, engine.StartGame(ctx, room.ID))
}

func TestStartGameStrictTransitions(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore(), WithStrictTransitions(true))
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	require.NoError(t, engine.StartGame(ctx, room.ID))
	before, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)

	err = engine.StartGame(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomAlreadyStarted)

	after, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, before.Room.SecretWord, after.Room.SecretWord)
}

func TestResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore())
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	_, err = engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	require.NoError(t, err)

	before, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	require.NoError(t, engine.StartGame(ctx, room.ID))
	require.NoError(t, engine.ResetGame(ctx, room.ID))

	after, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, after.Room.Status)
	assert.Nil(t, after.Room.Category)
	assert.Nil(t, after.Room.SecretWord)
	assert.Nil(t, after.Room.ImpostorID)
	if diff := cmp.Diff(before.Players, after.Players); diff != "" {
		t.Fatalf("players changed across start/reset (-before +after):\n%s", diff)
	}
}

func TestResetUnknownRoom(t *testing.T) {
	engine := newTestEngine(t, NewMemoryStore())
	assert.ErrorIs(t, engine.ResetGame(context.Background(), "missing"), ErrRoomNotFound)
}

func TestLeaveRoom(t *testing.T) {
	ctx := context.Background()
	events := &recorder{}
	engine := newTestEngine(t, NewMemoryStore(), WithNotifier(events))
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	_, err = engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	require.NoError(t, err)

	require.NoError(t, engine.LeaveRoom(ctx, room.ID, "u-beto"))
	require.NoError(t, engine.LeaveRoom(ctx, room.ID, "u-beto"))
	require.NoError(t, engine.LeaveRoom(ctx, room.ID, "u-ana"))

	state, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Empty(t, state.Players)
	assert.Equal(t, "u-ana", state.Room.HostID)
	assert.Equal(t, []EventType{EventRoomCreated, EventPlayerJoined, EventPlayerLeft, EventPlayerLeft}, events.types())
}

func TestLeaveRoomStoreFailure(t *testing.T) {
	engine := newTestEngine(t, newFaultyStore("DeletePlayer"))
	assert.ErrorIs(t, engine.LeaveRoom(context.Background(), "room", "u"), ErrRoomLeaveFailed)
}

func TestGetRoomStateOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, WithClock(fixedClock()))
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)

	base := fixedClock()()
	joins := []struct {
		user string
		at   time.Time
	}{
		{"u-beto", base.Add(time.Second)},
		{"u-caio", base.Add(time.Second)},
		{"u-duda", base.Add(-time.Second)},
	}
	for _, join := range joins {
		require.NoError(t, store.InsertPlayer(ctx, &Player{
			ID:       join.user,
			RoomID:   room.ID,
			UserID:   join.user,
			Name:     join.user,
			JoinedAt: join.at,
		}))
	}

	first, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-duda", "u-ana", "u-beto", "u-caio"}, memberIDs(first.Players))

	for i := 0; i < 5; i++ {
		again, err := engine.GetRoomState(ctx, room.Code)
		require.NoError(t, err)
		assert.Equal(t, memberIDs(first.Players), memberIDs(again.Players))
	}
}

func TestGetRoomStateFailures(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	engine := newTestEngine(t, store)

	_, err := engine.GetRoomState(ctx, "NONE")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	store.fail["ListPlayers"] = true
	_, err = engine.GetRoomState(ctx, room.Code)
	assert.ErrorIs(t, err, ErrRoomLoadFailed)
}

func TestScenarioAnaAndBeto(t *testing.T) {
	ctx := context.Background()
	counts := map[string]int{}
	const trials = 400
	for i := 0; i < trials; i++ {
		events := &recorder{}
		engine := newTestEngine(t, NewMemoryStore(), WithNotifier(events), WithClock(fixedClock()))
		room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
		require.NoError(t, err)
		require.Equal(t, StatusLobby, room.Status)

		_, err = engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
		require.NoError(t, err)
		require.NoError(t, engine.StartGame(ctx, room.ID))

		state, err := engine.GetRoomState(ctx, room.Code)
		require.NoError(t, err)
		require.Len(t, state.Players, 2)
		require.Equal(t, StatusPlaying, state.Room.Status)
		require.True(t, engine.Catalog().Contains(*state.Room.Category, *state.Room.SecretWord))
		counts[*state.Room.ImpostorID]++

		require.NoError(t, engine.ResetGame(ctx, room.ID))
		state, err = engine.GetRoomState(ctx, room.Code)
		require.NoError(t, err)
		require.Equal(t, StatusLobby, state.Room.Status)
		require.Len(t, state.Players, 2)
		require.Nil(t, state.Room.ImpostorID)
		require.Equal(t, []EventType{EventRoomCreated, EventPlayerJoined, EventGameStarted, EventGameReset}, events.types())
	}
	assert.Len(t, counts, 2)
	assert.InDelta(t, trials/2, counts["u-ana"], trials*0.15)
}

func TestStartGameUsesPicker(t *testing.T) {
	ctx := context.Background()
	catalog := words.Catalog{"Animals": {"Dog", "Cat"}}
	picks := []int{0, 1, 1}
	next := 0
	pick := func(n int) int {
		v := picks[next]
		next++
		return v
	}
	engine := NewEngine(NewMemoryStore(), catalog, WithPicker(pick), WithLogger(logrus.New()))
	room, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	_, err = engine.JoinRoom(ctx, room.Code, "u-beto", "Beto")
	require.NoError(t, err)

	require.NoError(t, engine.StartGame(ctx, room.ID))
	state, err := engine.GetRoomState(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, "Animals", *state.Room.Category)
	assert.Equal(t, "Cat", *state.Room.SecretWord)
	assert.Equal(t, "u-beto", *state.Room.ImpostorID)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	failing := NotifierFunc(func(ctx context.Context, event Event) error {
		return errors.New("push down")
	})
	events := &recorder{}
	engine := newTestEngine(t, NewMemoryStore(), WithNotifier(Notifiers{failing, nil, events}))

	_, err := engine.CreateRoom(ctx, "u-ana", "Ana")
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventRoomCreated}, events.types())
}

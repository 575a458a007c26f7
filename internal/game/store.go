package game

import (
	"context"
	"sort"
	"sync"
)

// Store is the keyed record storage the engine runs on. Lookups return a nil
// record and a nil error when nothing matches.
type Store interface {
	InsertRoom(ctx context.Context, room *Room) error
	FindRoomByCode(ctx context.Context, code string) (*Room, error)
	FindRoomByID(ctx context.Context, id string) (*Room, error)
	// UpdateRoom reports whether a room matched the id (and ExpectStatus).
	UpdateRoom(ctx context.Context, id string, patch RoomPatch) (bool, error)
	InsertPlayer(ctx context.Context, player *Player) error
	FindPlayer(ctx context.Context, roomID, userID string) (*Player, error)
	ListPlayers(ctx context.Context, roomID string) ([]Player, error)
	// DeletePlayer reports whether a membership was removed.
	DeletePlayer(ctx context.Context, roomID, userID string) (bool, error)
}

// MemoryStore keeps rooms and memberships in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	nextSeq int64
	rooms   map[string]*Room
	codes   map[string]string
	players map[string][]Player
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextSeq: 1,
		rooms:   make(map[string]*Room),
		codes:   make(map[string]string),
		players: make(map[string][]Player),
	}
}

func (s *MemoryStore) InsertRoom(ctx context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[room.Code]; ok {
		return ErrCodeTaken
	}
	stored := cloneRoom(*room)
	s.rooms[room.ID] = &stored
	s.codes[room.Code] = room.ID
	return nil
}

func (s *MemoryStore) FindRoomByCode(ctx context.Context, code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, nil
	}
	room := cloneRoom(*s.rooms[id])
	return &room, nil
}

func (s *MemoryStore) FindRoomByID(ctx context.Context, id string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	room := cloneRoom(*stored)
	return &room, nil
}

func (s *MemoryStore) UpdateRoom(ctx context.Context, id string, patch RoomPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return false, nil
	}
	if patch.ExpectStatus != "" && room.Status != patch.ExpectStatus {
		return false, nil
	}
	room.Status = patch.Status
	room.Category = copyString(patch.Category)
	room.SecretWord = copyString(patch.SecretWord)
	room.ImpostorID = copyString(patch.ImpostorID)
	room.UpdatedAt = timeNowUTC()
	return true, nil
}

func (s *MemoryStore) InsertPlayer(ctx context.Context, player *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.players[player.RoomID] {
		if existing.UserID == player.UserID {
			return ErrAlreadyMember
		}
	}
	player.Seq = s.nextSeq
	s.nextSeq++
	s.players[player.RoomID] = append(s.players[player.RoomID], *player)
	return nil
}

func (s *MemoryStore) FindPlayer(ctx context.Context, roomID, userID string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.players[roomID] {
		if existing.UserID == userID {
			player := existing
			return &player, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListPlayers(ctx context.Context, roomID string) ([]Player, error) {
	s.mu.Lock()
	list := append([]Player(nil), s.players[roomID]...)
	s.mu.Unlock()
	sortPlayers(list)
	return list, nil
}

func (s *MemoryStore) DeletePlayer(ctx context.Context, roomID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.players[roomID]
	for i := range list {
		if list[i].UserID == userID {
			s.players[roomID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func sortPlayers(list []Player) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].JoinedAt.Before(list[j].JoinedAt)
		}
		return list[i].Seq < list[j].Seq
	})
}

func cloneRoom(room Room) Room {
	room.Category = copyString(room.Category)
	room.SecretWord = copyString(room.SecretWord)
	room.ImpostorID = copyString(room.ImpostorID)
	return room
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"impostor/internal/game"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomStore is the Postgres-backed game.Store.
type RoomStore struct {
	db *gorm.DB
}

func NewRoomStore(conn *gorm.DB) *RoomStore {
	return &RoomStore{db: conn}
}

var _ game.Store = (*RoomStore)(nil)

func (s *RoomStore) InsertRoom(ctx context.Context, room *game.Room) error {
	record := toRoomRecord(room)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return game.ErrCodeTaken
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *RoomStore) FindRoomByCode(ctx context.Context, code string) (*game.Room, error) {
	var record Room
	err := s.db.WithContext(ctx).Where("code = ?", code).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find room by code: %w", err)
	}
	room := fromRoomRecord(record)
	return &room, nil
}

func (s *RoomStore) FindRoomByID(ctx context.Context, id string) (*game.Room, error) {
	if !isUUID(id) {
		return nil, nil
	}
	var record Room
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	room := fromRoomRecord(record)
	return &room, nil
}

func (s *RoomStore) UpdateRoom(ctx context.Context, id string, patch game.RoomPatch) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	query := s.db.WithContext(ctx).Model(&Room{}).Where("id = ?", id)
	if patch.ExpectStatus != "" {
		query = query.Where("status = ?", string(patch.ExpectStatus))
	}
	result := query.Updates(map[string]any{
		"status":      string(patch.Status),
		"category":    nullable(patch.Category),
		"secret_word": nullable(patch.SecretWord),
		"impostor_id": nullable(patch.ImpostorID),
		"updated_at":  time.Now().UTC(),
	})
	if result.Error != nil {
		return false, fmt.Errorf("update room: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *RoomStore) InsertPlayer(ctx context.Context, player *game.Player) error {
	record := RoomPlayer{
		ID:         player.ID,
		RoomID:     player.RoomID,
		UserID:     player.UserID,
		PlayerName: player.Name,
		Score:      player.Score,
		JoinedAt:   player.JoinedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return game.ErrAlreadyMember
		}
		return fmt.Errorf("insert room player: %w", err)
	}
	player.Seq = record.Seq
	return nil
}

func (s *RoomStore) FindPlayer(ctx context.Context, roomID, userID string) (*game.Player, error) {
	if !isUUID(roomID) {
		return nil, nil
	}
	var record RoomPlayer
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find room player: %w", err)
	}
	player := fromPlayerRecord(record)
	return &player, nil
}

func (s *RoomStore) ListPlayers(ctx context.Context, roomID string) ([]game.Player, error) {
	if !isUUID(roomID) {
		return []game.Player{}, nil
	}
	var records []RoomPlayer
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "joined_at"}},
			{Column: clause.Column{Name: "seq"}},
		}}).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list room players: %w", err)
	}
	players := make([]game.Player, 0, len(records))
	for _, record := range records {
		players = append(players, fromPlayerRecord(record))
	}
	return players, nil
}

func (s *RoomStore) DeletePlayer(ctx context.Context, roomID, userID string) (bool, error) {
	if !isUUID(roomID) {
		return false, nil
	}
	result := s.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&RoomPlayer{})
	if result.Error != nil {
		return false, fmt.Errorf("delete room player: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func toRoomRecord(room *game.Room) Room {
	return Room{
		ID:         room.ID,
		Code:       room.Code,
		HostID:     room.HostID,
		Status:     string(room.Status),
		Category:   room.Category,
		SecretWord: room.SecretWord,
		ImpostorID: room.ImpostorID,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func fromRoomRecord(record Room) game.Room {
	return game.Room{
		ID:         record.ID,
		Code:       record.Code,
		HostID:     record.HostID,
		Status:     game.Status(record.Status),
		Category:   record.Category,
		SecretWord: record.SecretWord,
		ImpostorID: record.ImpostorID,
		CreatedAt:  record.CreatedAt.UTC(),
		UpdatedAt:  record.UpdatedAt.UTC(),
	}
}

func fromPlayerRecord(record RoomPlayer) game.Player {
	return game.Player{
		ID:       record.ID,
		RoomID:   record.RoomID,
		UserID:   record.UserID,
		Name:     record.PlayerName,
		Score:    record.Score,
		JoinedAt: record.JoinedAt.UTC(),
		Seq:      record.Seq,
	}
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

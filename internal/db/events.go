package db

import (
	"context"
	"encoding/json"
	"fmt"

	"impostor/internal/game"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventLog appends every room change to room_events.
type EventLog struct {
	db *gorm.DB
}

func NewEventLog(conn *gorm.DB) *EventLog {
	return &EventLog{db: conn}
}

type eventPayload struct {
	Code       string `json:"code,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Category   string `json:"category,omitempty"`
}

func (l *EventLog) RoomChanged(ctx context.Context, event game.Event) error {
	if l == nil || l.db == nil || !isUUID(event.RoomID) {
		return nil
	}
	data, err := json.Marshal(eventPayload{
		Code:       event.Code,
		PlayerName: event.PlayerName,
		Category:   event.Category,
	})
	if err != nil {
		return err
	}
	record := RoomEvent{
		RoomID:    event.RoomID,
		Type:      string(event.Type),
		Payload:   datatypes.JSON(data),
		CreatedAt: event.At,
	}
	if event.UserID != "" {
		userID := event.UserID
		record.UserID = &userID
	}
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("record room event: %w", err)
	}
	return nil
}

// History returns the recorded events of a room, oldest first.
func (l *EventLog) History(ctx context.Context, roomID string) ([]RoomEvent, error) {
	if !isUUID(roomID) {
		return nil, nil
	}
	var events []RoomEvent
	err := l.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id").
		Find(&events).Error
	return events, err
}

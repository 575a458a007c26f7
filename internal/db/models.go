package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	Code       string    `gorm:"size:4;uniqueIndex;not null"`
	HostID     string    `gorm:"size:128;not null"`
	Status     string    `gorm:"size:16;not null;default:lobby"`
	Category   *string   `gorm:"size:64"`
	SecretWord *string   `gorm:"size:64"`
	ImpostorID *string   `gorm:"size:128"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Players    []RoomPlayer
	Events     []RoomEvent
}

type RoomPlayer struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	Seq        int64     `gorm:"autoIncrement;not null;uniqueIndex"`
	RoomID     string    `gorm:"type:uuid;index;not null;uniqueIndex:idx_room_players_room_user"`
	UserID     string    `gorm:"size:128;not null;uniqueIndex:idx_room_players_room_user"`
	PlayerName string    `gorm:"size:20;not null"`
	Score      int       `gorm:"not null;default:0"`
	JoinedAt   time.Time `gorm:"not null"`
}

type RoomEvent struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"type:uuid;index;not null"`
	Type      string         `gorm:"size:32;not null"`
	UserID    *string        `gorm:"size:128"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

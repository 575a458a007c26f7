package game

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	EventRoomCreated  EventType = "room_created"
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventGameStarted  EventType = "game_started"
	EventGameReset    EventType = "game_reset"
)

// Event describes a committed room mutation. It never carries the secret word.
type Event struct {
	Type       EventType `json:"type"`
	RoomID     string    `json:"room_id"`
	Code       string    `json:"code"`
	UserID     string    `json:"user_id,omitempty"`
	PlayerName string    `json:"player_name,omitempty"`
	Category   string    `json:"category,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier is told about every committed room change.
type Notifier interface {
	RoomChanged(ctx context.Context, event Event) error
}

// Notifiers fans an event out to each notifier in order.
type Notifiers []Notifier

func (n Notifiers) RoomChanged(ctx context.Context, event Event) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.RoomChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) RoomChanged(ctx context.Context, event Event) error {
	return f(ctx, event)
}

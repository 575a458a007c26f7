package game

import "time"

// RoomView is a room as one viewer is allowed to see it.
type RoomView struct {
	ID         string       `json:"id"`
	Code       string       `json:"code"`
	HostID     string       `json:"host_id"`
	Status     Status       `json:"status"`
	Category   *string      `json:"category"`
	SecretWord *string      `json:"secret_word"`
	ImpostorID *string      `json:"impostor_id,omitempty"`
	IsHost     bool         `json:"is_host"`
	IsImpostor bool         `json:"is_impostor"`
	Players    []PlayerView `json:"players,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type PlayerView struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"player_name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// ViewFor derives the viewer's role flags and withholds the secret word and
// the impostor identity from everyone the secret must not reach: the impostor
// never sees the word, and nobody but the impostor learns who the impostor is.
func ViewFor(state State, viewer string) RoomView {
	room := state.Room
	view := RoomView{
		ID:        room.ID,
		Code:      room.Code,
		HostID:    room.HostID,
		Status:    room.Status,
		Category:  copyString(room.Category),
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
	view.IsHost = viewer != "" && room.HostID == viewer
	view.IsImpostor = viewer != "" && room.ImpostorID != nil && *room.ImpostorID == viewer
	if view.IsImpostor {
		view.ImpostorID = copyString(room.ImpostorID)
	} else {
		view.SecretWord = copyString(room.SecretWord)
	}
	if state.Players != nil {
		view.Players = make([]PlayerView, 0, len(state.Players))
		for _, player := range state.Players {
			view.Players = append(view.Players, PlayerView{
				ID:       player.ID,
				UserID:   player.UserID,
				Name:     player.Name,
				Score:    player.Score,
				JoinedAt: player.JoinedAt,
			})
		}
	}
	return view
}

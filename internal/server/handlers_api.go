package server

import (
	"net/http"

	"impostor/internal/game"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	PlayerName string `json:"player_name" binding:"required,player_name"`
}

type joinRoomRequest struct {
	PlayerName string `json:"player_name" binding:"required,player_name"`
}

var playerNameKinds = bindKinds{
	"PlayerName": {
		"required":    game.KindInvalidPlayerName,
		"player_name": game.KindInvalidPlayerName,
	},
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	if !s.allow(c, "create") {
		return
	}
	var req createRoomRequest
	if !s.bindJSON(c, &req, playerNameKinds, kindInvalidRequest) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	userID := currentUser(c)
	room, err := s.engine.CreateRoom(ctx, userID, req.PlayerName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"room": game.ViewFor(game.State{Room: *room}, userID),
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	state, err := s.engine.GetRoomState(ctx, c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room":             game.ViewFor(*state, currentUser(c)),
		"poll_interval_ms": s.cfg.PollIntervalMillis,
	})
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	if !s.allow(c, "join") {
		return
	}
	var req joinRoomRequest
	if !s.bindJSON(c, &req, playerNameKinds, kindInvalidRequest) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	userID := currentUser(c)
	room, err := s.engine.JoinRoom(ctx, c.Param("key"), userID, req.PlayerName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room": game.ViewFor(game.State{Room: *room}, userID),
	})
}

// Start, reset and leave address the room by id, as returned in the room view.
func (s *Server) handleStartGame(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := s.engine.StartGame(ctx, c.Param("key")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetGame(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := s.engine.ResetGame(ctx, c.Param("key")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := s.engine.LeaveRoom(ctx, c.Param("key"), currentUser(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

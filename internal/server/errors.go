package server

import (
	"net/http"

	"impostor/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

const (
	kindInvalidRequest game.Kind = "invalid_request"
	kindRateLimited    game.Kind = "rate_limited"
)

type errorMessage struct {
	status int
	en     string
	pt     string
}

var errorMessages = map[game.Kind]errorMessage{
	game.KindRoomNotFound:       {http.StatusNotFound, "Room not found", "Sala não encontrada"},
	game.KindRoomCreationFailed: {http.StatusInternalServerError, "Could not create the room", "Erro ao criar sala"},
	game.KindRoomJoinFailed:     {http.StatusInternalServerError, "Could not join the room", "Erro ao entrar na sala"},
	game.KindRoomLoadFailed:     {http.StatusInternalServerError, "Could not load the players", "Erro ao carregar jogadores"},
	game.KindGameStartFailed:    {http.StatusInternalServerError, "Could not start the game", "Erro ao iniciar jogo"},
	game.KindGameResetFailed:    {http.StatusInternalServerError, "Could not reset the room", "Erro ao resetar sala"},
	game.KindRoomLeaveFailed:    {http.StatusInternalServerError, "Could not leave the room", "Erro ao sair da sala"},
	game.KindNoPlayersInRoom:    {http.StatusConflict, "There are no players in the room", "Nenhum jogador na sala"},
	game.KindRoomAlreadyStarted: {http.StatusConflict, "The game has already started", "O jogo já começou"},
	game.KindInvalidPlayerName:  {http.StatusBadRequest, "Name must be 1 to 20 characters", "O nome deve ter de 1 a 20 caracteres"},
	game.KindUnauthenticated:    {http.StatusUnauthorized, "You are not signed in", "Usuário não autenticado"},
	kindInvalidRequest:          {http.StatusBadRequest, "Invalid request", "Requisição inválida"},
	kindRateLimited:             {http.StatusTooManyRequests, "Too many requests, try again shortly", "Muitas tentativas, tente novamente em instantes"},
}

var messageLanguages = language.NewMatcher([]language.Tag{
	language.English,
	language.Portuguese,
})

func messageFor(kind game.Kind, acceptLanguage string) (int, string) {
	msg, ok := errorMessages[kind]
	if !ok {
		msg = errorMessage{http.StatusInternalServerError, "Something went wrong", "Algo deu errado"}
	}
	if prefersPortuguese(acceptLanguage) {
		return msg.status, msg.pt
	}
	return msg.status, msg.en
}

func prefersPortuguese(acceptLanguage string) bool {
	if acceptLanguage == "" {
		return false
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return false
	}
	_, index, confidence := messageLanguages.Match(tags...)
	return confidence != language.No && index == 1
}

func (s *Server) writeKind(c *gin.Context, kind game.Kind) {
	status, message := messageFor(kind, c.GetHeader("Accept-Language"))
	c.JSON(status, gin.H{
		"error": message,
		"kind":  kind,
	})
}

// writeError reports an engine failure to the client and logs store-level
// failures.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := game.KindOf(err)
	status, _ := messageFor(kind, "")
	if status >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"kind":    kind,
			"path":    c.FullPath(),
			"user_id": currentUser(c),
		}).WithError(err).Error("room operation failed")
	}
	s.writeKind(c, kind)
}

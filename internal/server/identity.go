package server

import (
	"errors"
	"net/http"
	"strings"

	"impostor/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDHeader  = "X-User-ID"
	userIDKey     = "user_id"
	maxUserIDSize = 128
)

var errNoIdentity = errors.New("no caller identity")

// identify resolves the caller's opaque user id or rejects the request.
func (s *Server) identify(c *gin.Context) {
	userID, err := s.resolveIdentity(c.Request)
	if err != nil {
		s.log.WithError(err).WithField("path", c.FullPath()).Debug("unauthenticated request")
		s.writeKind(c, game.KindUnauthenticated)
		c.Abort()
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

// resolveIdentity reads a signed bearer token when a JWT secret is
// configured, otherwise the trusted X-User-ID header. Browsers cannot set
// headers on websocket upgrades, so both also come from the query string.
func (s *Server) resolveIdentity(r *http.Request) (string, error) {
	if s.cfg.JWTSecret != "" {
		raw := bearerToken(r)
		if raw == "" {
			return "", errNoIdentity
		}
		return s.subjectFromToken(raw)
	}
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" || len(userID) > maxUserIDSize {
		return "", errNoIdentity
	}
	return userID, nil
}

func (s *Server) subjectFromToken(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" || len(subject) > maxUserIDSize {
		return "", errNoIdentity
	}
	return subject, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

package server

import (
	"errors"

	"impostor/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindKinds maps a struct field and failed validation tag to the error kind
// reported to the client.
type bindKinds map[string]map[string]game.Kind

func (s *Server) bindJSON(c *gin.Context, req any, kinds bindKinds, fallback game.Kind) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.writeKind(c, resolveBindError(err, kinds, fallback))
		return false
	}
	return true
}

func resolveBindError(err error, kinds bindKinds, fallback game.Kind) game.Kind {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldKinds, ok := kinds[verr.Field()]; ok {
				if kind, ok := fieldKinds[verr.Tag()]; ok {
					return kind
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return kindInvalidRequest
}

package server

import (
	"errors"
	"sync"
	"unicode"

	"impostor/internal/game"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("player_name", func(fl validator.FieldLevel) bool {
			_, err := validatePlayerName(fl.Field().String())
			return err == nil
		})
	})
}

func validatePlayerName(name string) (string, error) {
	trimmed, err := game.ValidatePlayerName(name)
	if err != nil {
		return "", err
	}
	if !isSafeName(trimmed) {
		return "", errUnsupportedCharacters
	}
	return trimmed, nil
}

var errUnsupportedCharacters = errors.New("player name contains unsupported characters")

func isSafeName(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '.', '!', '?', '&':
			continue
		default:
			return false
		}
	}
	return true
}

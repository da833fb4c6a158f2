package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/config"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Kind:    string(apperr.KindUnauthorized),
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// OptionalJWT verifies a bearer token when one is sent and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		Filter: func(c *fiber.Ctx) bool {
			return !strings.HasPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Kind:    string(apperr.KindUnauthorized),
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

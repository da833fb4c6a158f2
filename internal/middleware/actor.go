package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/access"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/config"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorLocal = "actor"

// ResolveActor turns verified JWT claims into an access.Actor stored in
// locals. It runs after JWTProtected or OptionalJWT; anonymous requests pass
// through with no actor. Configured admin lists override the role claim.
func ResolveActor(cfg *config.Config) fiber.Handler {
	adminEmails := toSet(config.ParseCSV(strings.ToLower(cfg.AdminEmails)))
	adminUserIDs := toSet(config.ParseCSV(cfg.AdminUserIDs))

	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return c.Next()
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid claims")
		}

		sub, _ := claims["sub"].(string)
		id, err := uuid.Parse(sub)
		if err != nil || id == uuid.Nil {
			return unauthorized(c, "Invalid subject claim")
		}

		roleClaim, _ := claims["role"].(string)
		role, err := access.ParseRole(roleClaim)
		if err != nil {
			return unauthorized(c, "Invalid role claim")
		}
		email, _ := claims["email"].(string)
		if adminEmails[strings.ToLower(email)] || adminUserIDs[sub] {
			role = access.RoleAdmin
		}

		c.Locals(actorLocal, access.Actor{ID: id, Role: role})
		return c.Next()
	}
}

// ActorFromContext returns the resolved actor, or false for anonymous
// requests.
func ActorFromContext(c *fiber.Ctx) (access.Actor, bool) {
	actor, ok := c.Locals(actorLocal).(access.Actor)
	return actor, ok
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Kind: string(apperr.KindUnauthorized), Message: msg,
	})
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

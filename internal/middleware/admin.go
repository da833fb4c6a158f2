package middleware

import (
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired rejects non-admin actors early. It must run after
// ResolveActor. The report service re-checks the role, so this is a routing
// convenience rather than the authorization boundary.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return unauthorized(c, "Unauthorized")
		}
		if !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Kind: string(apperr.KindForbidden), Message: "Admin access required",
			})
		}
		return c.Next()
	}
}

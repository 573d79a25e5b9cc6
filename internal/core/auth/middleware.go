package auth

import (
	"errors"
	"strings"

	"smartcity-orders/internal/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const localsKey = "identity"

// ErrorResponse mirrors the error body used by the feature handlers.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity for downstream handlers.
func Middleware(v Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rayID, _ := c.Locals("requestid").(string)

		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Message: "missing bearer token",
				RayID:   rayID,
			})
		}

		identity, err := v.Verify(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				logger.WithRayID(rayID).Error("Token verification failed", zap.Error(err))
			}
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Message: "invalid or revoked token",
				RayID:   rayID,
			})
		}

		SetIdentity(c, identity)
		return c.Next()
	}
}

// SetIdentity stores the caller's Identity on the request.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(localsKey, id)
}

// FromCtx returns the Identity stored by Middleware.
func FromCtx(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(localsKey).(Identity)
	return id, ok
}

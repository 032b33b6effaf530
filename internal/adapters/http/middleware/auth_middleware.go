package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"transport-billing/internal/core/domain"
	"transport-billing/internal/core/services"
	"transport-billing/internal/pkg/response"
)

const principalKey = "principal"

// AuthMiddleware resolves the bearer token into a principal and stores it
// in the request locals. Requests without a valid token are rejected.
func AuthMiddleware(resolver services.PrincipalResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := AccessToken(c)
		if token == "" {
			return response.Unauthorized(c, "Access token required")
		}

		p, err := resolver.ResolvePrincipal(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				return response.Unauthorized(c, "Invalid or expired access token")
			}
			return response.Error(c, fiber.StatusServiceUnavailable, "Unable to verify credentials")
		}

		c.Locals(principalKey, p)
		c.Locals("userID", p.ID)
		c.Locals("role", string(p.Role))

		return c.Next()
	}
}

// AccessToken reads the access token from the access_token cookie or the
// Authorization header.
func AccessToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// CurrentPrincipal returns the principal stored by AuthMiddleware
func CurrentPrincipal(c *fiber.Ctx) (domain.Principal, bool) {
	p, ok := c.Locals(principalKey).(domain.Principal)
	return p, ok
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := CurrentPrincipal(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if p.Role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only the admin role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// StaffOrAdmin middleware allows the billing desk roles
func StaffOrAdmin() fiber.Handler {
	return RoleMiddleware(domain.RoleStaff, domain.RoleAdmin)
}

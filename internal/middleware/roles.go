package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
)

// Role is the closed set of backend roles. Anything else on a session row
// means the backend changed underneath us and the request is refused.
type Role string

const (
	RoleDG        Role = "DG"
	RoleComptable Role = "Comptable"
	RoleMembre    Role = "Membre"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDG, RoleComptable, RoleMembre:
		return Role(s), nil
	}
	return "", fmt.Errorf("rôle inconnu: %q", s)
}

// Capability names an action the dashboard can perform. Roles map to
// capabilities here, in one place; handlers never test roles directly.
type Capability string

const (
	CapUpload       Capability = "upload"
	CapDeleteFiles  Capability = "delete_files"
	CapRunAnalysis  Capability = "run_analysis"
	CapReadAnalysis Capability = "read_analysis"
	CapManageAlerts Capability = "manage_alerts"
)

var capabilities = map[Role]map[Capability]bool{
	RoleDG: {
		CapReadAnalysis: true,
		CapManageAlerts: true,
	},
	RoleComptable: {
		CapUpload:       true,
		CapDeleteFiles:  true,
		CapRunAnalysis:  true,
		CapReadAnalysis: true,
		CapManageAlerts: true,
	},
	RoleMembre: {
		CapReadAnalysis: true,
	},
}

// Can reports whether the role grants the capability.
func (r Role) Can(cap Capability) bool {
	return capabilities[r][cap]
}

// RequireCapability guards a route. It assumes Auth already ran; a missing
// user context is treated as unauthenticated, not as a server bug.
func RequireCapability(cap Capability) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Non authentifié",
			})
		}
		if !user.Role.Can(cap) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"detail": "Accès refusé pour ce rôle",
			})
		}
		return c.Next()
	}
}

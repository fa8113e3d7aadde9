package auth

import (
	"strings"

	"github.com/upb/clinic-admin/internal/policy"
)

// roleAliases maps lower-cased labels used by the clinic login service
// to canonical roles.
var roleAliases = map[string]policy.Role{
	"administrator": policy.RoleAdministrator,
	"administrador": policy.RoleAdministrator,
	"admin":         policy.RoleAdministrator,
	"therapist":     policy.RoleTherapist,
	"terapeuta":     policy.RoleTherapist,
	"coordinator":   policy.RoleCoordinator,
	"encargado":     policy.RoleCoordinator,
}

// NormalizeRole maps a raw role claim to a canonical policy.Role.
// Unknown labels are returned trimmed but otherwise unchanged, so the
// grant table denies them.
func NormalizeRole(raw string) policy.Role {
	trimmed := strings.TrimSpace(raw)
	if role, ok := roleAliases[strings.ToLower(trimmed)]; ok {
		return role
	}
	return policy.Role(trimmed)
}

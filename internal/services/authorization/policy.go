package authorization

import (
	"strings"
	"unicode"

	"github.com/asakaida/propaccess/internal/entities"
)

// Capability predicates are pure functions of the role.
// They gate what the client renders; real enforcement happens in the services layer.

// CanEditTasks reports whether the role may edit tasks
func CanEditTasks(role entities.Role) bool {
	switch role {
	case entities.RoleAdmin,
		entities.RolePropertyManager,
		entities.RoleAssistantManager,
		entities.RoleMaintenanceLead,
		entities.RoleMaintenance:
		return true
	default:
		return false
	}
}

// CanManageProperties reports whether the role may create and edit properties
func CanManageProperties(role entities.Role) bool {
	switch role {
	case entities.RoleAdmin, entities.RolePropertyManager, entities.RoleAssistantManager:
		return true
	default:
		return false
	}
}

// CanManageTeamMembers reports whether the role may see and edit the whole team
func CanManageTeamMembers(role entities.Role) bool {
	switch role {
	case entities.RoleAdmin, entities.RolePropertyManager:
		return true
	default:
		return false
	}
}

// CanViewAllPages is the universal override: every filter returns its input unchanged
func CanViewAllPages(role entities.Role) bool {
	return role == entities.RoleAdmin
}

// CanApproveMaintenanceRequest reports whether the role may approve or reject requests
func CanApproveMaintenanceRequest(role entities.Role) bool {
	switch role {
	case entities.RoleAdmin, entities.RolePropertyManager, entities.RoleMaintenanceLead:
		return true
	default:
		return false
	}
}

// IsTenant reports whether the role is tenant
func IsTenant(role entities.Role) bool {
	return role == entities.RoleTenant
}

// isStaff covers every known role that is neither admin nor tenant
func isStaff(role entities.Role) bool {
	return role.IsKnown() && !CanViewAllPages(role) && !IsTenant(role)
}

var roleDisplayNames = map[entities.Role]string{
	entities.RoleAdmin:            "Administrator",
	entities.RolePropertyManager:  "Property Manager",
	entities.RoleAssistantManager: "Assistant Manager",
	entities.RoleMaintenanceLead:  "Maintenance Lead",
	entities.RoleMaintenance:      "Maintenance",
	entities.RoleContractor:       "Contractor",
	entities.RoleTenant:           "Tenant",
}

// UnknownRoleDisplayName is returned for roles outside the known set
const UnknownRoleDisplayName = "Unknown Role"

// RoleDisplayName returns the human label for a role
func RoleDisplayName(role entities.Role) string {
	if name, ok := roleDisplayNames[role]; ok {
		return name
	}
	return UnknownRoleDisplayName
}

// Color tokens used by the client palette
const (
	ColorError     = "error"
	ColorPrimary   = "primary"
	ColorSecondary = "secondary"
	ColorWarning   = "warning"
	ColorInfo      = "info"
	ColorSuccess   = "success"
	ColorDefault   = "default"
)

var roleColors = map[entities.Role]string{
	entities.RoleAdmin:            ColorError,
	entities.RolePropertyManager:  ColorPrimary,
	entities.RoleAssistantManager: ColorSecondary,
	entities.RoleMaintenanceLead:  ColorWarning,
	entities.RoleMaintenance:      ColorInfo,
	entities.RoleContractor:       ColorSuccess,
	entities.RoleTenant:           ColorDefault,
}

// RoleColor returns the palette token for a role
func RoleColor(role entities.Role) string {
	if c, ok := roleColors[role]; ok {
		return c
	}
	return ColorDefault
}

// TenantPropertySlug resolves a tenant's assigned property to the slug of its page.
// It returns false when nothing is assigned or the property is unknown.
func TenantPropertySlug(assignedPropertyID *string, properties []*entities.Property) (string, bool) {
	if assignedPropertyID == nil {
		return "", false
	}
	p := entities.FindProperty(properties, *assignedPropertyID)
	if p == nil {
		return "", false
	}
	if p.Slug != "" {
		return p.Slug, true
	}
	slug := Slugify(p.Name)
	if slug == "" {
		return "", false
	}
	return slug, true
}

// Slugify lowercases s and collapses every run of non-alphanumerics into a single hyphen
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

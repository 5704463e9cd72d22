package entities

// Role identifies a user's function and default capability set
type Role string

const (
	RoleAdmin            Role = "admin"
	RolePropertyManager  Role = "property_manager"
	RoleAssistantManager Role = "assistant_manager"
	RoleMaintenanceLead  Role = "maintenance_lead"
	RoleMaintenance      Role = "maintenance"
	RoleContractor       Role = "contractor"
	RoleTenant           Role = "tenant"

	// RoleUnknown is every role string outside the known set.
	// Policy maps it to no access.
	RoleUnknown Role = ""
)

// KnownRoles lists the roles policy treats specially, in display order
var KnownRoles = []Role{
	RoleAdmin,
	RolePropertyManager,
	RoleAssistantManager,
	RoleMaintenanceLead,
	RoleMaintenance,
	RoleContractor,
	RoleTenant,
}

// ParseRole converts a raw role string to a Role.
// Strings outside the known set become RoleUnknown; no case folding or trimming is applied.
func ParseRole(s string) Role {
	r := Role(s)
	if r.IsKnown() {
		return r
	}
	return RoleUnknown
}

// IsKnown reports whether the role is one of KnownRoles
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// String returns the role tag, or "unknown" for RoleUnknown
func (r Role) String() string {
	if !r.IsKnown() {
		return "unknown"
	}
	return string(r)
}

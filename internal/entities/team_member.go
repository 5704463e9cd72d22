package entities

import "strings"

// TeamMember is a staff or contractor record
type TeamMember struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string

	// Role is free text; it often but not always matches a known Role
	Role string

	// LinkedProperties are the property IDs the member is authorized against
	LinkedProperties []string
}

// PolicyRole returns the member's role as understood by policy
func (m *TeamMember) PolicyRole() Role {
	return ParseRole(m.Role)
}

// IsLinkedTo reports whether propertyID is among the member's linked properties
func (m *TeamMember) IsLinkedTo(propertyID string) bool {
	for _, p := range m.LinkedProperties {
		if p == propertyID {
			return true
		}
	}
	return false
}

// FullName returns "First Last"
func (m *TeamMember) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// FindTeamMember returns the member with the given ID, or nil
func FindTeamMember(members []*TeamMember, id string) *TeamMember {
	for _, m := range members {
		if m != nil && m.ID == id {
			return m
		}
	}
	return nil
}

// FindTeamMemberByEmail returns the member whose email matches case-insensitively, or nil.
// An empty email never matches.
func FindTeamMemberByEmail(members []*TeamMember, email string) *TeamMember {
	if email == "" {
		return nil
	}
	for _, m := range members {
		if m != nil && m.Email != "" && strings.EqualFold(m.Email, email) {
			return m
		}
	}
	return nil
}

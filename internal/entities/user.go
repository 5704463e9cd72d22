package entities

import "strings"

// CurrentUser is the authenticated actor of a session.
// It is immutable for the lifetime of a session; switching users replaces the whole value.
type CurrentUser struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`

	// AssignedPropertyID is only meaningful for tenants
	AssignedPropertyID *string `json:"assigned_property_id,omitempty"`
}

// DisplayName returns "First Last", falling back to the email
func (u *CurrentUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Clone returns a deep copy of the user
func (u *CurrentUser) Clone() *CurrentUser {
	if u == nil {
		return nil
	}
	c := *u
	if u.AssignedPropertyID != nil {
		id := *u.AssignedPropertyID
		c.AssignedPropertyID = &id
	}
	return &c
}

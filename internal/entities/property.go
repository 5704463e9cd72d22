package entities

// Property is a single managed property
type Property struct {
	ID      string
	Name    string
	Slug    string
	Address string
	GroupID string

	// Administrators and Viewers grant per-property access independent of role
	Administrators []string
	Viewers        []string
}

// GrantsAccessTo reports whether userID is one of the property's administrators or viewers
func (p *Property) GrantsAccessTo(userID string) bool {
	for _, id := range p.Administrators {
		if id == userID {
			return true
		}
	}
	for _, id := range p.Viewers {
		if id == userID {
			return true
		}
	}
	return false
}

// PropertyGroup is a named collection of properties
type PropertyGroup struct {
	ID         string
	Name       string
	Properties []*Property
}

// FindProperty returns the property with the given ID, or nil
func FindProperty(properties []*Property, id string) *Property {
	for _, p := range properties {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

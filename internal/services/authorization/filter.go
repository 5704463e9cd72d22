package authorization

import (
	"github.com/asakaida/propaccess/internal/entities"
)

// Filters narrow record collections to what a user may see.
// They never mutate their inputs, preserve input order and fail closed:
// a nil user or an unknown role yields an empty, non-nil result.

// FilterTasksByRole returns the tasks visible to user.
//
//   - admin: the input slice itself
//   - tenant: tasks on the tenant's assigned property
//   - staff: tasks assigned to the user plus tasks on the user's linked properties
func FilterTasksByRole(tasks []*entities.Task, user *entities.CurrentUser, members []*entities.TeamMember) []*entities.Task {
	if user == nil {
		return []*entities.Task{}
	}
	if CanViewAllPages(user.Role) {
		return tasks
	}

	visible := make([]*entities.Task, 0, len(tasks))
	switch {
	case IsTenant(user.Role):
		if user.AssignedPropertyID == nil {
			return visible
		}
		for _, t := range tasks {
			if t == nil {
				continue
			}
			if key, ok := t.PropertyKey(); ok && key == *user.AssignedPropertyID {
				visible = append(visible, t)
			}
		}
	case isStaff(user.Role):
		self := entities.FindTeamMember(members, user.ID)
		for _, t := range tasks {
			if t == nil {
				continue
			}
			if isAssignedTo(t, user.ID, members) || isOnLinkedProperty(t, self) {
				visible = append(visible, t)
			}
		}
	}
	return visible
}

// FilterPropertyGroupsByRole returns the property groups visible to user.
// For staff each returned group is a new value holding only the linked properties;
// groups left without properties are dropped.
func FilterPropertyGroupsByRole(groups []*entities.PropertyGroup, user *entities.CurrentUser, members []*entities.TeamMember) []*entities.PropertyGroup {
	if user == nil {
		return []*entities.PropertyGroup{}
	}
	if CanViewAllPages(user.Role) {
		return groups
	}
	// tenants are sent to their single property page, never the group list
	if !isStaff(user.Role) {
		return []*entities.PropertyGroup{}
	}

	self := entities.FindTeamMember(members, user.ID)
	visible := make([]*entities.PropertyGroup, 0, len(groups))
	for _, g := range groups {
		if g == nil {
			continue
		}
		var linked []*entities.Property
		for _, p := range g.Properties {
			if p == nil {
				continue
			}
			if (self != nil && self.IsLinkedTo(p.ID)) || p.GrantsAccessTo(user.ID) {
				linked = append(linked, p)
			}
		}
		if len(linked) == 0 {
			continue
		}
		visible = append(visible, &entities.PropertyGroup{
			ID:         g.ID,
			Name:       g.Name,
			Properties: linked,
		})
	}
	return visible
}

// FilterTeamMembersByRole returns the team-member records visible to user.
// Non-managers see only their own record.
func FilterTeamMembersByRole(members []*entities.TeamMember, user *entities.CurrentUser) []*entities.TeamMember {
	if user == nil || !user.Role.IsKnown() {
		return []*entities.TeamMember{}
	}
	if CanViewAllPages(user.Role) || CanManageTeamMembers(user.Role) {
		return members
	}
	if self := entities.FindTeamMember(members, user.ID); self != nil {
		return []*entities.TeamMember{self}
	}
	return []*entities.TeamMember{}
}

// CanEditTask reports whether user may mutate a specific task:
// the role must be able to edit tasks and the task must be visible to the user.
func CanEditTask(task *entities.Task, user *entities.CurrentUser, members []*entities.TeamMember) bool {
	if task == nil || user == nil {
		return false
	}
	if CanViewAllPages(user.Role) {
		return true
	}
	if !CanEditTasks(user.Role) {
		return false
	}
	return len(FilterTasksByRole([]*entities.Task{task}, user, members)) == 1
}

// isAssignedTo resolves the task's assignee through members, by ID then by email,
// and compares the resolved member with userID. Unresolvable assignees never match.
func isAssignedTo(t *entities.Task, userID string, members []*entities.TeamMember) bool {
	if t.AssignedTo == nil {
		return false
	}
	m := entities.FindTeamMember(members, t.AssignedTo.ID)
	if m == nil {
		m = entities.FindTeamMemberByEmail(members, t.AssignedTo.Email)
	}
	return m != nil && m.ID == userID
}

func isOnLinkedProperty(t *entities.Task, self *entities.TeamMember) bool {
	if self == nil {
		return false
	}
	key, ok := t.PropertyKey()
	return ok && self.IsLinkedTo(key)
}

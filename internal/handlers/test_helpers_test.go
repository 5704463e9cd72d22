package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/services"
)

var testUsers = map[string]*entities.CurrentUser{
	"admin-token":  {ID: "u-admin", Role: entities.RoleAdmin, FirstName: "Ada", LastName: "Admin", Email: "ada@example.com"},
	"maint-token":  {ID: "m1", Role: entities.RoleMaintenance, Email: "mo@example.com"},
	"tenant-token": {ID: "t1", Role: entities.RoleTenant, Email: "tess@example.com", AssignedPropertyID: strPtr("prop-1")},
}

func strPtr(s string) *string { return &s }

// Mock SessionService
type mockSessionService struct {
	loginFunc      func(ctx context.Context, userID string) (*services.Session, error)
	switchUserFunc func(ctx context.Context, token, userID string) (*entities.CurrentUser, error)
	loggedOut      []string
}

func (m *mockSessionService) Login(ctx context.Context, userID string) (*services.Session, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, userID)
	}
	for token, u := range testUsers {
		if u.ID == userID {
			return &services.Session{Token: token, User: u, ExpiresAt: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown user", services.ErrUnauthenticated)
}

func (m *mockSessionService) Authenticate(ctx context.Context, token string) (*entities.CurrentUser, error) {
	if u, ok := testUsers[token]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: invalid token", services.ErrUnauthenticated)
}

func (m *mockSessionService) Logout(ctx context.Context, token string) error {
	if _, ok := testUsers[token]; !ok {
		return fmt.Errorf("%w: invalid token", services.ErrUnauthenticated)
	}
	m.loggedOut = append(m.loggedOut, token)
	return nil
}

func (m *mockSessionService) SwitchUser(ctx context.Context, token, userID string) (*entities.CurrentUser, error) {
	if m.switchUserFunc != nil {
		return m.switchUserFunc(ctx, token, userID)
	}
	if _, ok := testUsers[token]; !ok {
		return nil, fmt.Errorf("%w: invalid token", services.ErrUnauthenticated)
	}
	for _, u := range testUsers {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", services.ErrNotFound, userID)
}

// Mock AccessService
type mockAccessService struct {
	capabilitiesFunc  func(ctx context.Context, user *entities.CurrentUser) (*services.Capabilities, error)
	visibleTasksFunc  func(ctx context.Context, user *entities.CurrentUser, query string) ([]*entities.Task, error)
	groupsFunc        func(ctx context.Context, user *entities.CurrentUser) ([]*entities.PropertyGroup, error)
	membersFunc       func(ctx context.Context, user *entities.CurrentUser) ([]*entities.TeamMember, error)
	updateStatusFunc  func(ctx context.Context, user *entities.CurrentUser, taskID string, status entities.TaskStatus) (*entities.Task, error)
	reviewRequestFunc func(ctx context.Context, user *entities.CurrentUser, taskID string, approve bool) (*entities.Task, error)
}

func (m *mockAccessService) Capabilities(ctx context.Context, user *entities.CurrentUser) (*services.Capabilities, error) {
	if m.capabilitiesFunc != nil {
		return m.capabilitiesFunc(ctx, user)
	}
	return &services.Capabilities{Role: user.Role}, nil
}

func (m *mockAccessService) VisibleTasks(ctx context.Context, user *entities.CurrentUser, query string) ([]*entities.Task, error) {
	if m.visibleTasksFunc != nil {
		return m.visibleTasksFunc(ctx, user, query)
	}
	return []*entities.Task{}, nil
}

func (m *mockAccessService) VisiblePropertyGroups(ctx context.Context, user *entities.CurrentUser) ([]*entities.PropertyGroup, error) {
	if m.groupsFunc != nil {
		return m.groupsFunc(ctx, user)
	}
	return []*entities.PropertyGroup{}, nil
}

func (m *mockAccessService) VisibleTeamMembers(ctx context.Context, user *entities.CurrentUser) ([]*entities.TeamMember, error) {
	if m.membersFunc != nil {
		return m.membersFunc(ctx, user)
	}
	return []*entities.TeamMember{}, nil
}

func (m *mockAccessService) UpdateTaskStatus(ctx context.Context, user *entities.CurrentUser, taskID string, status entities.TaskStatus) (*entities.Task, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, user, taskID, status)
	}
	return &entities.Task{ID: taskID, Status: status}, nil
}

func (m *mockAccessService) ReviewMaintenanceRequest(ctx context.Context, user *entities.CurrentUser, taskID string, approve bool) (*entities.Task, error) {
	if m.reviewRequestFunc != nil {
		return m.reviewRequestFunc(ctx, user, taskID, approve)
	}
	status := entities.TaskStatusRejected
	if approve {
		status = entities.TaskStatusCompleted
	}
	return &entities.Task{ID: taskID, Status: status}, nil
}

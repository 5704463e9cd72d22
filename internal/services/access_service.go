package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
	"github.com/asakaida/propaccess/internal/services/authorization"
	"go.uber.org/zap"
)

// Capabilities is everything a client needs to decide what to show a user
type Capabilities struct {
	Role                         entities.Role
	RoleDisplayName              string
	RoleColor                    string
	CanEditTasks                 bool
	CanManageProperties          bool
	CanManageTeamMembers         bool
	CanViewAllPages              bool
	CanApproveMaintenanceRequest bool
	IsTenant                     bool

	// TenantPropertySlug is where a tenant is redirected; empty when there is no redirect
	TenantPropertySlug string
}

// AccessServiceInterface defines the interface for role-scoped data access
type AccessServiceInterface interface {
	Capabilities(ctx context.Context, user *entities.CurrentUser) (*Capabilities, error)
	VisibleTasks(ctx context.Context, user *entities.CurrentUser, query string) ([]*entities.Task, error)
	VisiblePropertyGroups(ctx context.Context, user *entities.CurrentUser) ([]*entities.PropertyGroup, error)
	VisibleTeamMembers(ctx context.Context, user *entities.CurrentUser) ([]*entities.TeamMember, error)
	UpdateTaskStatus(ctx context.Context, user *entities.CurrentUser, taskID string, status entities.TaskStatus) (*entities.Task, error)
	ReviewMaintenanceRequest(ctx context.Context, user *entities.CurrentUser, taskID string, approve bool) (*entities.Task, error)
}

// AccessService loads records and scopes them to the caller with the authorization package
type AccessService struct {
	tasks      repositories.TaskRepository
	members    repositories.TeamMemberRepository
	properties repositories.PropertyRepository
	cel        *authorization.CELEngine
	logger     *zap.Logger
	now        func() time.Time
}

// NewAccessService creates a new AccessService
func NewAccessService(
	tasks repositories.TaskRepository,
	members repositories.TeamMemberRepository,
	properties repositories.PropertyRepository,
	cel *authorization.CELEngine,
	logger *zap.Logger,
) *AccessService {
	return &AccessService{
		tasks:      tasks,
		members:    members,
		properties: properties,
		cel:        cel,
		logger:     logger,
		now:        time.Now,
	}
}

// Capabilities reports the capability flags of user's role
func (s *AccessService) Capabilities(ctx context.Context, user *entities.CurrentUser) (*Capabilities, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	role := user.Role
	caps := &Capabilities{
		Role:                         role,
		RoleDisplayName:              authorization.RoleDisplayName(role),
		RoleColor:                    authorization.RoleColor(role),
		CanEditTasks:                 authorization.CanEditTasks(role),
		CanManageProperties:          authorization.CanManageProperties(role),
		CanManageTeamMembers:         authorization.CanManageTeamMembers(role),
		CanViewAllPages:              authorization.CanViewAllPages(role),
		CanApproveMaintenanceRequest: authorization.CanApproveMaintenanceRequest(role),
		IsTenant:                     authorization.IsTenant(role),
	}

	if caps.IsTenant && user.AssignedPropertyID != nil {
		properties, err := s.properties.ListProperties(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list properties: %w", err)
		}
		if slug, ok := authorization.TenantPropertySlug(user.AssignedPropertyID, properties); ok {
			caps.TenantPropertySlug = slug
		}
	}

	return caps, nil
}

// VisibleTasks returns the tasks user may see, optionally narrowed by a CEL expression over `task` and `user`
func (s *AccessService) VisibleTasks(ctx context.Context, user *entities.CurrentUser, query string) ([]*entities.Task, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	var compiled *authorization.TaskQuery
	if query != "" {
		q, err := s.cel.CompileTaskQuery(query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		compiled = q
	}

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	visible := authorization.FilterTasksByRole(tasks, user, members)
	filtered, err := compiled.Apply(visible, user, entities.FindTeamMember(members, user.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	s.logger.Debug("tasks scoped",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role.String()),
		zap.Int("total", len(tasks)),
		zap.Int("visible", len(filtered)))

	return filtered, nil
}

// VisiblePropertyGroups returns the property groups user may see
func (s *AccessService) VisiblePropertyGroups(ctx context.Context, user *entities.CurrentUser) ([]*entities.PropertyGroup, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	groups, err := s.properties.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list property groups: %w", err)
	}
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return authorization.FilterPropertyGroupsByRole(groups, user, members), nil
}

// VisibleTeamMembers returns the team-member records user may see
func (s *AccessService) VisibleTeamMembers(ctx context.Context, user *entities.CurrentUser) ([]*entities.TeamMember, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return authorization.FilterTeamMembersByRole(members, user), nil
}

// UpdateTaskStatus moves a task the user may edit to status.
// Rejected is only reachable through review, and a task awaiting approval cannot be completed directly.
func (s *AccessService) UpdateTaskStatus(ctx context.Context, user *entities.CurrentUser, taskID string, status entities.TaskStatus) (*entities.Task, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if status == entities.TaskStatusRejected {
		return nil, fmt.Errorf("%w: tasks are rejected through maintenance request review", ErrInvalidArgument)
	}

	task, members, err := s.loadTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if !authorization.CanEditTask(task, user, members) {
		return nil, fmt.Errorf("%w: %s cannot edit task %s", ErrPermissionDenied, user.Role, taskID)
	}
	if task.Status == entities.TaskStatusAwaitingApproval && status == entities.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: task %s is awaiting approval", ErrFailedPrecondition, taskID)
	}

	return s.applyStatus(ctx, user, task, status)
}

// ReviewMaintenanceRequest approves (Completed) or rejects (Rejected) a task awaiting approval
func (s *AccessService) ReviewMaintenanceRequest(ctx context.Context, user *entities.CurrentUser, taskID string, approve bool) (*entities.Task, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !authorization.CanApproveMaintenanceRequest(user.Role) {
		return nil, fmt.Errorf("%w: %s cannot review maintenance requests", ErrPermissionDenied, user.Role)
	}

	task, _, err := s.loadTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != entities.TaskStatusAwaitingApproval {
		return nil, fmt.Errorf("%w: task %s is %s, not %s", ErrFailedPrecondition, taskID, task.Status, entities.TaskStatusAwaitingApproval)
	}

	status := entities.TaskStatusRejected
	if approve {
		status = entities.TaskStatusCompleted
	}
	return s.applyStatus(ctx, user, task, status)
}

// loadTask fetches a task and reports tasks outside the user's scope as not found
func (s *AccessService) loadTask(ctx context.Context, user *entities.CurrentUser, taskID string) (*entities.Task, []*entities.TeamMember, error) {
	if taskID == "" {
		return nil, nil, fmt.Errorf("%w: task ID is required", ErrInvalidArgument)
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get task: %w", err)
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list team members: %w", err)
	}

	if len(authorization.FilterTasksByRole([]*entities.Task{task}, user, members)) == 0 {
		return nil, nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	return task, members, nil
}

func (s *AccessService) applyStatus(ctx context.Context, user *entities.CurrentUser, task *entities.Task, status entities.TaskStatus) (*entities.Task, error) {
	var completedAt *time.Time
	var completedBy *string
	if status == entities.TaskStatusCompleted {
		now := s.now().UTC()
		by := user.ID
		completedAt, completedBy = &now, &by
	}

	// The write only lands if the task still has the status the checks above were made against.
	err := s.tasks.UpdateStatus(ctx, task.ID, task.Status, status, completedAt, completedBy)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, task.ID)
	}
	if errors.Is(err, repositories.ErrConflict) {
		return nil, fmt.Errorf("%w: task %s changed concurrently", ErrFailedPrecondition, task.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	s.logger.Info("task status changed",
		zap.String("task_id", task.ID),
		zap.String("from", string(task.Status)),
		zap.String("to", string(status)),
		zap.String("user_id", user.ID))

	updated := *task
	updated.Status = status
	updated.CompletedAt = completedAt
	updated.CompletedBy = completedBy
	return &updated, nil
}

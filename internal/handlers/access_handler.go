package handlers

import (
	"context"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/services"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type loginRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

type switchUserRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

type listTasksRequest struct {
	// Filter is an optional CEL expression over `task` and `user`
	Filter string `json:"filter" validate:"omitempty,max=2048"`
}

type updateTaskStatusRequest struct {
	TaskID string `json:"task_id" validate:"required,max=128"`
	Status string `json:"status" validate:"required"`
}

type reviewRequest struct {
	TaskID  string `json:"task_id" validate:"required,max=128"`
	Approve *bool  `json:"approve" validate:"required"`
}

type emptyRequest struct{}

// AccessHandler serves the access service over gRPC
type AccessHandler struct {
	sessions services.SessionServiceInterface
	access   services.AccessServiceInterface
	validate *validator.Validate
	logger   *zap.Logger
}

var _ AccessServiceServer = (*AccessHandler)(nil)

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(sessions services.SessionServiceInterface, access services.AccessServiceInterface, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		sessions: sessions,
		access:   access,
		validate: validator.New(),
		logger:   logger,
	}
}

// === Sessions ===

// Login handles the Login RPC. It is the only RPC that needs no bearer token.
func (h *AccessHandler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in loginRequest
	if err := decodeRequest(h.validate, req, &in); err != nil {
		return nil, err
	}

	session, err := h.sessions.Login(ctx, in.UserID)
	if err != nil {
		return nil, toStatus(h.logger, MethodLogin, err)
	}

	return newStruct(map[string]interface{}{
		"token":      session.Token,
		"expires_at": formatTime(session.ExpiresAt),
		"user":       userToMap(session.User),
	})
}

// Logout handles the Logout RPC
func (h *AccessHandler) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := decodeRequest(h.validate, req, &emptyRequest{}); err != nil {
		return nil, err
	}
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.sessions.Logout(ctx, token); err != nil {
		return nil, toStatus(h.logger, MethodLogout, err)
	}
	return &structpb.Struct{}, nil
}

// SwitchUser handles the SwitchUser RPC
func (h *AccessHandler) SwitchUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in switchUserRequest
	if err := decodeRequest(h.validate, req, &in); err != nil {
		return nil, err
	}
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.sessions.SwitchUser(ctx, token, in.UserID)
	if err != nil {
		return nil, toStatus(h.logger, MethodSwitchUser, err)
	}
	return newStruct(map[string]interface{}{"user": userToMap(user)})
}

// === Scoped reads ===

// GetCapabilities handles the GetCapabilities RPC
func (h *AccessHandler) GetCapabilities(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := h.begin(ctx, MethodGetCapabilities, req, &emptyRequest{})
	if err != nil {
		return nil, err
	}

	caps, err := h.access.Capabilities(ctx, user)
	if err != nil {
		return nil, toStatus(h.logger, MethodGetCapabilities, err)
	}
	return newStruct(capabilitiesToMap(caps))
}

// ListTasks handles the ListTasks RPC
func (h *AccessHandler) ListTasks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listTasksRequest
	user, err := h.begin(ctx, MethodListTasks, req, &in)
	if err != nil {
		return nil, err
	}

	tasks, err := h.access.VisibleTasks(ctx, user, in.Filter)
	if err != nil {
		return nil, toStatus(h.logger, MethodListTasks, err)
	}
	return newStruct(map[string]interface{}{"tasks": tasksToList(tasks)})
}

// ListPropertyGroups handles the ListPropertyGroups RPC
func (h *AccessHandler) ListPropertyGroups(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := h.begin(ctx, MethodListPropertyGroups, req, &emptyRequest{})
	if err != nil {
		return nil, err
	}

	groups, err := h.access.VisiblePropertyGroups(ctx, user)
	if err != nil {
		return nil, toStatus(h.logger, MethodListPropertyGroups, err)
	}
	return newStruct(map[string]interface{}{"groups": groupsToList(groups)})
}

// ListTeamMembers handles the ListTeamMembers RPC
func (h *AccessHandler) ListTeamMembers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := h.begin(ctx, MethodListTeamMembers, req, &emptyRequest{})
	if err != nil {
		return nil, err
	}

	members, err := h.access.VisibleTeamMembers(ctx, user)
	if err != nil {
		return nil, toStatus(h.logger, MethodListTeamMembers, err)
	}
	return newStruct(map[string]interface{}{"team_members": membersToList(members)})
}

// === Mutations ===

// UpdateTaskStatus handles the UpdateTaskStatus RPC
func (h *AccessHandler) UpdateTaskStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateTaskStatusRequest
	user, err := h.begin(ctx, MethodUpdateTaskStatus, req, &in)
	if err != nil {
		return nil, err
	}

	taskStatus, err := entities.ParseTaskStatus(in.Status)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	task, err := h.access.UpdateTaskStatus(ctx, user, in.TaskID, taskStatus)
	if err != nil {
		return nil, toStatus(h.logger, MethodUpdateTaskStatus, err)
	}
	return newStruct(map[string]interface{}{"task": taskToMap(task)})
}

// ReviewMaintenanceRequest handles the ReviewMaintenanceRequest RPC
func (h *AccessHandler) ReviewMaintenanceRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in reviewRequest
	user, err := h.begin(ctx, MethodReviewMaintenanceRequest, req, &in)
	if err != nil {
		return nil, err
	}

	task, err := h.access.ReviewMaintenanceRequest(ctx, user, in.TaskID, *in.Approve)
	if err != nil {
		return nil, toStatus(h.logger, MethodReviewMaintenanceRequest, err)
	}
	return newStruct(map[string]interface{}{"task": taskToMap(task)})
}

// begin decodes the request into dst and resolves the caller from the bearer token
func (h *AccessHandler) begin(ctx context.Context, method string, req *structpb.Struct, dst interface{}) (*entities.CurrentUser, error) {
	if err := decodeRequest(h.validate, req, dst); err != nil {
		return nil, err
	}
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.sessions.Authenticate(ctx, token)
	if err != nil {
		return nil, toStatus(h.logger, method, err)
	}
	return user, nil
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/services"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// === Shared Helper Functions for all handlers ===

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "
)

// bearerToken extracts the session token from the authorization metadata
func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}

	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}

	header := values[0]
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", status.Error(codes.Unauthenticated, "authorization header must use the Bearer scheme")
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "empty bearer token")
	}
	return token, nil
}

// decodeRequest copies req into dst and validates dst's struct tags.
// Unknown fields are rejected.
func decodeRequest(v *validator.Validate, req *structpb.Struct, dst interface{}) error {
	fields := map[string]interface{}{}
	if req != nil {
		fields = req.AsMap()
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return status.Error(codes.InvalidArgument, validationMessage(verrs))
		}
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// toStatus maps service errors onto gRPC status codes.
// Errors that already carry a status pass through; unexpected errors are logged and reported without detail.
func toStatus(logger *zap.Logger, method string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		code = codes.Unauthenticated
	case errors.Is(err, services.ErrPermissionDenied):
		code = codes.PermissionDenied
	case errors.Is(err, services.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, services.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, services.ErrFailedPrecondition):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		logger.Error("request failed", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func userToMap(u *entities.CurrentUser) map[string]interface{} {
	m := map[string]interface{}{
		"id":           u.ID,
		"role":         u.Role.String(),
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"email":        u.Email,
		"display_name": u.DisplayName(),
	}
	if u.AssignedPropertyID != nil {
		m["assigned_property_id"] = *u.AssignedPropertyID
	}
	return m
}

func taskToMap(t *entities.Task) map[string]interface{} {
	m := map[string]interface{}{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"property":    t.Property,
		"status":      string(t.Status),
	}
	if t.PropertyID != nil {
		m["property_id"] = *t.PropertyID
	}
	if t.AssignedTo != nil {
		m["assigned_to"] = map[string]interface{}{
			"id":    t.AssignedTo.ID,
			"name":  t.AssignedTo.Name,
			"email": t.AssignedTo.Email,
		}
	}
	if t.DueDate != nil {
		m["due_date"] = formatTime(*t.DueDate)
	}
	if t.CompletedAt != nil {
		m["completed_at"] = formatTime(*t.CompletedAt)
	}
	if t.CompletedBy != nil {
		m["completed_by"] = *t.CompletedBy
	}
	if !t.CreatedAt.IsZero() {
		m["created_at"] = formatTime(t.CreatedAt)
	}
	if !t.UpdatedAt.IsZero() {
		m["updated_at"] = formatTime(t.UpdatedAt)
	}
	return m
}

func tasksToList(tasks []*entities.Task) []interface{} {
	out := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToMap(t))
	}
	return out
}

func stringsToList(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func propertyToMap(p *entities.Property) map[string]interface{} {
	return map[string]interface{}{
		"id":             p.ID,
		"name":           p.Name,
		"slug":           p.Slug,
		"address":        p.Address,
		"group_id":       p.GroupID,
		"administrators": stringsToList(p.Administrators),
		"viewers":        stringsToList(p.Viewers),
	}
}

func groupsToList(groups []*entities.PropertyGroup) []interface{} {
	out := make([]interface{}, 0, len(groups))
	for _, g := range groups {
		props := make([]interface{}, 0, len(g.Properties))
		for _, p := range g.Properties {
			props = append(props, propertyToMap(p))
		}
		out = append(out, map[string]interface{}{
			"id":         g.ID,
			"name":       g.Name,
			"properties": props,
		})
	}
	return out
}

func membersToList(members []*entities.TeamMember) []interface{} {
	out := make([]interface{}, 0, len(members))
	for _, m := range members {
		out = append(out, map[string]interface{}{
			"id":                m.ID,
			"first_name":        m.FirstName,
			"last_name":         m.LastName,
			"full_name":         m.FullName(),
			"email":             m.Email,
			"phone":             m.Phone,
			"role":              m.Role,
			"linked_properties": stringsToList(m.LinkedProperties),
		})
	}
	return out
}

func capabilitiesToMap(c *services.Capabilities) map[string]interface{} {
	m := map[string]interface{}{
		"role":                            c.Role.String(),
		"role_display_name":               c.RoleDisplayName,
		"role_color":                      c.RoleColor,
		"can_edit_tasks":                  c.CanEditTasks,
		"can_manage_properties":           c.CanManageProperties,
		"can_manage_team_members":         c.CanManageTeamMembers,
		"can_view_all_pages":              c.CanViewAllPages,
		"can_approve_maintenance_request": c.CanApproveMaintenanceRequest,
		"is_tenant":                       c.IsTenant,
	}
	if c.TenantPropertySlug != "" {
		m["tenant_property_slug"] = c.TenantPropertySlug
	}
	return m
}

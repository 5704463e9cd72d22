package authorization

import (
	"strings"
	"testing"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
)

func celTasks() []*entities.Task {
	due := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	return []*entities.Task{
		{ID: "1", Title: "Fix leak in 2B", Status: entities.TaskStatusPending, PropertyID: strPtr("prop-1"), DueDate: &due},
		{ID: "2", Title: "Repaint lobby", Status: entities.TaskStatusInProgress, PropertyID: strPtr("prop-2"), AssignedTo: &entities.Assignee{ID: "m1", Name: "Ana"}},
		{ID: "3", Title: "Replace boiler", Status: entities.TaskStatusAwaitingApproval, Property: "River House"},
	}
}

func TestCELEngine_TaskQuery(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("failed to create CEL engine: %v", err)
	}

	user := &entities.CurrentUser{ID: "m1", Role: entities.RoleMaintenance}
	self := &entities.TeamMember{ID: "m1", LinkedProperties: []string{"prop-2"}}

	tests := []struct {
		name       string
		expression string
		want       []string
	}{
		{
			name:       "status equality",
			expression: `task.status == "Pending"`,
			want:       []string{"1"},
		},
		{
			name:       "optional field guarded with has",
			expression: `has(task.property_id) && task.property_id == "prop-1"`,
			want:       []string{"1"},
		},
		{
			name:       "string function",
			expression: `task.title.contains("lobby") || task.title.startsWith("Replace")`,
			want:       []string{"2", "3"},
		},
		{
			name:       "membership in the caller's linked properties",
			expression: `has(task.property_id) && task.property_id in user.linked_properties`,
			want:       []string{"2"},
		},
		{
			name:       "assigned to the caller",
			expression: `has(task.assignee_id) && task.assignee_id == user.id`,
			want:       []string{"2"},
		},
		{
			name:       "due date before a timestamp",
			expression: `has(task.due_date) && task.due_date < timestamp("2026-01-01T00:00:00Z")`,
			want:       []string{"1"},
		},
		{
			name:       "always true keeps order",
			expression: `true`,
			want:       []string{"1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := engine.CompileTaskQuery(tt.expression)
			if err != nil {
				t.Fatalf("CompileTaskQuery() error = %v", err)
			}
			if q.Expression() != tt.expression {
				t.Errorf("Expression() = %q, want %q", q.Expression(), tt.expression)
			}

			got, err := q.Apply(celTasks(), user, self)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			ids := taskIDs(got)
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Apply() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestCELEngine_ValidateExpression(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("failed to create CEL engine: %v", err)
	}

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{name: "valid boolean", expression: `task.status == "Completed"`},
		{name: "dynamic field is checked at eval time", expression: `task.status`},
		{name: "syntax error", expression: `task.status ==`, wantErr: true},
		{name: "undeclared variable", expression: `resource.public == true`, wantErr: true},
		{name: "non-boolean result", expression: `1 + 2`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateExpression(tt.expression)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExpression(%q) error = %v, wantErr %v", tt.expression, err, tt.wantErr)
			}
		})
	}
}

func TestTaskQuery_EvaluationErrors(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("failed to create CEL engine: %v", err)
	}

	t.Run("missing key", func(t *testing.T) {
		q, err := engine.CompileTaskQuery(`task.assignee_id == "m1"`)
		if err != nil {
			t.Fatalf("CompileTaskQuery() error = %v", err)
		}
		if _, err := q.Apply(celTasks(), nil, nil); err == nil {
			t.Error("Apply() expected an error for a task without assignee_id")
		}
	})

	t.Run("non-boolean result", func(t *testing.T) {
		q, err := engine.CompileTaskQuery(`task.title`)
		if err != nil {
			t.Fatalf("CompileTaskQuery() error = %v", err)
		}
		_, err = q.Match(celTasks()[0], nil, nil)
		if err == nil || !strings.Contains(err.Error(), "did not evaluate to boolean") {
			t.Errorf("Match() error = %v, want non-boolean error", err)
		}
	})
}

func TestTaskQuery_NilKeepsEverything(t *testing.T) {
	var q *TaskQuery
	tasks := celTasks()
	got, err := q.Apply(tasks, nil, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(got) != len(tasks) {
		t.Errorf("Apply() kept %d tasks, want %d", len(got), len(tasks))
	}
}

func TestUserToCEL(t *testing.T) {
	if got := UserToCEL(nil, nil); len(got) != 0 {
		t.Errorf("UserToCEL(nil) = %v, want empty map", got)
	}

	u := &entities.CurrentUser{ID: "t1", Role: entities.RoleTenant, AssignedPropertyID: strPtr("prop-3")}
	got := UserToCEL(u, nil)
	if got["assigned_property_id"] != "prop-3" {
		t.Errorf("assigned_property_id = %v, want prop-3", got["assigned_property_id"])
	}
	if linked, ok := got["linked_properties"].([]interface{}); !ok || len(linked) != 0 {
		t.Errorf("linked_properties = %v, want empty list", got["linked_properties"])
	}
}

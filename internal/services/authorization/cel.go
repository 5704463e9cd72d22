package authorization

import (
	"fmt"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/google/cel-go/cel"
)

// CELEngine compiles task query expressions.
// Expressions see two variables: `task` (the record) and `user` (the caller).
// Example: `task.status == "Pending" && task.property_id in user.linked_properties`
type CELEngine struct {
	env *cel.Env
}

// NewCELEngine creates a CEL environment with the task and user declarations
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("task", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CELEngine{env: env}, nil
}

// ValidateExpression checks that expression compiles and returns a boolean
func (e *CELEngine) ValidateExpression(expression string) error {
	_, err := e.compile(expression)
	return err
}

func (e *CELEngine) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid CEL expression: %w", issues.Err())
	}

	// map fields are dynamic, so a bare `task.field` compiles to dyn and is checked at eval time
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must return boolean, got: %s", out)
	}

	return ast, nil
}

// TaskQuery is a compiled task filter
type TaskQuery struct {
	expression string
	program    cel.Program
}

// CompileTaskQuery compiles expression once so it can be matched against many tasks
func (e *CELEngine) CompileTaskQuery(expression string) (*TaskQuery, error) {
	ast, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &TaskQuery{expression: expression, program: program}, nil
}

// Expression returns the source expression
func (q *TaskQuery) Expression() string {
	return q.expression
}

// Match evaluates the query against a single task
func (q *TaskQuery) Match(task *entities.Task, user *entities.CurrentUser, self *entities.TeamMember) (bool, error) {
	result, _, err := q.program.Eval(map[string]interface{}{
		"task": TaskToCEL(task),
		"user": UserToCEL(user, self),
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not evaluate to boolean, got: %T", result.Value())
	}

	return matched, nil
}

// Apply keeps the tasks the query matches, preserving order.
// A nil query keeps everything.
func (q *TaskQuery) Apply(tasks []*entities.Task, user *entities.CurrentUser, self *entities.TeamMember) ([]*entities.Task, error) {
	if q == nil {
		return tasks, nil
	}

	out := make([]*entities.Task, 0, len(tasks))
	for _, t := range tasks {
		ok, err := q.Match(t, user, self)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// TaskToCEL flattens a task into the map exposed as `task`.
// Absent optional fields are omitted so expressions can test them with has().
func TaskToCEL(t *entities.Task) map[string]interface{} {
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
		m["assignee_id"] = t.AssignedTo.ID
		m["assignee_name"] = t.AssignedTo.Name
		m["assignee_email"] = t.AssignedTo.Email
	}
	if t.DueDate != nil {
		m["due_date"] = *t.DueDate
	}
	if t.CompletedBy != nil {
		m["completed_by"] = *t.CompletedBy
	}
	return m
}

// UserToCEL flattens the caller into the map exposed as `user`
func UserToCEL(u *entities.CurrentUser, self *entities.TeamMember) map[string]interface{} {
	if u == nil {
		return map[string]interface{}{}
	}
	linked := []interface{}{}
	if self != nil {
		for _, p := range self.LinkedProperties {
			linked = append(linked, p)
		}
	}
	m := map[string]interface{}{
		"id":                u.ID,
		"role":              string(u.Role),
		"email":             u.Email,
		"linked_properties": linked,
	}
	if u.AssignedPropertyID != nil {
		m["assigned_property_id"] = *u.AssignedPropertyID
	}
	return m
}

package entities

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending          TaskStatus = "Pending"
	TaskStatusInProgress       TaskStatus = "In Progress"
	TaskStatusAwaitingApproval TaskStatus = "Awaiting Approval"
	TaskStatusCompleted        TaskStatus = "Completed"
	TaskStatusRejected         TaskStatus = "Rejected"
)

// ParseTaskStatus validates a raw status string
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusAwaitingApproval,
		TaskStatusCompleted, TaskStatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown task status: %q", s)
	}
}

// IsFinal reports whether no further transitions are expected
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusCompleted || s == TaskStatusRejected
}

// Assignee identifies who a task is assigned to.
// Older records carry only the team-member ID; newer ones embed name and email.
type Assignee struct {
	ID    string
	Name  string
	Email string
}

// Task is a unit of work on a property
type Task struct {
	ID          string
	Title       string
	Description string
	AssignedTo  *Assignee

	// Property is the display name; PropertyID is the stable reference when present
	Property   string
	PropertyID *string

	Status      TaskStatus
	DueDate     *time.Time
	CompletedAt *time.Time
	CompletedBy *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PropertyKey returns the identifier used to match the task against a property.
// PropertyID wins when present; otherwise the display name is used if non-empty.
func (t *Task) PropertyKey() (string, bool) {
	if t.PropertyID != nil {
		return *t.PropertyID, true
	}
	if t.Property != "" {
		return t.Property, true
	}
	return "", false
}

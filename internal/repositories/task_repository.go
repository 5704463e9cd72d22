package repositories

import (
	"context"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// List retrieves all tasks ordered by due date, then creation time
	List(ctx context.Context) ([]*entities.Task, error)

	// GetByID retrieves a single task
	GetByID(ctx context.Context, id string) (*entities.Task, error)

	// UpdateStatus moves a task from status `from` to status `to` and sets its completion metadata.
	// completedAt and completedBy are cleared when nil.
	// It returns ErrConflict when the task exists but is no longer in `from`.
	UpdateStatus(ctx context.Context, id string, from, to entities.TaskStatus, completedAt *time.Time, completedBy *string) error
}

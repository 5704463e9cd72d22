package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
)

// PostgresTaskRepository implements TaskRepository using PostgreSQL
type PostgresTaskRepository struct {
	db *sql.DB
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository
func NewPostgresTaskRepository(db *sql.DB) repositories.TaskRepository {
	return &PostgresTaskRepository{db: db}
}

const taskColumns = `id, title, description, property, property_id,
		assignee_id, assignee_name, assignee_email, status,
		due_date, completed_at, completed_by, created_at, updated_at`

// List retrieves all tasks
func (r *PostgresTaskRepository) List(ctx context.Context) ([]*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		ORDER BY due_date NULLS LAST, created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*entities.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// GetByID retrieves a task by ID
func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateStatus sets status and completion metadata if the task is still in status from
func (r *PostgresTaskRepository) UpdateStatus(ctx context.Context, id string, from, to entities.TaskStatus, completedAt *time.Time, completedBy *string) error {
	query := `
		UPDATE tasks
		SET status = $2, completed_at = $3, completed_by = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		id, string(to), toNullTime(completedAt), toNullString(completedBy), time.Now(), string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return fmt.Errorf("task %s: %w", id, repositories.ErrNotFound)
	}
	return fmt.Errorf("task %s is no longer %s: %w", id, from, repositories.ErrConflict)
}

func scanTask(row rowScanner) (*entities.Task, error) {
	var (
		t             entities.Task
		status        string
		propertyID    sql.NullString
		assigneeID    sql.NullString
		assigneeName  sql.NullString
		assigneeEmail sql.NullString
		dueDate       sql.NullTime
		completedAt   sql.NullTime
		completedBy   sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Property, &propertyID,
		&assigneeID, &assigneeName, &assigneeEmail, &status,
		&dueDate, &completedAt, &completedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.Status, err = entities.ParseTaskStatus(status)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}

	t.PropertyID = nullStringPtr(propertyID)
	t.DueDate = nullTimePtr(dueDate)
	t.CompletedAt = nullTimePtr(completedAt)
	t.CompletedBy = nullStringPtr(completedBy)

	// legacy rows embed only name and email
	if assigneeID.Valid || assigneeEmail.Valid {
		t.AssignedTo = &entities.Assignee{
			ID:    assigneeID.String,
			Name:  assigneeName.String,
			Email: assigneeEmail.String,
		}
	}

	return &t, nil
}

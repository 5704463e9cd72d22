package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
)

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *sql.DB) repositories.UserRepository {
	return &PostgresUserRepository{db: db}
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*entities.CurrentUser, error) {
	query := `
		SELECT id, role, first_name, last_name, email, assigned_property_id
		FROM users
		WHERE id = $1
	`
	var (
		user     entities.CurrentUser
		role     string
		assigned sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &role, &user.FirstName, &user.LastName, &user.Email, &assigned,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role = entities.ParseRole(role)
	user.AssignedPropertyID = nullStringPtr(assigned)

	return &user, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
	"github.com/lib/pq"
)

// PostgresTeamMemberRepository implements TeamMemberRepository using PostgreSQL
type PostgresTeamMemberRepository struct {
	db *sql.DB
}

// NewPostgresTeamMemberRepository creates a new PostgreSQL team-member repository
func NewPostgresTeamMemberRepository(db *sql.DB) repositories.TeamMemberRepository {
	return &PostgresTeamMemberRepository{db: db}
}

const teamMemberColumns = `id, first_name, last_name, email, phone, role, linked_properties`

// List retrieves all team members
func (r *PostgresTeamMemberRepository) List(ctx context.Context) ([]*entities.TeamMember, error) {
	query := `
		SELECT ` + teamMemberColumns + `
		FROM team_members
		ORDER BY last_name, first_name, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := []*entities.TeamMember{}
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team members: %w", err)
	}

	return members, nil
}

// GetByID retrieves a team member by ID
func (r *PostgresTeamMemberRepository) GetByID(ctx context.Context, id string) (*entities.TeamMember, error) {
	query := `
		SELECT ` + teamMemberColumns + `
		FROM team_members
		WHERE id = $1
	`
	m, err := scanTeamMember(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team member %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Upsert creates or replaces a team member
func (r *PostgresTeamMemberRepository) Upsert(ctx context.Context, member *entities.TeamMember) error {
	if member == nil || member.ID == "" {
		return fmt.Errorf("team member ID is required")
	}

	linked := member.LinkedProperties
	if linked == nil {
		linked = []string{}
	}

	query := `
		INSERT INTO team_members (id, first_name, last_name, email, phone, role, linked_properties, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			role = EXCLUDED.role,
			linked_properties = EXCLUDED.linked_properties,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		member.ID, member.FirstName, member.LastName, member.Email, member.Phone, member.Role,
		pq.Array(linked), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team member: %w", err)
	}

	return nil
}

func scanTeamMember(row rowScanner) (*entities.TeamMember, error) {
	var (
		m      entities.TeamMember
		linked pq.StringArray
	)
	if err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.Role, &linked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan team member: %w", err)
	}
	m.LinkedProperties = []string(linked)
	return &m, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
	"github.com/lib/pq"
)

// PostgresPropertyRepository implements PropertyRepository using PostgreSQL
type PostgresPropertyRepository struct {
	db *sql.DB
}

// NewPostgresPropertyRepository creates a new PostgreSQL property repository
func NewPostgresPropertyRepository(db *sql.DB) repositories.PropertyRepository {
	return &PostgresPropertyRepository{db: db}
}

// ListGroups retrieves every group with its properties.
// Groups without properties are returned with an empty property list.
func (r *PostgresPropertyRepository) ListGroups(ctx context.Context) ([]*entities.PropertyGroup, error) {
	query := `
		SELECT g.id, g.name,
			p.id, p.name, p.slug, p.address, p.administrators, p.viewers
		FROM property_groups g
		LEFT JOIN properties p ON p.group_id = g.id
		ORDER BY g.name, g.id, p.name, p.id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list property groups: %w", err)
	}
	defer rows.Close()

	groups := []*entities.PropertyGroup{}
	var current *entities.PropertyGroup
	for rows.Next() {
		var (
			groupID, groupName    string
			propID, propName      sql.NullString
			propSlug, propAddress sql.NullString
			admins, viewers       pq.StringArray
		)
		if err := rows.Scan(&groupID, &groupName, &propID, &propName, &propSlug, &propAddress, &admins, &viewers); err != nil {
			return nil, fmt.Errorf("failed to scan property group: %w", err)
		}

		if current == nil || current.ID != groupID {
			current = &entities.PropertyGroup{ID: groupID, Name: groupName, Properties: []*entities.Property{}}
			groups = append(groups, current)
		}

		if !propID.Valid {
			continue
		}
		current.Properties = append(current.Properties, &entities.Property{
			ID:             propID.String,
			Name:           propName.String,
			Slug:           propSlug.String,
			Address:        propAddress.String,
			GroupID:        groupID,
			Administrators: []string(admins),
			Viewers:        []string(viewers),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property groups: %w", err)
	}

	return groups, nil
}

// ListProperties retrieves all properties
func (r *PostgresPropertyRepository) ListProperties(ctx context.Context) ([]*entities.Property, error) {
	query := `
		SELECT id, group_id, name, slug, address, administrators, viewers
		FROM properties
		ORDER BY name, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := []*entities.Property{}
	for rows.Next() {
		var (
			p               entities.Property
			admins, viewers pq.StringArray
		)
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Name, &p.Slug, &p.Address, &admins, &viewers); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		p.Administrators = []string(admins)
		p.Viewers = []string(viewers)
		properties = append(properties, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return properties, nil
}

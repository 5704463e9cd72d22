package repositories

import (
	"context"

	"github.com/asakaida/propaccess/internal/entities"
)

// PropertyRepository defines the interface for property data access
type PropertyRepository interface {
	// ListGroups retrieves all groups with their properties, ordered by group name then property name
	ListGroups(ctx context.Context) ([]*entities.PropertyGroup, error)

	// ListProperties retrieves all properties ordered by name
	ListProperties(ctx context.Context) ([]*entities.Property, error)
}

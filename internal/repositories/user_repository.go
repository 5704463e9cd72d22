package repositories

import (
	"context"

	"github.com/asakaida/propaccess/internal/entities"
)

// UserRepository defines the interface for user account access
type UserRepository interface {
	// GetByID retrieves the user a session is built from
	GetByID(ctx context.Context, id string) (*entities.CurrentUser, error)
}

package repositories

import (
	"context"

	"github.com/asakaida/propaccess/internal/entities"
)

// TeamMemberRepository defines the interface for team-member data access
type TeamMemberRepository interface {
	// List retrieves all team members ordered by last name, first name
	List(ctx context.Context) ([]*entities.TeamMember, error)

	// GetByID retrieves a single team member
	GetByID(ctx context.Context, id string) (*entities.TeamMember, error)

	// Upsert creates or replaces a team member including its linked properties
	Upsert(ctx context.Context, member *entities.TeamMember) error
}

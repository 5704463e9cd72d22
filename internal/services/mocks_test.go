package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
)

var errBackend = errors.New("backend unavailable")

// Mock UserRepository
type mockUserRepository struct {
	users map[string]*entities.CurrentUser
	err   error
}

func newMockUserRepository(users ...*entities.CurrentUser) *mockUserRepository {
	m := &mockUserRepository{users: make(map[string]*entities.CurrentUser)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*entities.CurrentUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u.Clone(), nil
}

// Mock TeamMemberRepository
type mockTeamMemberRepository struct {
	members []*entities.TeamMember
	err     error
}

func (m *mockTeamMemberRepository) List(ctx context.Context) ([]*entities.TeamMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.members, nil
}

func (m *mockTeamMemberRepository) GetByID(ctx context.Context, id string) (*entities.TeamMember, error) {
	if member := entities.FindTeamMember(m.members, id); member != nil {
		return member, nil
	}
	return nil, repositories.ErrNotFound
}

func (m *mockTeamMemberRepository) Upsert(ctx context.Context, member *entities.TeamMember) error {
	for i, existing := range m.members {
		if existing.ID == member.ID {
			m.members[i] = member
			return nil
		}
	}
	m.members = append(m.members, member)
	return nil
}

// Mock TaskRepository
type mockTaskRepository struct {
	mu      sync.Mutex
	tasks   []*entities.Task
	err     error
	updates []statusUpdate
	// reads, when set, is marked done on every GetByID and waited on before returning
	reads *sync.WaitGroup
}

type statusUpdate struct {
	id          string
	status      entities.TaskStatus
	completedAt *time.Time
	completedBy *string
}

func (m *mockTaskRepository) List(ctx context.Context) ([]*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.tasks, nil
}

func (m *mockTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	task, err := m.getByID(id)
	if m.reads != nil {
		m.reads.Done()
		m.reads.Wait()
	}
	return task, err
}

func (m *mockTaskRepository) getByID(id string) (*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.tasks {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockTaskRepository) UpdateStatus(ctx context.Context, id string, from, to entities.TaskStatus, completedAt *time.Time, completedBy *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			if t.Status != from {
				return repositories.ErrConflict
			}
			t.Status = to
			t.CompletedAt = completedAt
			t.CompletedBy = completedBy
			m.updates = append(m.updates, statusUpdate{id, to, completedAt, completedBy})
			return nil
		}
	}
	return repositories.ErrNotFound
}

// Mock PropertyRepository
type mockPropertyRepository struct {
	groups []*entities.PropertyGroup
	err    error
	calls  int
}

func (m *mockPropertyRepository) ListGroups(ctx context.Context) ([]*entities.PropertyGroup, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.groups, nil
}

func (m *mockPropertyRepository) ListProperties(ctx context.Context) ([]*entities.Property, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []*entities.Property
	for _, g := range m.groups {
		out = append(out, g.Properties...)
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/shared"
)

type memoryUserRepo struct {
	seq   int64
	users map[int64]User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (m *memoryUserRepo) ListUsers(context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryUserRepo) GetUser(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) FindBySubject(_ context.Context, subject string) (User, error) {
	for _, u := range m.users {
		if u.Subject == subject && u.IsActive {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *memoryUserRepo) CreateUser(_ context.Context, u User) (User, error) {
	m.seq++
	u.ID = m.seq
	u.IsActive = true
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUserRepo) UpdateUser(_ context.Context, u User) (User, error) {
	existing, ok := m.users[u.ID]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	existing.Email = u.Email
	existing.Name = u.Name
	existing.IsActive = u.IsActive
	m.users[u.ID] = existing
	return existing, nil
}

type memoryAssigner struct {
	links map[[2]int64]bool
}

func (m *memoryAssigner) AssignRole(_ context.Context, userID, roleID int64) error {
	if m.links == nil {
		m.links = make(map[[2]int64]bool)
	}
	m.links[[2]int64{userID, roleID}] = true
	return nil
}

func (m *memoryAssigner) RevokeRole(_ context.Context, userID, roleID int64) error {
	delete(m.links, [2]int64{userID, roleID})
	return nil
}

func TestCreateUserValidatesSubject(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), &memoryAssigner{})

	_, err := svc.CreateUser(context.Background(), User{Name: "Sami"})
	require.ErrorIs(t, err, shared.ErrValidation)

	u, err := svc.CreateUser(context.Background(), User{Subject: "idp|42", Name: "Sami", Email: "SAMI@Example.com"})
	require.NoError(t, err)
	require.Equal(t, "sami@example.com", u.Email)
	require.True(t, u.IsActive)
}

func TestResolveSubjectSkipsInactiveUsers(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, &memoryAssigner{})

	created, err := svc.CreateUser(context.Background(), User{Subject: "idp|9", Name: "Lina"})
	require.NoError(t, err)

	actor, err := svc.ResolveSubject(context.Background(), "idp|9")
	require.NoError(t, err)
	require.Equal(t, created.ID, actor.UserID)
	require.Equal(t, "Lina", actor.Name)

	created.IsActive = false
	_, err = svc.UpdateUser(context.Background(), created)
	require.NoError(t, err)

	_, err = svc.ResolveSubject(context.Background(), "idp|9")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRoleRequiresExistingUser(t *testing.T) {
	repo := newMemoryUserRepo()
	assigner := &memoryAssigner{}
	svc := NewService(repo, assigner)

	err := svc.AssignRole(context.Background(), 99, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)

	u, err := svc.CreateUser(context.Background(), User{Subject: "idp|1", Name: "Omar"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), u.ID, 1))
	require.True(t, assigner.links[[2]int64{u.ID, 1}])
}

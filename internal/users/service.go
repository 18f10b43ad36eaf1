package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/glintcare/glintcare/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	FindBySubject(ctx context.Context, subject string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
}

// RoleAssigner manages user-role links.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
}

// Service handles user business logic and doubles as the identity resolver.
type Service struct {
	repo  RepositoryPort
	roles RoleAssigner
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleAssigner) *Service {
	return &Service{repo: repo, roles: roles}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a user for an external subject.
func (s *Service) CreateUser(ctx context.Context, u User) (User, error) {
	u.Subject = strings.TrimSpace(u.Subject)
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Subject == "" {
		return User{}, fmt.Errorf("%w: subject required", shared.ErrValidation)
	}
	if u.Name == "" {
		return User{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	return s.repo.CreateUser(ctx, u)
}

// UpdateUser updates a user's profile and active flag.
func (s *Service) UpdateUser(ctx context.Context, u User) (User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Name == "" {
		return User{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	return s.repo.UpdateUser(ctx, u)
}

// AssignRole grants a role to a user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.roles.AssignRole(ctx, userID, roleID)
}

// RevokeRole removes a role from a user.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	return s.roles.RevokeRole(ctx, userID, roleID)
}

// ResolveSubject maps an asserted external subject to an actor. Inactive or
// unknown subjects resolve to an error and the request stays anonymous.
func (s *Service) ResolveSubject(ctx context.Context, subject string) (*shared.Actor, error) {
	u, err := s.repo.FindBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	return &shared.Actor{UserID: u.ID, Subject: u.Subject, Name: u.Name}, nil
}

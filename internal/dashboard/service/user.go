package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
	"github.com/wattlehq/partnerdesk/pkg/idx"
)

var (
	ErrUserExists  = errors.New("username or email already in use")
	ErrInvalidRole = errors.New("invalid role")
)

// UserService covers admin user management. There is no self-registration:
// accounts are provisioned by an administrator and handed a generated
// password to change on first login.
type UserService struct {
	Store store.Store
}

// ProvisionedUser pairs a created account with its one-time initial
// password. The password is never stored in clear and never shown again.
type ProvisionedUser struct {
	User            domain.PublicUser `json:"user"`
	InitialPassword string            `json:"initialPassword"`
}

func (s *UserService) Provision(ctx context.Context, username, email, fullName string, role domain.Role) (ProvisionedUser, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" {
		return ProvisionedUser{}, errors.New("username and email are required")
	}
	if !domain.ValidRole(role) {
		return ProvisionedUser{}, ErrInvalidRole
	}

	password, err := cryptox.GeneratePassword()
	if err != nil {
		return ProvisionedUser{}, fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return ProvisionedUser{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		Active:       true,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ProvisionedUser{}, ErrUserExists
		}
		return ProvisionedUser{}, fmt.Errorf("failed to create user: %w", err)
	}

	return ProvisionedUser{User: user.Public(), InitialPassword: password}, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (domain.PublicUser, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *UserService) SetRole(ctx context.Context, userID string, role domain.Role) error {
	if !domain.ValidRole(role) {
		return ErrInvalidRole
	}
	return s.Store.Users().UpdateRole(ctx, userID, role)
}

func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	return s.Store.Users().SetActive(ctx, userID, active)
}

// ChangePassword lets an authenticated user rotate their own password after
// proving they know the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}

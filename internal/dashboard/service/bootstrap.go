package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
	"github.com/wattlehq/partnerdesk/pkg/idx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

// BootstrapAdmin creates the initial admin account on an empty install and
// logs the generated password once. It is a no-op when any user exists.
func BootstrapAdmin(ctx context.Context, st store.Store, username, email string) error {
	l := slogx.FromContext(ctx)

	empty, err := st.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	password, err := cryptox.GeneratePassword()
	if err != nil {
		return fmt.Errorf("failed to generate admin password: %w", err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	if err := st.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	// Logged once on first boot; the operator is expected to log in and
	// change it immediately.
	l.Warn("created initial admin account",
		slog.String("username", username),
		slog.String("password", password),
	)
	return nil
}

package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
)

func TestProvisionUser(t *testing.T) {
	ctx := context.Background()
	svc := &UserService{Store: newTestStore(t)}

	created, err := svc.Provision(ctx, "carol", "Carol@Example.com", "Carol", domain.RoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, created.InitialPassword)
	require.Equal(t, "carol@example.com", created.User.Email)

	// The generated password actually works against the stored hash.
	stored, err := svc.Store.Users().GetUserByID(ctx, created.User.ID)
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword(created.InitialPassword, stored.PasswordHash))

	t.Run("duplicate", func(t *testing.T) {
		_, err := svc.Provision(ctx, "carol", "other@example.com", "", domain.RoleUser)
		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("bad role", func(t *testing.T) {
		_, err := svc.Provision(ctx, "dave", "dave@example.com", "", domain.Role("superuser"))
		require.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := &UserService{Store: newTestStore(t)}
	u := seedUser(t, svc.Store, "original pass", nil)

	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "replacement"), ErrInvalidCredentials)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "original pass", "tiny"), ErrPasswordTooShort)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "original pass", "replacement"))

	stored, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("replacement", stored.PasswordHash))
}

func TestBootstrapAdminOnlyOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, BootstrapAdmin(ctx, st, "admin", "admin@example.com"))

	users, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, domain.RoleAdmin, users[0].Role)

	// Second call is a no-op.
	require.NoError(t, BootstrapAdmin(ctx, st, "admin", "admin@example.com"))
	users, err = st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestExportPartnersCSV(t *testing.T) {
	ctx := context.Background()
	svc := &RegistryService{Store: newTestStore(t)}

	_, err := svc.CreatePartner(ctx, domain.Partner{
		PartnerID:    "P-07",
		Name:         "Acme Labs",
		Type:         "Industry",
		ContactEmail: "contact@acme.test",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportPartnersCSV(ctx, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Partner ID")
	require.Contains(t, lines[1], "Acme Labs")
}

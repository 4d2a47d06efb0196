package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "register.json"))
	require.NoError(t, err)
	return s
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	t.Run("lookup by either identifier", func(t *testing.T) {
		byName, err := s.Users().GetUserByIdentifier(ctx, "ALICE")
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)

		// Case-insensitive, matching the sqlite driver's COLLATE NOCASE.
		byEmail, err := s.Users().GetUserByIdentifier(ctx, "Alice@Example.COM")
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		dup.Email = "other@example.com"
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("login state pair", func(t *testing.T) {
		until := time.Now().Add(15 * time.Minute).UTC()
		require.NoError(t, s.Users().SetLoginState(ctx, u.ID, 5, &until))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, 5, got.FailedLogins)
		require.NotNil(t, got.LockedUntil)

		require.NoError(t, s.Users().SetLoginState(ctx, u.ID, 0, nil))
		got, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, got.FailedLogins)
		require.Nil(t, got.LockedUntil)
	})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "register.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	p := domain.Partner{
		ID:           idx.New().String(),
		PartnerID:    "P-07",
		Name:         "Acme Labs",
		ContactEmail: "contact@acme.test",
	}
	require.NoError(t, s.Partners().CreatePartner(ctx, p))
	require.NoError(t, s.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	got, err := reopened.Partners().GetPartnerByPartnerID(ctx, "P-07")
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.False(t, got.CreatedAt.IsZero())
}

func TestTxRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Personnel().CreatePersonnel(ctx, domain.Personnel{
			ID:    idx.New().String(),
			Name:  "Bob",
			Email: "bob@example.com",
		}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	_, err = s.Personnel().GetPersonnelByEmail(ctx, "bob@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTxCommitPersists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Deliverables().CreateDeliverable(ctx, domain.Deliverable{
			ID:        idx.New().String(),
			PartnerID: "P-01",
			Number:    "D4.2",
		})
	})
	require.NoError(t, err)

	got, err := s.Deliverables().GetDeliverableByKey(ctx, "P-01", "d4.2")
	require.NoError(t, err)
	require.Equal(t, "D4.2", got.Number)
}

func TestListFiltering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"Acme Labs", "Borealis Oy", "Cardinal GmbH"} {
		require.NoError(t, s.Partners().CreatePartner(ctx, domain.Partner{
			ID:   idx.New().String(),
			Name: name,
		}))
	}

	all, err := s.Partners().ListPartners(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	filtered, err := s.Partners().ListPartners(ctx, "borealis")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "Borealis Oy", filtered[0].Name)
}

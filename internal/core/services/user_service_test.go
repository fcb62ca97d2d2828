package services

import (
	"context"
	"testing"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(db *gorm.DB) *UserService {
	return NewUserService(
		repositories.NewUserRepository(db),
		repositories.NewCirculationRepository(db),
	)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("summarizes identity, fines and lending counters", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)
		circSvc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		bookA := seedBook(t, db, "First Title", 1, false)
		bookB := seedBook(t, db, "Second Title", 1, false)

		// Two issues, one already returned
		for _, book := range []*models.Book{bookA, bookB} {
			req, err := circSvc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
			require.NoError(t, err)
			_, err = circSvc.Approve(ctx, req.ID, 2)
			require.NoError(t, err)
		}
		_, err := circSvc.MarkReturned(ctx, bookA.ID, patron.ID)
		require.NoError(t, err)

		profile, err := userSvc.Profile(ctx, patron.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, string(domain.RoleUser), profile.Role)
		assert.Equal(t, int64(2), profile.TotalIssuedBooks)
		assert.Equal(t, int64(1), profile.CurrentlyIssuedBooks)
	})

	t.Run("unknown user", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)

		_, err := userSvc.Profile(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPayFines(t *testing.T) {
	ctx := context.Background()

	t.Run("settles outstanding balance and unblocks requests", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)
		circSvc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 25)
		book := seedBook(t, db, "Wanted Title", 1, false)

		_, err := circSvc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.ErrorIs(t, err, domain.ErrPendingFines)

		require.NoError(t, userSvc.PayFines(ctx, patron.ID))

		var user models.User
		require.NoError(t, db.First(&user, patron.ID).Error)
		assert.Equal(t, 0.0, user.PendingFine)

		_, err = circSvc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		assert.NoError(t, err)
	})

	t.Run("nothing owed is an error, not a no-op", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)
		patron := seedPatron(t, db, "bob", 0)

		err := userSvc.PayFines(ctx, patron.ID)
		assert.ErrorIs(t, err, domain.ErrNoPendingFine)
	})

	t.Run("unknown user", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)

		err := userSvc.PayFines(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCreateLibrarian(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active librarian account", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)

		created, err := userSvc.CreateLibrarian(ctx, &CreateLibrarianInput{
			Username: "desk-staff",
			Email:    "desk@shelfdesk.local",
			Password: "library12345",
		})
		require.NoError(t, err)
		assert.Equal(t, string(domain.RoleLibrarian), created.Role)
		assert.True(t, created.IsActive)

		var stored models.User
		require.NoError(t, db.First(&stored, created.ID).Error)
		assert.True(t, password.Verify("library12345", stored.Password))
	})

	t.Run("duplicate username or email rejected", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)
		seedPatron(t, db, "alice", 0)

		_, err := userSvc.CreateLibrarian(ctx, &CreateLibrarianInput{
			Username: "alice",
			Email:    "staff@shelfdesk.local",
			Password: "library12345",
		})
		assert.ErrorIs(t, err, ErrUserAlreadyExists)

		_, err = userSvc.CreateLibrarian(ctx, &CreateLibrarianInput{
			Username: "staff",
			Email:    "alice@example.com",
			Password: "library12345",
		})
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("short password rejected", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)

		_, err := userSvc.CreateLibrarian(ctx, &CreateLibrarianInput{
			Username: "staff",
			Email:    "staff@shelfdesk.local",
			Password: "short",
		})
		assert.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("paginates all accounts", func(t *testing.T) {
		db := setupTestDB(t)
		userSvc := newUserService(db)
		seedPatron(t, db, "alice", 0)
		seedPatron(t, db, "bob", 0)
		seedPatron(t, db, "carol", 0)

		users, total, err := userSvc.ListUsers(ctx, &pagination.Params{Page: 1, Limit: 2, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, users, 2)

		users, _, err = userSvc.ListUsers(ctx, &pagination.Params{Page: 2, Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}

package services

import (
	"context"
	"testing"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookService(t *testing.T) {
	ctx := context.Background()

	t.Run("list excludes soft-deleted titles", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))
		seedBook(t, db, "Visible Title", 2, false)
		seedBook(t, db, "Hidden Title", 2, true)

		books, total, err := svc.List(ctx, &pagination.Params{Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, books, 1)
		assert.Equal(t, "Visible Title", books[0].Title)
	})

	t.Run("search matches title and author case-insensitively", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))
		seedBook(t, db, "The Go Programming Language", 2, false)
		seedBook(t, db, "Unrelated", 2, false)

		books, err := svc.Search(ctx, "go progr")
		require.NoError(t, err)
		require.Len(t, books, 1)

		books, err = svc.Search(ctx, "test author")
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("blank search query rejected", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))

		_, err := svc.Search(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("add and get", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))

		book, err := svc.Add(ctx, &AddBookInput{Title: "New Title", Author: "Someone", Quantity: 3})
		require.NoError(t, err)

		got, err := svc.GetByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Title", got.Title)
		assert.Equal(t, 3, got.Quantity)
	})

	t.Run("edit applies only provided fields", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))
		book := seedBook(t, db, "Old Title", 2, false)

		newTitle := "New Title"
		updated, err := svc.Edit(ctx, book.ID, &EditBookInput{Title: &newTitle})
		require.NoError(t, err)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, "Test Author", updated.Author)
		assert.Equal(t, 2, updated.Quantity)
	})

	t.Run("edit with no fields rejected", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))
		book := seedBook(t, db, "Some Title", 2, false)

		_, err := svc.Edit(ctx, book.ID, &EditBookInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("edit rejects negative quantity", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))
		book := seedBook(t, db, "Some Title", 2, false)

		bad := -1
		_, err := svc.Edit(ctx, book.ID, &EditBookInput{Quantity: &bad})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("delete hides title from browse and requests", func(t *testing.T) {
		db := setupTestDB(t)
		bookSvc := NewBookService(repositories.NewBookRepository(db))
		circSvc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "Doomed Title", 2, false)

		deleted, err := bookSvc.Delete(ctx, book.ID)
		require.NoError(t, err)
		assert.True(t, deleted.Deleted)

		_, err = bookSvc.GetByID(ctx, book.ID)
		assert.ErrorIs(t, err, domain.ErrBookNotFound)

		_, err = circSvc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		assert.ErrorIs(t, err, domain.ErrBookNotFound)

		// Row survives for history joins
		var row models.Book
		assert.NoError(t, db.First(&row, book.ID).Error)
	})

	t.Run("delete unknown book", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewBookService(repositories.NewBookRepository(db))

		_, err := svc.Delete(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/config"
	"shelfdesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Loan: config.LoanConfig{MaxDays: 90, DefaultFinePerDay: 2},
	}
}

func seedPatron(t *testing.T, db *gorm.DB, username string, pendingFine float64) *models.User {
	t.Helper()

	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    "hashed",
		Role:        string(domain.RoleUser),
		PendingFine: pendingFine,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedBook(t *testing.T, db *gorm.DB, title string, quantity int, deleted bool) *models.Book {
	t.Helper()

	book := &models.Book{
		Title:    title,
		Author:   "Test Author",
		Quantity: quantity,
		Deleted:  deleted,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestSubmitRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("creates request with pending history entry", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "The Go Programming Language", 3, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{
			BookID:       book.ID,
			DurationDays: 14,
		})
		require.NoError(t, err)
		assert.Equal(t, patron.ID, req.UserID)
		assert.Equal(t, 14, req.DurationDays)

		history, err := repositories.NewCirculationRepository(db).GetHistoryByRequestID(req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ApprovalPending, history.Approval)
		assert.Nil(t, history.IssueDate)
		assert.False(t, history.ReturnStatus)

		// Inventory untouched until approval
		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 3, fresh.Quantity)
	})

	t.Run("rejects out-of-range duration", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "bob", 0)
		book := seedBook(t, db, "Learning Go", 1, false)

		_, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 0})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 91})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("blocks patron with pending fines", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "carol", 12.50)
		book := seedBook(t, db, "Go in Action", 2, false)

		_, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		assert.ErrorIs(t, err, domain.ErrPendingFines)
	})

	t.Run("rejects deleted or missing book", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "dave", 0)
		deleted := seedBook(t, db, "Removed Title", 2, true)

		_, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: deleted.ID, DurationDays: 7})
		assert.ErrorIs(t, err, domain.ErrBookNotFound)

		_, err = svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: 9999, DurationDays: 7})
		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})

	t.Run("rejects duplicate outstanding request", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "erin", 0)
		book := seedBook(t, db, "Concurrency in Go", 2, false)

		_, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)

		_, err = svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	})

	t.Run("zero-copy title still accepts requests", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "frank", 0)
		book := seedBook(t, db, "Rare Title", 0, false)

		_, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		assert.NoError(t, err)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("issues book and completes the transition", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "The Go Programming Language", 2, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 10})
		require.NoError(t, err)

		result, err := svc.Approve(ctx, req.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, req.ID, result.Loan.RequestID)
		assert.Equal(t, 5.0, result.Loan.FinePerDay)
		assert.Equal(t, domain.ApprovalApproved, result.History.Approval)
		require.NotNil(t, result.History.IssueDate)
		require.NotNil(t, result.History.ReturnDate)
		assert.False(t, result.History.ReturnStatus)

		// Due date is duration days out from approval
		wantDue := result.History.IssueDate.Add(10 * 24 * time.Hour)
		assert.WithinDuration(t, wantDue, result.Loan.ExpectedReturn, time.Second)

		// One copy off the shelf, request gone
		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 1, fresh.Quantity)

		var count int64
		db.Model(&models.BorrowRequest{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("last copy race leaves loser pending", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		alice := seedPatron(t, db, "alice", 0)
		bob := seedPatron(t, db, "bob", 0)
		book := seedBook(t, db, "Single Copy", 1, false)

		reqA, err := svc.SubmitRequest(ctx, alice.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)
		reqB, err := svc.SubmitRequest(ctx, bob.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)

		_, err = svc.Approve(ctx, reqA.ID, 2)
		require.NoError(t, err)

		_, err = svc.Approve(ctx, reqB.ID, 2)
		assert.ErrorIs(t, err, domain.ErrNoCopiesLeft)

		// Loser's request and pending history survive for a later retry
		var req models.BorrowRequest
		assert.NoError(t, db.First(&req, reqB.ID).Error)

		history, err := repositories.NewCirculationRepository(db).GetHistoryByRequestID(reqB.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ApprovalPending, history.Approval)

		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 0, fresh.Quantity)
	})

	t.Run("rejects non-positive fine rate", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())

		_, err := svc.Approve(ctx, 1, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.Approve(ctx, 1, -3)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown request", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())

		_, err := svc.Approve(ctx, 4242, 2)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	t.Run("records trimmed reason and removes request", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "Popular Title", 1, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)

		history, err := svc.Reject(ctx, req.ID, "  out of circulation  ")
		require.NoError(t, err)
		assert.Equal(t, "out of circulation", history.Approval)

		var count int64
		db.Model(&models.BorrowRequest{}).Count(&count)
		assert.Equal(t, int64(0), count)

		// Inventory untouched
		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 1, fresh.Quantity)
	})

	t.Run("blank reason becomes rejected", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "bob", 0)
		book := seedBook(t, db, "Another Title", 1, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)

		history, err := svc.Reject(ctx, req.ID, "   ")
		require.NoError(t, err)
		assert.Equal(t, domain.ApprovalRejected, history.Approval)
	})

	t.Run("unknown request", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())

		_, err := svc.Reject(ctx, 4242, "whatever")
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})
}

func TestMarkReturned(t *testing.T) {
	ctx := context.Background()

	issueBook := func(t *testing.T, db *gorm.DB, svc *CirculationService, patronID, bookID uint, finePerDay float64) *models.IssuedLoan {
		t.Helper()
		req, err := svc.SubmitRequest(ctx, patronID, &SubmitRequestInput{BookID: bookID, DurationDays: 7})
		require.NoError(t, err)
		result, err := svc.Approve(ctx, req.ID, finePerDay)
		require.NoError(t, err)
		return result.Loan
	}

	t.Run("on-time return charges nothing and restocks", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "On Time", 1, false)
		loan := issueBook(t, db, svc, patron.ID, book.ID, 5)

		fine, err := svc.MarkReturned(ctx, book.ID, patron.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, fine)

		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 1, fresh.Quantity)

		var count int64
		db.Model(&models.IssuedLoan{}).Count(&count)
		assert.Equal(t, int64(0), count)

		history, err := repositories.NewCirculationRepository(db).GetHistoryByRequestID(loan.RequestID)
		require.NoError(t, err)
		assert.True(t, history.ReturnStatus)
		require.NotNil(t, history.ReturnDate)

		var user models.User
		require.NoError(t, db.First(&user, patron.ID).Error)
		assert.Equal(t, 0.0, user.PendingFine)
	})

	t.Run("overdue return charges ceil days times rate", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "bob", 0)
		book := seedBook(t, db, "Overdue", 1, false)
		loan := issueBook(t, db, svc, patron.ID, book.ID, 5)

		// 2 days 23 hours past due rounds up to 3 chargeable days
		overdueDue := time.Now().Add(-71 * time.Hour)
		require.NoError(t, db.Model(&models.IssuedLoan{}).
			Where("id = ?", loan.ID).
			Update("expected_return", overdueDue).Error)

		fine, err := svc.MarkReturned(ctx, book.ID, patron.ID)
		require.NoError(t, err)
		assert.Equal(t, 15.0, fine)

		var user models.User
		require.NoError(t, db.First(&user, patron.ID).Error)
		assert.Equal(t, 15.0, user.PendingFine)
	})

	t.Run("fine accrues on top of existing balance", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "carol", 0)
		book := seedBook(t, db, "Second Offense", 1, false)
		loan := issueBook(t, db, svc, patron.ID, book.ID, 2)

		// Fine arrives while a previous balance is still unpaid
		require.NoError(t, db.Model(&models.User{}).
			Where("id = ?", patron.ID).
			Update("pending_fine", 4.0).Error)
		require.NoError(t, db.Model(&models.IssuedLoan{}).
			Where("id = ?", loan.ID).
			Update("expected_return", time.Now().Add(-23*time.Hour)).Error)

		fine, err := svc.MarkReturned(ctx, book.ID, patron.ID)
		require.NoError(t, err)
		assert.Equal(t, 2.0, fine)

		var user models.User
		require.NoError(t, db.First(&user, patron.ID).Error)
		assert.Equal(t, 6.0, user.PendingFine)
	})

	t.Run("no active loan", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "dave", 0)
		book := seedBook(t, db, "Never Issued", 1, false)

		_, err := svc.MarkReturned(ctx, book.ID, patron.ID)
		assert.ErrorIs(t, err, domain.ErrLoanNotFound)
	})
}

func TestDefaulters(t *testing.T) {
	ctx := context.Background()

	t.Run("reports floor overdue days without charging", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "Late Book", 1, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)
		result, err := svc.Approve(ctx, req.ID, 5)
		require.NoError(t, err)

		// 2 days 23 hours past due: ceil says 3, the report floors to 2
		require.NoError(t, db.Model(&models.IssuedLoan{}).
			Where("id = ?", result.Loan.ID).
			Update("expected_return", time.Now().Add(-71*time.Hour)).Error)

		entries, err := svc.Defaulters(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 2, entries[0].OverdueDays)
		assert.Equal(t, 10.0, entries[0].TotalFine)
		assert.Equal(t, "Late Book", entries[0].BookTitle)
		assert.Equal(t, "alice", entries[0].Username)

		// Nothing charged by the report
		var user models.User
		require.NoError(t, db.First(&user, patron.ID).Error)
		assert.Equal(t, 0.0, user.PendingFine)
	})

	t.Run("on-time loans excluded", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "bob", 0)
		book := seedBook(t, db, "Current Loan", 1, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)
		_, err = svc.Approve(ctx, req.ID, 5)
		require.NoError(t, err)

		entries, err := svc.Defaulters(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestOverdueDayRounding(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		due       time.Time
		wantCeil  int
		wantFloor int
	}{
		{"not yet due", now.Add(time.Hour), 0, 0},
		{"exactly due", now, 0, 0},
		{"one millisecond late", now.Add(-time.Millisecond), 1, 0},
		{"half a day late", now.Add(-12 * time.Hour), 1, 0},
		{"one day late", now.Add(-24 * time.Hour), 1, 1},
		{"just over one day", now.Add(-25 * time.Hour), 2, 1},
		{"just under three days", now.Add(-71 * time.Hour), 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCeil, overdueDaysCeil(now, tt.due))
			assert.Equal(t, tt.wantFloor, overdueDaysFloor(now, tt.due))
		})
	}
}

func TestHistoryDesync(t *testing.T) {
	ctx := context.Background()

	t.Run("approve rolls back fully when the pending entry is missing", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		book := seedBook(t, db, "Orphaned Request", 2, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)
		require.NoError(t, db.Where("request_id = ?", req.ID).Delete(&models.HistoryEntry{}).Error)

		_, err = svc.Approve(ctx, req.ID, 5)
		assert.ErrorIs(t, err, domain.ErrHistoryDesync)

		// Nothing from the failed transition sticks
		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 2, fresh.Quantity)

		var stillThere models.BorrowRequest
		assert.NoError(t, db.First(&stillThere, req.ID).Error)

		var loans int64
		db.Model(&models.IssuedLoan{}).Count(&loans)
		assert.Equal(t, int64(0), loans)
	})

	t.Run("reject rolls back when the pending entry is missing", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "bob", 0)
		book := seedBook(t, db, "Orphaned Request", 1, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)
		require.NoError(t, db.Where("request_id = ?", req.ID).Delete(&models.HistoryEntry{}).Error)

		_, err = svc.Reject(ctx, req.ID, "whatever")
		assert.ErrorIs(t, err, domain.ErrHistoryDesync)

		var stillThere models.BorrowRequest
		assert.NoError(t, db.First(&stillThere, req.ID).Error)
	})

	t.Run("return rolls back when the approved entry is missing", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "carol", 0)
		book := seedBook(t, db, "Orphaned Loan", 1, false)

		req, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: book.ID, DurationDays: 7})
		require.NoError(t, err)
		result, err := svc.Approve(ctx, req.ID, 5)
		require.NoError(t, err)

		// Overdue, so a fine would accrue if the transition committed
		require.NoError(t, db.Model(&models.IssuedLoan{}).
			Where("id = ?", result.Loan.ID).
			Update("expected_return", time.Now().Add(-71*time.Hour)).Error)
		require.NoError(t, db.Where("request_id = ?", req.ID).Delete(&models.HistoryEntry{}).Error)

		_, err = svc.MarkReturned(ctx, book.ID, patron.ID)
		assert.ErrorIs(t, err, domain.ErrHistoryDesync)

		// Loan, shelf count and fine balance all untouched
		var loan models.IssuedLoan
		assert.NoError(t, db.First(&loan, result.Loan.ID).Error)

		var fresh models.Book
		require.NoError(t, db.First(&fresh, book.ID).Error)
		assert.Equal(t, 0, fresh.Quantity)

		var user models.User
		require.NoError(t, db.First(&user, patron.ID).Error)
		assert.Equal(t, 0.0, user.PendingFine)
	})
}

func TestRequestLifecycleHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("every request leaves exactly one terminal history entry", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewCirculationService(db, testConfig())
		patron := seedPatron(t, db, "alice", 0)
		approved := seedBook(t, db, "Approved Title", 1, false)
		rejected := seedBook(t, db, "Rejected Title", 1, false)

		reqA, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: approved.ID, DurationDays: 7})
		require.NoError(t, err)
		reqB, err := svc.SubmitRequest(ctx, patron.ID, &SubmitRequestInput{BookID: rejected.ID, DurationDays: 7})
		require.NoError(t, err)

		_, err = svc.Approve(ctx, reqA.ID, 2)
		require.NoError(t, err)
		_, err = svc.Reject(ctx, reqB.ID, "damaged copy")
		require.NoError(t, err)
		_, err = svc.MarkReturned(ctx, approved.ID, patron.ID)
		require.NoError(t, err)

		entries, err := svc.HistoryByUser(ctx, patron.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		rejectedEntries, err := svc.RejectedByUser(ctx, patron.ID)
		require.NoError(t, err)
		require.Len(t, rejectedEntries, 1)
		assert.Equal(t, "damaged copy", rejectedEntries[0].Approval)
	})
}

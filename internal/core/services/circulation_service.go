package services

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/config"
	"shelfdesk/internal/core/domain"

	"gorm.io/gorm"
)

const millisPerDay = 24 * 60 * 60 * 1000

// CirculationService is the lending lifecycle engine: it owns the
// request → approve/reject → issue → return transitions. Every transition
// that touches more than one record runs inside a single database
// transaction so a mid-transition failure never leaves partial state.
type CirculationService struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewCirculationService creates a new circulation service
func NewCirculationService(db *gorm.DB, cfg *config.Config) *CirculationService {
	return &CirculationService{db: db, cfg: cfg}
}

// ============================================================
// Patron — Borrow Requests
// ============================================================

// SubmitRequestInput represents a borrow request submission
type SubmitRequestInput struct {
	BookID       uint `json:"book_id" validate:"required"`
	DurationDays int  `json:"duration_days" validate:"required"`
}

// SubmitRequest creates a borrow request and its paired pending history
// entry. Inventory is not touched until approval.
func (s *CirculationService) SubmitRequest(ctx context.Context, userID uint, input *SubmitRequestInput) (*models.BorrowRequest, error) {
	if input.DurationDays < 1 || input.DurationDays > s.cfg.Loan.MaxDays {
		return nil, domain.ErrInvalidInput
	}

	userRepo := repositories.NewUserRepository(s.db)
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if user.PendingFine > 0 {
		return nil, domain.ErrPendingFines
	}

	bookRepo := repositories.NewBookRepository(s.db)
	book, err := bookRepo.GetActiveByID(input.BookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	circRepo := repositories.NewCirculationRepository(s.db)
	existing, err := circRepo.GetOutstandingRequest(userID, book.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateRequest
	}

	request := &models.BorrowRequest{
		UserID:       userID,
		BookID:       book.ID,
		DurationDays: input.DurationDays,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txRepo := repositories.NewCirculationRepository(tx)
		if err := txRepo.CreateRequest(request); err != nil {
			return err
		}
		entry := &models.HistoryEntry{
			RequestID: request.ID,
			BookID:    book.ID,
			UserID:    userID,
			Approval:  domain.ApprovalPending,
		}
		return txRepo.CreateHistory(entry)
	})
	if err != nil {
		return nil, err
	}

	// Reload with relations; a failed reload falls back to the bare request
	if full, err := circRepo.GetRequestByID(request.ID); err == nil {
		request = full
	}

	log.Printf("✅ Borrow request %d created: book %d, patron %d, %d days",
		request.ID, book.ID, userID, input.DurationDays)
	return request, nil
}

// ============================================================
// Librarian — Approval & Rejection
// ============================================================

// ApproveResult carries the records produced by an approval
type ApproveResult struct {
	Loan    *models.IssuedLoan   `json:"loan"`
	History *models.HistoryEntry `json:"history"`
}

// Approve issues the requested book: it creates the loan, marks the history
// entry approved, takes one copy off the shelf and removes the request — all
// or nothing. The due date is computed in calendar days from approval time.
func (s *CirculationService) Approve(ctx context.Context, requestID uint, finePerDay float64) (*ApproveResult, error) {
	if finePerDay <= 0 {
		return nil, domain.ErrInvalidInput
	}

	var result ApproveResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCirc := repositories.NewCirculationRepository(tx)
		txBooks := repositories.NewBookRepository(tx)

		request, err := txCirc.GetRequestByID(requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRequestNotFound
			}
			return err
		}

		// Availability check and decrement are one guarded statement; a
		// failed guard leaves the request pending for a later retry.
		ok, err := txBooks.DecrementQuantity(request.BookID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoCopiesLeft
		}

		now := time.Now()
		expectedReturn := now.Add(time.Duration(request.DurationDays) * 24 * time.Hour)

		loan := &models.IssuedLoan{
			RequestID:      request.ID,
			BookID:         request.BookID,
			UserID:         request.UserID,
			DurationDays:   request.DurationDays,
			ExpectedReturn: expectedReturn,
			FinePerDay:     finePerDay,
		}
		if err := txCirc.CreateLoan(loan); err != nil {
			return err
		}

		ok, err = txCirc.UpdatePendingHistory(request.ID, map[string]interface{}{
			"approval":    domain.ApprovalApproved,
			"issue_date":  now,
			"return_date": expectedReturn,
		})
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("🚨 History desync on approve: request %d has no pending history entry", request.ID)
			return domain.ErrHistoryDesync
		}

		if err := txCirc.DeleteRequest(request.ID); err != nil {
			return err
		}

		history, err := txCirc.GetHistoryByRequestID(request.ID)
		if err != nil {
			return err
		}

		result.Loan = loan
		result.History = history
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Request %d approved: book %d issued to patron %d until %s",
		requestID, result.Loan.BookID, result.Loan.UserID,
		result.Loan.ExpectedReturn.Format("2006-01-02"))
	return &result, nil
}

// Reject closes a borrow request without issuing. The trimmed reason is
// recorded in the history entry; an empty reason becomes the literal
// "rejected". Inventory is untouched since nothing was ever decremented.
func (s *CirculationService) Reject(ctx context.Context, requestID uint, reason string) (*models.HistoryEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.ApprovalRejected
	}

	var history *models.HistoryEntry

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCirc := repositories.NewCirculationRepository(tx)

		request, err := txCirc.GetRequestByID(requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRequestNotFound
			}
			return err
		}

		ok, err := txCirc.UpdatePendingHistory(request.ID, map[string]interface{}{
			"approval": reason,
		})
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("🚨 History desync on reject: request %d has no pending history entry", request.ID)
			return domain.ErrHistoryDesync
		}

		if err := txCirc.DeleteRequest(request.ID); err != nil {
			return err
		}

		history, err = txCirc.GetHistoryByRequestID(request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Request %d rejected: %s", requestID, reason)
	return history, nil
}

// ListPendingRequests returns all open borrow requests
func (s *CirculationService) ListPendingRequests(ctx context.Context) ([]models.BorrowRequest, error) {
	return repositories.NewCirculationRepository(s.db).ListRequests()
}

// ============================================================
// Librarian — Returns & Fines
// ============================================================

// MarkReturned closes the active loan for a (book, patron) pair. Overdue
// days round up from the millisecond delta and never go negative; the
// resulting fine accrues onto the patron's balance on top of any unpaid
// amount. Returns the fine charged.
func (s *CirculationService) MarkReturned(ctx context.Context, bookID, userID uint) (float64, error) {
	var fine float64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCirc := repositories.NewCirculationRepository(tx)
		txBooks := repositories.NewBookRepository(tx)
		txUsers := repositories.NewUserRepository(tx)

		loan, err := txCirc.GetLoanByBookUser(bookID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLoanNotFound
			}
			return err
		}

		now := time.Now()
		overdue := overdueDaysCeil(now, loan.ExpectedReturn)
		fine = float64(overdue) * loan.FinePerDay

		if fine > 0 {
			if err := txUsers.AddPendingFine(ctx, userID, fine); err != nil {
				return err
			}
		}

		if err := txCirc.DeleteLoan(loan.ID); err != nil {
			return err
		}
		if err := txBooks.IncrementQuantity(bookID); err != nil {
			return err
		}

		ok, err := txCirc.MarkHistoryReturned(loan.RequestID, now)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("🚨 History desync on return: request %d has no open approved history entry", loan.RequestID)
			return domain.ErrHistoryDesync
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("✅ Book %d returned by patron %d (fine: %.2f)", bookID, userID, fine)
	return fine, nil
}

// ============================================================
// Views
// ============================================================

// ListIssued returns every active loan (librarian view)
func (s *CirculationService) ListIssued(ctx context.Context) ([]models.IssuedLoan, error) {
	return repositories.NewCirculationRepository(s.db).ListLoans()
}

// ListIssuedByUser returns a patron's active loans
func (s *CirculationService) ListIssuedByUser(ctx context.Context, userID uint) ([]models.IssuedLoan, error) {
	return repositories.NewCirculationRepository(s.db).ListLoansByUser(userID)
}

// HistoryByUser returns a patron's full lending history
func (s *CirculationService) HistoryByUser(ctx context.Context, userID uint) ([]models.HistoryEntry, error) {
	return repositories.NewCirculationRepository(s.db).ListHistoryByUser(userID)
}

// RejectedByUser returns a patron's rejected requests
func (s *CirculationService) RejectedByUser(ctx context.Context, userID uint) ([]models.HistoryEntry, error) {
	return repositories.NewCirculationRepository(s.db).ListRejectedByUser(userID)
}

// Defaulters returns every overdue loan joined with its book and patron.
// Read-only: overdue days round down here, and nothing is charged until the
// book actually comes back through MarkReturned.
func (s *CirculationService) Defaulters(ctx context.Context) ([]models.DefaulterEntry, error) {
	now := time.Now()
	loans, err := repositories.NewCirculationRepository(s.db).ListOverdueLoans(now)
	if err != nil {
		return nil, err
	}

	entries := make([]models.DefaulterEntry, 0, len(loans))
	for _, loan := range loans {
		overdue := overdueDaysFloor(now, loan.ExpectedReturn)
		entry := models.DefaulterEntry{
			LoanID:         loan.ID,
			BookID:         loan.BookID,
			UserID:         loan.UserID,
			ExpectedReturn: loan.ExpectedReturn,
			OverdueDays:    overdue,
			FinePerDay:     loan.FinePerDay,
			TotalFine:      float64(overdue) * loan.FinePerDay,
		}
		if loan.Book != nil {
			entry.BookTitle = loan.Book.Title
			entry.BookAuthor = loan.Book.Author
		}
		if loan.User != nil {
			entry.Username = loan.User.Username
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ============================================================
// Day arithmetic
// ============================================================

// overdueDaysCeil rounds a positive overdue delta up to whole calendar days
// (one millisecond past the due date already counts as a day). Used at
// return time; this is the authoritative fine basis.
func overdueDaysCeil(now, due time.Time) int {
	diff := now.Sub(due).Milliseconds()
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(millisPerDay)))
}

// overdueDaysFloor rounds down, clamped to zero. Used only by the read-only
// defaulter report.
func overdueDaysFloor(now, due time.Time) int {
	diff := now.Sub(due).Milliseconds()
	if diff <= 0 {
		return 0
	}
	return int(diff / millisPerDay)
}

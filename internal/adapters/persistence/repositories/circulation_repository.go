package repositories

import (
	"errors"
	"time"

	"shelfdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// CirculationRepository handles borrow requests, issued loans and the
// history journal
type CirculationRepository struct {
	db *gorm.DB
}

// NewCirculationRepository creates a new circulation repository
func NewCirculationRepository(db *gorm.DB) *CirculationRepository {
	return &CirculationRepository{db: db}
}

// ============================================================
// BorrowRequest Queries
// ============================================================

// CreateRequest creates a new borrow request
func (r *CirculationRepository) CreateRequest(req *models.BorrowRequest) error {
	return r.db.Create(req).Error
}

// GetRequestByID returns a request by ID with book and patron preloaded
func (r *CirculationRepository) GetRequestByID(id uint) (*models.BorrowRequest, error) {
	var req models.BorrowRequest
	err := r.db.Preload("Book").Preload("User").First(&req, id).Error
	return &req, err
}

// GetOutstandingRequest returns the pending request for a (user, book) pair,
// or nil when none exists
func (r *CirculationRepository) GetOutstandingRequest(userID, bookID uint) (*models.BorrowRequest, error) {
	var req models.BorrowRequest
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &req, err
}

// ListRequests returns all pending requests with book and patron preloaded
func (r *CirculationRepository) ListRequests() ([]models.BorrowRequest, error) {
	var reqs []models.BorrowRequest
	err := r.db.Preload("Book").Preload("User").Order("created_at ASC").Find(&reqs).Error
	return reqs, err
}

// DeleteRequest removes a request (terminal transition: approve or reject)
func (r *CirculationRepository) DeleteRequest(id uint) error {
	return r.db.Delete(&models.BorrowRequest{}, id).Error
}

// ============================================================
// HistoryEntry Queries
// ============================================================

// CreateHistory appends a history entry
func (r *CirculationRepository) CreateHistory(entry *models.HistoryEntry) error {
	return r.db.Create(entry).Error
}

// GetHistoryByRequestID returns the history entry for a request
func (r *CirculationRepository) GetHistoryByRequestID(requestID uint) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	err := r.db.Where("request_id = ?", requestID).First(&entry).Error
	return &entry, err
}

// UpdatePendingHistory applies updates to the still-pending history entry of
// a request. Zero rows affected means the journal has desynchronized from
// the request queue.
func (r *CirculationRepository) UpdatePendingHistory(requestID uint, updates map[string]interface{}) (bool, error) {
	res := r.db.Model(&models.HistoryEntry{}).
		Where("request_id = ? AND approval = ?", requestID, "pending").
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// MarkHistoryReturned stamps the approved history entry of a loan's
// originating request with the return date
func (r *CirculationRepository) MarkHistoryReturned(requestID uint, returnedAt time.Time) (bool, error) {
	res := r.db.Model(&models.HistoryEntry{}).
		Where("request_id = ? AND approval = ? AND return_status = ?", requestID, "approved", false).
		Updates(map[string]interface{}{
			"return_date":   returnedAt,
			"return_status": true,
		})
	return res.RowsAffected > 0, res.Error
}

// ListHistoryByUser returns a patron's full history, newest first
func (r *CirculationRepository) ListHistoryByUser(userID uint) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// ListRejectedByUser returns a patron's non-approved terminal entries
func (r *CirculationRepository) ListRejectedByUser(userID uint) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := r.db.Preload("Book").
		Where("user_id = ? AND approval NOT IN ?", userID, []string{"approved", "pending"}).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// CountHistoryByUser counts a patron's history entries
func (r *CirculationRepository) CountHistoryByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.HistoryEntry{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ============================================================
// IssuedLoan Queries
// ============================================================

// CreateLoan creates an issued loan
func (r *CirculationRepository) CreateLoan(loan *models.IssuedLoan) error {
	return r.db.Create(loan).Error
}

// GetLoanByBookUser returns the active loan for a (book, user) pair
func (r *CirculationRepository) GetLoanByBookUser(bookID, userID uint) (*models.IssuedLoan, error) {
	var loan models.IssuedLoan
	err := r.db.Where("book_id = ? AND user_id = ?", bookID, userID).First(&loan).Error
	return &loan, err
}

// DeleteLoan removes a loan (return transition)
func (r *CirculationRepository) DeleteLoan(id uint) error {
	return r.db.Delete(&models.IssuedLoan{}, id).Error
}

// ListLoans returns all active loans with book and patron preloaded
func (r *CirculationRepository) ListLoans() ([]models.IssuedLoan, error) {
	var loans []models.IssuedLoan
	err := r.db.Preload("Book").Preload("User").Order("expected_return ASC").Find(&loans).Error
	return loans, err
}

// ListLoansByUser returns a patron's active loans
func (r *CirculationRepository) ListLoansByUser(userID uint) ([]models.IssuedLoan, error) {
	var loans []models.IssuedLoan
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("expected_return ASC").
		Find(&loans).Error
	return loans, err
}

// CountLoansByUser counts a patron's active loans
func (r *CirculationRepository) CountLoansByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.IssuedLoan{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ListOverdueLoans returns loans whose due date has passed, with book and
// patron preloaded
func (r *CirculationRepository) ListOverdueLoans(now time.Time) ([]models.IssuedLoan, error) {
	var loans []models.IssuedLoan
	err := r.db.Preload("Book").Preload("User").
		Where("expected_return < ?", now).
		Order("expected_return ASC").
		Find(&loans).Error
	return loans, err
}

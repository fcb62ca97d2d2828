package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & Patron Tables
// ============================================================

// User represents users table (patrons, librarians, admins)
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email       string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password    string         `gorm:"size:255;not null" json:"-"`
	Role        string         `gorm:"size:20;default:'user'" json:"role"`
	PendingFine float64        `gorm:"type:decimal(10,2);not null;default:0" json:"pending_fine"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	PendingFine float64   `json:"pending_fine"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		PendingFine: u.PendingFine,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog Tables
// ============================================================

// Book represents books table. Deleted is a soft-delete flag respected by
// every browse/search/request path; quantity is the sole availability gate.
type Book struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null;index" json:"title"`
	Author    string    `gorm:"size:200;not null;index" json:"author"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	Deleted   bool      `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// ============================================================
// Circulation Tables
// ============================================================

// BorrowRequest represents borrow_requests table. At most one outstanding
// request may exist per (user_id, book_id) pair; the row is removed on
// approval or rejection.
type BorrowRequest struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_requests_user_book,unique" json:"user_id"`
	BookID       uint      `gorm:"not null;index:idx_requests_user_book,unique" json:"book_id"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (BorrowRequest) TableName() string {
	return "borrow_requests"
}

// HistoryEntry represents history_entries table, the permanent audit log of
// every request's lifecycle outcome. RequestID points at the originating
// borrow request so lifecycle transitions resolve the audit record by key,
// not by {book, patron, approval} tuple matching. Rows are never deleted.
type HistoryEntry struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RequestID    uint       `gorm:"not null;uniqueIndex" json:"request_id"`
	BookID       uint       `gorm:"not null;index" json:"book_id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	IssueDate    *time.Time `json:"issue_date"`
	ReturnDate   *time.Time `json:"return_date"`
	ReturnStatus bool       `gorm:"not null;default:false" json:"return_status"`
	Approval     string     `gorm:"size:255;not null;default:'pending'" json:"approval"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (HistoryEntry) TableName() string {
	return "history_entries"
}

// IssuedLoan represents issued_loans table: active loans only. Created on
// approval (decrementing the book quantity), removed on return
// (incrementing it back).
type IssuedLoan struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RequestID      uint      `gorm:"not null;uniqueIndex" json:"request_id"`
	BookID         uint      `gorm:"not null;index:idx_loans_book_user" json:"book_id"`
	UserID         uint      `gorm:"not null;index:idx_loans_book_user" json:"user_id"`
	DurationDays   int       `gorm:"not null" json:"duration_days"`
	ExpectedReturn time.Time `gorm:"not null;index" json:"expected_return"`
	FinePerDay     float64   `gorm:"type:decimal(10,2);not null" json:"fine_per_day"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (IssuedLoan) TableName() string {
	return "issued_loans"
}

// DefaulterEntry DTO: one overdue loan joined with its book and patron.
// Read-only view; the authoritative fine accrues only at return time.
type DefaulterEntry struct {
	LoanID         uint      `json:"loan_id"`
	BookID         uint      `json:"book_id"`
	BookTitle      string    `json:"book_title"`
	BookAuthor     string    `json:"book_author"`
	UserID         uint      `json:"user_id"`
	Username       string    `json:"username"`
	ExpectedReturn time.Time `json:"expected_return"`
	OverdueDays    int       `json:"overdue_days"`
	FinePerDay     float64   `json:"fine_per_day"`
	TotalFine      float64   `json:"total_fine"`
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Book{},
		&BorrowRequest{},
		&HistoryEntry{},
		&IssuedLoan{},
	)
}

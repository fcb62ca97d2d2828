package repositories

import (
	"shelfdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// BookRepository handles catalog database operations
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// List returns non-deleted books with pagination
func (r *BookRepository) List(offset, limit int) ([]models.Book, int64, error) {
	var books []models.Book
	var total int64

	if err := r.db.Model(&models.Book{}).Where("deleted = ?", false).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.
		Where("deleted = ?", false).
		Order("title ASC").
		Offset(offset).Limit(limit).
		Find(&books).Error
	return books, total, err
}

// Search returns non-deleted books whose title or author contains the query
// (case-insensitive substring match, no ranking)
func (r *BookRepository) Search(query string) ([]models.Book, error) {
	var books []models.Book
	pattern := "%" + query + "%"
	err := r.db.
		Where("deleted = ?", false).
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", pattern, pattern).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// GetByID returns a book by ID, deleted or not
func (r *BookRepository) GetByID(id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.First(&book, id).Error
	return &book, err
}

// GetActiveByID returns a non-deleted book by ID
func (r *BookRepository) GetActiveByID(id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.Where("id = ? AND deleted = ?", id, false).First(&book).Error
	return &book, err
}

// Create creates a new book
func (r *BookRepository) Create(book *models.Book) error {
	return r.db.Create(book).Error
}

// Update saves book fields
func (r *BookRepository) Update(book *models.Book) error {
	return r.db.Save(book).Error
}

// SoftDelete marks a book deleted without removing the row
func (r *BookRepository) SoftDelete(id uint) error {
	return r.db.Model(&models.Book{}).Where("id = ?", id).Update("deleted", true).Error
}

// DecrementQuantity takes one copy off the shelf. The quantity check and the
// decrement are a single guarded UPDATE so concurrent approvals cannot both
// pass the availability gate; zero rows affected means no copies were left.
func (r *BookRepository) DecrementQuantity(id uint) (bool, error) {
	res := r.db.Model(&models.Book{}).
		Where("id = ? AND deleted = ? AND quantity > 0", id, false).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", 1))
	return res.RowsAffected > 0, res.Error
}

// IncrementQuantity puts a returned copy back on the shelf
func (r *BookRepository) IncrementQuantity(id uint) error {
	return r.db.Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", 1)).Error
}

// IsAvailable reports whether at least one copy is on the shelf
func (r *BookRepository) IsAvailable(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Book{}).
		Where("id = ? AND deleted = ? AND quantity > 0", id, false).
		Count(&count).Error
	return count > 0, err
}

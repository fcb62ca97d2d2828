package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/pkg/pagination"

	"gorm.io/gorm"
)

// BookService handles catalog business logic
type BookService struct {
	bookRepo *repositories.BookRepository
}

// NewBookService creates a new book service
func NewBookService(bookRepo *repositories.BookRepository) *BookService {
	return &BookService{bookRepo: bookRepo}
}

// List returns the browsable catalog (soft-deleted titles excluded)
func (s *BookService) List(ctx context.Context, params *pagination.Params) ([]models.Book, int64, error) {
	return s.bookRepo.List(params.Offset, params.Limit)
}

// Search returns catalog titles matching the query in title or author
func (s *BookService) Search(ctx context.Context, query string) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.bookRepo.Search(query)
}

// GetByID returns a single non-deleted book
func (s *BookService) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetActiveByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// AddBookInput represents a new catalog title
type AddBookInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Author   string `json:"author" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// Add adds a title to the catalog
func (s *BookService) Add(ctx context.Context, input *AddBookInput) (*models.Book, error) {
	book := &models.Book{
		Title:    input.Title,
		Author:   input.Author,
		Quantity: input.Quantity,
	}
	if err := s.bookRepo.Create(book); err != nil {
		return nil, err
	}

	log.Printf("✅ Book added: %q by %s (%d copies)", book.Title, book.Author, book.Quantity)
	return book, nil
}

// EditBookInput represents a partial catalog update; nil fields are left
// unchanged
type EditBookInput struct {
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	Quantity *int    `json:"quantity"`
}

// Edit updates a title. Quantity edits set the absolute shelf count and may
// never go negative.
func (s *BookService) Edit(ctx context.Context, id uint, input *EditBookInput) (*models.Book, error) {
	if input.Title == nil && input.Author == nil && input.Quantity == nil {
		return nil, domain.ErrInvalidInput
	}

	book, err := s.bookRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	if input.Title != nil && *input.Title != "" {
		book.Title = *input.Title
	}
	if input.Author != nil && *input.Author != "" {
		book.Author = *input.Author
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, domain.ErrInvalidInput
		}
		book.Quantity = *input.Quantity
	}

	if err := s.bookRepo.Update(book); err != nil {
		return nil, err
	}

	log.Printf("✅ Book %d updated", book.ID)
	return book, nil
}

// Delete soft-deletes a title; the row stays for history joins but drops
// out of browse, search and new requests
func (s *BookService) Delete(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	if err := s.bookRepo.SoftDelete(book.ID); err != nil {
		return nil, err
	}
	book.Deleted = true

	log.Printf("✅ Book %d soft-deleted: %q", book.ID, book.Title)
	return book, nil
}

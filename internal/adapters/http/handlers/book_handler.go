package handlers

import (
	"errors"
	"strconv"

	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/response"
	"shelfdesk/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles catalog endpoints
type BookHandler struct {
	bookService *services.BookService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// List lists the browsable catalog
// @Summary List books
// @Description List non-deleted catalog titles
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	books, total, err := h.bookService.List(c.Context(), params)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved", pagination.NewResponse(books, params, total))
}

// Search searches the catalog by title or author
// @Summary Search books
// @Description Case-insensitive substring search over title and author
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param query query string true "Search query"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /books/search [get]
func (h *BookHandler) Search(c *fiber.Ctx) error {
	query := c.Query("query")

	books, err := h.bookService.Search(c.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return response.BadRequest(c, "Search query is required")
		}
		return response.InternalServerError(c, "Failed to search books")
	}

	return response.Success(c, "Books retrieved", fiber.Map{"books": books})
}

// Add adds a catalog title
// @Summary Add book
// @Description Add a new title to the catalog (librarian only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.AddBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /books [post]
func (h *BookHandler) Add(c *fiber.Ctx) error {
	var input services.AddBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := validation.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	book, err := h.bookService.Add(c.Context(), &input)
	if err != nil {
		return response.InternalServerError(c, "Failed to add book")
	}

	return response.Created(c, "Book added successfully", fiber.Map{"book": book})
}

// Edit updates a catalog title
// @Summary Edit book
// @Description Partially update a title (librarian only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.EditBookInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [patch]
func (h *BookHandler) Edit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.EditBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.bookService.Edit(c.Context(), uint(id), &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "At least one field is required and quantity must be non-negative")
		default:
			return response.InternalServerError(c, "Failed to update book")
		}
	}

	return response.Success(c, "Book updated successfully", fiber.Map{"book": book})
}

// Delete soft-deletes a catalog title
// @Summary Delete book
// @Description Soft-delete a title (librarian only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.Delete(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to delete book")
	}

	return response.Success(c, "Book deleted successfully (soft delete)", fiber.Map{"book": book})
}

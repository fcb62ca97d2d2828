package handlers

import (
	"errors"

	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/response"
	"shelfdesk/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles patron-facing endpoints
type UserHandler struct {
	userService *services.UserService
	circService *services.CirculationService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, circService *services.CirculationService) *UserHandler {
	return &UserHandler{
		userService: userService,
		circService: circService,
	}
}

// Profile returns the patron's account summary
// @Summary Get profile
// @Description Account summary: identity, fine balance and lending counters
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/profile [get]
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	profile, err := h.userService.Profile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to load profile")
	}

	return response.Success(c, "Profile retrieved", profile)
}

// PayFines settles the patron's outstanding fines
// @Summary Pay fines
// @Description Zero the pending fine balance
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /users/fines/pay [post]
func (h *UserHandler) PayFines(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	err := h.userService.PayFines(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPendingFine):
			return response.BadRequest(c, "No pending fines to pay")
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to pay fines")
		}
	}

	return response.Success(c, "Fine paid successfully", nil)
}

// RequestBook submits a borrow request
// @Summary Request a book
// @Description Submit a borrow request for a catalog title
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SubmitRequestInput true "Request data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users/requests [post]
func (h *UserHandler) RequestBook(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.SubmitRequestInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := validation.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	request, err := h.circService.SubmitRequest(c.Context(), userID, &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Duration must be between 1 and the configured maximum days")
		case errors.Is(err, domain.ErrPendingFines):
			return response.Forbidden(c, "You have pending fines. Clear them before requesting a book.")
		case errors.Is(err, domain.ErrBookNotFound):
			return response.NotFound(c, "This book is not available")
		case errors.Is(err, domain.ErrDuplicateRequest):
			return response.Conflict(c, "You have already requested this book")
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to submit request")
		}
	}

	return response.Created(c, "Book request submitted successfully", fiber.Map{"request": request})
}

// IssuedBooks returns the patron's active loans
// @Summary My issued books
// @Description List the patron's currently issued books
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users/issued [get]
func (h *UserHandler) IssuedBooks(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.circService.ListIssuedByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list issued books")
	}

	return response.Success(c, "Issued books retrieved", fiber.Map{"issued": loans})
}

// History returns the patron's full lending history
// @Summary My history
// @Description List the patron's full lending history
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users/history [get]
func (h *UserHandler) History(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	entries, err := h.circService.HistoryByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list history")
	}

	return response.Success(c, "History retrieved", fiber.Map{"history": entries})
}

// RejectedRequests returns the patron's rejected requests
// @Summary My rejected requests
// @Description List the patron's rejected borrow requests
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users/rejected [get]
func (h *UserHandler) RejectedRequests(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	entries, err := h.circService.RejectedByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list rejected requests")
	}

	return response.Success(c, "Rejected requests retrieved", fiber.Map{"rejected": entries})
}

// ListUsers lists all accounts
// @Summary List users
// @Description List all accounts (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.ListUsers(c.Context(), params)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	return response.Success(c, "Users retrieved", pagination.NewResponse(users, params, total))
}

// CreateLibrarian creates a librarian account
// @Summary Create librarian
// @Description Create a librarian account (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLibrarianInput true "Librarian data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/users/librarians [post]
func (h *UserHandler) CreateLibrarian(c *fiber.Ctx) error {
	var input services.CreateLibrarianInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := validation.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	user, err := h.userService.CreateLibrarian(c.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserAlreadyExists):
			return response.Conflict(c, "Username or email already exists")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, "Password must be at least 8 characters")
		default:
			return response.InternalServerError(c, "Failed to create librarian")
		}
	}

	return response.Created(c, "Librarian account created", fiber.Map{"user": user})
}

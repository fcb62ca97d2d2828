package handlers

import (
	"errors"
	"strconv"

	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/response"
	"shelfdesk/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// CirculationHandler handles the librarian circulation desk endpoints
type CirculationHandler struct {
	circService *services.CirculationService
}

// NewCirculationHandler creates a new circulation handler
func NewCirculationHandler(circService *services.CirculationService) *CirculationHandler {
	return &CirculationHandler{circService: circService}
}

// ApproveInput represents an approval submission
type ApproveInput struct {
	FinePerDay float64 `json:"fine_per_day" validate:"required,gt=0"`
}

// RejectInput represents a rejection submission
type RejectInput struct {
	Reason string `json:"reason"`
}

// ReturnInput identifies the loan being closed at the counter
type ReturnInput struct {
	BookID uint `json:"book_id" validate:"required"`
	UserID uint `json:"user_id" validate:"required"`
}

// ListRequests lists all pending borrow requests
// @Summary List pending requests
// @Description List all open borrow requests (librarian only)
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /circulation/requests [get]
func (h *CirculationHandler) ListRequests(c *fiber.Ctx) error {
	requests, err := h.circService.ListPendingRequests(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list requests")
	}

	return response.Success(c, "Requests retrieved", fiber.Map{"requests": requests})
}

// Approve approves a borrow request and issues the book
// @Summary Approve request
// @Description Issue the requested book and set the per-day fine rate (librarian only)
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body ApproveInput true "Approval data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /circulation/requests/{id}/approve [post]
func (h *CirculationHandler) Approve(c *fiber.Ctx) error {
	requestID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	var input ApproveInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := validation.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.circService.Approve(c.Context(), uint(requestID), input.FinePerDay)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Fine per day must be positive")
		case errors.Is(err, domain.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, domain.ErrNoCopiesLeft):
			return response.BadRequest(c, "No copies of this book are left on the shelf")
		case errors.Is(err, domain.ErrHistoryDesync):
			return response.InternalServerError(c, "History record is out of sync with this request")
		default:
			return response.InternalServerError(c, "Failed to approve request")
		}
	}

	return response.Success(c, "Request approved, book issued", result)
}

// Reject rejects a borrow request
// @Summary Reject request
// @Description Close a borrow request without issuing (librarian only)
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body RejectInput true "Rejection reason (optional)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /circulation/requests/{id}/reject [post]
func (h *CirculationHandler) Reject(c *fiber.Ctx) error {
	requestID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	var input RejectInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	history, err := h.circService.Reject(c.Context(), uint(requestID), input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, domain.ErrHistoryDesync):
			return response.InternalServerError(c, "History record is out of sync with this request")
		default:
			return response.InternalServerError(c, "Failed to reject request")
		}
	}

	return response.Success(c, "Request rejected", fiber.Map{"history": history})
}

// ListIssued lists every active loan
// @Summary List issued books
// @Description List every active loan (librarian only)
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /circulation/issued [get]
func (h *CirculationHandler) ListIssued(c *fiber.Ctx) error {
	loans, err := h.circService.ListIssued(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list issued books")
	}

	return response.Success(c, "Issued books retrieved", fiber.Map{"issued": loans})
}

// MarkReturned closes a loan at the returns counter
// @Summary Mark book returned
// @Description Close the active loan, restock the copy and charge any overdue fine (librarian only)
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ReturnInput true "Loan identity"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /circulation/returns [post]
func (h *CirculationHandler) MarkReturned(c *fiber.Ctx) error {
	var input ReturnInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := validation.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	fine, err := h.circService.MarkReturned(c.Context(), input.BookID, input.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoanNotFound):
			return response.NotFound(c, "No active loan found for this book and patron")
		case errors.Is(err, domain.ErrHistoryDesync):
			return response.InternalServerError(c, "History record is out of sync with this loan")
		default:
			return response.InternalServerError(c, "Failed to mark book returned")
		}
	}

	return response.Success(c, "Book returned successfully", fiber.Map{"fine_charged": fine})
}

// Defaulters lists every overdue loan
// @Summary List defaulters
// @Description Overdue loans with provisional fine totals (librarian only)
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /circulation/defaulters [get]
func (h *CirculationHandler) Defaulters(c *fiber.Ctx) error {
	entries, err := h.circService.Defaulters(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list defaulters")
	}

	return response.Success(c, "Defaulters retrieved", fiber.Map{"defaulters": entries})
}

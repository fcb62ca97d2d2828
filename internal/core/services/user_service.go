package services

import (
	"context"
	"errors"
	"log"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/password"

	"gorm.io/gorm"
)

// UserService handles patron-facing account logic
type UserService struct {
	userRepo repositories.UserRepository
	circRepo *repositories.CirculationRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, circRepo *repositories.CirculationRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		circRepo: circRepo,
	}
}

// ProfileResponse represents a patron profile summary
type ProfileResponse struct {
	Username             string  `json:"username"`
	Email                string  `json:"email"`
	Role                 string  `json:"role"`
	PendingFine          float64 `json:"pending_fine"`
	TotalIssuedBooks     int64   `json:"total_issued_books"`
	CurrentlyIssuedBooks int64   `json:"currently_issued_books"`
}

// Profile returns a patron's account summary: identity, fine balance and
// lending counters
func (s *UserService) Profile(ctx context.Context, userID uint) (*ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	totalIssued, err := s.circRepo.CountHistoryByUser(userID)
	if err != nil {
		return nil, err
	}
	currentlyIssued, err := s.circRepo.CountLoansByUser(userID)
	if err != nil {
		return nil, err
	}

	return &ProfileResponse{
		Username:             user.Username,
		Email:                user.Email,
		Role:                 user.Role,
		PendingFine:          user.PendingFine,
		TotalIssuedBooks:     totalIssued,
		CurrentlyIssuedBooks: currentlyIssued,
	}, nil
}

// PayFines zeroes the patron's fine balance. Payment processing itself is
// out of scope; this is the settlement stub the counter flow relies on.
// Paying with nothing owed is an error, never a double credit.
func (s *UserService) PayFines(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	cleared, err := s.userRepo.ClearPendingFine(ctx, userID)
	if err != nil {
		return err
	}
	if !cleared {
		return domain.ErrNoPendingFine
	}

	log.Printf("✅ Fines cleared for patron %d", userID)
	return nil
}

// CreateLibrarianInput represents a librarian account created by an admin
type CreateLibrarianInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateLibrarian creates a librarian account. Self-registration only ever
// produces patrons; this is the admin path for staff accounts.
func (s *UserService) CreateLibrarian(ctx context.Context, input *CreateLibrarianInput) (*models.UserResponse, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	if !password.Validate(input.Password) {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashedPassword,
		Role:     string(domain.RoleLibrarian),
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ Librarian account created: %s", user.Username)
	return user.ToResponse(), nil
}

// ListUsers returns all accounts, paginated (admin view)
func (s *UserService) ListUsers(ctx context.Context, params *pagination.Params) ([]*models.UserResponse, int64, error) {
	users, total, err := s.userRepo.List(ctx, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*models.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, user.ToResponse())
	}
	return responses, total, nil
}

package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Circulation errors
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrRequestNotFound  = errors.New("borrow request not found")
	ErrLoanNotFound     = errors.New("issued loan not found")
	ErrDuplicateRequest = errors.New("outstanding request already exists for this book")
	ErrPendingFines     = errors.New("patron has pending fines")
	ErrNoCopiesLeft     = errors.New("no copies available")
	ErrNoPendingFine    = errors.New("no pending fines to pay")

	// ErrHistoryDesync means a history entry that must exist for a pending
	// request or active loan is missing. This is a server fault, not a user
	// error: the request/loan/history records have desynchronized and the
	// enclosing transaction must roll back.
	ErrHistoryDesync = errors.New("history entry out of sync with request state")
)

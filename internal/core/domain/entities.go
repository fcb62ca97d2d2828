package domain

// Role represents user role in the system
type Role string

const (
	RoleUser      Role = "user"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// Approval states for history entries. Any other value stored in the
// approval column is a rejection reason supplied by the librarian.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

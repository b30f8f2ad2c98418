package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/errors"
)

// Role represents what a user can do on the marketplace.
type Role string

const (
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

// User represents a marketplace participant.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a new user.
func NewUser(email, name string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.NewValidationError("email", "must be a valid email address")
	}
	if name == "" {
		return nil, errors.NewValidationError("name", "cannot be empty")
	}
	switch role {
	case RoleClient, RoleContractor, RoleAdmin:
	default:
		return nil, errors.NewValidationError("role", "must be client, contractor or admin")
	}
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("user_not_found")
	ErrEmailExists        = errors.New("email_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrUserInactive       = errors.New("user_inactive")
)

type CreateUserRequest struct {
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	// GetActive returns the user only when the account is active.
	GetActive(ctx context.Context, id snowflake.ID) (*User, error)
	// GetActiveWithRole additionally checks the account carries the role.
	GetActiveWithRole(ctx context.Context, id snowflake.ID, role Role) (*User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}

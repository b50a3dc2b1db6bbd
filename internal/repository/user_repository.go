package repository

import (
	"context"
	"errors"

	"github.com/nadigross/userbase/internal/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository is the only way in and out of the users table.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, in models.UserInsert) (*models.User, error)

	// FindByUsername returns the lowest-id user with that username, or ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// Update merges the supplied fields and refreshes UpdatedAt. An empty
	// update is a plain read.
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)

	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns a page ordered by ascending id.
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

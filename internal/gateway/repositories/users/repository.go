package users

import (
	"context"

	"github.com/aquemenida/caliope-ai-studio/internal/gateway/models"
)

type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt. An email that
	// is already registered yields common.ErrDuplicateIdentity.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

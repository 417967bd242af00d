package repository

import (
	"context"

	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
)

// UserRepository defines the interface for user account persistence.
// GetByEmail matches case-insensitively; callers store emails lowercased.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

package repository

import (
	"context"

	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
)

// AnalysisRepository persists screening records. Every read takes the owning
// user id and returns only that user's records; no unscoped read exists, so
// ownership equality is the sole access-control boundary for record data.
type AnalysisRepository interface {
	// Create inserts the record; the store assigns ID and CreatedAt.
	Create(ctx context.Context, a *entity.Analysis) error
	// ListByOwner returns the owner's records ordered by creation time descending.
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Analysis, error)
	// GetByIDAndOwner returns the record only when it exists and belongs to
	// ownerID; otherwise a not-found error.
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Analysis, error)
}

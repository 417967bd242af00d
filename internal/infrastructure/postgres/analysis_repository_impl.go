package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
	"github.com/areebaatariq/DiabeVision/internal/domain/repository"
)

const analysisColumns = `
	id, user_id, patient_label, captured_at, image_object,
	prediction, confidence, severity_score,
	microaneurysms, hemorrhages, exudates, cotton_wool_spots, neovascularization,
	created_at`

type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

func (r *AnalysisRepository) Create(ctx context.Context, a *entity.Analysis) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO analyses (
			user_id, patient_label, captured_at, image_object,
			prediction, confidence, severity_score,
			microaneurysms, hemorrhages, exudates, cotton_wool_spots, neovascularization
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, a.UserID, a.PatientLabel, a.CapturedAt, a.ImageObject,
		a.Prediction, a.Confidence, a.SeverityScore,
		a.Details.Microaneurysms, a.Details.Hemorrhages, a.Details.Exudates,
		a.Details.CottonWoolSpots, a.Details.Neovascularization)

	return row.Scan(&a.ID, &a.CreatedAt)
}

func (r *AnalysisRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Analysis, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AnalysisRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Analysis, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE id = $1 AND user_id = $2
	`, id, ownerID)

	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAnalysis(row pgx.Row) (*entity.Analysis, error) {
	a := &entity.Analysis{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.PatientLabel, &a.CapturedAt, &a.ImageObject,
		&a.Prediction, &a.Confidence, &a.SeverityScore,
		&a.Details.Microaneurysms, &a.Details.Hemorrhages, &a.Details.Exudates,
		&a.Details.CottonWoolSpots, &a.Details.Neovascularization,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

var _ repository.AnalysisRepository = (*AnalysisRepository)(nil)

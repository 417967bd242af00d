package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
	repo "github.com/areebaatariq/DiabeVision/internal/domain/repository"
	"github.com/areebaatariq/DiabeVision/internal/inference"
)

// MaxImageBytes caps uploaded image size. Uploads are buffered in memory up
// to this cap before the blob write, so the cap is deliberately small.
const MaxImageBytes = 5 << 20 // 5 MiB

var (
	ErrInvalidUpload   = errors.New("only image files are allowed")
	ErrPayloadTooLarge = errors.New("image exceeds the maximum allowed size")
)

// AnalysisService orchestrates the screening pipeline: validate the upload,
// store the image blob, run the model, persist the owned record, and serve
// owner-scoped reads.
type AnalysisService struct {
	Repo    repo.AnalysisRepository
	Blobs   repo.BlobStore
	Model   inference.Analyzer
	Logger  *logrus.Logger
	ES      *elasticsearch.Client
	ESIndex string
}

func NewAnalysisService(r repo.AnalysisRepository, blobs repo.BlobStore, model inference.Analyzer, logger *logrus.Logger, es *elasticsearch.Client, esIndex string) *AnalysisService {
	return &AnalysisService{Repo: r, Blobs: blobs, Model: model, Logger: logger, ES: es, ESIndex: esIndex}
}

// Submit runs one screening for ownerID. The blob write completes strictly
// before the record insert so a record never references a missing image; the
// reverse window (blob written, insert fails) is tolerated and logged.
func (s *AnalysisService) Submit(ctx context.Context, ownerID string, r io.Reader, contentType string) (*entity.Analysis, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidUpload
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, MaxImageBytes+1)); err != nil {
		return nil, err
	}
	if buf.Len() > MaxImageBytes {
		return nil, ErrPayloadTooLarge
	}

	objectID, err := s.Blobs.Put(ctx, &buf, contentType)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	res := s.Model.Analyze()
	now := time.Now().UTC()
	a := &entity.Analysis{
		UserID:        ownerID,
		PatientLabel:  newPatientLabel(),
		CapturedAt:    now,
		ImageObject:   objectID,
		Prediction:    res.Prediction,
		Confidence:    res.Confidence,
		SeverityScore: int(res.Grade),
		Details:       res.Details,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		// The stored blob is now unreferenced. Accepted gap: no compensating
		// delete, the object stays around without an owning record.
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("image_object", objectID).Error("analysis insert failed after blob write")
		}
		return nil, err
	}

	s.indexAnalysis(ctx, a)
	return a, nil
}

// List returns the owner's records newest first.
func (s *AnalysisService) List(ctx context.Context, ownerID string) ([]*entity.Analysis, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

// Get returns the record only when owned by ownerID.
func (s *AnalysisService) Get(ctx context.Context, ownerID, id string) (*entity.Analysis, error) {
	return s.Repo.GetByIDAndOwner(ctx, id, ownerID)
}

// GetImage resolves the owned record, then opens a stream over its blob.
// A missing record or missing blob both surface as repository.ErrNotFound.
func (s *AnalysisService) GetImage(ctx context.Context, ownerID, id string) (io.ReadCloser, string, error) {
	a, err := s.Repo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, "", err
	}
	return s.Blobs.Get(ctx, a.ImageObject)
}

// Search matches the owner's records by patient label via Elasticsearch.
// Hits are re-resolved through the owner-scoped repository so the index can
// never widen access; with no index configured it returns an empty result.
func (s *AnalysisService) Search(ctx context.Context, ownerID, q string, size int) ([]*entity.Analysis, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []*entity.Analysis{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   map[string]any{"match_phrase_prefix": map[string]any{"patient_label": q}},
				"filter": map[string]any{"term": map[string]any{"user_id": ownerID}},
			},
		},
		"size":    size,
		"_source": false,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]*entity.Analysis, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		a, err := s.Repo.GetByIDAndOwner(ctx, h.ID, ownerID)
		if errors.Is(err, repo.ErrNotFound) {
			continue // stale index entry
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *AnalysisService) indexAnalysis(ctx context.Context, a *entity.Analysis) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"user_id":        a.UserID,
		"patient_label":  a.PatientLabel,
		"prediction":     a.Prediction,
		"severity_score": a.SeverityScore,
		"created_at":     a.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: a.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("analysis_id", a.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("analysis_id", a.ID).Warn("es index response error")
	}
}

// newPatientLabel synthesizes a display label. It is not an identity key, so
// the occasional collision is fine.
func newPatientLabel() string {
	return fmt.Sprintf("PT-%04d", rand.Intn(10000))
}

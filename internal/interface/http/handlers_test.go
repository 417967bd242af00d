package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/areebaatariq/DiabeVision/internal/application"
	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
	"github.com/areebaatariq/DiabeVision/internal/domain/repository"
	"github.com/areebaatariq/DiabeVision/internal/inference"
	"github.com/areebaatariq/DiabeVision/internal/interface/middleware"
	"github.com/areebaatariq/DiabeVision/pkg/helpers"
	"github.com/areebaatariq/DiabeVision/pkg/validation"
)

// in-memory stand-ins for the postgres and GCS implementations

type memUserRepo struct {
	mu    sync.Mutex
	users []*entity.User
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		if e.Email == u.Email {
			return repository.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users = append(r.users, &cp)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// when >0, readers from Get fail after this many bytes
	failReadAfter int
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("read: connection reset by peer")
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memBlobStore) Put(_ context.Context, r io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.objects[id] = b
	s.types[id] = contentType
	return id, nil
}

func (s *memBlobStore) Get(_ context.Context, objectID string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[objectID]
	if !ok {
		return nil, "", repository.ErrNotFound
	}
	if s.failReadAfter > 0 && s.failReadAfter < len(b) {
		r := io.MultiReader(bytes.NewReader(b[:s.failReadAfter]), failingReader{})
		return io.NopCloser(r), s.types[objectID], nil
	}
	return io.NopCloser(bytes.NewReader(b)), s.types[objectID], nil
}

type memAnalysisRepo struct {
	mu      sync.Mutex
	records []*entity.Analysis
	clock   time.Time
}

func newMemAnalysisRepo() *memAnalysisRepo {
	return &memAnalysisRepo{clock: time.Now().UTC()}
}

func (r *memAnalysisRepo) Create(_ context.Context, a *entity.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Millisecond)
	a.ID = uuid.NewString()
	a.CreatedAt = r.clock
	cp := *a
	r.records = append(r.records, &cp)
	return nil
}

func (r *memAnalysisRepo) ListByOwner(_ context.Context, ownerID string) ([]*entity.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Analysis, 0)
	for _, a := range r.records {
		if a.UserID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memAnalysisRepo) GetByIDAndOwner(_ context.Context, id, ownerID string) (*entity.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.records {
		if a.ID == id && a.UserID == ownerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type testAPI struct {
	engine *gin.Engine
	jwt    *helpers.JWTManager
	blobs  *memBlobStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	jwt := helpers.NewJWTManager("test-secret", time.Hour)

	blobs := newMemBlobStore()
	userSvc := application.NewUserService(&memUserRepo{}, jwt, nil, logger, false)
	analysisSvc := application.NewAnalysisService(newMemAnalysisRepo(), blobs, inference.RandomModel{}, logger, nil, "")

	authH := NewAuthHandler(userSvc, logger)
	analysisH := NewAnalysisHandler(analysisSvc, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)

	protected := api.Group("/")
	protected.Use(middleware.Auth(jwt))
	{
		protected.GET("/auth/me", authH.Me)
		protected.POST("/analyses", analysisH.Submit)
		protected.GET("/analyses", analysisH.List)
		protected.GET("/analyses/search", analysisH.Search)
		protected.GET("/analyses/:id", analysisH.Get)
		protected.GET("/analyses/:id/image", analysisH.GetImage)
	}

	return &testAPI{engine: r, jwt: jwt, blobs: blobs}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// tokenFor issues a valid bearer token without going through registration.
func (a *testAPI) tokenFor(t *testing.T, userID, email string) string {
	t.Helper()
	token, _, err := a.jwt.GenerateToken(userID, email)
	require.NoError(t, err)
	return token
}

// multipartUpload builds a multipart body with one file part carrying the
// given content type, the way browsers submit the analyze form.
func multipartUpload(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

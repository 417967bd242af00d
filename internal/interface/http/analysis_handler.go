package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/areebaatariq/DiabeVision/internal/application"
	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
	"github.com/areebaatariq/DiabeVision/internal/domain/repository"
	"github.com/areebaatariq/DiabeVision/internal/interface/middleware"
	"github.com/areebaatariq/DiabeVision/pkg/response"
)

// multipart framing allowance on top of the image size cap; the exact cap on
// the file bytes themselves is enforced in the service.
const uploadSlackBytes = 512 << 10

type AnalysisHandler struct {
	Svc    *application.AnalysisService
	Logger *logrus.Logger
}

func NewAnalysisHandler(svc *application.AnalysisService, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{Svc: svc, Logger: logger}
}

// analysisResult is the wire representation of a screening record. Field
// names are part of the public API contract and must not change.
type analysisResult struct {
	ID            string          `json:"id"`
	PatientID     string          `json:"patientId"`
	Date          string          `json:"date"`
	ImageURL      string          `json:"imageUrl"`
	Prediction    string          `json:"prediction"`
	Confidence    int             `json:"confidence"`
	SeverityScore int             `json:"severityScore"`
	Details       entity.Findings `json:"details"`
}

func toResult(c *gin.Context, a *entity.Analysis) analysisResult {
	return analysisResult{
		ID:            a.ID,
		PatientID:     a.PatientLabel,
		Date:          a.CapturedAt.Format(time.RFC3339),
		ImageURL:      baseURL(c) + "/api/analyses/" + a.ID + "/image",
		Prediction:    a.Prediction,
		Confidence:    a.Confidence,
		SeverityScore: a.SeverityScore,
		Details:       a.Details,
	}
}

func baseURL(c *gin.Context) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	return proto + "://" + c.Request.Host
}

// Submit POST /api/analyses, multipart upload under the "image" field.
func (h *AnalysisHandler) Submit(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)

	if c.Request.ContentLength > application.MaxImageBytes+uploadSlackBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "image too large (max 5 MiB)", nil)
		return
	}
	// backstop for chunked bodies that never declared a length
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, application.MaxImageBytes+uploadSlackBytes)
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			response.Error(c, http.StatusRequestEntityTooLarge, "image too large (max 5 MiB)", nil)
			return
		}
		response.Error(c, http.StatusBadRequest, "image file is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > application.MaxImageBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "image too large (max 5 MiB)", nil)
		return
	}

	a, err := h.Svc.Submit(c.Request.Context(), uid, file, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidUpload):
			response.Error(c, http.StatusBadRequest, "only image files are allowed", nil)
		case errors.Is(err, application.ErrPayloadTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, "image too large (max 5 MiB)", nil)
		default:
			h.Logger.WithError(err).WithField("user_id", uid).Error("analysis submit failed")
			response.Error(c, http.StatusInternalServerError, "analysis failed", nil)
		}
		return
	}
	response.Success(c, http.StatusCreated, toResult(c, a), "analysis created", nil)
}

// List GET /api/analyses returns the caller's records, newest first.
func (h *AnalysisHandler) List(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	records, err := h.Svc.List(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("list analyses failed")
		response.Error(c, http.StatusInternalServerError, "failed to list analyses", nil)
		return
	}
	out := make([]analysisResult, 0, len(records))
	for _, a := range records {
		out = append(out, toResult(c, a))
	}
	response.Success(c, http.StatusOK, out, "analyses", gin.H{"count": len(out)})
}

// Get GET /api/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	id, ok := recordID(c)
	if !ok {
		return
	}
	a, err := h.Svc.Get(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "analysis not found", nil)
			return
		}
		h.Logger.WithError(err).WithField("analysis_id", id).Error("get analysis failed")
		response.Error(c, http.StatusInternalServerError, "failed to get analysis", nil)
		return
	}
	response.Success(c, http.StatusOK, toResult(c, a), "analysis", nil)
}

// GetImage GET /api/analyses/:id/image streams the original upload.
func (h *AnalysisHandler) GetImage(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	id, ok := recordID(c)
	if !ok {
		return
	}
	rd, contentType, err := h.Svc.GetImage(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "analysis not found", nil)
			return
		}
		h.Logger.WithError(err).WithField("analysis_id", id).Error("get image failed")
		response.Error(c, http.StatusInternalServerError, "failed to get image", nil)
		return
	}
	defer func() { _ = rd.Close() }()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rd); err != nil {
		// The 200 and part of the body are already on the wire. Sever the
		// connection so the client's read fails instead of ending on a clean
		// chunk boundary that passes for a complete image.
		h.Logger.WithError(err).WithField("analysis_id", id).Warn("image stream interrupted")
		panic(http.ErrAbortHandler)
	}
}

// Search GET /api/analyses/search?q=PT-12
func (h *AnalysisHandler) Search(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	records, err := h.Svc.Search(c.Request.Context(), uid, q, size)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("search analyses failed")
		response.Error(c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	out := make([]analysisResult, 0, len(records))
	for _, a := range records {
		out = append(out, toResult(c, a))
	}
	response.Success(c, http.StatusOK, out, "search results", gin.H{"count": len(out)})
}

func recordID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		response.Error(c, http.StatusBadRequest, "invalid analysis id", nil)
		return "", false
	}
	return id, true
}

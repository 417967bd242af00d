package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areebaatariq/DiabeVision/internal/application"
	"github.com/areebaatariq/DiabeVision/internal/inference"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func submitImage(t *testing.T, api *testAPI, token string, content []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	body, formType := multipartUpload(t, "image", "retina.jpg", contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Authorization", "Bearer "+token)
	return api.do(req)
}

func TestAnalyses_UnauthenticatedIsRejected(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	w := api.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyses_SubmitReturnsCompleteRecord(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	w := submitImage(t, api, token, []byte("fake jpeg bytes"), "image/jpeg")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	var res analysisResult
	require.NoError(t, json.Unmarshal(env.Data, &res))

	assert.NotEmpty(t, res.ID)
	assert.Regexp(t, `^PT-\d{4}$`, res.PatientID)
	assert.NotEmpty(t, res.Date)
	assert.Equal(t, "http://example.com/api/analyses/"+res.ID+"/image", res.ImageURL)
	assert.GreaterOrEqual(t, res.Confidence, 85)
	assert.LessOrEqual(t, res.Confidence, 98)
	require.GreaterOrEqual(t, res.SeverityScore, 0)
	require.LessOrEqual(t, res.SeverityScore, 4)

	grade := inference.Grade(res.SeverityScore)
	assert.Equal(t, grade.Label(), res.Prediction)
	assert.Equal(t, inference.FindingsFor(grade), res.Details)
}

func TestAnalyses_SubmitRejectsNonImage(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	w := submitImage(t, api, token, []byte("%PDF-1.4"), "application/pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// nothing was recorded for the failed submission
	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = api.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
	assert.Empty(t, list)
}

func TestAnalyses_SubmitRejectsOversizedUpload(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	oversized := bytes.Repeat([]byte{0xff}, int(application.MaxImageBytes)+1)
	w := submitImage(t, api, token, oversized, "image/png")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = api.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
	assert.Empty(t, list)
}

func TestAnalyses_SubmitRequiresFilePart(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	body := strings.NewReader("--x--")
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("Authorization", "Bearer "+token)

	w := api.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyses_ListIsOwnerScoped(t *testing.T) {
	api := newTestAPI(t)
	alice := api.tokenFor(t, "alice", "alice@example.com")
	bob := api.tokenFor(t, "bob", "bob@example.com")

	for i := 0; i < 2; i++ {
		w := submitImage(t, api, alice, []byte("scan"), "image/jpeg")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := submitImage(t, api, bob, []byte("scan"), "image/jpeg")
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	w = api.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
	assert.Len(t, list, 2)
}

func TestAnalyses_GetForeignRecordIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	alice := api.tokenFor(t, "alice", "alice@example.com")
	bob := api.tokenFor(t, "bob", "bob@example.com")

	w := submitImage(t, api, alice, []byte("scan"), "image/jpeg")
	require.Equal(t, http.StatusCreated, w.Code)

	var res analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &res))

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+res.ID, nil)
	req.Header.Set("Authorization", "Bearer "+bob)
	w = api.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the owner still sees it
	req = httptest.NewRequest(http.MethodGet, "/api/analyses/"+res.ID, nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	w = api.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyses_GetRejectsMalformedID(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := api.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyses_GetImageRoundTripsBytes(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	original := []byte("\x89PNG\r\n\x1a\nretina pixels")
	w := submitImage(t, api, token, original, "image/png")
	require.Equal(t, http.StatusCreated, w.Code)

	var res analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &res))

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+res.ID+"/image", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = api.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, original, w.Body.Bytes())
}

func TestAnalyses_GetImageStreamFailureSeversConnection(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	payload := bytes.Repeat([]byte{0xab}, 256<<10)
	w := submitImage(t, api, token, payload, "image/jpeg")
	require.Equal(t, http.StatusCreated, w.Code)

	var res analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &res))

	// blob reads now fail partway through the body
	api.blobs.failReadAfter = 64 << 10

	srv := httptest.NewServer(api.engine)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/analyses/"+res.ID+"/image", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err == nil {
		defer func() { _ = resp.Body.Close() }()
		body, readErr := io.ReadAll(resp.Body)
		// a truncated transfer must not read as a complete success
		require.Error(t, readErr)
		assert.Less(t, len(body), len(payload))
	}
}

func TestAnalyses_SearchRequiresQuery(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := api.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyses_SearchWithoutIndexReturnsEmpty(t *testing.T) {
	api := newTestAPI(t)
	token := api.tokenFor(t, "user-a", "a@example.com")

	w := submitImage(t, api, token, []byte("scan"), "image/jpeg")
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/search?q=PT", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = api.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []analysisResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
	assert.Empty(t, list)
}

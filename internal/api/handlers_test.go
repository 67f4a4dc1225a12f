package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/pipeline"
	"style-shopper/internal/types"
	"style-shopper/storage"
	"style-shopper/vision"
)

type stubModel struct{}

func (stubModel) Complete(ctx context.Context, images []vision.Image, prompt string, maxTokens int) (string, error) {
	if strings.Contains(prompt, "Product Info:") {
		if strings.Contains(prompt, "- Name: Wool Coat") {
			return `{"score": 8, "reasoning": "Sharp tailoring.", "suggested_pairings": ["loafers"]}`, nil
		}
		return `{"score": 3, "reasoning": "Off palette."}`, nil
	}
	return `{"color_palette": ["camel"], "summary": "Tailored neutrals."}`, nil
}

type stubImages struct{}

func (stubImages) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	return []byte("jpeg"), "image/jpeg", nil
}

func newTestServer(t *testing.T) (*Server, *types.Config) {
	t.Helper()
	config := types.DefaultConfig()
	config.DataDir = t.TempDir()
	logger := logrus.New()
	metrics := monitoring.NewMetrics()

	p := pipeline.New(config, logger, metrics, pipeline.WithModel(stubModel{}), pipeline.WithImageFetcher(stubImages{}))
	return NewServer(config, logger, metrics, p), config
}

func seedProducts(t *testing.T, config *types.Config) {
	t.Helper()
	products := []types.Product{
		{Name: "Wool Coat", Price: "€190", URL: "https://www.arket.com/en-ww/p/wool-coat", ImageURL: "https://img.arket.com/coat.jpg", Retailer: "Arket"},
		{Name: "Neon Top", Price: "€35", URL: "https://www.arket.com/en-ww/p/neon-top", ImageURL: "https://img.arket.com/top.jpg", Retailer: "Arket"},
	}
	batch := types.NewProductBatch(products, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, storage.SaveProductBatch(storage.ProductsPath(config.DataDir), batch))
}

func seedProfile(t *testing.T, config *types.Config) {
	t.Helper()
	profile := &types.StyleProfile{ColorPalette: []string{"camel"}, Summary: "Tailored neutrals."}
	require.NoError(t, storage.SaveProfile(storage.ProfilePath(config.DataDir), profile))
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodOptions, "/api/find-matches", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestProducts(t *testing.T) {
	s, config := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, decodeError(t, rr), "No products found")

	seedProducts(t, config)
	rr = do(s, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body ProductsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalProducts)
	assert.Equal(t, "Wool Coat", body.Products[0].Name)
}

func TestProfileAndRecommendations_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(s, httptest.NewRequest(http.MethodGet, "/api/profile", nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(s, httptest.NewRequest(http.MethodGet, "/api/recommendations", nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(s, httptest.NewRequest(http.MethodGet, "/feed", nil)).Code)
}

func multipartRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-style", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeStyle(t *testing.T) {
	s, config := newTestServer(t)

	rr := do(s, multipartRequest(t, map[string]string{"look.jpg": "jpeg-bytes", "notes.txt": "hello"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body AnalyzeStyleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.ImagesAnalyzed)
	assert.Equal(t, "Tailored neutrals.", body.Profile.Summary)

	sessions, err := os.ReadDir(filepath.Join(config.DataDir, "uploads"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Name(), 8)

	saved, err := os.ReadDir(filepath.Join(config.DataDir, "uploads", sessions[0].Name()))
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "00_look.jpg", saved[0].Name())

	rr = do(s, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAnalyzeStyle_NoValidImages(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, multipartRequest(t, map[string]string{"notes.txt": "hello"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No valid image files provided", decodeError(t, rr))

	rr = do(s, multipartRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No images provided", decodeError(t, rr))
}

func TestFindMatches(t *testing.T) {
	s, config := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodPost, "/api/find-matches", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr), "style profile")

	seedProfile(t, config)
	rr = do(s, httptest.NewRequest(http.MethodPost, "/api/find-matches", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr), "No products")

	seedProducts(t, config)
	rr = do(s, httptest.NewRequest(http.MethodPost, "/api/find-matches", strings.NewReader(`{"limit": 25, "min_score": 6}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var recs types.Recommendations
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	assert.Equal(t, 2, recs.ProductsAnalyzed)
	require.Equal(t, 1, recs.MatchesFound)
	assert.Equal(t, "Wool Coat", recs.Recommendations[0].Product.Name)

	rr = do(s, httptest.NewRequest(http.MethodGet, "/api/recommendations", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(s, httptest.NewRequest(http.MethodGet, "/feed", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Wool Coat")
}

func TestFindMatches_MinScoreZero(t *testing.T) {
	s, config := newTestServer(t)
	seedProfile(t, config)
	seedProducts(t, config)

	rr := do(s, httptest.NewRequest(http.MethodPost, "/api/find-matches", strings.NewReader(`{"min_score": 0}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var recs types.Recommendations
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	assert.Equal(t, []int{8, 3}, []int{recs.Recommendations[0].Score, recs.Recommendations[1].Score})
}

func TestFindMatches_InvalidBody(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodPost, "/api/find-matches", strings.NewReader(`{"limit": "many"`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rr := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `path="/api/health"`)
}

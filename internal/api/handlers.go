package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"style-shopper/internal/feed"
	"style-shopper/internal/pipeline"
	"style-shopper/internal/types"
	"style-shopper/storage"
	"style-shopper/vision"
)

const maxUploadMemory = 32 << 20

// FindMatchesRequest is the optional body of POST /api/find-matches
type FindMatchesRequest struct {
	Limit    *int `json:"limit"`
	MinScore *int `json:"min_score"`
}

// AnalyzeStyleResponse is returned by POST /api/analyze-style
type AnalyzeStyleResponse struct {
	Profile        *types.StyleProfile `json:"profile"`
	ImagesAnalyzed int                 `json:"images_analyzed"`
}

// ProductsResponse is returned by GET /api/products
type ProductsResponse struct {
	TotalProducts int             `json:"total_products"`
	Products      []types.Product `json:"products"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.pipeline.Products(r.Context())
	if errors.Is(err, pipeline.ErrNoProducts) {
		s.respondWithError(w, http.StatusNotFound, "No products found. Run scrapers first.")
		return
	}
	if err != nil {
		s.logger.Errorf("Failed to load products: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Could not load products")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ProductsResponse{TotalProducts: len(products), Products: products})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.pipeline.Recommendations()
	if errors.Is(err, storage.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "No recommendations found. Run matching first.")
		return
	}
	if err != nil {
		s.logger.Errorf("Failed to load recommendations: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Could not load recommendations")
		return
	}
	s.respondWithJSON(w, http.StatusOK, recs)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.pipeline.Profile()
	if errors.Is(err, pipeline.ErrNoProfile) {
		s.respondWithError(w, http.StatusNotFound, "No style profile found.")
		return
	}
	if err != nil {
		s.logger.Errorf("Failed to load style profile: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Could not load style profile")
		return
	}
	s.respondWithJSON(w, http.StatusOK, profile)
}

func (s *Server) handleAnalyzeStyle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "No images provided")
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "No images provided")
		return
	}

	sessionDir := filepath.Join(s.config.DataDir, "uploads", uuid.NewString()[:8])
	paths, err := saveUploads(sessionDir, files)
	if err != nil {
		s.logger.Errorf("Failed to save uploads: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Could not save uploaded images")
		return
	}
	if len(paths) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "No valid image files provided")
		return
	}

	sources := make([]vision.ImageSource, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, vision.FileImage{Path: p})
	}

	profile, err := s.pipeline.AnalyzeStyle(r.Context(), sources)
	if errors.Is(err, vision.ErrNoReadableImages) {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Errorf("Style analysis failed: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusOK, AnalyzeStyleResponse{Profile: profile, ImagesAnalyzed: len(paths)})
}

// saveUploads writes the accepted images as NN_<name> under dir
func saveUploads(dir string, files []*multipart.FileHeader) ([]string, error) {
	var paths []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if fh.Filename == "" || !vision.IsImageFile(name) {
			continue
		}
		if len(paths) == 0 {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("%02d_%s", len(paths), name))
		if err := saveUpload(fh, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (s *Server) handleFindMatches(w http.ResponseWriter, r *http.Request) {
	var req FindMatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts := vision.MatchOptions{
		Limit:    s.config.MatchLimit,
		MinScore: s.config.MinScore,
	}
	if req.Limit != nil {
		opts.Limit = *req.Limit
	}
	if req.MinScore != nil {
		opts.MinScore = *req.MinScore
	}

	recs, err := s.pipeline.FindMatches(r.Context(), opts)
	switch {
	case errors.Is(err, pipeline.ErrNoProfile):
		s.respondWithError(w, http.StatusBadRequest, "No style profile found. Analyze style first.")
	case errors.Is(err, pipeline.ErrNoProducts):
		s.respondWithError(w, http.StatusBadRequest, "No products found. Run scrapers first.")
	case err != nil:
		s.logger.Errorf("Matching failed: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondWithJSON(w, http.StatusOK, recs)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	recs, err := s.pipeline.Recommendations()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Errorf("Failed to load recommendations: %v", err)
		http.Error(w, "Could not load recommendations", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err = feed.Render(&buf, recs, time.Now())
	if errors.Is(err, feed.ErrNoResults) {
		http.Error(w, "No recommendations yet. Run matching first.", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Failed to render feed: %v", err)
		http.Error(w, "Could not render feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

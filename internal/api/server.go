// Package api exposes the HTTP interface for the ingestion service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quillhaven/novelingest/internal/coordinator"
	"github.com/quillhaven/novelingest/internal/ingest"
)

const defaultPageSize = 20

// Server wires HTTP handlers to the coordinator and library store.
type Server struct {
	router  chi.Router
	coord   *coordinator.Coordinator
	library ingest.LibraryStore
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(coord *coordinator.Coordinator, library ingest.LibraryStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{coord: coord, library: library, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", s.submitIngestion)
		r.Get("/jobs/{job_id}", s.getJob)
		r.Route("/novels", func(r chi.Router) {
			r.Get("/", s.listNovels)
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", s.getNovel)
				r.Get("/chapters", s.listChapters)
				r.Get("/chapters/{number}", s.getChapter)
			})
		})
		r.Get("/genres", s.listGenres)
		r.Get("/genres/{slug}", s.getGenre)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type ingestRequest struct {
	SourceURL string `json:"source_url"`
	Force     bool   `json:"force"`
}

func (s *Server) submitIngestion(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "source_url required")
		return
	}

	res, err := s.coord.CreateJob(r.Context(), coordinator.CreateJobRequest{
		SourceURL: req.SourceURL,
		Force:     req.Force,
	})
	if err != nil {
		var unsupported *ingest.UnsupportedSourceError
		if errors.As(err, &unsupported) {
			writeError(w, http.StatusBadRequest, unsupported.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res.AlreadyIngested {
		writeJSON(w, http.StatusOK, map[string]any{
			"already_ingested": true,
			"novel_slug":       res.NovelSlug,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, jobPayload(res.Job))
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.coord.GetJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		if errors.Is(err, ingest.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobPayload(job))
}

func (s *Server) listNovels(w http.ResponseWriter, r *http.Request) {
	opts := ingest.NovelListOptions{
		Search:    r.URL.Query().Get("search"),
		GenreSlug: r.URL.Query().Get("genre"),
		Offset:    queryInt(r, "offset", 0),
		Limit:     queryInt(r, "limit", defaultPageSize),
	}
	novels, total, err := s.library.ListNovels(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]map[string]any, 0, len(novels))
	for _, n := range novels {
		items = append(items, novelPayload(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"novels": items, "total": total})
}

func (s *Server) getNovel(w http.ResponseWriter, r *http.Request) {
	novel, err := s.library.GetNovelBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ingest.ErrNovelNotFound) {
			writeError(w, http.StatusNotFound, "novel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chapters, err := s.library.ListChapters(r.Context(), novel.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := novelPayload(novel)
	payload["chapter_count"] = len(chapters)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) listChapters(w http.ResponseWriter, r *http.Request) {
	novel, err := s.library.GetNovelBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ingest.ErrNovelNotFound) {
			writeError(w, http.StatusNotFound, "novel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chapters, err := s.library.ListChapters(r.Context(), novel.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]map[string]any, 0, len(chapters))
	for _, ch := range chapters {
		items = append(items, map[string]any{
			"number":     ch.Number,
			"title":      ch.Title,
			"word_count": ch.WordCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": items})
}

func (s *Server) getChapter(w http.ResponseWriter, r *http.Request) {
	novel, err := s.library.GetNovelBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ingest.ErrNovelNotFound) {
			writeError(w, http.StatusNotFound, "novel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		writeError(w, http.StatusBadRequest, "invalid chapter number")
		return
	}
	chapter, err := s.library.GetChapter(r.Context(), novel.ID, number)
	if err != nil {
		if errors.Is(err, ingest.ErrChapterNotFound) {
			writeError(w, http.StatusNotFound, "chapter not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"number":     chapter.Number,
		"title":      chapter.Title,
		"content":    chapter.Content,
		"word_count": chapter.WordCount,
	})
}

func (s *Server) listGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.library.ListGenres(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]map[string]any, 0, len(genres))
	for _, g := range genres {
		items = append(items, map[string]any{"name": g.Name, "slug": g.Slug})
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": items})
}

func (s *Server) getGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := s.library.GetGenreBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ingest.ErrGenreNotFound) {
			writeError(w, http.StatusNotFound, "genre not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": genre.Name, "slug": genre.Slug})
}

func jobPayload(job ingest.Job) map[string]any {
	payload := map[string]any{
		"job_id":     job.ID,
		"source_url": job.SourceURL,
		"extractor":  job.Extractor,
		"status":     string(job.Status),
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.ErrorMessage != "" {
		payload["error_message"] = job.ErrorMessage
	}
	return payload
}

func novelPayload(n ingest.Novel) map[string]any {
	genres := make([]string, 0, len(n.Genres))
	for _, g := range n.Genres {
		genres = append(genres, g.Slug)
	}
	return map[string]any{
		"title":      n.Title,
		"slug":       n.Slug,
		"synopsis":   n.Synopsis,
		"source_url": n.SourceURL,
		"status":     n.Status,
		"word_count": n.WordCount,
		"genres":     genres,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

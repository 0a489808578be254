package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/socialtracker/socialtracker/internal/ingest"
	"github.com/socialtracker/socialtracker/internal/tracker"
)

type ServerConfig struct {
	// APIToken, when set, is required as a bearer token on every /v1 route.
	APIToken     string
	MaxBodyBytes int64
}

// Server is the thin collaborator-facing surface over the ingestion pipeline
// and the store. It holds no state of its own.
type Server struct {
	store    tracker.Store
	ingestor *ingest.Ingestor
	hub      *tracker.UploadHub
	cfg      ServerConfig
	log      *logrus.Logger
}

func NewServer(store tracker.Store, ingestor *ingest.Ingestor, hub *tracker.UploadHub, cfg ServerConfig, logger *logrus.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Server{store: store, ingestor: ingestor, hub: hub, cfg: cfg, log: logger}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "ingest" && parts[2] == "scan" && r.Method == http.MethodPost:
		s.handleScan(w, r)
	case len(parts) == 2 && parts[0] == "v1" && parts[1] == "posts" && r.Method == http.MethodGet:
		s.handleListPosts(w, r)
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "posts" && parts[3] == "labels" && r.Method == http.MethodPost:
		s.handleRelabel(w, r, parts[2])
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "stats" && parts[2] == "monthly" && r.Method == http.MethodGet:
		s.handleMonthlyStats(w, r)
	case len(parts) == 2 && parts[0] == "v1" && parts[1] == "uploads" && r.Method == http.MethodGet:
		s.handleListUploads(w, r)
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "uploads" && parts[2] == "live" && r.Method == http.MethodGet:
		s.handleUploadsLive(w, r)
	case len(parts) == 2 && parts[0] == "v1" && parts[1] == "followers" && r.Method == http.MethodPut:
		s.handleSaveFollowers(w, r)
	case len(parts) == 2 && parts[0] == "v1" && parts[1] == "followers" && r.Method == http.MethodGet:
		s.handleGetFollowers(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.APIToken == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")) == s.cfg.APIToken
}

type scanRequest struct {
	Folder string `json:"folder"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Folder) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "folder is required")
		return
	}
	report, err := s.ingestor.IngestFolder(r.Context(), req.Folder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "scan_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filter := tracker.PostFilter{
		Platform: strings.TrimSpace(r.URL.Query().Get("platform")),
		Page:     strings.TrimSpace(r.URL.Query().Get("page")),
	}
	posts, err := s.store.ListPosts(r.Context(), filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

type relabelRequest struct {
	Theme    string `json:"theme"`
	Campaign string `json:"campaign"`
}

func (s *Server) handleRelabel(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid post id")
		return
	}
	var req relabelRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	if err := s.store.RelabelPost(r.Context(), id, req.Theme, req.Campaign); err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	platform := strings.TrimSpace(r.URL.Query().Get("platform"))
	stats, err := s.store.MonthlyStats(r.Context(), platform)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.store.ListUploads(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

func (s *Server) handleSaveFollowers(w http.ResponseWriter, r *http.Request) {
	var snapshot tracker.FollowerSnapshot
	if !s.decodeJSONBody(w, r, &snapshot) {
		return
	}
	if err := s.store.SaveFollowerSnapshot(r.Context(), snapshot); err != nil {
		if errors.Is(err, tracker.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "bad_request", "platform and page are required")
			return
		}
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetFollowers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	platform := strings.TrimSpace(query.Get("platform"))
	page := strings.TrimSpace(query.Get("page"))
	month := strings.TrimSpace(query.Get("month"))
	if platform == "" || page == "" || month == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "platform, page and month are required")
		return
	}
	followers, found, err := s.store.FollowerCount(r.Context(), platform, page, month)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no snapshot for that month")
		return
	}
	writeJSON(w, http.StatusOK, tracker.FollowerSnapshot{
		Platform: platform, Page: page, Month: month, Followers: followers,
	})
}

func (s *Server) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": message,
	})
}

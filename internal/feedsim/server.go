package feedsim

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
)

// Server publishes the generator's tables as feeds at
// /feeds/{dataset}.{csv|json|yaml|xlsx}.
type Server struct {
	gen   *Generator
	stats *Stats
	log   logger.Logger

	mu      sync.RWMutex
	failing map[types.DatasetID]bool
}

// NewServer creates a feed server over gen. stats may be nil.
func NewServer(gen *Generator, stats *Stats) *Server {
	if stats == nil {
		stats = &Stats{}
	}
	return &Server{
		gen:     gen,
		stats:   stats,
		log:     logger.Get().Named("feedsim"),
		failing: make(map[types.DatasetID]bool),
	}
}

// SetFailing makes requests for dataset answer 503 until cleared.
func (s *Server) SetFailing(dataset types.DatasetID, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[dataset] = on
}

func (s *Server) isFailing(dataset types.DatasetID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failing[dataset]
}

// Handler returns the routes of the simulator.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /feeds/{file}", s.handleFeed)
	mux.HandleFunc("POST /control/fail", s.handleFail)
	mux.HandleFunc("POST /control/drift", s.handleDrift)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.stats.Requests.Add(1)
	file := r.PathValue("file")
	ext := path.Ext(file)
	dataset := types.DatasetID(strings.ToLower(strings.TrimSuffix(file, ext)))

	format, err := source.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil || ext == "" {
		http.NotFound(w, r)
		return
	}
	if s.isFailing(dataset) {
		s.stats.Failures.Add(1)
		http.Error(w, "sheet unavailable", http.StatusServiceUnavailable)
		return
	}
	table, ok := s.gen.Table(dataset)
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, contentType, err := Encode(table, format)
	if err != nil {
		s.log.Error(r.Context(), "encode feed", logger.String("file", file), logger.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

// handleFail takes ?dataset=advisor&on=true.
func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	dataset, err := types.ParseDataset(r.URL.Query().Get("dataset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	on, err := strconv.ParseBool(r.URL.Query().Get("on"))
	if err != nil {
		http.Error(w, "on must be a boolean", http.StatusBadRequest)
		return
	}
	s.SetFailing(dataset, on)
	s.log.Info(r.Context(), "feed failure toggled", logger.String("dataset", string(dataset)), logger.Bool("failing", on))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	n := s.gen.Drift()
	s.stats.Drifts.Add(1)
	s.log.Debug(r.Context(), "drifted", logger.Int("updated", n))
	w.WriteHeader(http.StatusNoContent)
}

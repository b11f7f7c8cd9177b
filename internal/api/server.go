package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/pipeline"
)

// formOverhead is added to upload limits for multipart boundaries and fields.
const formOverhead = 1 << 20

// maxRankFiles bounds how many documents one ranking request may carry.
const maxRankFiles = 10

// Server exposes outline extraction and ranking jobs over HTTP.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	embedStats   *embed.Stats
	embedVersion string
	log          *slog.Logger
	cfg          config.Config
}

// NewServer wires routes for orch. stats may be nil when the encoder is not
// instrumented.
func NewServer(orch *pipeline.Orchestrator, enc embed.Encoder, stats *embed.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		embedStats:   stats,
		log:          log,
		cfg:          cfg,
	}
	if enc != nil {
		s.embedVersion = enc.Version()
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.With(MaxBody(s.cfg.MaxUploadBytes+formOverhead)).Post("/outline", s.handleOutline)
		r.With(MaxBody(s.cfg.MaxUploadBytes*maxRankFiles+formOverhead)).Post("/rank", s.handleRank)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/stats/embed", s.handleEmbedStats)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"encoder":     s.embedVersion,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/husen-82/android-stt-ver2.0/internal/audio"
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"github.com/husen-82/android-stt-ver2.0/internal/config"
	"github.com/husen-82/android-stt-ver2.0/internal/metrics"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transcriber is the slice of the orchestrator the HTTP layer needs.
type Transcriber interface {
	TranscribeLong(ctx context.Context, buf []byte, format audio.Format, opts transcriber.Options) (*transcriber.ChunkedResult, error)
	IsInitialized() bool
}

type Server struct {
	server    *http.Server
	cfg       *config.Config
	orch      Transcriber
	authMgr   internalauth.Manager
	limiter   *ratelimit.Limiter
	validator *audio.Validator
	metrics   *metrics.Metrics
	startTime time.Time
}

func NewServer(
	cfg *config.Config,
	orch Transcriber,
	authMgr internalauth.Manager,
	limiter *ratelimit.Limiter,
	validator *audio.Validator,
	m *metrics.Metrics,
) *Server {
	s := &Server{
		cfg:       cfg,
		orch:      orch,
		authMgr:   authMgr,
		limiter:   limiter,
		validator: validator,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTPAddress, cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  time.Minute,
	}
	return s
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/transcribe", s.withMetrics("/v1/transcribe", s.handleTranscribe))
	mux.HandleFunc("/v1/formats", s.withMetrics("/v1/formats", s.handleFormats))
	mux.HandleFunc("/healthz", s.withMetrics("/healthz", s.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		handler(ww, r)
		s.metrics.HTTPRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(ww.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) Start() error {
	slog.Info("http server listening", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

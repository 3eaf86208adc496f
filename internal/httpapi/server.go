package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/apistatus/internal/httpapi/middleware"
)

type Server struct {
	Logger        *zap.Logger
	StartedAt     time.Time
	AllowedOrigin string
}

func NewServer(l *zap.Logger, allowedOrigin string) *Server {
	return &Server{Logger: l, StartedAt: time.Now(), AllowedOrigin: allowedOrigin}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.RequestLog(s.Logger))
	r.Use(chimw.Recoverer)
	r.Use(apimw.OriginGuard(s.AllowedOrigin))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	return r
}

type healthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"` // seconds since start
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status: "OK",
		Uptime: time.Since(s.StartedAt).Seconds(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Monitor API running"))
}

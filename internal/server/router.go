// Package server implements the HTTP server and routing logic.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/server/handlers"
	"github.com/maruel/memoir/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router serving the JSON API at /api/.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Limiters) http.Handler {
	mux := &http.ServeMux{}
	hh := handlers.NewHealthHandler(svc, cfg.Version)
	ah := handlers.NewAuthHandler(svc, cfg)
	nh := handlers.NewNoteHandler(svc)
	ih := handlers.NewImportHandler(svc, cfg)
	sh := handlers.NewSchemaHandler(svc)

	// Health check
	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limiters))

	// Auth endpoints
	mux.Handle("POST /api/auth/login", Wrap(ah.Login, cfg, limiters))
	mux.Handle("POST /api/auth/register", Wrap(ah.Register, cfg, limiters))
	mux.Handle("POST /api/auth/logout", WrapAuth(ah.Logout, svc, cfg, limiters))
	mux.Handle("GET /api/auth/me", WrapAuth(ah.Me, svc, cfg, limiters))

	// Notes endpoints
	mux.Handle("GET /api/notes", WrapAuth(nh.ListNotes, svc, cfg, limiters))
	mux.Handle("POST /api/notes", WrapAuth(nh.CreateNote, svc, cfg, limiters))
	mux.Handle("POST /api/notes/import", WrapAuthRaw(ih.ImportNote, svc, cfg, limiters))
	mux.Handle("GET /api/notes/{id}", WrapAuth(nh.GetNote, svc, cfg, limiters))
	mux.Handle("POST /api/notes/{id}", WrapAuth(nh.UpdateNote, svc, cfg, limiters))
	mux.Handle("DELETE /api/notes/{id}", WrapAuth(nh.DeleteNote, svc, cfg, limiters))

	// Schema endpoint
	mux.Handle("GET /api/schema/{kind}", WrapAuth(sh.GetSchema, svc, cfg, limiters))

	// Everything else under /api is a JSON 404.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, dto.NotFound("endpoint "+r.Method+" "+r.URL.Path))
	})
	return logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// logRequests logs every request at debug level with its status and duration.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.DebugContext(r.Context(), "http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", time.Since(start).Round(time.Microsecond))
	})
}

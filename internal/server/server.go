// Package server exposes the loaded dataset and its derived views over HTTP
// for the dashboard front end.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/fetcher"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/ranking"
	"github.com/sells-group/exoplanet-cli/internal/store"
)

// DefaultAllowedOrigins admits dashboards served from the local machine.
var DefaultAllowedOrigins = []string{
	"http://localhost", "http://localhost:*",
	"http://127.0.0.1", "http://127.0.0.1:*",
}

// maxUpload bounds POST /datasets bodies.
const maxUpload = 256 << 20

// Deps are the collaborators a Server needs. Session and Store are required.
type Deps struct {
	Session *dataset.Session
	Store   store.Store
	Loader  *fetcher.Loader

	// APIDefaults is used until settings are saved in the store.
	APIDefaults model.APISettings
	// NewClient builds the prediction client. Nil means api.NewClient.
	NewClient func(model.APISettings) api.Client

	// Ranking holds defaults for GET /features.
	Ranking        ranking.Request
	AllowedOrigins []string
}

// Server serves the dataset API.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.NewClient == nil {
		deps.NewClient = func(s model.APISettings) api.Client { return api.NewClient(s) }
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = DefaultAllowedOrigins
	}
	return &Server{deps: deps}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.originGuard)

	r.Get("/health", s.handleHealth)

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", s.handleLoadDataset)
		r.Post("/remote", s.handleLoadRemote)
		r.Get("/current", s.handleCurrent)
	})

	r.Get("/rows", s.handleRows)
	r.Get("/earth-like", s.handleEarthLike)
	r.Get("/features", s.handleFeatures)
	r.Get("/summary", s.handleSummary)
	r.Get("/columns", s.handleColumns)
	r.Get("/correlation", s.handleCorrelation)
	r.Get("/export.csv", s.handleExport)

	r.Route("/charts", func(r chi.Router) {
		r.Get("/years", s.handleYears)
		r.Get("/grid", s.handleGrid)
		r.Get("/dispositions", s.handleDispositions)
	})

	r.Post("/predict", s.handlePredict)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Get("/loads", s.handleLoads)

	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// originGuard rejects writes whose Origin header is outside AllowedOrigins.
// Requests without an Origin header, such as the CLI or curl, pass.
func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if o := r.Header.Get("Origin"); o != "" && !originAllowed(s.deps.AllowedOrigins, o) {
				writeError(w, r, &httpError{status: http.StatusForbidden, err: eris.Errorf("origin %q not allowed", o)})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed matches origin against patterns that are "*", an exact
// origin, or an origin with a single "*" wildcard.
func originAllowed(patterns []string, origin string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		if i := strings.IndexByte(p, '*'); i >= 0 {
			prefix, suffix := p[:i], p[i+1:]
			if len(origin) >= len(prefix)+len(suffix) && strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

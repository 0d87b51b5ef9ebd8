// Package httpapi serves the catalog as a small JSON API next to the gRPC
// service, plus health and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Keksclan/gamecatalog/catalog"
	"github.com/Keksclan/gamecatalog/contextx"
	"github.com/Keksclan/gamecatalog/rawg"
)

// Catalog is the part of [catalog.Service] the API serves.
type Catalog interface {
	Categories() []string
	Genres() []string
	Aggregate(ctx context.Context, genres []string) (map[string][]rawg.GameSummary, error)
	Search(ctx context.Context, term string) ([]rawg.GameSummary, error)
	GetDetails(ctx context.Context, id int) (*catalog.GameDetail, error)
}

// Category is one carousel in the /v1/categories response.
type Category struct {
	Name  string             `json:"name"`
	Games []rawg.GameSummary `json:"games"`
}

type errorBody struct {
	Error string `json:"error"`
}

type server struct {
	c Catalog
}

// New returns the HTTP handler. metrics is mounted at /metrics. Every request
// gets an access log line and a request id echoed in X-Request-Id.
func New(c Catalog, metrics http.Handler, log zerolog.Logger) http.Handler {
	s := &server{c: c}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("http")
	}))
	r.Use(requestIDToContext)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("write health response")
		}
	})
	r.Handle("/metrics", metrics)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/categories", s.handleCategories)
		v1.Get("/genres", s.handleGenres)
		v1.Get("/search", s.handleSearch)
		v1.Get("/games/{id}", s.handleGame)
	})

	return otelhttp.NewHandler(r, "gamecatalog.http",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		}))
}

// requestIDToContext copies the hlog request id into the context key the
// catalog packages read.
func requestIDToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := hlog.IDFromRequest(r); ok {
			r = r.WithContext(contextx.WithRequestID(r.Context(), id.String()))
		}
		next.ServeHTTP(w, r)
	})
}

func withRefresh(r *http.Request) context.Context {
	ctx := r.Context()
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		ctx = contextx.WithCacheBypass(ctx)
	}
	return ctx
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	var genres []string
	if raw := r.URL.Query().Get("genres"); raw != "" {
		genres = strings.Split(raw, ",")
	}

	byName, err := s.c.Aggregate(withRefresh(r), genres)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]Category, 0, len(byName))
	for _, name := range s.c.Categories() {
		if games, ok := byName[name]; ok {
			out = append(out, Category{Name: name, Games: games})
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *server) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.c.Genres())
}

// handleSearch never fails the request: any error renders as no results.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	games, err := s.c.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("term", r.URL.Query().Get("q")).Msg("search failed")
		games = []rawg.GameSummary{}
	}
	writeJSON(w, r, http.StatusOK, games)
}

func (s *server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "game id must be a positive integer"})
		return
	}
	d, err := s.c.GetDetails(withRefresh(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, catalog.ErrInvalidRequest), errors.Is(err, rawg.ErrInvalidFilter):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrDetailUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		return
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	ev := hlog.FromRequest(r).Warn()
	if status >= 500 {
		ev = hlog.FromRequest(r).Error()
	}
	ev.Err(err).Int("status", status).Msg("catalog request failed")
	writeJSON(w, r, status, errorBody{Error: http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("write response")
	}
}

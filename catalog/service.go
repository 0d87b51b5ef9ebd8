// Package catalog assembles the catalog view-models on top of the cached
// request path: categorized carousels, search results and enriched game
// details.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Keksclan/gamecatalog/clock"
	"github.com/Keksclan/gamecatalog/metrics"
	"github.com/Keksclan/gamecatalog/rawg"
)

// DefaultSearchPageSize is the number of results a search returns.
const DefaultSearchPageSize = 20

var (
	// ErrInvalidRequest marks input the service refuses before any network
	// call: unknown categories, malformed genres, bad ids.
	ErrInvalidRequest = errors.New("catalog: invalid request")

	// ErrDetailUnavailable is returned when any part of a game detail could
	// not be fetched. No partial detail is ever returned.
	ErrDetailUnavailable = errors.New("catalog: game detail unavailable")
)

// Service produces catalog views from a [rawg.Requester], normally a
// [Fetcher].
type Service struct {
	api            *rawg.API
	log            zerolog.Logger
	clock          clock.Clock
	categories     []string
	searchPageSize int
	tracer         trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock sets the clock category date windows are computed from.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithCategories selects which categories Aggregate builds, in order.
func WithCategories(names ...string) Option {
	return func(s *Service) {
		if len(names) > 0 {
			s.categories = names
		}
	}
}

func WithSearchPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.searchPageSize = n
		}
	}
}

// NewService creates a Service reading through r. It fails when the
// configured categories are unknown.
func NewService(r rawg.Requester, opts ...Option) (*Service, error) {
	s := &Service{
		api:            rawg.NewAPI(r),
		log:            zerolog.Nop(),
		clock:          clock.Real{},
		categories:     DefaultCategories,
		searchPageSize: DefaultSearchPageSize,
		tracer:         otel.Tracer("github.com/Keksclan/gamecatalog/catalog"),
	}
	for _, o := range opts {
		o(s)
	}
	if _, err := BuildCategories(s.clock.Now(), nil, s.categories...); err != nil {
		return nil, err
	}
	if s.searchPageSize > rawg.MaxPageSize {
		s.searchPageSize = rawg.MaxPageSize
	}
	return s, nil
}

// Categories returns the category names Aggregate produces, in display order.
func (s *Service) Categories() []string {
	return append([]string(nil), s.categories...)
}

// Genres returns the genre slugs a client should offer as filters.
func (s *Service) Genres() []string {
	return append([]string(nil), knownGenres...)
}

// Aggregate runs every configured category query concurrently and returns
// the results keyed by category name. A category whose query fails is logged
// and returned as an empty list; the call itself only fails for invalid
// input. It returns once every category has settled.
func (s *Service) Aggregate(ctx context.Context, genres []string) (map[string][]rawg.GameSummary, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Aggregate")
	defer span.End()
	defer func(start time.Time) {
		metrics.AggregateDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	genres, err := normalizeGenres(genres)
	if err != nil {
		return nil, err
	}
	specs, err := BuildCategories(s.clock.Now(), genres, s.categories...)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.StringSlice("catalog.genres", genres),
		attribute.Int("catalog.categories", len(specs)),
	)

	results := make([][]rawg.GameSummary, len(specs))
	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			games, err := s.api.ListGames(ctx, spec.Filter)
			if err != nil {
				s.log.Warn().Err(err).Str("category", spec.Name).Msg("category query failed")
				metrics.CategoryFailures.WithLabelValues(spec.Name).Inc()
				games = []rawg.GameSummary{}
			}
			results[i] = games
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]rawg.GameSummary, len(specs))
	for i, spec := range specs {
		out[spec.Name] = results[i]
	}
	return out, nil
}

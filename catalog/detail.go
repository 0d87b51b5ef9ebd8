package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Keksclan/gamecatalog/rawg"
)

// storeLookups caps concurrent /stores/{id} requests per detail.
const storeLookups = 8

// StoreRef is a store listing enriched with its storefront. Resolved is false
// when the storefront lookup failed and only the listing is known.
type StoreRef struct {
	StoreID     int    `json:"store_id"`
	DisplayName string `json:"name,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	Domain      string `json:"domain,omitempty"`
	URL         string `json:"url"`
	Resolved    bool   `json:"resolved"`
}

// GameDetail is the composed detail view of one game.
type GameDetail struct {
	rawg.GameSummary
	Description string     `json:"description"`
	TrailerURL  *string    `json:"trailer_url"`
	Stores      []StoreRef `json:"stores"`
}

// GetDetails fetches a game, its trailers and its store listings
// concurrently, then resolves every listing to its storefront. If any of the
// three base requests fails the detail is absent: GetDetails returns nil and
// an error wrapping ErrDetailUnavailable. A single storefront lookup failing
// only degrades that store to an unresolved StoreRef.
func (s *Service) GetDetails(ctx context.Context, id int) (*GameDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: game id %d", ErrInvalidRequest, id)
	}
	ctx, span := s.tracer.Start(ctx, "catalog.GetDetails")
	defer span.End()
	span.SetAttributes(attribute.Int("catalog.game_id", id))

	var (
		game     *rawg.Game
		movies   []rawg.Movie
		listings []rawg.StoreListing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		game, err = s.api.Game(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		movies, err = s.api.Movies(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		listings, err = s.api.GameStores(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Int("game_id", id).Msg("game detail unavailable")
		span.RecordError(err)
		return nil, fmt.Errorf("%w: game %d: %w", ErrDetailUnavailable, id, err)
	}

	return &GameDetail{
		GameSummary: game.GameSummary,
		Description: game.Description,
		TrailerURL:  trailerURL(movies),
		Stores:      s.resolveStores(ctx, listings),
	}, nil
}

// trailerURL picks the first trailer, preferring its highest quality.
func trailerURL(movies []rawg.Movie) *string {
	if len(movies) == 0 {
		return nil
	}
	u := movies[0].Data.Max
	if u == "" {
		u = movies[0].Data.Q480
	}
	if u == "" {
		return nil
	}
	return &u
}

func (s *Service) resolveStores(ctx context.Context, listings []rawg.StoreListing) []StoreRef {
	refs := make([]StoreRef, len(listings))
	var g errgroup.Group
	g.SetLimit(storeLookups)
	for i, l := range listings {
		g.Go(func() error {
			ref := StoreRef{StoreID: l.StoreID, URL: l.URL}
			store, err := s.api.Store(ctx, l.StoreID)
			if err != nil {
				s.log.Debug().Err(err).Int("store_id", l.StoreID).Msg("store lookup failed")
			} else {
				ref.DisplayName = store.Name
				ref.IconURL = store.ImageBackground
				ref.Domain = store.Domain
				ref.Resolved = true
			}
			refs[i] = ref
			return nil
		})
	}
	_ = g.Wait()
	return refs
}

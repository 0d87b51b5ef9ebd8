package rawg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Requester performs a GET of endpoint and returns the raw response body.
// [*Client] implements it, as does any cache sitting in front of a Client.
type Requester interface {
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// API decodes typed resources from a Requester.
type API struct {
	r Requester
}

func NewAPI(r Requester) *API {
	return &API{r: r}
}

// ListGames returns the first page of games matching f. A valid response
// with no results yields an empty, non-nil slice.
func (a *API) ListGames(ctx context.Context, f QueryFilter) ([]GameSummary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var page Page[GameSummary]
	if err := a.getJSON(ctx, "/games", f.Values(), &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []GameSummary{}
	}
	return page.Results, nil
}

// Game returns the full record of one game.
func (a *API) Game(ctx context.Context, id int) (*Game, error) {
	var g Game
	if err := a.getJSON(ctx, "/games/"+strconv.Itoa(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Movies returns the trailers of a game, best first as ordered by the API.
func (a *API) Movies(ctx context.Context, id int) ([]Movie, error) {
	var page Page[Movie]
	if err := a.getJSON(ctx, "/games/"+strconv.Itoa(id)+"/movies", nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// GameStores returns the store listings of a game.
func (a *API) GameStores(ctx context.Context, id int) ([]StoreListing, error) {
	var page Page[StoreListing]
	if err := a.getJSON(ctx, "/games/"+strconv.Itoa(id)+"/stores", nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Store returns one storefront.
func (a *API) Store(ctx context.Context, storeID int) (*Store, error) {
	var s Store
	if err := a.getJSON(ctx, "/stores/"+strconv.Itoa(storeID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *API) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := a.r.Get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("rawg: decode %s: %w", endpoint, err)
	}
	return nil
}

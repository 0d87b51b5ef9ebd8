package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keksclan/gamecatalog/catalog"
	"github.com/Keksclan/gamecatalog/contextx"
	"github.com/Keksclan/gamecatalog/rawg"
)

type fakeCatalog struct {
	genres    []string
	bypass    bool
	searchErr error
}

func (f *fakeCatalog) Categories() []string {
	return []string{catalog.Popular, catalog.Upcoming, catalog.AAA}
}

func (f *fakeCatalog) Genres() []string { return []string{"action", "rpg"} }

func (f *fakeCatalog) Aggregate(ctx context.Context, genres []string) (map[string][]rawg.GameSummary, error) {
	f.genres = genres
	f.bypass = contextx.CacheBypass(ctx)
	if len(genres) == 1 && genres[0] == "bad genre" {
		return nil, fmt.Errorf("%w: genre %q", catalog.ErrInvalidRequest, genres[0])
	}
	return map[string][]rawg.GameSummary{
		catalog.AAA:      {},
		catalog.Popular:  {{ID: 1, Name: "Hit"}},
		catalog.Upcoming: {{ID: 2, Name: "Soon"}},
	}, nil
}

func (f *fakeCatalog) Search(_ context.Context, term string) ([]rawg.GameSummary, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []rawg.GameSummary{{ID: 3, Name: term}}, nil
}

func (f *fakeCatalog) GetDetails(ctx context.Context, id int) (*catalog.GameDetail, error) {
	f.bypass = contextx.CacheBypass(ctx)
	if id == 404 {
		return nil, fmt.Errorf("%w: game %d", catalog.ErrDetailUnavailable, id)
	}
	return &catalog.GameDetail{GameSummary: rawg.GameSummary{ID: id, Name: "Detail"}, Description: "<p>hi</p>"}, nil
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, New(&fakeCatalog{}, promhttp.Handler(), zerolog.Nop()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetrics(t *testing.T) {
	rec := get(t, New(&fakeCatalog{}, promhttp.Handler(), zerolog.Nop()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetrics_ServesInjectedHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gamecatalog_up 1\n"))
	})
	rec := get(t, New(&fakeCatalog{}, metrics, zerolog.Nop()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gamecatalog_up 1\n", rec.Body.String())
}

func TestGenres(t *testing.T) {
	rec := get(t, New(&fakeCatalog{}, promhttp.Handler(), zerolog.Nop()), "/v1/genres")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["action","rpg"]`, rec.Body.String())
}

func TestCategories_OrderedWithGenres(t *testing.T) {
	fc := &fakeCatalog{}
	rec := get(t, New(fc, promhttp.Handler(), zerolog.Nop()), "/v1/categories?genres=action,rpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var cats []Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	require.Len(t, cats, 3)
	assert.Equal(t, catalog.Popular, cats[0].Name)
	assert.Equal(t, catalog.Upcoming, cats[1].Name)
	assert.Equal(t, catalog.AAA, cats[2].Name)
	assert.NotNil(t, cats[2].Games)
	assert.Empty(t, cats[2].Games)
	assert.Equal(t, []string{"action", "rpg"}, fc.genres)
	assert.False(t, fc.bypass)
}

func TestCategories_Refresh(t *testing.T) {
	fc := &fakeCatalog{}
	rec := get(t, New(fc, promhttp.Handler(), zerolog.Nop()), "/v1/categories?refresh=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fc.bypass)
	assert.Nil(t, fc.genres)
}

func TestCategories_InvalidGenreIsBadRequest(t *testing.T) {
	rec := get(t, New(&fakeCatalog{}, promhttp.Handler(), zerolog.Nop()), "/v1/categories?genres=bad%20genre")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	rec := get(t, New(&fakeCatalog{}, promhttp.Handler(), zerolog.Nop()), "/v1/search?q=hades")
	require.Equal(t, http.StatusOK, rec.Code)

	var games []rawg.GameSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &games))
	require.Len(t, games, 1)
	assert.Equal(t, "hades", games[0].Name)
}

func TestSearch_FailureRendersNoResults(t *testing.T) {
	fc := &fakeCatalog{searchErr: &rawg.TransportError{Endpoint: "/games", StatusCode: 502}}
	rec := get(t, New(fc, promhttp.Handler(), zerolog.Nop()), "/v1/search?q=hades")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGame(t *testing.T) {
	fc := &fakeCatalog{}
	rec := get(t, New(fc, promhttp.Handler(), zerolog.Nop()), "/v1/games/3498?refresh=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var d catalog.GameDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 3498, d.ID)
	assert.Equal(t, "<p>hi</p>", d.Description)
	assert.True(t, fc.bypass)
}

func TestGame_Errors(t *testing.T) {
	h := New(&fakeCatalog{}, promhttp.Handler(), zerolog.Nop())
	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/games/404").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/games/abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/games/-1").Code)
}

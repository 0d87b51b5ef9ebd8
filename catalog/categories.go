package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Keksclan/gamecatalog/rawg"
)

// Category names.
const (
	Popular   = "popular"
	Upcoming  = "upcoming"
	AAA       = "aaa"
	Cracked   = "cracked"
	Uncracked = "uncracked"
	Indie     = "indie"
)

// categoryPageSize is the carousel length of every category.
const categoryPageSize = 15

// DefaultCategories is the set aggregated when none is configured.
var DefaultCategories = []string{Popular, Upcoming, AAA, Cracked, Uncracked}

// knownGenres lists the genre slugs offered as filters. Other slugs are still
// accepted and passed to the API as is.
var knownGenres = []string{
	"action", "adventure", "rpg", "simulation", "strategy",
	"sports", "racing", "puzzle", "party", "fighting",
	"horror", "sandbox", "survival", "idle", "educational",
	"rhythm", "board", "trivia", "vr", "mmo",
}

// CategorySpec is one named query of an aggregation.
type CategorySpec struct {
	Name   string
	Filter rawg.QueryFilter
}

// crackedEpoch is the earliest release date considered by the cracked window.
var crackedEpoch = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// BuildCategories derives the category queries for now and genres. With no
// names the DefaultCategories are built, in that order.
//
// cracked and uncracked are release-date heuristics. Titles older than six
// months are labeled cracked, titles newer than that uncracked. Neither looks
// at actual crack status.
func BuildCategories(now time.Time, genres []string, names ...string) ([]CategorySpec, error) {
	if len(names) == 0 {
		names = DefaultCategories
	}
	today := now.UTC().Truncate(24 * time.Hour)
	sixMonthsAgo := today.AddDate(0, -6, 0)
	nextYear := today.AddDate(1, 0, 0)

	specs := make([]CategorySpec, 0, len(names))
	for _, name := range names {
		var f rawg.QueryFilter
		switch name {
		case Popular:
			f = rawg.QueryFilter{Ordering: "-rating", Metacritic: &rawg.ScoreRange{Min: 80, Max: 100}}
		case Upcoming:
			f = rawg.QueryFilter{Ordering: "-added", Dates: &rawg.DateRange{From: today, To: nextYear}}
		case AAA:
			f = rawg.QueryFilter{
				Tags:             []string{"aaa"},
				Ordering:         "-added",
				Metacritic:       &rawg.ScoreRange{Min: 60, Max: 100},
				ExcludeAdditions: true,
			}
		case Cracked:
			f = rawg.QueryFilter{
				Ordering:   "-rating",
				Dates:      &rawg.DateRange{From: crackedEpoch, To: sixMonthsAgo},
				Metacritic: &rawg.ScoreRange{Min: 75, Max: 100},
			}
		case Uncracked:
			f = rawg.QueryFilter{
				Ordering:   "-released",
				Dates:      &rawg.DateRange{From: sixMonthsAgo, To: nextYear},
				Platforms:  []int{187, 186},
				Metacritic: &rawg.ScoreRange{Min: 75, Max: 100},
			}
		case Indie:
			f = rawg.QueryFilter{Tags: []string{"indie"}, Ordering: "-rating"}
		default:
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, name)
		}
		f.PageSize = categoryPageSize
		f.Genres = slices.Clone(genres)
		specs = append(specs, CategorySpec{Name: name, Filter: f})
	}
	return specs, nil
}

// normalizeGenres lowercases and trims slugs, drops empties and duplicates,
// and rejects anything that is not a plain slug.
func normalizeGenres(genres []string) ([]string, error) {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || slices.Contains(out, g) {
			continue
		}
		for _, r := range g {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return nil, fmt.Errorf("%w: malformed genre %q", ErrInvalidRequest, g)
			}
		}
		out = append(out, g)
	}
	return out, nil
}

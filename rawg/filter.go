package rawg

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format the API expects.
const DateLayout = "2006-01-02"

// MaxPageSize is the largest page the API serves.
const MaxPageSize = 40

// ErrInvalidFilter is wrapped by every [QueryFilter.Validate] failure.
var ErrInvalidFilter = errors.New("rawg: invalid filter")

var orderingFields = []string{"name", "released", "added", "created", "updated", "rating", "metacritic"}

// DateRange is an inclusive release-date window, rendered in UTC.
type DateRange struct {
	From, To time.Time
}

func (d DateRange) String() string {
	return d.From.UTC().Format(DateLayout) + "," + d.To.UTC().Format(DateLayout)
}

// ScoreRange is an inclusive metacritic window.
type ScoreRange struct {
	Min, Max int
}

func (s ScoreRange) String() string {
	return strconv.Itoa(s.Min) + "," + strconv.Itoa(s.Max)
}

// QueryFilter is the closed set of /games list filters. Zero-valued fields are
// omitted from the request.
type QueryFilter struct {
	Search           string
	Genres           []string
	Tags             []string
	Dates            *DateRange
	Platforms        []int
	Metacritic       *ScoreRange
	Ordering         string
	PageSize         int
	ExcludeAdditions bool
	ExcludeParents   bool
}

// Validate rejects filters the API would refuse or silently misread.
func (f QueryFilter) Validate() error {
	if f.PageSize < 0 || f.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page size %d outside 0..%d", ErrInvalidFilter, f.PageSize, MaxPageSize)
	}
	if m := f.Metacritic; m != nil {
		if m.Min < 0 || m.Max > 100 || m.Min > m.Max {
			return fmt.Errorf("%w: metacritic range %s", ErrInvalidFilter, m)
		}
	}
	if d := f.Dates; d != nil && d.From.After(d.To) {
		return fmt.Errorf("%w: date range %s is reversed", ErrInvalidFilter, d)
	}
	if f.Ordering != "" && !slices.Contains(orderingFields, strings.TrimPrefix(f.Ordering, "-")) {
		return fmt.Errorf("%w: unknown ordering %q", ErrInvalidFilter, f.Ordering)
	}
	return nil
}

// Values renders the filter as query parameters. Multi-valued filters are
// comma-joined.
func (f QueryFilter) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("search", s)
	}
	if len(f.Genres) > 0 {
		v.Set("genres", strings.Join(f.Genres, ","))
	}
	if len(f.Tags) > 0 {
		v.Set("tags", strings.Join(f.Tags, ","))
	}
	if f.Dates != nil {
		v.Set("dates", f.Dates.String())
	}
	if len(f.Platforms) > 0 {
		ids := make([]string, len(f.Platforms))
		for i, p := range f.Platforms {
			ids[i] = strconv.Itoa(p)
		}
		v.Set("platforms", strings.Join(ids, ","))
	}
	if f.Metacritic != nil {
		v.Set("metacritic", f.Metacritic.String())
	}
	if f.Ordering != "" {
		v.Set("ordering", f.Ordering)
	}
	if f.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.ExcludeAdditions {
		v.Set("exclude_additions", "true")
	}
	if f.ExcludeParents {
		v.Set("exclude_parents", "true")
	}
	return v
}

package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Keksclan/gamecatalog/rawg"
)

// Debouncer defaults.
const (
	DefaultDebounceDelay = 300 * time.Millisecond
	DefaultMinTermLength = 2
)

// Search returns games matching term. A blank term yields an empty result
// without any network call.
func (s *Service) Search(ctx context.Context, term string) ([]rawg.GameSummary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []rawg.GameSummary{}, nil
	}
	ctx, span := s.tracer.Start(ctx, "catalog.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("catalog.term_length", len(term)))

	games, err := s.api.ListGames(ctx, rawg.QueryFilter{Search: term, PageSize: s.searchPageSize})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return games, nil
}

// Searcher is what a Debouncer drives; *Service implements it.
type Searcher interface {
	Search(ctx context.Context, term string) ([]rawg.GameSummary, error)
}

// SearchResult is delivered to a Debouncer's callback. Games is never nil;
// it is empty when the term was too short or the search failed (Err set).
type SearchResult struct {
	Term  string
	Games []rawg.GameSummary
	Err   error
}

// Debouncer turns a stream of keystroke-level inputs into searches. A search
// starts only once the input has been stable for the configured delay, and a
// newer input cancels both the pending timer and any running search for an
// older term, so only the latest term ever reports a result.
type Debouncer struct {
	searcher Searcher
	delay    time.Duration
	minLen   int
	onResult func(SearchResult)

	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

// NewDebouncer creates a Debouncer. Non-positive delay or minLen fall back to
// DefaultDebounceDelay and DefaultMinTermLength.
func NewDebouncer(searcher Searcher, delay time.Duration, minLen int, onResult func(SearchResult)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	if minLen <= 0 {
		minLen = DefaultMinTermLength
	}
	base, stop := context.WithCancel(context.Background())
	return &Debouncer{
		searcher: searcher,
		delay:    delay,
		minLen:   minLen,
		onResult: onResult,
		base:     base,
		stop:     stop,
	}
}

// Input records the latest term. Terms shorter than the minimum length
// report an empty result right away and issue no search.
func (d *Debouncer) Input(term string) {
	term = strings.TrimSpace(term)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.seq++
	seq := d.seq
	d.resetLocked()

	if utf8.RuneCountInString(term) < d.minLen {
		d.mu.Unlock()
		d.onResult(SearchResult{Term: term, Games: []rawg.GameSummary{}})
		return
	}

	ctx, cancel := context.WithCancel(d.base)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() { d.run(ctx, seq, term) })
	d.mu.Unlock()
}

func (d *Debouncer) run(ctx context.Context, seq uint64, term string) {
	games, err := d.searcher.Search(ctx, term)

	d.mu.Lock()
	current := seq == d.seq && !d.closed
	d.mu.Unlock()
	if !current || ctx.Err() != nil {
		return
	}
	if err != nil || games == nil {
		games = []rawg.GameSummary{}
	}
	d.onResult(SearchResult{Term: term, Games: games, Err: err})
}

// resetLocked stops the pending timer and cancels the running search. d.mu
// must be held.
func (d *Debouncer) resetLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Close stops the Debouncer. Pending and running searches are abandoned and
// later inputs are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.resetLocked()
	d.stop()
}

package cache

import (
	"bytes"
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/Keksclan/gamecatalog/metrics"
)

// Deduplicator collapses concurrent calls for the same key into one. The zero
// value is ready to use.
type Deduplicator struct {
	g singleflight.Group
}

// Do runs producer for key unless a call for key is already pending, in which
// case the caller waits for that call and receives its result. Every waiter
// observes the same outcome; the pending entry is dropped as soon as the call
// settles, successful or not.
//
// producer runs detached from the caller's cancellation so that one caller
// going away does not fail the shared call for the others. ctx still bounds
// how long this caller waits.
func (d *Deduplicator) Do(ctx context.Context, key string, producer func(context.Context) ([]byte, error)) (val []byte, shared bool, err error) {
	detached := context.WithoutCancel(ctx)
	ch := d.g.DoChan(key, func() (any, error) {
		return producer(detached)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.InFlightCoalesced.Inc()
		}
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		b, _ := res.Val.([]byte)
		return bytes.Clone(b), res.Shared, nil
	}
}

package lib

import (
	"context"
	"reflect"
	"time"
)

// Watch polls query on the given interval and emits a snapshot whenever the
// result changes, starting with one immediate emission. It stands in for a
// subscribe-to-changes storage API: UI-facing callers consume the channel,
// the ingestion pipeline never does. The channel closes when ctx is done.
func Watch[T any](ctx context.Context, interval time.Duration, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last T
		var emitted bool
		poll := func() {
			snapshot, err := query(ctx)
			if err != nil {
				return
			}
			if emitted && reflect.DeepEqual(snapshot, last) {
				return
			}
			select {
			case out <- snapshot:
				last = snapshot
				emitted = true
			case <-ctx.Done():
			}
		}

		poll()
		for {
			select {
			case <-ticker.C:
				poll()
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

package poller

import (
	"context"
	"time"
)

type event interface {
	timestamp() time.Time
}

type pollWakeup struct{ at time.Time }

func (e pollWakeup) timestamp() time.Time { return e.at }

type sweepWakeup struct{ at time.Time }

func (e sweepWakeup) timestamp() time.Time { return e.at }

type alarmClock struct {
	cancel      context.CancelFunc
	pollTicker  *time.Ticker
	sweepTicker *time.Ticker
	C           chan event
}

func newAlarmClock(pollInterval, sweepInterval time.Duration) *alarmClock {
	return &alarmClock{
		pollTicker:  time.NewTicker(pollInterval),
		sweepTicker: time.NewTicker(sweepInterval),
		C:           make(chan event),
	}
}

func (a *alarmClock) Start(ctx context.Context) <-chan event {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.C)

		// First cycle fires immediately on startup.
		select {
		case a.C <- pollWakeup{time.Now().UTC()}:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case t := <-a.pollTicker.C:
				a.C <- pollWakeup{t.UTC()}
			case t := <-a.sweepTicker.C:
				a.C <- sweepWakeup{t.UTC()}
			case <-ctx.Done():
				return
			}
		}
	}()

	return a.C
}

func (a *alarmClock) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.pollTicker.Stop()
	a.sweepTicker.Stop()
}

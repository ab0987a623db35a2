// Package poller runs the ingestion cycle: fetch the configured subreddit
// feeds, ingest new posts into the shared store, and fan notifications out
// to subscribed users.
package poller

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lofwen/reddalert/config"
	"github.com/lofwen/reddalert/lib/models"
	"github.com/lofwen/reddalert/push"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewPoller(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, transport http.RoundTripper, dispatcher *push.Dispatcher) *Poller {
	pollInterval := time.Duration(cfg.PollIntervalMins) * time.Minute
	sweepInterval := 24 * time.Hour
	fetchTimeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second

	poller := &Poller{
		cfg:        cfg,
		log:        log,
		db:         db,
		dispatcher: dispatcher,
		fetcher: &Fetcher{
			log:       log,
			transport: transport,
			baseURL:   cfg.FeedBaseURL,
			timeout:   fetchTimeout,
		},
		alarm: newAlarmClock(pollInterval, sweepInterval),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go poller.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop poller")
			poller.Stop()
			return nil
		},
	})

	return poller
}

type Poller struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	dispatcher *push.Dispatcher
	fetcher    *Fetcher

	mu    sync.Mutex
	alarm *alarmClock
}

func (p *Poller) Start(ctx context.Context) {
	for evt := range p.alarm.Start(ctx) {
		p.handleEvent(evt)
	}
	p.log.Sugar().Info("Poller stopped")
}

func (p *Poller) Stop() {
	p.alarm.Stop()
}

func (p *Poller) handleEvent(evt event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx := context.Background()
	switch e := evt.(type) {
	case pollWakeup:
		p.RunCycle(ctx)
	case sweepWakeup:
		p.Sweep(ctx, e.at)
	}
}

// RunCycle performs one ingestion cycle. Each subreddit fetch is an
// isolated failure domain: failures are logged and the rest of the cycle
// proceeds with whatever succeeded.
func (p *Poller) RunCycle(ctx context.Context) cycleMetrics {
	started := time.Now().UTC()
	log := p.log.Sugar().With("cycle_id", uuid.NewString())

	type fetchResult struct {
		subreddit string
		posts     models.Posts
		err       error
	}

	results := make([]fetchResult, len(p.cfg.Subreddits))
	var wg sync.WaitGroup
	for i, subreddit := range p.cfg.Subreddits {
		i, subreddit := i, subreddit
		wg.Add(1)
		go func() {
			defer wg.Done()
			posts, err := p.fetcher.FetchSubreddit(ctx, subreddit)
			results[i] = fetchResult{subreddit, posts, err}
		}()
	}
	wg.Wait()

	var m cycleMetrics
	var candidates models.Posts
	for _, r := range results {
		if r.err != nil {
			m.errored++
			log.Warnf("Failed to fetch r/%s: %v", r.subreddit, r.err)
			continue
		}
		m.fetched += len(r.posts)
		candidates = append(candidates, r.posts...)
	}

	added, err := p.Ingest(ctx, candidates)
	if err != nil {
		m.errored++
		log.Errorw("Failed to ingest posts", "err", err)
	}
	m.added = len(added)

	p.notify(ctx, log, added, &m)

	elapsed := time.Now().UTC().Sub(started)
	log.Infow(
		fmt.Sprintf("Cycle completed: %d fetched, %d new", m.fetched, m.added),
		"notified", m.notified,
		"errored", m.errored,
		"elapsed_msecs", int(elapsed.Milliseconds()),
	)
	return m
}

// IngestBatch is the out-of-process fetcher path: the caller has already
// fetched and normalized the posts. New posts still fan out notifications.
func (p *Poller) IngestBatch(ctx context.Context, posts models.Posts) (added int, total int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	newPosts, err := p.Ingest(ctx, posts)
	if err != nil {
		return 0, 0, err
	}

	var m cycleMetrics
	log := p.log.Sugar().With("cycle_id", uuid.NewString())
	p.notify(ctx, log, newPosts, &m)

	tx := p.db.WithContext(ctx).Model(&models.Post{}).Count(&total)
	if err := tx.Error; err != nil {
		return len(newPosts), 0, err
	}
	return len(newPosts), total, nil
}

package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lofwen/reddalert/lib"
	"github.com/lofwen/reddalert/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const boardgamesFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <author><name>/u/reviewer</name></author>
    <content type="html">&lt;p&gt;A long look at the bird game.&lt;/p&gt;</content>
    <id>t3_bg1</id>
    <link href="https://www.reddit.com/r/boardgames/comments/bg1/wingspan/"/>
    <published>2026-08-30T09:00:00+00:00</published>
    <title>Wingspan review</title>
  </entry>
  <entry>
    <author><name>/u/host</name></author>
    <content type="html">&lt;p&gt;We played Settlers until 2am.&lt;/p&gt;</content>
    <id>t3_bg2</id>
    <link href="https://www.reddit.com/r/boardgames/comments/bg2/game_night/"/>
    <published>2026-08-30T09:30:00+00:00</published>
    <title>Game night recap</title>
  </entry>
</feed>`

func TestRunCycleIngestsAndNotifies(t *testing.T) {
	db := newTestDB(t)
	srv := feedServer(t, map[string]string{
		"Catan":      catanFeed,
		"boardgames": boardgamesFeed,
	})
	p, fake := newTestPoller(t, db, srv.URL, []string{"Catan", "boardgames"})

	svc := lib.NewService(nil, p.cfg, zap.NewNop(), db, nil)
	ctx := context.Background()

	// alice wants pushes for catan mentions in r/boardgames; the review
	// post must not reach her, the Settlers recap must.
	require.NoError(t, svc.PutSubscriptions(ctx, "alice", models.Subscriptions{
		{Subreddit: "Catan", ShowFilter: models.FilterAll, NotifyFilter: models.FilterNone},
		{Subreddit: "boardgames", ShowFilter: models.FilterAll, NotifyFilter: models.FilterCatan},
	}))
	require.NoError(t, svc.RegisterToken(ctx, "alice", "alice-device", "push"))

	// bob subscribes to the same subreddits but keeps notifications off.
	require.NoError(t, svc.PutSubscriptions(ctx, "bob", models.Subscriptions{
		{Subreddit: "Catan", ShowFilter: models.FilterAll, NotifyFilter: models.FilterNone},
		{Subreddit: "boardgames", ShowFilter: models.FilterAll, NotifyFilter: models.FilterNone},
	}))
	require.NoError(t, svc.RegisterToken(ctx, "bob", "bob-device", "push"))

	m := p.RunCycle(ctx)
	assert.Equal(t, 4, m.fetched)
	assert.Equal(t, 4, m.added)
	assert.Equal(t, 1, m.notified)
	assert.Equal(t, 0, m.errored)

	sends := fake.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, "alice-device", sends[0].token)
	assert.Equal(t, "r/boardgames: settlers", sends[0].n.Title)
	assert.Equal(t, "Game night recap", sends[0].n.Body)
	assert.Equal(t, "t3_bg2", sends[0].n.Data["postId"])

	// Everything landed in bob's visible queue regardless of notify settings.
	visible, err := svc.VisiblePosts(ctx, "bob", models.StatusNew)
	require.NoError(t, err)
	assert.Len(t, visible, 4)
}

func TestRunCycleIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	srv := feedServer(t, map[string]string{"Catan": catanFeed})
	p, fake := newTestPoller(t, db, srv.URL, []string{"Catan"})

	svc := lib.NewService(nil, p.cfg, zap.NewNop(), db, nil)
	ctx := context.Background()

	require.NoError(t, svc.PutSubscriptions(ctx, "alice", models.Subscriptions{
		{Subreddit: "Catan", ShowFilter: models.FilterAll, NotifyFilter: models.FilterAll},
	}))
	require.NoError(t, svc.RegisterToken(ctx, "alice", "alice-device", "push"))

	first := p.RunCycle(ctx)
	assert.Equal(t, 2, first.added)
	assert.Equal(t, 2, first.notified)

	// The same feed snapshot again: nothing new, nothing re-notified.
	second := p.RunCycle(ctx)
	assert.Equal(t, 2, second.fetched)
	assert.Equal(t, 0, second.added)
	assert.Equal(t, 0, second.notified)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.Len(t, fake.sent(), 2)
}

func TestRunCycleSurvivesPartialFetchFailure(t *testing.T) {
	db := newTestDB(t)
	srv := feedServer(t, map[string]string{"Catan": catanFeed})
	p, _ := newTestPoller(t, db, srv.URL, []string{"Catan", "downsub"})

	m := p.RunCycle(context.Background())
	assert.Equal(t, 2, m.added)
	assert.Equal(t, 1, m.errored)
}

func TestIngestBatchConcurrentDuplicates(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPoller(t, db, "http://unused", nil)
	ctx := context.Background()

	now := time.Now().UTC()
	batch := models.Posts{{
		RedditID:  "t3_race",
		Subreddit: "Catan",
		Title:     "Same post from two fetchers",
		CreatedAt: now,
		FetchedAt: now,
	}}

	results := make([]int, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = p.IngestBatch(ctx, batch)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, 1, results[0]+results[1])

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestBatchReportsTotal(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPoller(t, db, "http://unused", nil)
	ctx := context.Background()

	now := time.Now().UTC()
	added, total, err := p.IngestBatch(ctx, models.Posts{
		{RedditID: "t3_a", Subreddit: "Catan", Title: "one", CreatedAt: now, FetchedAt: now},
		{RedditID: "t3_b", Subreddit: "Catan", Title: "two", CreatedAt: now, FetchedAt: now},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, int64(2), total)

	added, total, err = p.IngestBatch(ctx, models.Posts{
		{RedditID: "t3_b", Subreddit: "Catan", Title: "two", CreatedAt: now, FetchedAt: now},
		{RedditID: "t3_c", Subreddit: "Catan", Title: "three", CreatedAt: now, FetchedAt: now},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, int64(3), total)
}

func TestSweepPurgesOldPosts(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPoller(t, db, "http://unused", nil)
	ctx := context.Background()

	now := time.Now().UTC()
	old := now.AddDate(0, 0, -31)
	posts := models.Posts{
		{RedditID: "t3_old", Subreddit: "Catan", Title: "stale", CreatedAt: old, FetchedAt: old},
		{RedditID: "t3_new", Subreddit: "Catan", Title: "fresh", CreatedAt: now, FetchedAt: now},
	}
	require.NoError(t, db.Create(&posts).Error)
	require.NoError(t, db.Create(&models.PostStatus{
		UserID: "alice", PostID: "t3_old", Status: models.StatusResponded, StatusUpdatedAt: old,
	}).Error)
	require.NoError(t, db.Create(&models.PostStatus{
		UserID: "alice", PostID: "t3_new", Status: models.StatusResponded, StatusUpdatedAt: now,
	}).Error)

	p.Sweep(ctx, now)

	var remaining models.Posts
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "t3_new", remaining[0].RedditID)

	var statuses models.PostStatuses
	require.NoError(t, db.Find(&statuses).Error)
	require.Len(t, statuses, 1)
	assert.Equal(t, "t3_new", statuses[0].PostID)
}

package poller

import (
	"context"
	"strings"

	"github.com/lofwen/reddalert/lib"
	"github.com/lofwen/reddalert/lib/models"
	"github.com/lofwen/reddalert/push"
	"go.uber.org/zap"
)

// notify fans newly ingested posts out to every subscription whose
// NotifyFilter matches. Users are independent failure domains; a failed
// dispatch is counted and logged, never propagated.
func (p *Poller) notify(ctx context.Context, log *zap.SugaredLogger, added models.Posts, m *cycleMetrics) {
	if len(added) == 0 {
		return
	}

	bySubreddit := make(map[string]models.Posts)
	subreddits := make([]string, 0)
	for _, post := range added {
		if _, ok := bySubreddit[post.Subreddit]; !ok {
			subreddits = append(subreddits, post.Subreddit)
		}
		bySubreddit[post.Subreddit] = append(bySubreddit[post.Subreddit], post)
	}

	var subs models.Subscriptions
	tx := p.db.WithContext(ctx).
		Where("subreddit IN ? AND notify_filter <> ?", subreddits, models.FilterNone).
		Find(&subs)
	if err := tx.Error; err != nil {
		m.errored++
		log.Errorw("Failed to load subscriptions for fan-out", "err", err)
		return
	}

	for _, sub := range subs {
		for _, post := range bySubreddit[sub.Subreddit] {
			post := post
			if !lib.Matches(&post, sub.NotifyFilter, sub.CustomKeywords) {
				continue
			}

			matched := lib.MatchedKeywords(&post, sub.NotifyFilter, sub.CustomKeywords)
			if err := p.dispatcher.Send(ctx, sub.UserID, buildNotification(&post, matched)); err != nil {
				m.errored++
				log.Errorw("Failed to dispatch notification", "user_id", sub.UserID, "post_id", post.RedditID, "err", err)
				continue
			}
			m.notified++
		}
	}
}

func buildNotification(post *models.Post, matched []string) push.Notification {
	title := "r/" + post.Subreddit
	if len(matched) > 0 {
		title += ": " + strings.Join(matched, ", ")
	}
	return push.Notification{
		Title: title,
		Body:  truncate(post.Title, 100),
		Data: map[string]string{
			"postId":    post.RedditID,
			"postUrl":   post.URL,
			"subreddit": post.Subreddit,
			"keywords":  strings.Join(matched, ","),
		},
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

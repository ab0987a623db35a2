package lib

import (
	"context"
	"database/sql"
	"time"

	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/lib/models"
)

const visibleQueueLimit = 100

// PostWithStatus is a shared Post combined with the caller's overlay. A
// missing overlay row reads as StatusNew.
type PostWithStatus struct {
	models.Post
	Status          models.Status
	StatusUpdatedAt time.Time
	RespondedAt     sql.NullTime
}

// VisiblePosts returns the caller's queue for one status bucket: recent
// posts from subscribed subreddits that pass each subscription's ShowFilter,
// overlaid with the caller's own statuses, newest first.
func (svc *Service) VisiblePosts(ctx context.Context, userID string, status models.Status) ([]PostWithStatus, error) {
	if !status.Valid() {
		return nil, apperror.InvalidArgument("status must be one of: new, dismissed, responded")
	}

	subs, err := svc.GetSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	subByReddit := make(map[string]models.Subscription, len(subs))
	subreddits := make([]string, 0, len(subs))
	for _, sub := range subs {
		subByReddit[sub.Subreddit] = sub
		subreddits = append(subreddits, sub.Subreddit)
	}

	var posts models.Posts
	tx := svc.db.WithContext(ctx).
		Where("subreddit IN ?", subreddits).
		Order("created_at desc").
		Limit(visibleQueueLimit).
		Find(&posts)
	if err := tx.Error; err != nil {
		svc.log.Sugar().Errorw("Failed to load posts", "err", err)
		return nil, err
	}

	overlay, err := svc.loadOverlay(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := make([]PostWithStatus, 0, len(posts))
	for _, post := range posts {
		sub := subByReddit[post.Subreddit]
		if !Matches(&post, sub.ShowFilter, sub.CustomKeywords) {
			continue
		}

		effective := models.StatusNew
		var st models.PostStatus
		if found, ok := overlay[post.RedditID]; ok {
			effective = found.Status
			st = found
		}
		if effective != status {
			continue
		}

		visible = append(visible, PostWithStatus{
			Post:            post,
			Status:          effective,
			StatusUpdatedAt: st.StatusUpdatedAt,
			RespondedAt:     st.RespondedAt,
		})
	}
	return visible, nil
}

func (svc *Service) loadOverlay(ctx context.Context, userID string) (map[string]models.PostStatus, error) {
	var statuses models.PostStatuses
	tx := svc.db.WithContext(ctx).Where("user_id = ?", userID).Find(&statuses)
	if err := tx.Error; err != nil {
		return nil, err
	}

	overlay := make(map[string]models.PostStatus, len(statuses))
	for _, st := range statuses {
		overlay[st.PostID] = st
	}
	return overlay, nil
}

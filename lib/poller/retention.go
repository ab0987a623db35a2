package poller

import (
	"context"
	"time"

	"github.com/lofwen/reddalert/lib/models"
)

const (
	retentionDays = 30

	// Deletes run in bounded batches to stay under write-batch ceilings.
	deleteBatchSize = 400
)

// Sweep deletes posts fetched more than 30 days ago along with their
// per-user status overlays.
func (p *Poller) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	var purgedPosts, purgedStatuses int64
	for {
		var ids []string
		tx := p.db.WithContext(ctx).Model(&models.Post{}).
			Where("fetched_at < ?", cutoff).
			Limit(deleteBatchSize).
			Pluck("reddit_id", &ids)
		if err := tx.Error; err != nil {
			p.log.Sugar().Errorw("Retention sweep failed", "err", err)
			return
		}
		if len(ids) == 0 {
			break
		}

		tx = p.db.WithContext(ctx).Where("post_id IN ?", ids).Delete(&models.PostStatus{})
		if err := tx.Error; err != nil {
			p.log.Sugar().Errorw("Retention sweep failed deleting statuses", "err", err)
			return
		}
		purgedStatuses += tx.RowsAffected

		tx = p.db.WithContext(ctx).Where("reddit_id IN ?", ids).Delete(&models.Post{})
		if err := tx.Error; err != nil {
			p.log.Sugar().Errorw("Retention sweep failed deleting posts", "err", err)
			return
		}
		purgedPosts += tx.RowsAffected
	}

	if purgedPosts > 0 {
		p.log.Sugar().Infof("Purged %d old posts and %d statuses", purgedPosts, purgedStatuses)
	}
}

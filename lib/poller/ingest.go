package poller

import (
	"context"

	"github.com/lofwen/reddalert/lib/models"
	"gorm.io/gorm/clause"
)

// Ingest writes candidates into the shared post store and returns the ones
// that were actually new. Dedup rides on the reddit_id unique index with a
// do-nothing upsert, so re-ingesting the same snapshot (or two cycles racing
// on the same post) leaves exactly one row.
func (p *Poller) Ingest(ctx context.Context, candidates models.Posts) (models.Posts, error) {
	added := make(models.Posts, 0)
	for _, post := range candidates {
		if post.RedditID == "" {
			continue
		}
		post.ID = 0

		tx := p.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "reddit_id"}},
				DoNothing: true,
			}).
			Create(&post)
		if err := tx.Error; err != nil {
			return added, err
		}
		if tx.RowsAffected > 0 {
			added = append(added, post)
		}
	}
	return added, nil
}

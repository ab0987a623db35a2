package lib

import (
	"context"
	"fmt"

	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetSubscriptions returns the user's per-subreddit filters, seeding the
// defaults on first read so a fresh login sees the standard set.
func (svc *Service) GetSubscriptions(ctx context.Context, userID string) (models.Subscriptions, error) {
	var subs models.Subscriptions
	tx := svc.db.WithContext(ctx).Where("user_id = ?", userID).Order("subreddit asc").Find(&subs)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if len(subs) > 0 {
		return subs, nil
	}

	defaults := models.DefaultSubscriptions(userID)
	tx = svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults)
	if err := tx.Error; err != nil {
		return nil, err
	}
	svc.log.Sugar().Infof("Seeded %d default subscriptions for user %s", len(defaults), userID)
	return defaults, nil
}

// PutSubscriptions replaces the user's subscription set. Validation happens
// before any write; on failure nothing changes.
func (svc *Service) PutSubscriptions(ctx context.Context, userID string, subs models.Subscriptions) error {
	seen := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if sub.Subreddit == "" {
			return apperror.InvalidArgument("subreddit is required")
		}
		if seen[sub.Subreddit] {
			return apperror.InvalidArgument(fmt.Sprintf("duplicate subscription for subreddit %s", sub.Subreddit))
		}
		seen[sub.Subreddit] = true

		if !sub.ShowFilter.Valid() || !sub.NotifyFilter.Valid() {
			return apperror.InvalidArgument(fmt.Sprintf("unknown filter kind on subreddit %s", sub.Subreddit))
		}
	}

	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		if len(subs) == 0 {
			return nil
		}
		for i := range subs {
			subs[i].ID = 0
			subs[i].UserID = userID
		}
		return tx.Create(&subs).Error
	})
}

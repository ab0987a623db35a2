package lib

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateStatus applies a status transition for one (user, post) pair. The
// overlay write and the TotalResponses adjustment happen in one transaction
// so the counter cannot drift when a user's devices race each other.
// Setting StatusNew deletes the overlay row instead of storing it.
func (svc *Service) UpdateStatus(ctx context.Context, userID, postID string, status models.Status) error {
	if !status.Valid() {
		return apperror.InvalidArgument("status must be one of: new, dismissed, responded")
	}

	var post models.Post
	tx := svc.db.WithContext(ctx).Where("reddit_id = ?", postID).First(&post)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("post", postID)
	} else if err != nil {
		svc.log.Sugar().Errorw("Failed to look up post", "err", err)
		return err
	}

	now := time.Now().UTC()

	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current := models.StatusNew
		var existing models.PostStatus
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		switch {
		case err == nil:
			current = existing.Status
		case errors.Is(err, gorm.ErrRecordNotFound):
			// implicit new
		default:
			return err
		}

		if status == models.StatusNew {
			if existing.ID != 0 {
				if err := tx.Delete(&models.PostStatus{}, existing.ID).Error; err != nil {
					return err
				}
			}
		} else {
			if existing.ID != 0 {
				updates := map[string]any{
					"status":            status,
					"status_updated_at": now,
				}
				if status == models.StatusResponded {
					updates["responded_at"] = now
				}
				if err := tx.Model(&models.PostStatus{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
					return err
				}
			} else {
				record := models.PostStatus{
					UserID:          userID,
					PostID:          postID,
					Status:          status,
					StatusUpdatedAt: now,
				}
				if status == models.StatusResponded {
					record.RespondedAt = sql.NullTime{Time: now, Valid: true}
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}

		var delta int
		if status == models.StatusResponded && current != models.StatusResponded {
			delta = 1
		} else if status != models.StatusResponded && current == models.StatusResponded {
			delta = -1
		}
		if delta == 0 {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.User{ID: userID}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("total_responses", gorm.Expr("total_responses + ?", delta)).
			Error
	})
}

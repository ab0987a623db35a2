package lib

import (
	"context"

	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/lib/models"
	"gorm.io/gorm/clause"
)

// RegisterToken adds a delivery identity to the user's token set. Duplicate
// registrations are no-ops.
func (svc *Service) RegisterToken(ctx context.Context, userID, token, platform string) error {
	if token == "" {
		return apperror.InvalidArgument("token is required")
	}
	if platform == "" {
		platform = "push"
	}
	if platform != "push" && platform != "email" {
		return apperror.InvalidArgument("platform must be push or email")
	}

	tx := svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.User{ID: userID})
	if err := tx.Error; err != nil {
		return err
	}

	record := models.DeviceToken{UserID: userID, Token: token, Platform: platform}
	tx = svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected > 0 {
		svc.log.Sugar().Infof("Registered %s token for user %s", platform, userID)
	}
	return nil
}

package push

import (
	"context"
	"errors"
	"sync"

	"github.com/lofwen/reddalert/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dispatcher fans one notification out to all of a user's registered
// tokens. Tokens are independent failure domains: an invalid token is
// pruned, any other delivery error is logged and ignored.
type Dispatcher struct {
	log      *zap.Logger
	db       *gorm.DB
	registry Registry
}

func NewDispatcher(lc fx.Lifecycle, log *zap.Logger, db *gorm.DB, registry Registry) *Dispatcher {
	return &Dispatcher{log, db, registry}
}

// Send delivers n to every token of userID concurrently. A user with zero
// tokens is a silent no-op.
func (d *Dispatcher) Send(ctx context.Context, userID string, n Notification) error {
	var tokens models.DeviceTokens
	tx := d.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens)
	if err := tx.Error; err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, token := range tokens {
		token := token
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.sendToToken(ctx, &token, n)
		}()
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) sendToToken(ctx context.Context, token *models.DeviceToken, n Notification) {
	notifier, ok := d.registry[token.Platform]
	if !ok {
		d.log.Sugar().Warnf("Unsupported notifier platform: %s", token.Platform)
		return
	}

	id, err := notifier.Send(ctx, token.Token, n)
	switch {
	case errors.Is(err, ErrTokenInvalid):
		d.pruneToken(ctx, token)
	case err != nil:
		d.log.Sugar().Errorw("Failed to send notification", "user_id", token.UserID, "platform", token.Platform, "err", err)
	default:
		d.log.Sugar().Infow("Notification sent", "user_id", token.UserID, "platform", token.Platform, "message_id", id)
	}
}

func (d *Dispatcher) pruneToken(ctx context.Context, token *models.DeviceToken) {
	tx := d.db.WithContext(ctx).Delete(&models.DeviceToken{}, token.ID)
	if err := tx.Error; err != nil {
		d.log.Sugar().Errorw("Failed to prune invalid token", "user_id", token.UserID, "err", err)
		return
	}
	d.log.Sugar().Infof("Removed invalid token for user %s", token.UserID)
}

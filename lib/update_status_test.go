package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPost(t *testing.T, db *gorm.DB, redditID, subreddit string) {
	t.Helper()
	post := models.Post{
		RedditID:  redditID,
		Subreddit: subreddit,
		Title:     "title of " + redditID,
		CreatedAt: time.Now().UTC(),
		FetchedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&post).Error)
}

func totalResponses(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var user models.User
	err := db.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return user.TotalResponses
}

func TestUpdateStatusRespondTracksCounter(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedPost(t, db, "t3_abc123", "Catan")

	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusResponded))
	assert.Equal(t, int64(1), totalResponses(t, db, "alice"))

	var st models.PostStatus
	require.NoError(t, db.First(&st, "user_id = ? AND post_id = ?", "alice", "t3_abc123").Error)
	assert.Equal(t, models.StatusResponded, st.Status)
	assert.True(t, st.RespondedAt.Valid)

	// Marking the same post dismissed reverts the counter by exactly 1.
	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusDismissed))
	assert.Equal(t, int64(0), totalResponses(t, db, "alice"))
}

func TestUpdateStatusRepeatedRespondIsIdempotentOnCounter(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedPost(t, db, "t3_abc123", "Catan")

	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusResponded))
	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusResponded))
	assert.Equal(t, int64(1), totalResponses(t, db, "alice"))
}

func TestUpdateStatusNewDeletesOverlay(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedPost(t, db, "t3_abc123", "Catan")

	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusResponded))
	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusNew))

	var count int64
	require.NoError(t, db.Model(&models.PostStatus{}).Where("user_id = ?", "alice").Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, int64(0), totalResponses(t, db, "alice"))
}

func TestUpdateStatusCounterSequence(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	ids := []string{"t3_p1", "t3_p2", "t3_p3", "t3_p4"}
	for _, id := range ids {
		seedPost(t, db, id, "Catan")
	}

	// N=4 transitions into responded, M=2 out.
	for _, id := range ids {
		require.NoError(t, svc.UpdateStatus(ctx, "alice", id, models.StatusResponded))
	}
	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_p1", models.StatusDismissed))
	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_p2", models.StatusNew))

	assert.Equal(t, int64(2), totalResponses(t, db, "alice"))

	stats, err := svc.UserStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stats.Total)
}

func TestUpdateStatusUnknownPost(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	err := svc.UpdateStatus(context.Background(), "alice", "t3_missing", models.StatusResponded)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateStatusInvalidStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	seedPost(t, db, "t3_abc123", "Catan")

	err := svc.UpdateStatus(context.Background(), "alice", "t3_abc123", models.Status("archived"))
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	// No partial side effects before the validation failure.
	var count int64
	require.NoError(t, db.Model(&models.PostStatus{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateStatusIsolatedPerUser(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedPost(t, db, "t3_abc123", "Catan")

	require.NoError(t, svc.UpdateStatus(ctx, "alice", "t3_abc123", models.StatusResponded))
	require.NoError(t, svc.UpdateStatus(ctx, "bob", "t3_abc123", models.StatusDismissed))

	assert.Equal(t, int64(1), totalResponses(t, db, "alice"))
	assert.Equal(t, int64(0), totalResponses(t, db, "bob"))
}

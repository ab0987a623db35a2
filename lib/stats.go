package lib

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/lofwen/reddalert/lib/models"
	"gorm.io/gorm"
)

const dailyWindowDays = 30

type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

type SubredditCount struct {
	Subreddit string `json:"subreddit"`
	Count     int    `json:"count"`
}

type ResponseStats struct {
	Total       int              `json:"total"`
	Today       int              `json:"today"`
	ThisWeek    int              `json:"thisWeek"`
	ThisMonth   int              `json:"thisMonth"`
	BySubreddit []SubredditCount `json:"bySubreddit"`
	DailyCounts []DailyCount     `json:"dailyCounts"`
}

// Responded is one entry of a user's responded set, as read from the
// PostStatus x Post join. RespondedAt can be null on legacy rows; those
// still count toward totals but not toward the time buckets.
type Responded struct {
	Subreddit   string
	RespondedAt sql.NullTime
}

// ComputeStats recomputes response statistics from the authoritative
// RespondedAt timestamps. DailyCounts always holds exactly 30 entries,
// oldest first, with the last entry being "today" in now's location; the
// week bucket starts on Sunday.
func ComputeStats(now time.Time, responded []Responded) ResponseStats {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfToday.AddDate(0, 0, -int(now.Weekday()))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	dailyIndex := make(map[string]int, dailyWindowDays)
	daily := make([]DailyCount, dailyWindowDays)
	for i := 0; i < dailyWindowDays; i++ {
		date := startOfToday.AddDate(0, 0, i-dailyWindowDays+1).Format("2006-01-02")
		daily[i] = DailyCount{Date: date}
		dailyIndex[date] = i
	}

	stats := ResponseStats{DailyCounts: daily}
	bySubreddit := make(map[string]int)

	for _, r := range responded {
		stats.Total++
		bySubreddit[r.Subreddit]++

		if !r.RespondedAt.Valid {
			continue
		}
		at := r.RespondedAt.Time.In(now.Location())
		if i, ok := dailyIndex[at.Format("2006-01-02")]; ok {
			stats.DailyCounts[i].Count++
		}
		if !at.Before(startOfToday) {
			stats.Today++
		}
		if !at.Before(startOfWeek) {
			stats.ThisWeek++
		}
		if !at.Before(startOfMonth) {
			stats.ThisMonth++
		}
	}

	stats.BySubreddit = make([]SubredditCount, 0, len(bySubreddit))
	for subreddit, count := range bySubreddit {
		stats.BySubreddit = append(stats.BySubreddit, SubredditCount{subreddit, count})
	}
	sort.Slice(stats.BySubreddit, func(i, j int) bool {
		a, b := stats.BySubreddit[i], stats.BySubreddit[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Subreddit < b.Subreddit
	})

	return stats
}

// UserStats returns the read-time aggregation plus the incremental counter.
// At steady state Stats.Total and TotalResponses agree; the counter is the
// operational value, the aggregation is derived from timestamps.
type UserStats struct {
	Stats          ResponseStats `json:"stats"`
	TotalResponses int64         `json:"totalResponses"`
}

func (svc *Service) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	responded, err := svc.respondedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = svc.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &UserStats{
		Stats:          ComputeStats(time.Now(), responded),
		TotalResponses: user.TotalResponses,
	}, nil
}

// RepairTotalResponses resets the incremental counter from the responded
// set. Repair path only; normal operation never recomputes.
func (svc *Service) RepairTotalResponses(ctx context.Context, userID string) (int64, error) {
	var count int64
	tx := svc.db.WithContext(ctx).Model(&models.PostStatus{}).
		Where("user_id = ? AND status = ?", userID, models.StatusResponded).
		Count(&count)
	if err := tx.Error; err != nil {
		return 0, err
	}

	err := svc.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("total_responses", count).
		Error
	if err != nil {
		return 0, err
	}
	svc.log.Sugar().Infof("Repaired totalResponses for user %s: %d", userID, count)
	return count, nil
}

func (svc *Service) respondedSet(ctx context.Context, userID string) ([]Responded, error) {
	var rows []Responded
	tx := svc.db.WithContext(ctx).Model(&models.PostStatus{}).
		Select("posts.subreddit as subreddit, post_statuses.responded_at as responded_at").
		Joins("JOIN posts ON posts.reddit_id = post_statuses.post_id").
		Where("post_statuses.user_id = ? AND post_statuses.status = ?", userID, models.StatusResponded).
		Scan(&rows)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return rows, nil
}

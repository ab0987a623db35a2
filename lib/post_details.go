package lib

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cached details older than this are flagged stale in views. Informational
// only; the cache never expires on its own.
const detailStaleAfter = 1 * time.Hour

var permalinkID = regexp.MustCompile(`(?i)comments/([a-z0-9]+)`)

// ExtractPostID normalizes a post reference into the bare Reddit id:
// accepts a "t3_" fullname, a permalink URL, or an already-bare id.
func ExtractPostID(ref string) string {
	if strings.HasPrefix(ref, "t3_") {
		return strings.TrimPrefix(ref, "t3_")
	}
	if m := permalinkID.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	return ref
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPostData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPostData struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"` // fullname, e.g. "t3_abc123"
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Author        string  `json:"author"`
	Subreddit     string  `json:"subreddit"`
	Permalink     string  `json:"permalink"`
	URL           string  `json:"url"`
	Score         int     `json:"score"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	NumComments   int     `json:"num_comments"`
	Thumbnail     string  `json:"thumbnail"`
	LinkFlairText string  `json:"link_flair_text"`
	IsVideo       bool    `json:"is_video"`
	CreatedUTC    float64 `json:"created_utc"`
}

// GetPostDetails serves the enriched Post fields, from the cached row unless
// it was never enriched or forceRefresh is set.
func (svc *Service) GetPostDetails(ctx context.Context, subreddit, postRef string, forceRefresh bool) (*models.Post, error) {
	if subreddit == "" {
		return nil, apperror.InvalidArgument("subreddit is required")
	}
	id := ExtractPostID(postRef)
	if id == "" {
		return nil, apperror.InvalidArgument("postId is required")
	}
	fullname := "t3_" + id

	var post models.Post
	err := svc.db.WithContext(ctx).Where("reddit_id = ?", fullname).First(&post).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	cached := err == nil

	if cached && post.DetailFetchedAt.Valid && !forceRefresh {
		return &post, nil
	}

	data, err := svc.fetchDetails(ctx, subreddit, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fresh := models.Post{
		RedditID:        fullname,
		Subreddit:       data.Subreddit,
		Title:           data.Title,
		Author:          data.Author,
		URL:             data.URL,
		Permalink:       "https://www.reddit.com" + data.Permalink,
		Content:         data.Selftext,
		CreatedAt:       time.Unix(int64(data.CreatedUTC), 0).UTC(),
		FetchedAt:       now,
		Score:           data.Score,
		UpvoteRatio:     data.UpvoteRatio,
		NumComments:     data.NumComments,
		Thumbnail:       data.Thumbnail,
		Flair:           data.LinkFlairText,
		IsVideo:         data.IsVideo,
		DetailFetchedAt: sql.NullTime{Time: now, Valid: true},
	}

	if cached {
		updates := map[string]any{
			"score":             fresh.Score,
			"upvote_ratio":      fresh.UpvoteRatio,
			"num_comments":      fresh.NumComments,
			"thumbnail":         fresh.Thumbnail,
			"flair":             fresh.Flair,
			"is_video":          fresh.IsVideo,
			"detail_fetched_at": now,
		}
		tx := svc.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates)
		if err := tx.Error; err != nil {
			return nil, err
		}
		fresh.ID = post.ID
		fresh.FetchedAt = post.FetchedAt
	} else {
		tx := svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if err := tx.Error; err != nil {
			return nil, err
		}
	}
	return &fresh, nil
}

func (svc *Service) fetchDetails(ctx context.Context, subreddit, id string) (*redditPostData, error) {
	url := fmt.Sprintf("%s/r/%s/comments/%s.json", svc.cfg.FeedBaseURL, subreddit, id)

	timeout := time.Duration(svc.cfg.FetchTimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var listings []redditListing
	err := requests.URL(url).
		Transport(svc.transport).
		ToJSON(&listings).
		Fetch(ctx)
	if err != nil {
		if requests.HasStatusErr(err, 404) {
			return nil, apperror.NotFound("post", id)
		}
		svc.log.Sugar().Errorw("Failed to fetch post details", "subreddit", subreddit, "post_id", id, "err", err)
		return nil, apperror.Upstream(err)
	}

	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, apperror.NotFound("post", id)
	}
	return &listings[0].Data.Children[0].Data, nil
}

// DetailsStale reports whether a cached enrichment should be flagged stale.
func DetailsStale(post *models.Post, now time.Time) bool {
	if !post.DetailFetchedAt.Valid {
		return true
	}
	return now.Sub(post.DetailFetchedAt.Time) > detailStaleAfter
}

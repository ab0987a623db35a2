package app

import (
	"database/sql"
	"time"

	"github.com/lofwen/reddalert/lib"
	"github.com/lofwen/reddalert/lib/models"
)

type PostView struct {
	RedditID        string  `json:"redditId"`
	Subreddit       string  `json:"subreddit"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	URL             string  `json:"url"`
	Permalink       string  `json:"permalink"`
	Content         string  `json:"content"`
	CreatedAt       string  `json:"createdAt"`
	FetchedAt       string  `json:"fetchedAt"`
	Status          string  `json:"status"`
	StatusUpdatedAt *string `json:"statusUpdatedAt"`
	RespondedAt     *string `json:"respondedAt"`
}

func (view PostView) From(entity lib.PostWithStatus) PostView {
	var statusUpdatedAt *string
	if !entity.StatusUpdatedAt.IsZero() {
		statusUpdatedAt = isoformat(sql.NullTime{Time: entity.StatusUpdatedAt, Valid: true})
	}
	return PostView{
		RedditID:        entity.RedditID,
		Subreddit:       entity.Subreddit,
		Title:           entity.Title,
		Author:          entity.Author,
		URL:             entity.URL,
		Permalink:       entity.Permalink,
		Content:         entity.Content,
		CreatedAt:       entity.CreatedAt.UTC().Format(time.RFC3339),
		FetchedAt:       entity.FetchedAt.UTC().Format(time.RFC3339),
		Status:          string(entity.Status),
		StatusUpdatedAt: statusUpdatedAt,
		RespondedAt:     isoformat(entity.RespondedAt),
	}
}

type PostDetailsView struct {
	RedditID    string  `json:"redditId"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvoteRatio"`
	NumComments int     `json:"numComments"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Selftext    string  `json:"selftext"`
	Thumbnail   string  `json:"thumbnail"`
	Flair       string  `json:"flair"`
	IsVideo     bool    `json:"isVideo"`
	CreatedUtc  int64   `json:"createdUtc"`
	FetchedAt   *string `json:"fetchedAt"`
	Stale       bool    `json:"stale"`
}

func (view PostDetailsView) From(entity *models.Post) PostDetailsView {
	return PostDetailsView{
		RedditID:    entity.RedditID,
		Subreddit:   entity.Subreddit,
		Title:       entity.Title,
		Author:      entity.Author,
		Score:       entity.Score,
		UpvoteRatio: entity.UpvoteRatio,
		NumComments: entity.NumComments,
		Permalink:   entity.Permalink,
		URL:         entity.URL,
		Selftext:    entity.Content,
		Thumbnail:   entity.Thumbnail,
		Flair:       entity.Flair,
		IsVideo:     entity.IsVideo,
		CreatedUtc:  entity.CreatedAt.Unix(),
		FetchedAt:   isoformat(entity.DetailFetchedAt),
		Stale:       lib.DetailsStale(entity, time.Now()),
	}
}

type SubscriptionView struct {
	Subreddit      string   `json:"subreddit"`
	ShowFilter     string   `json:"showFilter"`
	NotifyFilter   string   `json:"notifyFilter"`
	CustomKeywords []string `json:"customKeywords,omitempty"`
}

func (view SubscriptionView) From(entity models.Subscription) SubscriptionView {
	return SubscriptionView{
		Subreddit:      entity.Subreddit,
		ShowFilter:     string(entity.ShowFilter),
		NotifyFilter:   string(entity.NotifyFilter),
		CustomKeywords: entity.CustomKeywords,
	}
}

func (view SubscriptionView) ToModel() models.Subscription {
	return models.Subscription{
		Subreddit:      view.Subreddit,
		ShowFilter:     models.FilterKind(view.ShowFilter),
		NotifyFilter:   models.FilterKind(view.NotifyFilter),
		CustomKeywords: view.CustomKeywords,
	}
}

// IngestPost is the wire shape accepted by POST /ingest from out-of-process
// fetchers.
type IngestPost struct {
	RedditID  string `json:"redditId"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	Permalink string `json:"permalink"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"` // RFC3339
}

func (p IngestPost) ToModel(now time.Time) models.Post {
	createdAt := now
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		createdAt = t.UTC()
	}
	return models.Post{
		RedditID:  p.RedditID,
		Subreddit: p.Subreddit,
		Title:     p.Title,
		Author:    p.Author,
		URL:       p.URL,
		Permalink: p.Permalink,
		Content:   p.Content,
		CreatedAt: createdAt,
		FetchedAt: now,
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}

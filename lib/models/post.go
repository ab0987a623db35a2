package models

import (
	"database/sql"
	"time"
)

// Post is one ingested feed item, shared across all users. Identity is the
// origin's RedditID; rows are immutable after ingestion except for the
// enrichment columns refreshed by detail lookups.
type Post struct {
	ID        uint   `gorm:"primarykey"`
	RedditID  string `gorm:"uniqueIndex"`
	Subreddit string `gorm:"index"`
	Title     string
	Author    string
	URL       string
	Permalink string
	Content   string    // plain-text snippet extracted from the feed entry
	CreatedAt time.Time `gorm:"index"` // origin publish time
	FetchedAt time.Time `gorm:"index"`

	// Enrichment from the detail endpoint. DetailFetchedAt is null until the
	// first lookup; there is no automatic expiry.
	Score           int
	UpvoteRatio     float64
	NumComments     int
	Thumbnail       string
	Flair           string
	IsVideo         bool
	DetailFetchedAt sql.NullTime
}

type Posts []Post

package poller

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/lofwen/reddalert/lib/models"
	"go.uber.org/zap"
)

// Fetcher retrieves and normalizes one subreddit's feed. Reddit serves Atom
// from the /new.rss endpoint, bounded to the feed's page size (~25 entries),
// newest first.
type Fetcher struct {
	log       *zap.Logger
	transport http.RoundTripper
	baseURL   string
	timeout   time.Duration
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID     string `xml:"id"`
	Title  string `xml:"title"`
	Author struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Content string `xml:"content"`
	Link    struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
}

func (f *Fetcher) FetchSubreddit(ctx context.Context, subreddit string) (models.Posts, error) {
	url := fmt.Sprintf("%s/r/%s/new.rss", f.baseURL, subreddit)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var body string
	err := requests.URL(url).
		Transport(f.transport).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}

	var feed atomFeed
	if err := xml.Unmarshal([]byte(body), &feed); err != nil {
		return nil, fmt.Errorf("parse r/%s feed: %w", subreddit, err)
	}

	now := time.Now().UTC()
	posts := make(models.Posts, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		// Identity fallback chain: entry id, then link.
		redditID := firstNonEmpty(entry.ID, entry.Link.Href)
		if redditID == "" {
			continue
		}

		posts = append(posts, models.Post{
			RedditID:  redditID,
			Subreddit: subreddit,
			Title:     entry.Title,
			Author:    strings.TrimPrefix(entry.Author.Name, "/u/"),
			URL:       entry.Link.Href,
			Permalink: entry.Link.Href,
			Content:   extractSnippet(entry.Content),
			CreatedAt: parseEntryTime(entry, now),
			FetchedAt: now,
		})
	}
	return posts, nil
}

func parseEntryTime(entry atomEntry, fallback time.Time) time.Time {
	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

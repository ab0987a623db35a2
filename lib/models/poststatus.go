package models

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusDismissed Status = "dismissed"
	StatusResponded Status = "responded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusDismissed, StatusResponded:
		return true
	}
	return false
}

// PostStatus is the per-user overlay on a shared Post. A missing row means
// the post is implicitly "new"; reverting to new deletes the row.
type PostStatus struct {
	ID              uint   `gorm:"primarykey"`
	UserID          string `gorm:"index:idx_user_post,unique"`
	PostID          string `gorm:"index:idx_user_post,unique"` // Post.RedditID
	Status          Status
	StatusUpdatedAt time.Time
	RespondedAt     sql.NullTime // set only on transition into responded
}

type PostStatuses []PostStatus

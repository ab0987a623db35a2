package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type FilterKind string

const (
	FilterAll      FilterKind = "all"
	FilterNone     FilterKind = "none"
	FilterCatan    FilterKind = "catan"
	FilterTwoSheep FilterKind = "twosheep"
	FilterCustom   FilterKind = "custom"
)

func (k FilterKind) Valid() bool {
	switch k {
	case FilterAll, FilterNone, FilterCatan, FilterTwoSheep, FilterCustom:
		return true
	}
	return false
}

// KeywordList stores a keyword set as a comma-joined text column.
type KeywordList []string

func (l KeywordList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

func (l *KeywordList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into KeywordList", src)
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(s, ",")
	return nil
}

// Subscription is a user's show/notify filter for one subreddit. Exactly one
// row per (user, subreddit) pair.
type Subscription struct {
	ID             uint   `gorm:"primarykey"`
	UserID         string `gorm:"index:idx_user_subreddit,unique"`
	Subreddit      string `gorm:"index:idx_user_subreddit,unique"`
	ShowFilter     FilterKind
	NotifyFilter   FilterKind
	CustomKeywords KeywordList `gorm:"type:text"`
}

type Subscriptions []Subscription

// DefaultSubscriptions seeds a new user's settings: the Catan-family and
// digital-platform subreddits unfiltered, the general boardgame subreddits
// narrowed to Catan mentions.
func DefaultSubscriptions(userID string) Subscriptions {
	defaults := []struct {
		subreddit string
		show      FilterKind
	}{
		{"Catan", FilterAll},
		{"SettlersofCatan", FilterAll},
		{"CatanUniverse", FilterAll},
		{"Colonist", FilterAll},
		{"twosheep", FilterAll},
		{"boardgames", FilterCatan},
		{"tabletopgaming", FilterCatan},
	}

	subs := make(Subscriptions, 0, len(defaults))
	for _, d := range defaults {
		subs = append(subs, Subscription{
			UserID:       userID,
			Subreddit:    d.subreddit,
			ShowFilter:   d.show,
			NotifyFilter: FilterNone,
		})
	}
	return subs
}

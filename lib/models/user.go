package models

import "time"

// User's ID is the opaque identity from the auth layer. TotalResponses is an
// incremental cache of the responded-set size, maintained on every status
// transition; recomputing it from the stats aggregation is a repair path.
type User struct {
	ID             string `gorm:"primarykey"`
	TotalResponses int64

	DeviceTokens []DeviceToken
}

// DeviceToken is one delivery identity for a user. Set semantics: the
// composite unique index makes re-registration a no-op.
type DeviceToken struct {
	ID        uint   `gorm:"primarykey"`
	UserID    string `gorm:"index:idx_user_token,unique"`
	Token     string `gorm:"index:idx_user_token,unique"`
	Platform  string // push | email
	CreatedAt time.Time
}

type DeviceTokens []DeviceToken

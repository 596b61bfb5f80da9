package domain

import "time"

// PersonalAccessToken is a Sanctum API token issued by the web application.
type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Abilities *string
	ExpiresAt *time.Time
}

// Expired reports whether the token stopped being valid before now.
func (t PersonalAccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

package models

import "time"

// RefreshToken is embedded in the owning user document. Only the sha256 of
// the issued token is kept.
type RefreshToken struct {
	TokenHash string    `bson:"tokenHash" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	IsActive  bool      `bson:"isActive" json:"isActive"`
}

func (t RefreshToken) Usable(now time.Time) bool {
	return t.IsActive && t.ExpiresAt.After(now)
}

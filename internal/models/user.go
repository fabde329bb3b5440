package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleUser:
		return true
	}
	return false
}

// User represents the application user account.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"passwordHash" json:"-"`
	Role          string             `bson:"role" json:"role"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	EmailVerified bool               `bson:"emailVerified" json:"emailVerified"`
	LoginAttempts int                `bson:"loginAttempts" json:"-"`
	LockUntil     *time.Time         `bson:"lockUntil,omitempty" json:"-"`
	LastLogin     *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CartData      CartData           `bson:"cartData" json:"-"`
	RefreshTokens []RefreshToken     `bson:"refreshTokens" json:"-"`

	EmailVerificationHash    string     `bson:"emailVerificationHash,omitempty" json:"-"`
	EmailVerificationExpires *time.Time `bson:"emailVerificationExpires,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the only user shape returned to clients.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func (u User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// PruneRefreshTokens drops expired and deactivated entries.
func (u *User) PruneRefreshTokens(now time.Time) {
	kept := u.RefreshTokens[:0]
	for _, token := range u.RefreshTokens {
		if token.Usable(now) {
			kept = append(kept, token)
		}
	}
	u.RefreshTokens = kept
}

// HasUsableRefreshToken reports whether an active, unexpired entry with the
// given hash exists.
func (u User) HasUsableRefreshToken(tokenHash string, now time.Time) bool {
	for _, token := range u.RefreshTokens {
		if token.TokenHash == tokenHash && token.Usable(now) {
			return true
		}
	}
	return false
}

// DeactivateRefreshToken reports whether a matching entry was found.
func (u *User) DeactivateRefreshToken(tokenHash string) bool {
	found := false
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].TokenHash == tokenHash {
			u.RefreshTokens[i].IsActive = false
			found = true
		}
	}
	return found
}

func (u *User) DeactivateAllRefreshTokens() {
	for i := range u.RefreshTokens {
		u.RefreshTokens[i].IsActive = false
	}
}

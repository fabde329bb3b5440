package auth

import (
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest work factor accepted for stored passwords.
const MinBcryptCost = 12

const argon2Prefix = "$argon2id$"

// PasswordHasher produces salted one-way hashes. Verify accepts hashes from
// either supported algorithm so switching PASSWORD_HASHER keeps old
// accounts working.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(hash, plain string) bool {
	return verifyPassword(hash, plain)
}

type Argon2Hasher struct {
	params *argon2id.Params
}

// NewArgon2Hasher uses argon2id.DefaultParams when params is nil.
func NewArgon2Hasher(params *argon2id.Params) *Argon2Hasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Argon2Hasher{params: params}
}

func (h *Argon2Hasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain, h.params)
}

func (h *Argon2Hasher) Verify(hash, plain string) bool {
	return verifyPassword(hash, plain)
}

// NewPasswordHasher picks the algorithm by name, defaulting to bcrypt.
func NewPasswordHasher(algorithm string, bcryptCost int) PasswordHasher {
	if strings.EqualFold(strings.TrimSpace(algorithm), "argon2id") {
		return NewArgon2Hasher(nil)
	}
	return NewBcryptHasher(bcryptCost)
}

func verifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	if strings.HasPrefix(hash, argon2Prefix) {
		match, err := argon2id.ComparePasswordAndHash(plain, hash)
		return err == nil && match
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

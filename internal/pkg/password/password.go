package password

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12
	// MinLength is the shortest accepted password
	MinLength = 8
)

// Cost is the bcrypt cost used by Hash. Tests lower it to bcrypt.MinCost.
var Cost = DefaultCost

// Hash hashes a password using bcrypt
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	return string(hash), err
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash was made with a cost other than Cost
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != Cost
}

// HashToken hashes a refresh token with SHA-256 for storage
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidatePassword checks the minimum length in characters
func ValidatePassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinLength
}

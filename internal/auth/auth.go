// Package auth provides password hashing and session token handling.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCookie = errors.New("invalid session cookie")

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSessionToken returns a random 256-bit token, hex encoded.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SignToken builds the cookie value "<token>.<hmac>" so a tampered cookie
// is rejected before any database lookup.
func SignToken(token, secret string) string {
	return token + "." + tokenMAC(token, secret)
}

// VerifyCookie splits and verifies a signed cookie value, returning the
// bare session token.
func VerifyCookie(value, secret string) (string, error) {
	token, mac, ok := strings.Cut(value, ".")
	if !ok || token == "" {
		return "", ErrInvalidCookie
	}
	if subtle.ConstantTimeCompare([]byte(mac), []byte(tokenMAC(token, secret))) != 1 {
		return "", ErrInvalidCookie
	}
	return token, nil
}

func tokenMAC(token, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

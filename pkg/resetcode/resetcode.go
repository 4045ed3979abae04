// Package resetcode issues and verifies stateless password-reset tokens.
// A token binds the investor id, the issue time and a keyed MAC over the
// account's current credential state. Because the password hash and the last
// sign-in time participate in the MAC, logging in or changing the password
// invalidates every outstanding token without any server-side bookkeeping.
package resetcode

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// MaxAge is how long a reset token stays valid.
const MaxAge = 2 * time.Hour

var (
	ErrInvalid = errors.New("password reset token is invalid")
	ErrExpired = errors.New("password reset token has expired")
)

// State is the account state a token is bound to.
type State struct {
	ID           string
	Email        string
	PasswordHash string
	LastLoginAt  *time.Time
}

// Generate returns a token of the form base64(id)/base64(issued)-hex(mac).
func Generate(secret []byte, st State) string {
	issued := time.Now().UTC().Format(time.RFC3339)
	ident := base64.RawURLEncoding.EncodeToString([]byte(st.ID))
	stamp := base64.RawURLEncoding.EncodeToString([]byte(issued))
	return ident + "/" + stamp + "-" + sign(secret, st, issued)
}

// SubjectID extracts the account id a token claims to belong to, so the
// caller can load the account before verifying.
func SubjectID(token string) (string, error) {
	ident, _, _, err := split(token)
	if err != nil {
		return "", err
	}
	return ident, nil
}

// Verify checks a token against the account's current state at time now.
// It fails if the token is malformed, older than MaxAge, or if the account
// state changed since issuance (sign-in or password change).
func Verify(secret []byte, token string, st State, now time.Time) error {
	ident, issued, mac, err := split(token)
	if err != nil {
		return err
	}
	if ident != st.ID {
		return ErrInvalid
	}
	issuedAt, err := time.Parse(time.RFC3339, issued)
	if err != nil {
		return ErrInvalid
	}
	if now.Sub(issuedAt) > MaxAge {
		return ErrExpired
	}
	if !hmac.Equal([]byte(mac), []byte(sign(secret, st, issued))) {
		return ErrInvalid
	}
	return nil
}

func sign(secret []byte, st State, issued string) string {
	lastLogin := ""
	if st.LastLoginAt != nil {
		lastLogin = st.LastLoginAt.UTC().Format(time.RFC3339)
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(st.ID + "|" + issued + "|" + st.Email + "|" + st.PasswordHash + "|" + lastLogin))
	return hex.EncodeToString(mac.Sum(nil))
}

func split(token string) (ident, issued, mac string, err error) {
	identPart, rest, ok := strings.Cut(token, "/")
	if !ok {
		return "", "", "", ErrInvalid
	}
	// the stamp is base64url and may itself contain '-'; the MAC is hex and
	// never does, so split at the last dash
	idx := strings.LastIndex(rest, "-")
	if idx < 0 {
		return "", "", "", ErrInvalid
	}
	stampPart, macPart := rest[:idx], rest[idx+1:]
	identBytes, err := base64.RawURLEncoding.DecodeString(identPart)
	if err != nil {
		return "", "", "", ErrInvalid
	}
	stampBytes, err := base64.RawURLEncoding.DecodeString(stampPart)
	if err != nil {
		return "", "", "", ErrInvalid
	}
	return string(identBytes), string(stampBytes), macPart, nil
}

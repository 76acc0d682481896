package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed, tampered and foreign tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrExpiredToken is returned for a genuine token past its expiry.
	ErrExpiredToken = errors.New("download token expired")
)

// SignedURLSigner issues capability tokens for stored objects. A token is
// "<base64url key>.<expiry base36>.<base64url hmac>", so it can sit in a URL
// path segment and be verified without a database round trip.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer; a non-positive ttl means one day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting read access to key until the returned time.
func (s *SignedURLSigner) Sign(key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("object key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := base64.RawURLEncoding.EncodeToString([]byte(key)) + "." + strconv.FormatInt(expiresAt.Unix(), 36)
	return payload + "." + s.mac(payload), expiresAt, nil
}

// Verify checks the token and returns the object key it grants.
func (s *SignedURLSigner) Verify(token string) (string, error) {
	cut := strings.LastIndexByte(token, '.')
	if cut <= 0 {
		return "", ErrInvalidToken
	}
	payload, signature := token[:cut], token[cut+1:]
	if !hmac.Equal([]byte(s.mac(payload)), []byte(signature)) {
		return "", ErrInvalidToken
	}

	encodedKey, rawExpiry, ok := strings.Cut(payload, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	key, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil || len(key) == 0 {
		return "", ErrInvalidToken
	}
	expiry, err := strconv.ParseInt(rawExpiry, 36, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if s.now().After(time.Unix(expiry, 0)) {
		return "", ErrExpiredToken
	}
	return string(key), nil
}

func (s *SignedURLSigner) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrLocatorExpired   = errors.New("locator expired")
	ErrLocatorSignature = errors.New("invalid locator signature")
)

// Signer produces and verifies time-limited image locators. A locator
// is a URL of the form
//
//	{base}/api/v1/images/{id}/content?expires={unix}&sig={hex hmac}
//
// signed with HMAC-SHA256 over "{id}:{expires}". Only the signature
// grants access, the store itself has no per-request auth.
type Signer struct {
	baseURL string
	secret  []byte
	ttl     time.Duration

	// now is swapped in tests
	now func() time.Time
}

func NewSigner(baseURL, secret string, ttl time.Duration) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Sign returns a locator for the image id, valid for the signer's TTL.
func (s *Signer) Sign(id string) string {
	expires := s.now().Add(s.ttl).Unix()
	sig := s.signature(id, expires)
	return fmt.Sprintf("%s/api/v1/images/%s/content?expires=%d&sig=%s", s.baseURL, id, expires, sig)
}

// Verify checks the signature and expiry parameters from an incoming
// content request.
func (s *Signer) Verify(id, expiresParam, sig string) error {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return ErrLocatorSignature
	}

	expected := s.signature(id, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrLocatorSignature
	}

	if s.now().Unix() > expires {
		return ErrLocatorExpired
	}

	return nil
}

func (s *Signer) signature(id string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", id, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default validity windows for the two token kinds.
const (
	DefaultDashboardTTL = 24 * time.Hour
	DefaultUploadTTL    = time.Hour
)

// Codec signs and verifies capability tokens with a single server-wide secret.
// The zero value is not usable; construct with NewCodec.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source. Used in tests to simulate expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec returns a Codec signing with the given secret.
func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IssueDashboard mints a dashboard token valid for ttl.
func (c *Codec) IssueDashboard(ttl time.Duration) string {
	expiresAt := c.now().Add(ttl).Unix()
	return c.seal(strconv.FormatInt(expiresAt, 10))
}

// VerifyDashboard checks a dashboard token. It never panics: any structural
// problem, signature mismatch or elapsed expiry yields a sentinel error.
func (c *Codec) VerifyDashboard(tok string) error {
	payload, err := c.open(tok)
	if err != nil {
		return err
	}
	expiresAt, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return ErrMalformed
	}
	if expiresAt < c.now().Unix() {
		return ErrExpired
	}
	return nil
}

// IssueUpload mints an upload token bound to bucketID, valid for ttl.
// The token authorizes uploads only into that bucket; callers verifying it
// must compare the returned bucket ID against the request target.
func (c *Codec) IssueUpload(bucketID string, ttl time.Duration) string {
	expiresAt := c.now().Add(ttl).Unix()
	return c.seal(fmt.Sprintf("%s:%d", bucketID, expiresAt))
}

// VerifyUpload checks an upload token and returns the bucket ID embedded in it.
func (c *Codec) VerifyUpload(tok string) (string, error) {
	payload, err := c.open(tok)
	if err != nil {
		return "", err
	}

	// Split on the last colon so a bucket ID containing the delimiter can
	// never shift the expiry field.
	i := strings.LastIndexByte(payload, ':')
	if i <= 0 {
		return "", ErrMalformed
	}
	bucketID := payload[:i]
	expiresAt, err := strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil {
		return "", ErrMalformed
	}
	if expiresAt < c.now().Unix() {
		return "", ErrExpired
	}
	return bucketID, nil
}

// seal signs the payload and encodes payload + "." + signature as base64url.
func (c *Codec) seal(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload + "." + c.sign(payload)))
}

// open decodes a token, verifies its signature in constant time and returns
// the raw payload. Expiry is left to the caller since the payload layout
// differs per token kind.
func (c *Codec) open(tok string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return "", ErrMalformed
	}

	// The hex signature contains no dots, so the last dot separates it from
	// the payload unambiguously.
	i := strings.LastIndexByte(string(decoded), '.')
	if i <= 0 {
		return "", ErrMalformed
	}
	payload := string(decoded[:i])
	sig := string(decoded[i+1:])

	expected := c.sign(payload)
	if len(sig) != len(expected) {
		return "", ErrBadSignature
	}
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", ErrBadSignature
	}
	return payload, nil
}

func (c *Codec) sign(payload string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

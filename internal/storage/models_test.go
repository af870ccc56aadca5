package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute).Unix()
	exact := now.Unix()
	future := now.Add(time.Minute).Unix()

	assert.False(t, Bucket{}.Expired(now), "permanent bucket never expires")
	assert.True(t, Bucket{ExpiresAt: &past}.Expired(now))
	assert.False(t, Bucket{ExpiresAt: &exact}.Expired(now), "expiry instant is still live")
	assert.False(t, Bucket{ExpiresAt: &future}.Expired(now))
}

func TestBucketRemaining(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, expires := Bucket{}.Remaining(now)
	assert.False(t, expires)

	future := now.Add(90 * time.Second).Unix()
	r, expires := Bucket{ExpiresAt: &future}.Remaining(now)
	assert.True(t, expires)
	assert.Equal(t, int64(90), r)

	past := now.Add(-time.Hour).Unix()
	r, expires = Bucket{ExpiresAt: &past}.Remaining(now)
	assert.True(t, expires)
	assert.Zero(t, r, "remaining clamps at zero")
}

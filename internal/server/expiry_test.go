package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := now.Unix()

	tests := []struct {
		input string
		want  *int64 // nil means permanent
	}{
		{"", nil},
		{"never", nil},
		{"1h", ptr(base + 3600)},
		{"1d", ptr(base + 86400)},
		{"1w", ptr(base + 604800)},
		{"1m", ptr(base + 2592000)},
		{"7200", ptr(base + 7200)},      // bare seconds
		{"banana", ptr(base + 604800)},  // unknown falls back to a week
		{"-5", ptr(base + 604800)},      // negative falls back too
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got := parseExpiry(tt.input, now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestExpiryTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6*time.Hour, expiryTTL("6h"))
	assert.Equal(t, 90*time.Second, expiryTTL("90"))
	assert.Equal(t, time.Hour, expiryTTL("never"))
	assert.Equal(t, time.Hour, expiryTTL("garbage"))
	assert.Equal(t, time.Hour, expiryTTL(""))
}

func ptr(v int64) *int64 { return &v }

package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleToken = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestValidToken(t *testing.T) {
	assert.True(t, ValidToken(sampleToken))
	assert.False(t, ValidToken(sampleToken[:63]))
	assert.False(t, ValidToken(sampleToken+"0"))
	assert.False(t, ValidToken(strings.ToUpper(sampleToken)))
	assert.False(t, ValidToken(strings.Repeat("g", TokenLength)))
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"bare token", sampleToken, false},
		{"padded token", "  " + sampleToken + "\n", false},
		{"verification url", "https://polls.example.com/api/presence/scan/" + sampleToken, false},
		{"trailing slash", "https://polls.example.com/verify/" + sampleToken + "/", false},
		{"url with query", "https://polls.example.com/verify/" + sampleToken + "?utm=qr", false},
		{"relative path", "/verify/" + sampleToken, false},
		{"short token", "abc123", true},
		{"url without token", "https://polls.example.com/verify/", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sampleToken, got)
		})
	}
}

func TestPresenceCredential_Expiry(t *testing.T) {
	issued := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := &PresenceCredential{IssuedAt: issued, ExpiresAt: issued.Add(30 * time.Second)}

	assert.False(t, c.Expired(issued))
	assert.False(t, c.Expired(c.ExpiresAt))
	assert.True(t, c.Expired(c.ExpiresAt.Add(time.Nanosecond)))

	assert.Equal(t, 10*time.Second, c.Remaining(issued.Add(20*time.Second)))
	assert.Equal(t, time.Duration(0), c.Remaining(issued.Add(time.Minute)))
}

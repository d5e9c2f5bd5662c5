package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShortURL_IsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no expiry", expiresAt: nil, want: false},
		{name: "expiry in the past", expiresAt: &past, want: true},
		{name: "expiry exactly now", expiresAt: &now, want: true},
		{name: "expiry in the future", expiresAt: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &ShortURL{ExpiresAt: tt.expiresAt, IsActive: true}
			assert.Equal(t, tt.want, u.IsExpired(now))
			assert.Equal(t, !tt.want, u.Usable(now))
			assert.Equal(t, tt.want, u.ToCacheEntry(now).IsExpired(now))
		})
	}
}

func TestShortURL_Usable_Inactive(t *testing.T) {
	u := &ShortURL{IsActive: false}
	assert.False(t, u.Usable(time.Now()))
}

func TestShortURL_ToCacheEntry(t *testing.T) {
	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	u := &ShortURL{
		ID:        7,
		Slug:      "ab3x9",
		TargetURL: "https://example.com",
		IsActive:  true,
	}
	recordExp := exp
	u.ExpiresAt = &recordExp

	entry := u.ToCacheEntry(now)
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, "ab3x9", entry.Slug)
	assert.Equal(t, "https://example.com", entry.TargetURL)
	assert.True(t, entry.IsActive)
	assert.Equal(t, now, entry.InsertedAt)

	// the entry must not alias the record's expiry
	*u.ExpiresAt = now.Add(-time.Hour)
	assert.Equal(t, exp, *entry.ExpiresAt)
}

func TestCacheEntry_Clone(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	entry := &CacheEntry{Slug: "abc12", ExpiresAt: &exp}

	c := entry.Clone()
	c.Slug = "zzzzz"
	*c.ExpiresAt = exp.Add(time.Hour)

	assert.Equal(t, "abc12", entry.Slug)
	assert.Equal(t, exp, *entry.ExpiresAt)
}

func TestLocation_IsEmpty(t *testing.T) {
	assert.True(t, Location{}.IsEmpty())
	assert.False(t, Location{Country: "Germany"}.IsEmpty())
}

func TestResolveStatus_String(t *testing.T) {
	assert.Equal(t, "found", ResolveFound.String())
	assert.Equal(t, "expired", ResolveExpired.String())
	assert.Equal(t, "not_found", ResolveNotFound.String())
	assert.Equal(t, ResolveFound, Found("https://x", true).Status)
	assert.True(t, Expired(true).FromCache)
	assert.False(t, NotFound(false).FromCache)
}

package domain

import (
	"time"
)

// DeviceType is the coarse device class recorded for a click
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

// ShortURL is the authoritative record of a slug mapping
type ShortURL struct {
	ID         int64      `json:"id"`
	OwnerRef   string     `json:"owner,omitempty"`
	TargetURL  string     `json:"target_url"`
	Slug       string     `json:"slug"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	ClickCount int64      `json:"click_count"`
}

// IsExpired reports whether the link has an expiry at or before now
func (u *ShortURL) IsExpired(now time.Time) bool {
	return expired(u.ExpiresAt, now)
}

// Usable reports whether the link may still redirect
func (u *ShortURL) Usable(now time.Time) bool {
	return u.IsActive && !u.IsExpired(now)
}

// ToCacheEntry projects the record into its cached form
func (u *ShortURL) ToCacheEntry(insertedAt time.Time) *CacheEntry {
	entry := &CacheEntry{
		ID:         u.ID,
		Slug:       u.Slug,
		TargetURL:  u.TargetURL,
		IsActive:   u.IsActive,
		InsertedAt: insertedAt,
	}
	if u.ExpiresAt != nil {
		exp := *u.ExpiresAt
		entry.ExpiresAt = &exp
	}
	return entry
}

// ClickEvent is one enriched, append-only click record
type ClickEvent struct {
	ID         int64      `json:"id"`
	ShortURLID int64      `json:"short_url_id"`
	ClickedAt  time.Time  `json:"clicked_at"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	Country    string     `json:"country"`
	City       string     `json:"city"`
	Region     string     `json:"region"`
	DeviceType DeviceType `json:"device_type"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
}

// CacheEntry is the disposable projection of a ShortURL kept in the lookup cache
type CacheEntry struct {
	ID         int64      `json:"id"`
	Slug       string     `json:"slug"`
	TargetURL  string     `json:"target_url"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	InsertedAt time.Time  `json:"inserted_at"`
}

// IsExpired reports whether the cached link has passed its expiry
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return expired(e.ExpiresAt, now)
}

// Clone returns a deep copy of the entry
func (e *CacheEntry) Clone() *CacheEntry {
	c := *e
	if e.ExpiresAt != nil {
		exp := *e.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

func expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !now.Before(*expiresAt)
}

// Location is the result of a geo lookup. The zero value means unknown.
type Location struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Region      string `json:"region"`
}

// IsEmpty reports whether nothing was resolved
func (l Location) IsEmpty() bool {
	return l == Location{}
}

// DeviceInfo is the classified form of a User-Agent header
type DeviceInfo struct {
	DeviceType DeviceType `json:"device_type"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
	Bot        bool       `json:"bot"`
}

// Visitor carries the request attributes needed to record a click
type Visitor struct {
	IP        string
	UserAgent string
}

// ClickJob is the message handed to the click tracker
type ClickJob struct {
	ShortURLID int64      `json:"short_url_id"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	DeviceType DeviceType `json:"device_type"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
	ClickedAt  time.Time  `json:"clicked_at"`
}

// Analytics is the aggregate view served for a single link
type Analytics struct {
	ShortURL        *ShortURL            `json:"short_url"`
	TotalClicks     int64                `json:"total_clicks"`
	DeviceStats     map[DeviceType]int64 `json:"device_stats"`
	ClicksLast7Days int64                `json:"clicks_last_7_days"`
	RecentClicks    []*ClickEvent        `json:"recent_clicks"`
}

// CreateURLRequest represents the request to shorten a URL
type CreateURLRequest struct {
	URL       string `json:"url"`
	Slug      string `json:"slug,omitempty"`
	Owner     string `json:"owner,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"` // seconds
}

// CreateURLResponse represents the response when shortening a URL
type CreateURLResponse struct {
	Slug      string     `json:"slug"`
	ShortURL  string     `json:"short_url"`
	TargetURL string     `json:"target_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Existing  bool       `json:"existing,omitempty"`
}

// ShortenParams is the validated input to the link service
type ShortenParams struct {
	URL       string
	Slug      string
	Owner     string
	ExpiresIn time.Duration
}

// LinkResponse is the API view of a short link
type LinkResponse struct {
	Slug       string     `json:"slug"`
	ShortURL   string     `json:"short_url"`
	TargetURL  string     `json:"target_url"`
	Owner      string     `json:"owner,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	ClickCount int64      `json:"click_count"`
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/metrics"
	"github.com/joshdurbin/linkpulse/internal/service/mocks"
)

const testBaseURL = "http://sho.rt"

var createdAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestHandler(links *mocks.LinkService, resolver *mocks.Resolver) http.Handler {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	return NewHandler(links, resolver, reg, testBaseURL, zerolog.Nop()).Routes()
}

func TestHandler_Redirect(t *testing.T) {
	tests := []struct {
		name             string
		path             string
		headers          map[string]string
		setupMocks       func(*mocks.Resolver)
		expectedStatus   int
		expectedLocation string
		expectedBody     string
	}{
		{
			name: "found with trailing slash",
			path: "/ab3x9/",
			setupMocks: func(r *mocks.Resolver) {
				r.On("Resolve", mock.Anything, "ab3x9", mock.Anything).Return(domain.Found("https://example.com/page", false), nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "https://example.com/page",
		},
		{
			name: "found without trailing slash",
			path: "/ab3x9",
			setupMocks: func(r *mocks.Resolver) {
				r.On("Resolve", mock.Anything, "ab3x9", mock.Anything).Return(domain.Found("https://example.com/page", true), nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "https://example.com/page",
		},
		{
			name: "expired",
			path: "/old01/",
			setupMocks: func(r *mocks.Resolver) {
				r.On("Resolve", mock.Anything, "old01", mock.Anything).Return(domain.Expired(true), nil)
			},
			expectedStatus: http.StatusGone,
			expectedBody:   "This link has expired",
		},
		{
			name: "not found",
			path: "/zzzzz/",
			setupMocks: func(r *mocks.Resolver) {
				r.On("Resolve", mock.Anything, "zzzzz", mock.Anything).Return(domain.NotFound(false), nil)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "store failure",
			path: "/ab3x9/",
			setupMocks: func(r *mocks.Resolver) {
				r.On("Resolve", mock.Anything, "ab3x9", mock.Anything).Return(domain.Resolution{}, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal server error",
		},
		{
			name: "visitor from forwarded header",
			path: "/ab3x9/",
			headers: map[string]string{
				"X-Forwarded-For": "81.2.69.142, 10.0.0.1",
				"User-Agent":      "Mozilla/5.0 (iPhone)",
			},
			setupMocks: func(r *mocks.Resolver) {
				r.On("Resolve", mock.Anything, "ab3x9", domain.Visitor{IP: "81.2.69.142", UserAgent: "Mozilla/5.0 (iPhone)"}).
					Return(domain.Found("https://example.com", false), nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "https://example.com",
		},
		{
			name:           "nested path is not a slug",
			path:           "/ab3x9/extra",
			setupMocks:     func(r *mocks.Resolver) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "root",
			path:           "/",
			setupMocks:     func(r *mocks.Resolver) {},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mocks.Resolver{}
			tt.setupMocks(resolver)
			handler := newTestHandler(&mocks.LinkService{}, resolver)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			resolver.AssertExpectations(t)
		})
	}
}

func TestHandler_CreateURL(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(*mocks.LinkService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "successful creation",
			requestBody: domain.CreateURLRequest{URL: "https://example.com", ExpiresIn: 3600},
			setupMocks: func(links *mocks.LinkService) {
				links.On("Shorten", mock.Anything, domain.ShortenParams{URL: "https://example.com", ExpiresIn: time.Hour}).
					Return(&domain.ShortURL{ID: 1, Slug: "ab3x9", TargetURL: "https://example.com", CreatedAt: createdAt, IsActive: true}, false, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"short_url":"http://sho.rt/ab3x9/"`,
		},
		{
			name:        "existing link for owner",
			requestBody: domain.CreateURLRequest{URL: "https://example.com", Owner: "user-1"},
			setupMocks: func(links *mocks.LinkService) {
				links.On("Shorten", mock.Anything, domain.ShortenParams{URL: "https://example.com", Owner: "user-1"}).
					Return(&domain.ShortURL{ID: 1, Slug: "ab3x9", TargetURL: "https://example.com", CreatedAt: createdAt, IsActive: true}, true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"existing":true`,
		},
		{
			name:           "empty URL",
			requestBody:    domain.CreateURLRequest{URL: ""},
			setupMocks:     func(links *mocks.LinkService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "URL is required",
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			setupMocks:     func(links *mocks.LinkService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid JSON",
		},
		{
			name:        "invalid URL",
			requestBody: domain.CreateURLRequest{URL: "ftp://example.com"},
			setupMocks: func(links *mocks.LinkService) {
				links.On("Shorten", mock.Anything, mock.Anything).Return(nil, false, fmt.Errorf("%w: only HTTP and HTTPS are supported", domain.ErrInvalidURL))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "only HTTP and HTTPS",
		},
		{
			name:        "slug taken",
			requestBody: domain.CreateURLRequest{URL: "https://example.com", Slug: "promo"},
			setupMocks: func(links *mocks.LinkService) {
				links.On("Shorten", mock.Anything, mock.Anything).Return(nil, false, domain.ErrSlugTaken)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:        "slug space exhausted",
			requestBody: domain.CreateURLRequest{URL: "https://example.com"},
			setupMocks: func(links *mocks.LinkService) {
				links.On("Shorten", mock.Anything, mock.Anything).Return(nil, false, domain.ErrSlugSpaceExhausted)
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:        "negative expiry",
			requestBody: domain.CreateURLRequest{URL: "https://example.com", ExpiresIn: -5},
			setupMocks: func(links *mocks.LinkService) {
				links.On("Shorten", mock.Anything, mock.Anything).Return(nil, false, domain.ErrInvalidExpiry)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &mocks.LinkService{}
			tt.setupMocks(links)
			handler := newTestHandler(links, &mocks.Resolver{})

			var body bytes.Buffer
			if jsonStr, ok := tt.requestBody.(string); ok {
				body.WriteString(jsonStr)
			} else {
				require.NoError(t, json.NewEncoder(&body).Encode(tt.requestBody))
			}

			req := httptest.NewRequest(http.MethodPost, "/api/urls", &body)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			links.AssertExpectations(t)
		})
	}
}

func TestHandler_GetURL(t *testing.T) {
	tests := []struct {
		name           string
		slug           string
		setupMocks     func(*mocks.LinkService)
		expectedStatus int
	}{
		{
			name: "successful retrieval",
			slug: "ab3x9",
			setupMocks: func(links *mocks.LinkService) {
				links.On("GetLink", mock.Anything, "ab3x9").
					Return(&domain.ShortURL{ID: 1, Slug: "ab3x9", TargetURL: "https://example.com", CreatedAt: createdAt, ClickCount: 5}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			slug: "zzzzz",
			setupMocks: func(links *mocks.LinkService) {
				links.On("GetLink", mock.Anything, "zzzzz").Return(nil, domain.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "store failure",
			slug: "ab3x9",
			setupMocks: func(links *mocks.LinkService) {
				links.On("GetLink", mock.Anything, "ab3x9").Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &mocks.LinkService{}
			tt.setupMocks(links)
			handler := newTestHandler(links, &mocks.Resolver{})

			req := httptest.NewRequest(http.MethodGet, "/api/urls/"+tt.slug, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var got domain.LinkResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, "ab3x9", got.Slug)
				assert.Equal(t, "http://sho.rt/ab3x9/", got.ShortURL)
				assert.Equal(t, int64(5), got.ClickCount)
			}
			links.AssertExpectations(t)
		})
	}
}

func TestHandler_DeleteURL(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "deactivated", expectedStatus: http.StatusNoContent},
		{name: "not found", err: domain.ErrNotFound, expectedStatus: http.StatusNotFound},
		{name: "store failure", err: assert.AnError, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &mocks.LinkService{}
			links.On("Deactivate", mock.Anything, "ab3x9").Return(tt.err)
			handler := newTestHandler(links, &mocks.Resolver{})

			req := httptest.NewRequest(http.MethodDelete, "/api/urls/ab3x9", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			links.AssertExpectations(t)
		})
	}
}

func TestHandler_ListURLs(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMocks     func(*mocks.LinkService)
		expectedStatus int
		expectedSlugs  []string
	}{
		{
			name:  "all links",
			query: "",
			setupMocks: func(links *mocks.LinkService) {
				links.On("ListLinks", mock.Anything, "").Return([]*domain.ShortURL{
					{ID: 2, Slug: "k2m7q", TargetURL: "https://example.com/b"},
					{ID: 1, Slug: "ab3x9", TargetURL: "https://example.com/a"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedSlugs:  []string{"k2m7q", "ab3x9"},
		},
		{
			name:  "owner filter",
			query: "?owner=user-1",
			setupMocks: func(links *mocks.LinkService) {
				links.On("ListLinks", mock.Anything, "user-1").Return([]*domain.ShortURL{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedSlugs:  []string{},
		},
		{
			name:  "store failure",
			query: "",
			setupMocks: func(links *mocks.LinkService) {
				links.On("ListLinks", mock.Anything, "").Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &mocks.LinkService{}
			tt.setupMocks(links)
			handler := newTestHandler(links, &mocks.Resolver{})

			req := httptest.NewRequest(http.MethodGet, "/api/urls"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedSlugs != nil {
				var got []domain.LinkResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				slugs := make([]string, 0, len(got))
				for _, l := range got {
					slugs = append(slugs, l.Slug)
				}
				assert.Equal(t, tt.expectedSlugs, slugs)
			}
			links.AssertExpectations(t)
		})
	}
}

func TestHandler_Analytics(t *testing.T) {
	stats := &domain.Analytics{
		ShortURL:        &domain.ShortURL{ID: 7, Slug: "ab3x9", TargetURL: "https://example.com"},
		TotalClicks:     12,
		DeviceStats:     map[domain.DeviceType]int64{domain.DeviceMobile: 8, domain.DeviceDesktop: 4},
		ClicksLast7Days: 5,
		RecentClicks:    []*domain.ClickEvent{{ID: 1, ShortURLID: 7, Country: "Germany"}},
	}

	tests := []struct {
		name           string
		path           string
		setupMocks     func(*mocks.LinkService)
		expectedStatus int
	}{
		{
			name: "with trailing slash",
			path: "/analytics/ab3x9/",
			setupMocks: func(links *mocks.LinkService) {
				links.On("Analytics", mock.Anything, "ab3x9").Return(stats, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "without trailing slash",
			path: "/analytics/ab3x9",
			setupMocks: func(links *mocks.LinkService) {
				links.On("Analytics", mock.Anything, "ab3x9").Return(stats, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown slug",
			path: "/analytics/zzzzz/",
			setupMocks: func(links *mocks.LinkService) {
				links.On("Analytics", mock.Anything, "zzzzz").Return(nil, domain.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &mocks.LinkService{}
			tt.setupMocks(links)
			handler := newTestHandler(links, &mocks.Resolver{})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var got domain.Analytics
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, int64(12), got.TotalClicks)
				assert.Equal(t, int64(8), got.DeviceStats[domain.DeviceMobile])
				assert.Equal(t, int64(5), got.ClicksLast7Days)
				require.Len(t, got.RecentClicks, 1)
				assert.Equal(t, "Germany", got.RecentClicks[0].Country)
			}
			links.AssertExpectations(t)
		})
	}
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	handler := newTestHandler(&mocks.LinkService{}, &mocks.Resolver{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "linkpulse_cache_hits_total")
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(&mocks.LinkService{}, &mocks.Resolver{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/urls", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "first forwarded entry",
			headers:    map[string]string{"X-Forwarded-For": "81.2.69.142, 10.0.0.1", "X-Real-IP": "10.0.0.2"},
			remoteAddr: "10.0.0.3:5555",
			want:       "81.2.69.142",
		},
		{
			name:       "real IP header",
			headers:    map[string]string{"X-Real-IP": " 81.2.69.160 "},
			remoteAddr: "10.0.0.3:5555",
			want:       "81.2.69.160",
		},
		{
			name:       "remote address host",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "IPv6 remote address",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote address without port",
			remoteAddr: "192.0.2.1",
			want:       "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ab3x9/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrExpired, http.StatusGone},
		{fmt.Errorf("%w: bad", domain.ErrInvalidURL), http.StatusBadRequest},
		{domain.ErrInvalidSlug, http.StatusBadRequest},
		{domain.ErrInvalidExpiry, http.StatusBadRequest},
		{fmt.Errorf("slug x: %w", domain.ErrSlugTaken), http.StatusConflict},
		{domain.ErrSlugSpaceExhausted, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

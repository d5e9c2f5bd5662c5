package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/service"
)

const expiredBody = "This link has expired"

// maxBodyBytes caps create request bodies
const maxBodyBytes = 1 << 20

// Handler holds the HTTP handlers for the link shortener
type Handler struct {
	links    service.LinkService
	resolver service.Resolver
	gatherer prometheus.Gatherer
	baseURL  string
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(links service.LinkService, resolver service.Resolver, gatherer prometheus.Gatherer, baseURL string, logger zerolog.Logger) *Handler {
	return &Handler{
		links:    links,
		resolver: resolver,
		gatherer: gatherer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/urls", h.CreateURL)
	mux.HandleFunc("GET /api/urls", h.ListURLs)
	mux.HandleFunc("GET /api/urls/{slug}", h.GetURL)
	mux.HandleFunc("DELETE /api/urls/{slug}", h.DeleteURL)

	mux.HandleFunc("GET /analytics/{slug}", h.Analytics)
	mux.HandleFunc("GET /analytics/{slug}/{$}", h.Analytics)

	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("GET /{slug}", h.Redirect)
	mux.HandleFunc("GET /{slug}/{$}", h.Redirect)

	return mux
}

// CreateURL handles POST /api/urls
func (h *Handler) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateURLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid JSON in create URL request")
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		http.Error(w, "URL is required", http.StatusBadRequest)
		return
	}

	link, existing, err := h.links.Shorten(r.Context(), domain.ShortenParams{
		URL:       req.URL,
		Slug:      req.Slug,
		Owner:     req.Owner,
		ExpiresIn: time.Duration(req.ExpiresIn) * time.Second,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}

	h.writeJSON(w, status, domain.CreateURLResponse{
		Slug:      link.Slug,
		ShortURL:  h.shortURL(link.Slug),
		TargetURL: link.TargetURL,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
		Existing:  existing,
	})
}

// GetURL handles GET /api/urls/{slug}
func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.GetLink(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.toResponse(link))
}

// DeleteURL handles DELETE /api/urls/{slug}
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Deactivate(r.Context(), r.PathValue("slug")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListURLs handles GET /api/urls
func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.ListLinks(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, lo.Map(links, func(link *domain.ShortURL, _ int) domain.LinkResponse {
		return h.toResponse(link)
	}))
}

// Analytics handles GET /analytics/{slug}/
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.links.Analytics(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// Redirect handles GET /{slug}/ and redirects to the target URL
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	res, err := h.resolver.Resolve(r.Context(), slug, domain.Visitor{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch res.Status {
	case domain.ResolveFound:
		http.Redirect(w, r, res.TargetURL, http.StatusFound)
	case domain.ResolveExpired:
		http.Error(w, expiredBody, http.StatusGone)
	default:
		http.NotFound(w, r)
	}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) shortURL(slug string) string {
	return h.baseURL + "/" + slug + "/"
}

func (h *Handler) toResponse(link *domain.ShortURL) domain.LinkResponse {
	return domain.LinkResponse{
		Slug:       link.Slug,
		ShortURL:   h.shortURL(link.Slug),
		TargetURL:  link.TargetURL,
		Owner:      link.OwnerRef,
		CreatedAt:  link.CreatedAt,
		ExpiresAt:  link.ExpiresAt,
		IsActive:   link.IsActive,
		ClickCount: link.ClickCount,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain errors onto status codes
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	http.Error(w, msg, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidSlug),
		errors.Is(err, domain.ErrInvalidExpiry):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSlugSpaceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientIP prefers the first X-Forwarded-For entry, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

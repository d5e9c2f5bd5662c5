package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/repository"
)

const (
	urlsTable   = "short_urls"
	clicksTable = "click_events"

	uniqueViolation = "23505"
)

var dialect = goqu.Dialect("postgres")

// Repository implements repository.Store using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

type urlRow struct {
	ID         int64      `db:"id"`
	OwnerRef   string     `db:"owner_ref"`
	TargetURL  string     `db:"target_url"`
	Slug       string     `db:"slug"`
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	IsActive   bool       `db:"is_active"`
	ClickCount int64      `db:"click_count"`
}

type clickRow struct {
	ID         int64     `db:"id"`
	ShortURLID int64     `db:"short_url_id"`
	ClickedAt  time.Time `db:"clicked_at"`
	IPAddress  string    `db:"ip_address"`
	UserAgent  string    `db:"user_agent"`
	Country    string    `db:"country"`
	City       string    `db:"city"`
	Region     string    `db:"region"`
	DeviceType string    `db:"device_type"`
	Browser    string    `db:"browser"`
	OS         string    `db:"os"`
}

type deviceCountRow struct {
	DeviceType string `db:"device_type"`
	Count      int64  `db:"count"`
}

// New connects to PostgreSQL at dsn and applies migrations
func New(ctx context.Context, dsn string) (*Repository, error) {
	if _, err := Migrate(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool, now: time.Now}, nil
}

// CreateURL inserts a new short URL
func (r *Repository) CreateURL(ctx context.Context, u *domain.ShortURL) (*domain.ShortURL, error) {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	query, args, err := dialect.Insert(urlsTable).Prepared(true).
		Rows(goqu.Record{
			"owner_ref":   u.OwnerRef,
			"target_url":  u.TargetURL,
			"slug":        u.Slug,
			"created_at":  createdAt.UTC(),
			"expires_at":  nullableTime(u.ExpiresAt),
			"is_active":   u.IsActive,
			"click_count": u.ClickCount,
		}).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	row, err := r.queryURL(ctx, query, args)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("slug %s: %w", u.Slug, domain.ErrSlugTaken)
		}
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}
	return row, nil
}

// GetActiveBySlug retrieves an active short URL by slug
func (r *Repository) GetActiveBySlug(ctx context.Context, slug string) (*domain.ShortURL, error) {
	return r.getURL(ctx, goqu.C("slug").Eq(slug), goqu.C("is_active").Eq(true))
}

// GetBySlug retrieves a short URL by slug
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*domain.ShortURL, error) {
	return r.getURL(ctx, goqu.C("slug").Eq(slug))
}

// GetByID retrieves a short URL by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.ShortURL, error) {
	return r.getURL(ctx, goqu.C("id").Eq(id))
}

// FindActiveByOwnerAndURL returns the newest unexpired active link for owner and targetURL
func (r *Repository) FindActiveByOwnerAndURL(ctx context.Context, owner, targetURL string) (*domain.ShortURL, error) {
	query, args, err := dialect.From(urlsTable).Prepared(true).
		Where(
			goqu.C("owner_ref").Eq(owner),
			goqu.C("target_url").Eq(targetURL),
			goqu.C("is_active").Eq(true),
			goqu.Or(goqu.C("expires_at").IsNull(), goqu.C("expires_at").Gt(r.now().UTC())),
		).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	u, err := r.queryURL(ctx, query, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find URL: %w", err)
	}
	return u, nil
}

// SlugExists checks if a slug is taken
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query, args, err := dialect.From(urlsTable).Prepared(true).
		Select(goqu.COUNT("*")).
		Where(goqu.C("slug").Eq(slug)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return count > 0, nil
}

// IncrementClickCount adds one to the click counter in a single statement
func (r *Repository) IncrementClickCount(ctx context.Context, id int64) error {
	query, args, err := dialect.Update(urlsTable).Prepared(true).
		Set(goqu.Record{"click_count": goqu.L("click_count + 1")}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate marks the link inactive
func (r *Repository) Deactivate(ctx context.Context, slug string) error {
	query, args, err := dialect.Update(urlsTable).Prepared(true).
		Set(goqu.Record{"is_active": false}).
		Where(goqu.C("slug").Eq(slug)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to deactivate URL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListURLs returns links newest first
func (r *Repository) ListURLs(ctx context.Context, owner string) ([]*domain.ShortURL, error) {
	ds := dialect.From(urlsTable).Prepared(true).Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	if owner != "" {
		ds = ds.Where(goqu.C("owner_ref").Eq(owner))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowToStructByName[urlRow])
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}

	out := make([]*domain.ShortURL, len(urls))
	for i := range urls {
		out[i] = urls[i].toDomain()
	}
	return out, nil
}

// RecordClick appends a click event
func (r *Repository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	clickedAt := click.ClickedAt
	if clickedAt.IsZero() {
		clickedAt = r.now()
	}

	query, args, err := dialect.Insert(clicksTable).Prepared(true).
		Rows(goqu.Record{
			"short_url_id": click.ShortURLID,
			"clicked_at":   clickedAt.UTC(),
			"ip_address":   click.IPAddress,
			"user_agent":   click.UserAgent,
			"country":      click.Country,
			"city":         click.City,
			"region":       click.Region,
			"device_type":  string(click.DeviceType),
			"browser":      click.Browser,
			"os":           click.OS,
		}).
		Returning("id").
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&click.ID); err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	click.ClickedAt = clickedAt
	return nil
}

// DeviceStats counts clicks per device type; empty types count as unknown
func (r *Repository) DeviceStats(ctx context.Context, urlID int64) (map[domain.DeviceType]int64, error) {
	query, args, err := dialect.From(clicksTable).Prepared(true).
		Select(goqu.C("device_type"), goqu.COUNT("*").As("count")).
		Where(goqu.C("short_url_id").Eq(urlID)).
		GroupBy(goqu.C("device_type")).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate device stats: %w", err)
	}
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByName[deviceCountRow])
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate device stats: %w", err)
	}

	stats := make(map[domain.DeviceType]int64, len(counts))
	for _, c := range counts {
		stats[repository.NormalizeDeviceType(c.DeviceType)] += c.Count
	}
	return stats, nil
}

// CountClicksSince counts clicks at or after since
func (r *Repository) CountClicksSince(ctx context.Context, urlID int64, since time.Time) (int64, error) {
	query, args, err := dialect.From(clicksTable).Prepared(true).
		Select(goqu.COUNT("*")).
		Where(goqu.C("short_url_id").Eq(urlID), goqu.C("clicked_at").Gte(since.UTC())).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// RecentClicks returns the newest clicks first
func (r *Repository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]*domain.ClickEvent, error) {
	if limit <= 0 {
		return []*domain.ClickEvent{}, nil
	}

	query, args, err := dialect.From(clicksTable).Prepared(true).
		Where(goqu.C("short_url_id").Eq(urlID)).
		Order(goqu.C("clicked_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent clicks: %w", err)
	}
	clicks, err := pgx.CollectRows(rows, pgx.RowToStructByName[clickRow])
	if err != nil {
		return nil, fmt.Errorf("failed to get recent clicks: %w", err)
	}

	out := make([]*domain.ClickEvent, len(clicks))
	for i := range clicks {
		out[i] = clicks[i].toDomain()
	}
	return out, nil
}

// Ping checks connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) getURL(ctx context.Context, where ...exp.Expression) (*domain.ShortURL, error) {
	query, args, err := dialect.From(urlsTable).Prepared(true).Where(where...).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	u, err := r.queryURL(ctx, query, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}
	return u, nil
}

func (r *Repository) queryURL(ctx context.Context, query string, args []any) (*domain.ShortURL, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[urlRow])
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (row urlRow) toDomain() *domain.ShortURL {
	return &domain.ShortURL{
		ID:         row.ID,
		OwnerRef:   row.OwnerRef,
		TargetURL:  row.TargetURL,
		Slug:       row.Slug,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		IsActive:   row.IsActive,
		ClickCount: row.ClickCount,
	}
}

func (row clickRow) toDomain() *domain.ClickEvent {
	return &domain.ClickEvent{
		ID:         row.ID,
		ShortURLID: row.ShortURLID,
		ClickedAt:  row.ClickedAt,
		IPAddress:  row.IPAddress,
		UserAgent:  row.UserAgent,
		Country:    row.Country,
		City:       row.City,
		Region:     row.Region,
		DeviceType: repository.NormalizeDeviceType(row.DeviceType),
		Browser:    row.Browser,
		OS:         row.OS,
	}
}

// Ensure Repository implements the interface
var _ repository.Store = (*Repository)(nil)

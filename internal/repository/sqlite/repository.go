package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/repository"
)

const (
	urlsTable   = "short_urls"
	clicksTable = "click_events"
)

// Repository implements repository.Store using SQLite
type Repository struct {
	db   *sql.DB
	goqu *goqu.Database
	now  func() time.Time
}

type urlRow struct {
	ID         int64        `db:"id"`
	OwnerRef   string       `db:"owner_ref"`
	TargetURL  string       `db:"target_url"`
	Slug       string       `db:"slug"`
	CreatedAt  time.Time    `db:"created_at"`
	ExpiresAt  sql.NullTime `db:"expires_at"`
	IsActive   bool         `db:"is_active"`
	ClickCount int64        `db:"click_count"`
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

// New opens the SQLite database at databasePath and applies migrations
func New(databasePath string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", databasePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to :memory: is a separate database
	if databasePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repository{
		db:   db,
		goqu: goqu.New("sqlite3", db),
		now:  time.Now,
	}, nil
}

// CreateURL inserts a new short URL
func (r *Repository) CreateURL(ctx context.Context, u *domain.ShortURL) (*domain.ShortURL, error) {
	created := *u
	if created.CreatedAt.IsZero() {
		created.CreatedAt = r.now()
	}
	created.CreatedAt = created.CreatedAt.UTC()

	record := goqu.Record{
		"owner_ref":   created.OwnerRef,
		"target_url":  created.TargetURL,
		"slug":        created.Slug,
		"created_at":  created.CreatedAt,
		"expires_at":  nullTime(created.ExpiresAt),
		"is_active":   created.IsActive,
		"click_count": created.ClickCount,
	}

	res, err := r.goqu.Insert(urlsTable).Prepared(true).Rows(record).Executor().ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("slug %s: %w", created.Slug, domain.ErrSlugTaken)
		}
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read URL id: %w", err)
	}
	created.ID = id

	return &created, nil
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
	var row urlRow
	found, err := r.goqu.From(urlsTable).Prepared(true).
		Where(
			goqu.Ex{"owner_ref": owner, "target_url": targetURL},
			goqu.C("is_active").Eq(true),
			goqu.Or(goqu.C("expires_at").IsNull(), goqu.C("expires_at").Gt(r.now().UTC())),
		).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(1).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to find URL: %w", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

// SlugExists checks if a slug is taken
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	count, err := r.goqu.From(urlsTable).Prepared(true).Where(goqu.Ex{"slug": slug}).CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return count > 0, nil
}

// IncrementClickCount adds one to the click counter in a single statement
func (r *Repository) IncrementClickCount(ctx context.Context, id int64) error {
	res, err := r.goqu.Update(urlsTable).Prepared(true).
		Set(goqu.Record{"click_count": goqu.L("click_count + 1")}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}
	return requireAffected(res)
}

// Deactivate marks the link inactive
func (r *Repository) Deactivate(ctx context.Context, slug string) error {
	res, err := r.goqu.Update(urlsTable).Prepared(true).
		Set(goqu.Record{"is_active": false}).
		Where(goqu.Ex{"slug": slug}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate URL: %w", err)
	}
	return requireAffected(res)
}

// ListURLs returns links newest first
func (r *Repository) ListURLs(ctx context.Context, owner string) ([]*domain.ShortURL, error) {
	ds := r.goqu.From(urlsTable).Prepared(true).Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	if owner != "" {
		ds = ds.Where(goqu.Ex{"owner_ref": owner})
	}

	var rows []urlRow
	if err := ds.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}

	urls := make([]*domain.ShortURL, len(rows))
	for i := range rows {
		urls[i] = rows[i].toDomain()
	}
	return urls, nil
}

// RecordClick appends a click event
func (r *Repository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	clickedAt := click.ClickedAt
	if clickedAt.IsZero() {
		clickedAt = r.now()
	}

	res, err := r.goqu.Insert(clicksTable).Prepared(true).Rows(goqu.Record{
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
	}).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		click.ID = id
	}
	click.ClickedAt = clickedAt
	return nil
}

// DeviceStats counts clicks per device type; empty types count as unknown
func (r *Repository) DeviceStats(ctx context.Context, urlID int64) (map[domain.DeviceType]int64, error) {
	var rows []deviceCountRow
	err := r.goqu.From(clicksTable).Prepared(true).
		Select(goqu.C("device_type"), goqu.COUNT("*").As("count")).
		Where(goqu.Ex{"short_url_id": urlID}).
		GroupBy(goqu.C("device_type")).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate device stats: %w", err)
	}

	stats := make(map[domain.DeviceType]int64, len(rows))
	for _, row := range rows {
		stats[repository.NormalizeDeviceType(row.DeviceType)] += row.Count
	}
	return stats, nil
}

// CountClicksSince counts clicks at or after since
func (r *Repository) CountClicksSince(ctx context.Context, urlID int64, since time.Time) (int64, error) {
	count, err := r.goqu.From(clicksTable).Prepared(true).
		Where(goqu.C("short_url_id").Eq(urlID), goqu.C("clicked_at").Gte(since.UTC())).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// RecentClicks returns the newest clicks first
func (r *Repository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]*domain.ClickEvent, error) {
	if limit <= 0 {
		return []*domain.ClickEvent{}, nil
	}

	var rows []clickRow
	err := r.goqu.From(clicksTable).Prepared(true).
		Where(goqu.Ex{"short_url_id": urlID}).
		Order(goqu.C("clicked_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent clicks: %w", err)
	}

	clicks := make([]*domain.ClickEvent, len(rows))
	for i := range rows {
		clicks[i] = rows[i].toDomain()
	}
	return clicks, nil
}

// DB exposes the underlying connection for health checks
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) getURL(ctx context.Context, where ...exp.Expression) (*domain.ShortURL, error) {
	var row urlRow
	found, err := r.goqu.From(urlsTable).Prepared(true).Where(where...).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

func (row urlRow) toDomain() *domain.ShortURL {
	u := &domain.ShortURL{
		ID:         row.ID,
		OwnerRef:   row.OwnerRef,
		TargetURL:  row.TargetURL,
		Slug:       row.Slug,
		CreatedAt:  row.CreatedAt,
		IsActive:   row.IsActive,
		ClickCount: row.ClickCount,
	}
	if row.ExpiresAt.Valid {
		exp := row.ExpiresAt.Time
		u.ExpiresAt = &exp
	}
	return u
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

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Ensure Repository implements the interface
var _ repository.Store = (*Repository)(nil)

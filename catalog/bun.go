package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

const defaultSearchLimit = 10

// Config holds the Postgres connection settings for the catalog.
type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// BunRepository implements Repository over Postgres via bun.
type BunRepository struct {
	db *bun.DB
}

var _ Repository = (*BunRepository)(nil)

// Open connects to Postgres and returns a repository. The caller owns the
// underlying DB lifecycle via Close.
func Open(cfg Config) (*BunRepository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("catalog dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return NewBunRepository(bun.NewDB(sqldb, pgdialect.New())), nil
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) Close() error {
	return r.db.Close()
}

func (r *BunRepository) Search(ctx context.Context, q SearchQuery) ([]Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var products []Product
	query := r.db.NewSelect().
		Model(&products).
		Where("p.domain = ?", string(q.Domain)).
		Where("p.in_stock = TRUE")

	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + strings.ToLower(text) + "%"
		query = query.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("LOWER(p.name) LIKE ?", pattern).
				WhereOr("LOWER(p.description) LIKE ?", pattern).
				WhereOr("LOWER(p.category) LIKE ?", pattern)
		})
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		query = query.Where("LOWER(p.category) = ?", strings.ToLower(category))
	}
	if brand := strings.TrimSpace(q.Brand); brand != "" {
		query = query.Where("LOWER(p.brand) = ?", strings.ToLower(brand))
	}
	if q.MinPrice > 0 {
		query = query.Where("p.price >= ?", q.MinPrice)
	}
	if q.MaxPrice > 0 {
		query = query.Where("p.price <= ?", q.MaxPrice)
	}

	if err := query.Order("rating DESC", "price ASC").Limit(limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: search: %v", contractx.ErrRepository, err)
	}
	return products, nil
}

func (r *BunRepository) ByID(ctx context.Context, domain contractx.Domain, id string) (*Product, error) {
	product := new(Product)
	err := r.db.NewSelect().
		Model(product).
		Where("p.domain = ?", string(domain)).
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: by id: %v", contractx.ErrRepository, err)
	}
	return product, nil
}

func (r *BunRepository) ByName(ctx context.Context, domain contractx.Domain, name string) (*Product, error) {
	product := new(Product)
	err := r.db.NewSelect().
		Model(product).
		Where("p.domain = ?", string(domain)).
		Where("LOWER(p.name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(name))+"%").
		Order("rating DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: by name: %v", contractx.ErrRepository, err)
	}
	return product, nil
}

func (r *BunRepository) Categories(ctx context.Context, domain contractx.Domain) ([]string, error) {
	var categories []string
	err := r.db.NewSelect().
		Model((*Product)(nil)).
		Column("category").
		Where("p.domain = ?", string(domain)).
		Where("category <> ''").
		Distinct().
		Order("category ASC").
		Scan(ctx, &categories)
	if err != nil {
		return nil, fmt.Errorf("%w: categories: %v", contractx.ErrRepository, err)
	}
	return categories, nil
}

func (r *BunRepository) PriceRange(ctx context.Context, domain contractx.Domain, category string) (float64, float64, error) {
	var bounds struct {
		Min float64 `bun:"min"`
		Max float64 `bun:"max"`
	}
	query := r.db.NewSelect().
		Model((*Product)(nil)).
		ColumnExpr("COALESCE(MIN(price), 0) AS min, COALESCE(MAX(price), 0) AS max").
		Where("p.domain = ?", string(domain))
	if c := strings.TrimSpace(category); c != "" {
		query = query.Where("LOWER(p.category) = ?", strings.ToLower(c))
	}
	if err := query.Scan(ctx, &bounds); err != nil {
		return 0, 0, fmt.Errorf("%w: price range: %v", contractx.ErrRepository, err)
	}
	return bounds.Min, bounds.Max, nil
}

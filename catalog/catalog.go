// Package catalog is the read-only record-query contract used by the
// discovery, detail, and comparison handlers. The core never writes through
// it.
package catalog

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

var ErrNotFound = errors.New("product not found")

// Product is one catalog record. Attributes carries domain-specific fields
// (room amenities, property bedrooms, ...) that don't warrant columns.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          string         `bun:",pk" json:"id"`
	Domain      string         `bun:"domain,notnull" json:"domain"`
	Name        string         `bun:"name,notnull" json:"name"`
	Description string         `bun:"description" json:"description"`
	Category    string         `bun:"category" json:"category"`
	Brand       string         `bun:"brand" json:"brand"`
	Price       float64        `bun:"price" json:"price"`
	Rating      float64        `bun:"rating" json:"rating"`
	InStock     bool           `bun:"in_stock" json:"in_stock"`
	ImageURL    string         `bun:"image_url" json:"image_url,omitempty"`
	Attributes  map[string]any `bun:"attributes,type:jsonb" json:"attributes,omitempty"`
}

// SearchQuery narrows a catalog search. Zero fields are ignored.
type SearchQuery struct {
	Domain   contractx.Domain
	Text     string
	Category string
	Brand    string
	MinPrice float64
	MaxPrice float64
	Limit    int
}

// Repository is the record-query contract consumed by capability handlers.
type Repository interface {
	Search(ctx context.Context, q SearchQuery) ([]Product, error)
	ByID(ctx context.Context, domain contractx.Domain, id string) (*Product, error)
	ByName(ctx context.Context, domain contractx.Domain, name string) (*Product, error)
	Categories(ctx context.Context, domain contractx.Domain) ([]string, error)
	PriceRange(ctx context.Context, domain contractx.Domain, category string) (min, max float64, err error)
}

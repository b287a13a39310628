package catalog

import (
	"context"
	"sort"
	"strings"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// MemoryRepository is an in-process Repository used when no database is
// configured, and by tests. Reads are safe for concurrent use; the product
// set is fixed at construction.
type MemoryRepository struct {
	products []Product
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(products ...Product) *MemoryRepository {
	copied := make([]Product, len(products))
	copy(copied, products)
	return &MemoryRepository{products: copied}
}

func (r *MemoryRepository) Search(_ context.Context, q SearchQuery) ([]Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var out []Product
	for _, p := range r.products {
		if !matchesDomain(p, q.Domain) || !p.InStock {
			continue
		}
		if text := strings.TrimSpace(q.Text); text != "" && !containsFold(p.Name, text) &&
			!containsFold(p.Description, text) && !containsFold(p.Category, text) {
			continue
		}
		if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(p.Category, c) {
			continue
		}
		if b := strings.TrimSpace(q.Brand); b != "" && !strings.EqualFold(p.Brand, b) {
			continue
		}
		if q.MinPrice > 0 && p.Price < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && p.Price > q.MaxPrice {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Rating != out[b].Rating {
			return out[a].Rating > out[b].Rating
		}
		return out[a].Price < out[b].Price
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) ByID(_ context.Context, domain contractx.Domain, id string) (*Product, error) {
	for _, p := range r.products {
		if matchesDomain(p, domain) && p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ByName(_ context.Context, domain contractx.Domain, name string) (*Product, error) {
	needle := strings.TrimSpace(name)
	var best *Product
	for i, p := range r.products {
		if !matchesDomain(p, domain) || !containsFold(p.Name, needle) {
			continue
		}
		if best == nil || p.Rating > best.Rating {
			best = &r.products[i]
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	found := *best
	return &found, nil
}

func (r *MemoryRepository) Categories(_ context.Context, domain contractx.Domain) ([]string, error) {
	seen := make(map[string]struct{})
	var categories []string
	for _, p := range r.products {
		if !matchesDomain(p, domain) || p.Category == "" {
			continue
		}
		if _, dup := seen[p.Category]; dup {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *MemoryRepository) PriceRange(_ context.Context, domain contractx.Domain, category string) (float64, float64, error) {
	var min, max float64
	first := true
	for _, p := range r.products {
		if !matchesDomain(p, domain) {
			continue
		}
		if c := strings.TrimSpace(category); c != "" && !strings.EqualFold(p.Category, c) {
			continue
		}
		if first {
			min, max = p.Price, p.Price
			first = false
			continue
		}
		if p.Price < min {
			min = p.Price
		}
		if p.Price > max {
			max = p.Price
		}
	}
	return min, max, nil
}

func matchesDomain(p Product, domain contractx.Domain) bool {
	return p.Domain == string(domain)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

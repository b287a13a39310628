package catalog

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

func testRepo() *MemoryRepository {
	return NewMemoryRepository(
		Product{ID: "p1", Domain: "ecommerce", Name: "Aurora 14", Description: "ultrabook", Category: "laptops", Brand: "Aurora", Price: 1199, Rating: 4.6, InStock: true},
		Product{ID: "p2", Domain: "ecommerce", Name: "Aurora 16 Pro", Description: "creator laptop", Category: "laptops", Brand: "Aurora", Price: 1899, Rating: 4.8, InStock: true},
		Product{ID: "p3", Domain: "ecommerce", Name: "Breeze Buds", Description: "earbuds", Category: "audio", Brand: "Breeze", Price: 149, Rating: 4.3, InStock: true},
		Product{ID: "p4", Domain: "ecommerce", Name: "Vertex Monitor", Description: "4k monitor", Category: "monitors", Brand: "Vertex", Price: 429, Rating: 4.4, InStock: false},
		Product{ID: "h1", Domain: "hotel", Name: "Seaside Suite", Description: "ocean view", Category: "suites", Price: 320, Rating: 4.9, InStock: true},
	)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	ctx := context.Background()

	products, err := repo.Search(ctx, SearchQuery{Domain: contractx.DomainEcommerce, Category: "laptops"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 laptops, got %d", len(products))
	}
	if products[0].ID != "p2" {
		t.Fatalf("expected rating sort, got %s first", products[0].ID)
	}
}

func TestSearchExcludesOutOfStockAndOtherDomains(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	products, err := repo.Search(context.Background(), SearchQuery{Domain: contractx.DomainEcommerce})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, p := range products {
		if p.ID == "p4" {
			t.Fatal("out-of-stock product returned")
		}
		if p.ID == "h1" {
			t.Fatal("other-domain product returned")
		}
	}
}

func TestSearchPriceBounds(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	products, err := repo.Search(context.Background(), SearchQuery{
		Domain:   contractx.DomainEcommerce,
		MinPrice: 1000,
		MaxPrice: 1500,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1" {
		t.Fatalf("products = %+v", products)
	}
}

func TestSearchTextMatchesNameAndDescription(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	products, err := repo.Search(context.Background(), SearchQuery{
		Domain: contractx.DomainEcommerce,
		Text:   "earbuds",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 1 || products[0].ID != "p3" {
		t.Fatalf("products = %+v", products)
	}
}

func TestByNamePrefersBestRated(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	product, err := repo.ByName(context.Background(), contractx.DomainEcommerce, "aurora")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if product.ID != "p2" {
		t.Fatalf("expected best-rated match, got %s", product.ID)
	}
}

func TestByIDNotFound(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	if _, err := repo.ByID(context.Background(), contractx.DomainEcommerce, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Right id, wrong domain.
	if _, err := repo.ByID(context.Background(), contractx.DomainHotel, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across domains, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	categories, err := repo.Categories(context.Background(), contractx.DomainEcommerce)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	want := []string{"audio", "laptops", "monitors"}
	if len(categories) != len(want) {
		t.Fatalf("categories = %+v", categories)
	}
	for i := range want {
		if categories[i] != want[i] {
			t.Fatalf("categories = %+v, want %+v", categories, want)
		}
	}
}

func TestPriceRange(t *testing.T) {
	t.Parallel()

	repo := testRepo()
	min, max, err := repo.PriceRange(context.Background(), contractx.DomainEcommerce, "laptops")
	if err != nil {
		t.Fatalf("PriceRange() error = %v", err)
	}
	if min != 1199 || max != 1899 {
		t.Fatalf("range = %v..%v", min, max)
	}
}

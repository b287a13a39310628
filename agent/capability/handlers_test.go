package capability

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/chatwright/chatwright/agent/contract"
	schemax "github.com/chatwright/chatwright/agent/schema"
	"github.com/chatwright/chatwright/catalog"
)

type failingRepo struct{}

func (failingRepo) Search(context.Context, catalog.SearchQuery) ([]catalog.Product, error) {
	return nil, errors.New("db down")
}

func (failingRepo) ByID(context.Context, contractx.Domain, string) (*catalog.Product, error) {
	return nil, errors.New("db down")
}

func (failingRepo) ByName(context.Context, contractx.Domain, string) (*catalog.Product, error) {
	return nil, errors.New("db down")
}

func (failingRepo) Categories(context.Context, contractx.Domain) ([]string, error) {
	return nil, errors.New("db down")
}

func (failingRepo) PriceRange(context.Context, contractx.Domain, string) (float64, float64, error) {
	return 0, 0, errors.New("db down")
}

func sampleRepo() *catalog.MemoryRepository {
	return catalog.NewMemoryRepository(
		catalog.Product{ID: "p1", Domain: "ecommerce", Name: "Aurora 14", Description: "14-inch ultrabook", Category: "laptops", Brand: "Aurora", Price: 1199, Rating: 4.6, InStock: true},
		catalog.Product{ID: "p2", Domain: "ecommerce", Name: "Aurora 16 Pro", Description: "16-inch creator laptop", Category: "laptops", Brand: "Aurora", Price: 1899, Rating: 4.8, InStock: true},
		catalog.Product{ID: "p3", Domain: "ecommerce", Name: "Breeze Buds", Description: "wireless earbuds", Category: "audio", Brand: "Breeze", Price: 149, Rating: 4.3, InStock: true},
	)
}

func ecommerceSnapshot() contractx.TurnSnapshot {
	return contractx.TurnSnapshot{
		SessionID: "s1",
		Domain:    contractx.DomainEcommerce,
	}
}

func TestDiscoverReturnsCarousel(t *testing.T) {
	t.Parallel()

	h := &DiscoverHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityDiscover,
		Params:     map[string]any{"category": "laptops"},
	}, ecommerceSnapshot())

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Format != contractx.FormatCarousel {
		t.Fatalf("Format = %q", resp.Format)
	}
	items, ok := resp.Payload["items"].([]map[string]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %+v", resp.Payload["items"])
	}
	// Rating order: Aurora 16 Pro first.
	if items[0]["title"] != "Aurora 16 Pro" {
		t.Fatalf("items[0] = %+v", items[0])
	}
}

func TestDiscoverBudgetRange(t *testing.T) {
	t.Parallel()

	h := &DiscoverHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityDiscover,
		Params:     map[string]any{"budget_range": "Under $500"},
	}, ecommerceSnapshot())

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	items := resp.Payload["items"].([]map[string]any)
	if len(items) != 1 || items[0]["title"] != "Breeze Buds" {
		t.Fatalf("items = %+v", items)
	}
}

func TestDiscoverEmptyResultIsGraceful(t *testing.T) {
	t.Parallel()

	h := &DiscoverHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityDiscover,
		Params:     map[string]any{"category": "yachts"},
	}, ecommerceSnapshot())

	if !resp.Success {
		t.Fatalf("empty result must still succeed: %+v", resp)
	}
	if resp.Format != contractx.FormatQuickReplies {
		t.Fatalf("Format = %q", resp.Format)
	}
}

func TestDiscoverRepoFailure(t *testing.T) {
	t.Parallel()

	h := &DiscoverHandler{repo: failingRepo{}}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityDiscover,
	}, ecommerceSnapshot())

	if resp.Success {
		t.Fatal("repo failure must yield a failed response")
	}
	if resp.Format != contractx.FormatError {
		t.Fatalf("Format = %q", resp.Format)
	}
	if resp.Content == "" {
		t.Fatal("failed response still needs user-facing content")
	}
}

func TestDetailsByName(t *testing.T) {
	t.Parallel()

	h := &DetailsHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityGetDetails,
		Params:     map[string]any{"product_name": "aurora 14"},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatDetail {
		t.Fatalf("unexpected response: %+v", resp)
	}
	product, ok := resp.Payload["product"].(*catalog.Product)
	if !ok || product.ID != "p1" {
		t.Fatalf("payload product = %+v", resp.Payload["product"])
	}
}

func TestDetailsNotFoundIsGraceful(t *testing.T) {
	t.Parallel()

	h := &DetailsHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityGetDetails,
		Params:     map[string]any{"product_name": "nonexistent"},
	}, ecommerceSnapshot())

	if !resp.Success {
		t.Fatalf("not-found must stay successful: %+v", resp)
	}
	if resp.Format != contractx.FormatQuickReplies {
		t.Fatalf("Format = %q", resp.Format)
	}
}

func TestDetailsMissingParamAsksBack(t *testing.T) {
	t.Parallel()

	h := &DetailsHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityGetDetails,
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatQuickReplies {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCompareDeterministicSummary(t *testing.T) {
	t.Parallel()

	h := &CompareHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityCompare,
		Params:     map[string]any{"products": []any{"Aurora 14", "Aurora 16 Pro"}},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatComparison {
		t.Fatalf("unexpected response: %+v", resp)
	}
	rows, ok := resp.Payload["products"].([]map[string]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("products payload = %+v", resp.Payload["products"])
	}
	if resp.Content == "" {
		t.Fatal("expected deterministic summary content")
	}
}

func TestCompareCommaSeparatedList(t *testing.T) {
	t.Parallel()

	h := &CompareHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityCompare,
		Params:     map[string]any{"products": "Aurora 14, Breeze Buds"},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatComparison {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCompareTooFewProducts(t *testing.T) {
	t.Parallel()

	h := &CompareHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityCompare,
		Params:     map[string]any{"products": []any{"Aurora 14"}},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatQuickReplies {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClarifyRendersForm(t *testing.T) {
	t.Parallel()

	h := &ClarifyHandler{}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityClarify,
		Params:     map[string]any{"missing_params": []any{"category", "budget_range"}},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatForm {
		t.Fatalf("unexpected response: %+v", resp)
	}
	form, ok := resp.Payload["form"].(map[string]any)
	if !ok {
		t.Fatalf("form payload = %+v", resp.Payload)
	}
	fields := form["fields"].([]schemax.FormField)
	if len(fields) != 2 {
		t.Fatalf("fields = %+v", fields)
	}
	for _, f := range fields {
		if !f.Required {
			t.Fatalf("clarify fields must be required: %+v", f)
		}
	}
}

func TestGenerateFormUsesLiveCategories(t *testing.T) {
	t.Parallel()

	h := &FormHandler{repo: sampleRepo()}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityGenerateForm,
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatForm {
		t.Fatalf("unexpected response: %+v", resp)
	}
	form := resp.Payload["form"].(map[string]any)
	fields := form["fields"].([]schemax.FormField)
	var found bool
	for _, f := range fields {
		if f.Name == "category" {
			found = true
			if len(f.Options) != 2 {
				t.Fatalf("category options = %+v", f.Options)
			}
		}
	}
	if !found {
		t.Fatalf("no category field in %+v", fields)
	}
}

func TestGeneralGreetingShortCircuits(t *testing.T) {
	t.Parallel()

	h := &GeneralHandler{}
	snap := ecommerceSnapshot()
	snap.Message = "Hello!"

	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityGeneral,
	}, snap)

	if !resp.Success {
		t.Fatalf("greeting must succeed: %+v", resp)
	}
	if !strings.Contains(resp.Content, "Hello") {
		t.Fatalf("expected greeting reply, got %q", resp.Content)
	}
	if len(resp.QuickReplies) == 0 {
		t.Fatal("greeting should carry domain quick replies")
	}
}

func TestGeneralWithoutGatewayFallsBack(t *testing.T) {
	t.Parallel()

	h := &GeneralHandler{}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityGeneral,
	}, ecommerceSnapshot())

	if !resp.Success {
		t.Fatalf("fallback must succeed: %+v", resp)
	}
	if resp.Content == "" {
		t.Fatal("fallback needs content")
	}
}

func TestStatusExplainsStages(t *testing.T) {
	t.Parallel()

	h := &StatusHandler{}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityStatus,
		Params:     map[string]any{"order_id": "ORD-42", "stage": "payment"},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatText {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Payload["current_stage"] != "payment" {
		t.Fatalf("current_stage = %v", resp.Payload["current_stage"])
	}
}

func TestStatusUnknownStageMakesNoClaim(t *testing.T) {
	t.Parallel()

	h := &StatusHandler{}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityStatus,
		Params:     map[string]any{"order_id": "ORD-42", "stage": "teleporting"},
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatText {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Content, "couldn't match") {
		t.Fatalf("unmatched stage must be acknowledged, got %q", resp.Content)
	}
	if _, ok := resp.Payload["current_stage"]; ok {
		t.Fatalf("unmatched stage must not claim a current stage: %+v", resp.Payload)
	}
}

func TestStatusMissingOrderIDAsksViaForm(t *testing.T) {
	t.Parallel()

	h := &StatusHandler{}
	resp := h.Execute(context.Background(), contractx.AgentAction{
		Capability: contractx.CapabilityStatus,
	}, ecommerceSnapshot())

	if !resp.Success || resp.Format != contractx.FormatForm {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestNewRegistryCoversEveryDomain(t *testing.T) {
	t.Parallel()

	domains := []contractx.Domain{
		contractx.DomainEcommerce,
		contractx.DomainHotel,
		contractx.DomainRealEstate,
		contractx.DomainRental,
		contractx.DomainGeneric,
	}
	for _, domain := range domains {
		registry, err := NewRegistry(context.Background(), Deps{Repo: sampleRepo()}, domain)
		if err != nil {
			t.Fatalf("NewRegistry(%s) error = %v", domain, err)
		}
		for _, c := range []contractx.Capability{
			contractx.CapabilityDiscover,
			contractx.CapabilityGetDetails,
			contractx.CapabilityCompare,
			contractx.CapabilityClarify,
			contractx.CapabilityGenerateForm,
			contractx.CapabilityGeneral,
			contractx.CapabilityStatus,
		} {
			if _, ok := registry.Lookup(c); !ok {
				t.Fatalf("domain %s missing handler for %s", domain, c)
			}
		}
	}
}

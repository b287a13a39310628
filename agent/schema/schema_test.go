package schema

import (
	"testing"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

func TestForFallsBackToGeneric(t *testing.T) {
	t.Parallel()

	d := For(contractx.Domain("space_travel"))
	if d.Domain != contractx.DomainGeneric {
		t.Fatalf("Domain = %q, want generic", d.Domain)
	}
	if len(d.ConversationTypes) == 0 || len(d.Capabilities) == 0 {
		t.Fatal("generic descriptor must carry a full vocabulary")
	}
}

func TestDomainMandatoryParams(t *testing.T) {
	t.Parallel()

	cases := []struct {
		domain contractx.Domain
		want   []string
	}{
		{contractx.DomainEcommerce, []string{"category"}},
		{contractx.DomainHotel, []string{"check_in", "check_out"}},
		{contractx.DomainRealEstate, []string{"location"}},
		{contractx.DomainRental, nil},
		{contractx.DomainGeneric, nil},
	}
	for _, tc := range cases {
		got := For(tc.domain).Mandatory(contractx.CapabilityDiscover)
		if len(got) != len(tc.want) {
			t.Fatalf("%s discover mandatory = %+v, want %+v", tc.domain, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("%s discover mandatory = %+v, want %+v", tc.domain, got, tc.want)
			}
		}
	}
}

func TestVocabularyLookups(t *testing.T) {
	t.Parallel()

	d := For(contractx.DomainEcommerce)
	if !d.HasConversationType(contractx.ConversationProductDiscovery) {
		t.Fatal("product_discovery should be known")
	}
	if d.HasConversationType(contractx.ConversationType("banter")) {
		t.Fatal("unknown type should not be known")
	}
	if !d.HasCapability(contractx.CapabilityCompare) {
		t.Fatal("compare should be known")
	}
	if d.HasCapability(contractx.Capability("teleport")) {
		t.Fatal("unknown capability should not be known")
	}
}

func TestClarifyIsAlwaysSatisfiable(t *testing.T) {
	t.Parallel()

	for domain := range descriptors {
		d := For(domain)
		if !d.HasCapability(contractx.CapabilityClarify) {
			t.Fatalf("%s lacks clarify_params", domain)
		}
	}
}

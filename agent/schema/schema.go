// Package schema holds the read-only per-domain business descriptors:
// conversation-type vocabulary, capability vocabulary, mandatory parameters
// per capability, and presentation defaults. The core reads these at
// classification and planning time and never mutates them.
package schema

import contractx "github.com/chatwright/chatwright/agent/contract"

// FormField describes one input of a dynamically generated form.
type FormField struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"` // text, number, select, date
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Descriptor is the full configuration profile for one business domain.
type Descriptor struct {
	Domain            contractx.Domain
	ConversationTypes []contractx.ConversationType
	Capabilities      []contractx.Capability
	MandatoryParams   map[contractx.Capability][]string
	QuickReplies      map[contractx.ConversationType][]string
	FormFields        map[string]FormField
	ProcessStages     []string
	SearchFields      []string
}

// HasConversationType reports whether t is in the domain's vocabulary.
func (d Descriptor) HasConversationType(t contractx.ConversationType) bool {
	for _, ct := range d.ConversationTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// HasCapability reports whether c is in the domain's action vocabulary.
func (d Descriptor) HasCapability(c contractx.Capability) bool {
	for _, known := range d.Capabilities {
		if known == c {
			return true
		}
	}
	return false
}

// Mandatory returns the mandatory parameter names for a capability.
func (d Descriptor) Mandatory(c contractx.Capability) []string {
	return d.MandatoryParams[c]
}

var allConversationTypes = []contractx.ConversationType{
	contractx.ConversationCompanyInfo,
	contractx.ConversationProductDiscovery,
	contractx.ConversationProductDetail,
	contractx.ConversationProcessQuestions,
	contractx.ConversationGeneral,
}

var allCapabilities = []contractx.Capability{
	contractx.CapabilityDiscover,
	contractx.CapabilityGetDetails,
	contractx.CapabilityCompare,
	contractx.CapabilityClarify,
	contractx.CapabilityGenerateForm,
	contractx.CapabilityGeneral,
	contractx.CapabilityStatus,
}

func baseDescriptor(domain contractx.Domain) Descriptor {
	return Descriptor{
		Domain:            domain,
		ConversationTypes: allConversationTypes,
		Capabilities:      allCapabilities,
		MandatoryParams: map[contractx.Capability][]string{
			contractx.CapabilityDiscover:     nil,
			contractx.CapabilityGetDetails:   {"product_name"},
			contractx.CapabilityCompare:      {"products"},
			contractx.CapabilityClarify:      {"missing_params"},
			contractx.CapabilityGenerateForm: nil,
			contractx.CapabilityGeneral:      nil,
			contractx.CapabilityStatus:       {"order_id"},
		},
		QuickReplies: map[contractx.ConversationType][]string{
			contractx.ConversationCompanyInfo: {
				"Tell me about your company", "What services do you offer?", "Where are you located?",
			},
			contractx.ConversationProductDiscovery: {
				"Show me recommendations", "What's popular?", "Filter by price",
			},
			contractx.ConversationProductDetail: {
				"Show me specifications", "Compare with similar products", "Check availability",
			},
			contractx.ConversationGeneral: {
				"Get help", "Browse options", "Contact support",
			},
		},
		FormFields: map[string]FormField{
			"budget_range": {Name: "budget_range", Label: "Budget", Type: "select", Options: []string{"Under $500", "$500-$1000", "$1000-$2000", "Over $2000"}},
			"category":     {Name: "category", Label: "Category", Type: "text", Placeholder: "e.g. laptops"},
			"preferences":  {Name: "preferences", Label: "Preferences", Type: "text", Placeholder: "What matters most to you?"},
			"order_id":     {Name: "order_id", Label: "Order number", Type: "text", Required: true},
		},
		ProcessStages: []string{"inquiry", "order", "payment", "fulfilment", "delivery"},
		SearchFields:  []string{"category", "budget_range"},
	}
}

var descriptors = map[contractx.Domain]Descriptor{
	contractx.DomainEcommerce: func() Descriptor {
		d := baseDescriptor(contractx.DomainEcommerce)
		d.MandatoryParams[contractx.CapabilityDiscover] = []string{"category"}
		d.ProcessStages = []string{"cart", "checkout", "payment", "shipping", "delivery"}
		d.SearchFields = []string{"category", "brand", "budget_range", "rating"}
		d.QuickReplies[contractx.ConversationGeneral] = []string{"Browse products", "Track order", "Contact support"}
		return d
	}(),
	contractx.DomainHotel: func() Descriptor {
		d := baseDescriptor(contractx.DomainHotel)
		d.MandatoryParams[contractx.CapabilityDiscover] = []string{"check_in", "check_out"}
		d.ProcessStages = []string{"search", "booking", "payment", "confirmation", "check_in"}
		d.SearchFields = []string{"check_in", "check_out", "guests", "location"}
		d.FormFields["check_in"] = FormField{Name: "check_in", Label: "Check-in date", Type: "date", Required: true}
		d.FormFields["check_out"] = FormField{Name: "check_out", Label: "Check-out date", Type: "date", Required: true}
		return d
	}(),
	contractx.DomainRealEstate: func() Descriptor {
		d := baseDescriptor(contractx.DomainRealEstate)
		d.MandatoryParams[contractx.CapabilityDiscover] = []string{"location"}
		d.ProcessStages = []string{"inquiry", "viewing", "application", "approval", "signing"}
		d.SearchFields = []string{"location", "budget_range", "property_type", "bedrooms"}
		d.FormFields["location"] = FormField{Name: "location", Label: "Location", Type: "text", Required: true}
		return d
	}(),
	contractx.DomainRental: func() Descriptor {
		d := baseDescriptor(contractx.DomainRental)
		d.ProcessStages = []string{"reservation", "pickup", "usage", "return", "billing"}
		d.SearchFields = []string{"category", "date_range", "budget_range"}
		return d
	}(),
	contractx.DomainGeneric: baseDescriptor(contractx.DomainGeneric),
}

// For returns the descriptor for a domain; unknown domains fall back to the
// generic profile so classification and planning always have a vocabulary.
func For(domain contractx.Domain) Descriptor {
	if d, ok := descriptors[domain]; ok {
		return d
	}
	return descriptors[contractx.DomainGeneric]
}

package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/planner.txt
	plannerRaw string

	//go:embed template/general.txt
	generalRaw string

	//go:embed template/compare.txt
	compareRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Planner    string
	General    string
	Compare    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Planner:    strings.TrimSpace(plannerRaw),
		General:    strings.TrimSpace(generalRaw),
		Compare:    strings.TrimSpace(compareRaw),
	}
}

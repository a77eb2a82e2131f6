package lint

import (
	"slices"
)

const RedundantOverride = "diagnostic-definition-redundant-override"

type Rule struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Rules lists every check the linter knows, by ID
var Rules = []Rule{
	{
		ID:          RedundantOverride,
		Description: "An override repeats a value already defined by an ancestor definition",
		Severity:    SeverityWarning,
	},
}

func LookupRule(id string) (Rule, bool) {
	i := slices.IndexFunc(Rules, func(r Rule) bool { return r.ID == id })
	if i < 0 {
		return Rule{}, false
	}
	return Rules[i], true
}

func RuleIDs() []string {
	ids := make([]string, 0, len(Rules))
	for _, r := range Rules {
		ids = append(ids, r.ID)
	}
	return ids
}

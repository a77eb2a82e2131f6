package resolution

import (
	"fmt"

	"github.com/GlintPay/defcheck/definition"
)

// Duplicate is an explicit override that has no effect and can be removed
type Duplicate struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
	Parent string `json:"parent"`
}

func (d Duplicate) String() string {
	return fmt.Sprintf("%s: %s (%s, already set by %s);", d.Key, definition.FormatValue(d.Value), d.Source, d.Parent)
}

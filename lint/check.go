package lint

import (
	"iter"

	"github.com/GlintPay/defcheck/definition"
)

// Settings decides which rules run
type Settings interface {
	Enabled(ruleID string) bool
}

// SettingsFunc adapts a plain function to Settings
type SettingsFunc func(ruleID string) bool

func (f SettingsFunc) Enabled(ruleID string) bool {
	return f(ruleID)
}

// AllRules enables every rule
var AllRules = SettingsFunc(func(string) bool { return true })

// Check runs every enabled rule against the chain's most-derived definition
func Check(chain *definition.Chain, settings Settings) iter.Seq2[Diagnostic, error] {
	return func(yield func(Diagnostic, error) bool) {
		if !settings.Enabled(RedundantOverride) {
			return
		}
		for d, err := range CheckRedundantOverrides(chain) {
			if !yield(d, err) {
				return
			}
		}
	}
}

// Collect drains a diagnostic sequence, stopping at the first error
func Collect(seq iter.Seq2[Diagnostic, error]) ([]Diagnostic, error) {
	diagnostics := []Diagnostic{}
	for d, err := range seq {
		if err != nil {
			return diagnostics, err
		}
		diagnostics = append(diagnostics, d)
	}
	return diagnostics, nil
}

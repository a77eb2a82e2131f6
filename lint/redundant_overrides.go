package lint

import (
	"fmt"
	"iter"

	"github.com/GlintPay/defcheck/definition"
	"github.com/pkg/errors"
)

var (
	ErrNoRoot         = errors.New("chain has no root definition")
	ErrUnknownSetting = errors.New("setting not defined by the root definition")
)

// CheckRedundantOverrides reports overrides in the chain's most-derived definition whose value
// is already defined for the same key by an ancestor. Diagnostics are produced as the caller
// iterates; an error ends the sequence.
func CheckRedundantOverrides(chain *definition.Chain) iter.Seq2[Diagnostic, error] {
	return func(yield func(Diagnostic, error) bool) {
		leaf := chain.Leaf()
		if leaf == nil || leaf.IsRoot() || leaf.Overrides == nil {
			return
		}

		parent, _ := leaf.Parent()
		keys := leaf.Overrides.Keys()
		severity := ruleSeverity(RedundantOverride)

		var settings *definition.Overrides

		for i, key := range keys {
			if settings == nil {
				root, ok := chain.Root()
				if !ok || root.Overrides == nil {
					yield(Diagnostic{}, errors.Wrapf(ErrNoRoot, "checking %s (chain: %v)", leaf.File, chain.Names()))
					return
				}
				settings = root.Overrides
			}

			setting, ok := settings.Get(key)
			if !ok {
				yield(Diagnostic{}, errors.Wrapf(ErrUnknownSetting, "%s in %s", key, leaf.File))
				return
			}

			override, _ := leaf.Overrides.Get(key)
			value, found := redefinedInParent(chain, key, override, parent, definition.IsNumericType(setting.Type))
			if !found {
				continue
			}

			diag := Diagnostic{
				RuleID:   RedundantOverride,
				Severity: severity,
				Message:  fmt.Sprintf("Overriding **%s** with the same value (**%s**) as defined in parent definition: **%s**", key, value, parent),
				File:     leaf.File,
				StartKey: key,
				Line:     override.Line,
			}
			if i+1 < len(keys) {
				diag.EndKey = keys[i+1]
				if next, ok := leaf.Overrides.Get(diag.EndKey); ok {
					diag.EndLine = next.Line
				}
			}

			if !yield(diag, nil) {
				return
			}
		}
	}
}

// redefinedInParent ascends from the named ancestor, skipping definitions with no overrides,
// until one holds a matching value for key or the chain runs out
func redefinedInParent(chain *definition.Chain, key string, override *definition.Descriptor, inherits string, numeric bool) (*definition.Value, bool) {
	name := inherits

	for range chain.Len() {
		ancestor, ok := chain.Get(name)
		if !ok {
			return nil, false
		}

		if ancestor.Overrides != nil {
			if candidate, ok := ancestor.Overrides.Get(key); ok {
				if v, ok := matchingValue(override, candidate, numeric); ok {
					return v, true
				}
			}
		}

		next, ok := ancestor.Parent()
		if !ok {
			return nil, false
		}
		name = next
	}
	return nil, false
}

func matchingValue(override *definition.Descriptor, candidate *definition.Descriptor, numeric bool) (*definition.Value, bool) {
	for _, v := range override.Checkable() {
		for _, cv := range candidate.Checkable() {
			if definition.SameValue(v.Raw, cv.Raw, numeric) {
				return v, true
			}
		}
	}
	return nil, false
}

func ruleSeverity(id string) Severity {
	if r, ok := LookupRule(id); ok {
		return r.Severity
	}
	return SeverityWarning
}

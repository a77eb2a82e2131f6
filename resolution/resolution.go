package resolution

import (
	"context"
	"slices"
	"strings"

	"github.com/GlintPay/defcheck/definition"
	gotel "github.com/GlintPay/defcheck/otel"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/unflatten"
)

// Setting is the effective value of one setting after applying the whole chain
type Setting struct {
	Key      string   `json:"key"`
	Value    any      `json:"value"`
	Type     string   `json:"type,omitempty"`
	Category []string `json:"category,omitempty"`

	// Source names the definition that supplied Value
	Source string `json:"source"`
}

type Resolved struct {
	Name string `json:"name"`

	// Precedence lists the chain from most-derived to root, e.g. `creality_ender3 > creality_base > fdmprinter`
	Precedence string `json:"precedence"`

	// Complete is false when the chain was cut short and has no root
	Complete bool `json:"complete"`

	PointlessOverrides []Duplicate `json:"pointlessOverrides,omitempty"`

	settings *linkedhashmap.Map
}

type Resolver struct {
	EnableTrace bool
}

// Resolve applies every definition's overrides from the root down to the most-derived one.
// A setting's effective value is its `value` if present, otherwise its `default_value`.
func (f *Resolver) Resolve(ctxt context.Context, chain *definition.Chain) *Resolved {
	if f.EnableTrace {
		_, span := gotel.GetTracer(ctxt).Start(ctxt, "resolve", gotel.InternalOptions)
		defer span.End()
	}

	resolved := &Resolved{
		Precedence: strings.Join(chain.Names(), " > "),
		settings:   linkedhashmap.New(),
	}
	if leaf := chain.Leaf(); leaf != nil {
		resolved.Name = leaf.Name
	}

	var types *definition.Overrides
	if root, ok := chain.Root(); ok {
		resolved.Complete = true
		types = root.Overrides
	}

	definitions := chain.Definitions()
	slices.Reverse(definitions)

	for _, def := range definitions {
		if def.Overrides == nil {
			continue
		}
		def.Overrides.ForEach(func(key string, d *definition.Descriptor) {
			resolved.overrideValue(key, d, def.Name, types)
		})
	}

	if len(resolved.PointlessOverrides) > 0 {
		log.Info().Msgf("Unnecessary overrides were found: %v", resolved.PointlessOverrides)
	}

	return resolved
}

func (r *Resolved) overrideValue(key string, d *definition.Descriptor, source string, types *definition.Overrides) {
	effective, ok := d.Effective()
	if !ok {
		return
	}

	setting := Setting{Key: key, Value: effective.Raw, Source: source, Type: d.Type, Category: d.Category}
	if types != nil {
		if root, ok := types.Get(key); ok {
			setting.Type = root.Type
			setting.Category = root.Category
		}
	}

	if current, ok := r.Get(key); ok {
		if definition.SameValue(current.Value, setting.Value, definition.IsNumericType(setting.Type)) {
			r.PointlessOverrides = append(r.PointlessOverrides, Duplicate{Key: key, Value: setting.Value, Source: source, Parent: current.Source})
			return
		}
	}

	r.settings.Put(key, setting)
}

func (r *Resolved) Get(key string) (Setting, bool) {
	v, found := r.settings.Get(key)
	if !found {
		return Setting{}, false
	}
	return v.(Setting), true
}

func (r *Resolved) Len() int {
	return r.settings.Size()
}

// Settings lists settings in the order they were first defined
func (r *Resolved) Settings() []Setting {
	settings := make([]Setting, 0, r.settings.Size())
	it := r.settings.Iterator()
	for it.Next() {
		settings = append(settings, it.Value().(Setting))
	}
	return settings
}

// Values maps each setting key to its effective value
func (r *Resolved) Values() map[string]any {
	values := make(map[string]any, r.settings.Size())
	for _, s := range r.Settings() {
		values[s.Key] = s.Value
	}
	return values
}

// Nested arranges values by setting category, e.g. `{"resolution": {"layer_height": {"value": 0.2}}}`.
// Each setting's value sits under `value` so that settings can also hold their child settings.
func (r *Resolved) Nested() map[string]any {
	return unflatten.Unflatten(r.Dotted(), func(k string) []string { return strings.Split(k, ".") })
}

// Dotted is the flattened form of Nested, keyed like `resolution.layer_height.value`
func (r *Resolved) Dotted() map[string]any {
	flat := make(map[string]any, r.settings.Size())
	for _, s := range r.Settings() {
		flat[nestedKey(s)] = s.Value
	}
	return flat
}

func nestedKey(s Setting) string {
	path := append(slices.Clone(s.Category), s.Key, "value")
	return strings.Join(path, ".")
}
